// Package stores provides the Redis-backed, short-lived challenge record
// store for the challenge-response authentication flow.
//
// # Design
//
// Each challenge persists as a versioned JSON record keyed by transaction id
// and token serial, with a Redis TTL matching its validity. Two index sets
// (per transaction id, per serial) support both lookup legs. Expiry is
// additionally evaluated lazily at lookup time so a record is never matchable
// past created_at + validity regardless of TTL granularity. Consumption is a
// single DEL whose reply count makes one-shot semantics atomic: exactly one
// concurrent consumer observes success.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package.
//   - Generate OTP values or make verification decisions.
//   - Log or expose challenge data payloads.
package stores
