// Package goOTP provides a multi-factor OTP verification engine with
// time-based mOTP, counter-based HOTP, and SMS challenge-response tokens,
// Redis-backed challenge lifecycle, and pluggable delivery gateways.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goOTP is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (Token, Challenge, ForwardAction, etc.). All internal coordination — challenge
// persistence, random material generation — lives under internal/ and is never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports goOTP (no import cycles).
//
// # Verification contract
//
// CheckResponse is the hot path. A wrong OTP is never an error: it returns the
// NotFound sentinel. Errors are reserved for backend failures, configuration
// faults, and strict-mode delivery escalation. Replay protection uses a scalar
// watermark per token: a match at or below the last accepted counter/time slice
// is rejected even when the raw digest matches.
package goOTP
