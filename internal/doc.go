// Package internal contains helper utilities that are intentionally private to goOTP,
// including secure random generation and plaintext scrubbing.
//
// # Sub-packages
//
//   - stores — Redis-backed challenge record persistence
//
// # What this package must NOT do
//
//   - Export types that appear in the public goOTP API.
//   - Be imported by any package outside the goOTP module.
package internal
