package internaldefs

import (
	goOTP "github.com/MrEthical07/goOTP"
)

// CounterDef defines a public type used by goOTP APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goOTP APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the verification engine.
var CounterDefs = []CounterDef{
	{ID: goOTP.MetricVerifySuccess, Name: "gootp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: goOTP.MetricVerifyFailure, Name: "gootp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: goOTP.MetricReplayRejected, Name: "gootp_replay_rejected_total", Help: "Verifications rejected by the replay watermark or a lost challenge race."},
	{ID: goOTP.MetricChallengeCreated, Name: "gootp_challenge_created_total", Help: "Created challenge-response transactions."},
	{ID: goOTP.MetricChallengeConsumed, Name: "gootp_challenge_consumed_total", Help: "Challenges consumed by a successful verification."},
	{ID: goOTP.MetricChallengeExpired, Name: "gootp_challenge_expired_total", Help: "Challenges discarded at lookup time as expired."},
	{ID: goOTP.MetricChallengeConfirmed, Name: "gootp_challenge_confirmed_total", Help: "Push confirmation requests answered by a device."},
	{ID: goOTP.MetricDeliverySuccess, Name: "gootp_delivery_success_total", Help: "Successful outbound message dispatches."},
	{ID: goOTP.MetricDeliveryFailure, Name: "gootp_delivery_failure_total", Help: "Failed outbound message dispatches."},
	{ID: goOTP.MetricAutoResend, Name: "gootp_auto_resend_total", Help: "Chained challenge dispatches after successful authentication."},
	{ID: goOTP.MetricPostCheckSent, Name: "gootp_post_check_sent_total", Help: "Post-authentication notifications sent."},
	{ID: goOTP.MetricAuthItemIssued, Name: "gootp_auth_item_issued_total", Help: "Machine authentication items issued."},
	{ID: goOTP.MetricAuthItemUnsupported, Name: "gootp_auth_item_unsupported_total", Help: "Machine authentication item requests answered empty."},
	{ID: goOTP.MetricForwardRelayed, Name: "gootp_forward_relayed_total", Help: "Requests relayed to a federation server."},
	{ID: goOTP.MetricForwardSkipped, Name: "gootp_forward_skipped_total", Help: "Requests skipped by the forwarder due to an ineligible method."},
	{ID: goOTP.MetricForwardFailed, Name: "gootp_forward_failed_total", Help: "Failed federation relays."},
}

// HistogramDefs is an exported constant or variable used by the verification engine.
var HistogramDefs = []HistogramDef{
	{ID: goOTP.MetricCheckLatency, Name: "gootp_check_latency_seconds", Help: "OTP check latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the verification engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
