package goOTP

import (
	"context"
	"time"
)

// NotFound is the sentinel returned by verification operations when the
// submitted OTP does not match any counter or time slice. A wrong OTP is a
// soft outcome, not an error.
const NotFound int64 = -1

// TokenKind identifies one of the closed set of supported token types.
//
// TokenKind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenKind uint8

const (
	// KindMOTP is a time-based mobile-OTP token (md5 digest, 10-second slices).
	KindMOTP TokenKind = iota
	// KindHOTP is an event/counter-based OTP token.
	KindHOTP
	// KindSMS is an SMS challenge-response token built on the HOTP primitive.
	KindSMS
	// KindPush is a smartphone confirmation token: the challenge is a random
	// nonce pushed to the device, answered out of band through
	// [Engine.ConfirmChallenge].
	KindPush
)

// String returns the wire name of the token kind ("motp", "hotp", "sms",
// "push").
func (k TokenKind) String() string {
	switch k {
	case KindMOTP:
		return "motp"
	case KindHOTP:
		return "hotp"
	case KindSMS:
		return "sms"
	case KindPush:
		return "push"
	}
	return "unknown"
}

// ParseTokenKind maps a wire name back to a [TokenKind].
func ParseTokenKind(name string) (TokenKind, bool) {
	switch name {
	case "motp":
		return KindMOTP, true
	case "hotp":
		return KindHOTP, true
	case "sms":
		return KindSMS, true
	case "push":
		return KindPush, true
	}
	return 0, false
}

// Secret is encrypted-at-rest key material. Decrypt returns the plaintext,
// which the engine scrubs (overwrites) before the verification call returns,
// on every exit path.
type Secret interface {
	Decrypt() ([]byte, error)
}

// Token is one enrolled credential. The engine never deletes tokens; it only
// advances the counter/watermark through [TokenProvider.SetCounter].
//
// Counter doubles as the replay watermark: for HOTP/SMS it is the next
// expected counter, for mOTP it is the last accepted time slice.
type Token struct {
	Serial    string
	Kind      TokenKind
	Active    bool
	Locked    bool
	FailCount int
	Counter   int64
	Secret    Secret
	PIN       Secret
	Info      map[string]string
}

// TokenInfo returns the token metadata value for key, or "" when absent.
func (t *Token) TokenInfo(key string) string {
	if t == nil || t.Info == nil {
		return ""
	}
	return t.Info[key]
}

// TokenFilter narrows a [TokenProvider.GetTokens] lookup.
type TokenFilter struct {
	Serial     string
	Kind       *TokenKind
	ActiveOnly bool
}

// TokenProvider is the persistence contract callers must implement to
// integrate goOTP with their token database. SetCounter persists the replay
// watermark; a transactional compare-and-set at the storage layer is
// recommended for concurrent verifications against the same token.
type TokenProvider interface {
	GetTokenBySerial(ctx context.Context, serial string) (*Token, error)
	GetTokens(ctx context.Context, filter TokenFilter) ([]*Token, error)
	SetCounter(ctx context.Context, serial string, counter int64) error
	IncFailCount(ctx context.Context, serial string) error
}

// Challenge is one outstanding or historical challenge-response cycle.
type Challenge struct {
	Serial        string        `json:"serial"`
	TransactionID string        `json:"transaction_id"`
	Challenge     string        `json:"challenge,omitempty"`
	Data          string        `json:"data,omitempty"`
	Session       string        `json:"session,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Validity      time.Duration `json:"validity"`
}

// Expired reports whether the challenge is no longer matchable at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.CreatedAt.Add(c.Validity))
}

// Challenge session tags. An enrollment-verification challenge is recorded
// but never dispatched to a delivery channel.
const (
	ChallengeSessionDefault    = ""
	ChallengeSessionEnrollment = "enrollment"
)

// ChallengeStore is the persistence contract for challenge records. Expiry
// is evaluated lazily at lookup time; implementations may additionally purge
// rows out of band. Consume must be atomic: exactly one concurrent caller
// observes true for a given challenge.
type ChallengeStore interface {
	Create(ctx context.Context, challenge *Challenge) (string, error)
	GetByTransaction(ctx context.Context, transactionID string) ([]*Challenge, error)
	GetByToken(ctx context.Context, serial string) ([]*Challenge, error)
	Consume(ctx context.Context, serial, transactionID string) (bool, error)
	Delete(ctx context.Context, serial, transactionID string) error
}

// DeliveryChannel is an outbound gateway capability (SMS gateway, messaging
// relay). SubmitPostCheck is the post-authentication notification variant and
// may use a different remote operation than SubmitMessage.
type DeliveryChannel interface {
	Identifier() string
	SendToIdentity() bool
	Options() map[string]string
	SubmitMessage(ctx context.Context, destination, message string) error
	SubmitPostCheck(ctx context.Context, destination, message string) error
}

// UserInfo identifies the token owner for policy lookups, directory queries,
// and message tag rendering.
type UserInfo struct {
	Login     string
	Realm     string
	GivenName string
	Surname   string
}

// Policy scopes and action names consumed through [PolicyLookup].
const (
	ScopeAuth = "authentication"

	ActionSMSText          = "smstext"
	ActionSMSPostCheckText = "smspostchecktext"
	ActionSMSAuto          = "smsautosend"
	ActionChallengeText    = "sms_challenge_text"
)

// PolicyLookup is the query contract of the external policy engine. It
// returns the set of action values matching the user; an empty set means the
// action is not configured. Boolean policies are "set at least once" checks.
type PolicyLookup interface {
	MatchUserPolicy(ctx context.Context, scope, action string, user *UserInfo) []string
}

// UserDirectory resolves dynamic user addresses (e.g. phone numbers). A
// multi-valued attribute returns all entries; callers take the first.
type UserDirectory interface {
	GetUserAddress(ctx context.Context, user *UserInfo, kind string) ([]string, error)
}

// FederationServer is a named remote-server configuration, owned by an
// external configuration store and read-only here.
type FederationServer struct {
	Identifier string
	URL        string
	TLSVerify  bool
}

// AppOption describes one entry of a machine application's option schema.
type AppOption struct {
	Type     string
	Required bool
	Values   []string
}

// Machine application option types.
const (
	AppOptionInt    = "int"
	AppOptionString = "str"
	AppOptionBool   = "bool"
)

// AuthItemRequest is the input of [Engine.GetAuthenticationItem].
type AuthItemRequest struct {
	TokenType    string
	Serial       string
	Challenge    string
	Options      map[string]string
	FilterParams map[string]string
}

// AppDeps is the narrow engine surface handed to machine application
// handlers: token lookup plus challenge-response derivation.
type AppDeps interface {
	ActiveTokenBySerial(ctx context.Context, serial string) (*Token, error)
	ChallengeResponseHex(token *Token, challengeHex string) (string, error)
}

// MachineApplication is a named capability deriving authentication material
// for external consumers (disk-encryption unlock, SSH). Implementations are
// registered at Build time and are read-only afterwards.
type MachineApplication interface {
	Name() string
	AllowBulkCall() bool
	Options() map[string]AppOption
	AuthItem(ctx context.Context, deps AppDeps, req AuthItemRequest) (map[string]string, error)
}

// ChallengeOptions carries per-call parameters into [Engine.CreateChallenge].
type ChallengeOptions struct {
	// TransactionID correlates the two request legs; generated when empty.
	TransactionID string
	// Challenge is an optional caller-chosen challenge payload preserved in
	// the store and exposed to message templates.
	Challenge string
	// Session tags the challenge (e.g. [ChallengeSessionEnrollment]).
	Session string
	User    *UserInfo
	// StrictDelivery escalates a delivery failure to a hard error instead of
	// a soft user-facing message.
	StrictDelivery bool
}

// ChallengeResult is returned by [Engine.CreateChallenge].
type ChallengeResult struct {
	// Delivered reports whether the outbound dispatch succeeded. The
	// challenge record is persisted regardless.
	Delivered     bool
	Message       string
	TransactionID string
	Attributes    map[string]string
}

// CheckOptions carries per-call parameters into [Engine.CheckResponse].
type CheckOptions struct {
	// TransactionID locates the open challenge for consumption and for the
	// concurrent-challenge precomputed-data fallback.
	TransactionID string
	// Window overrides the configured search window (counters or time steps).
	Window int
	// InitTime overrides the mOTP base time slice; zero means now. Used by
	// self-tests and enrollment verification.
	InitTime int64
	User     *UserInfo
}

// InboundRequest describes the original request considered for federation
// forwarding. Payload is the flattened request data.
type InboundRequest struct {
	Method        string
	Path          string
	Authorization string
	Payload       map[string]string
}

// ForwardAction is the per-event forwarding configuration. Boolean flags
// strictly gate every payload/header mutation.
type ForwardAction struct {
	Server               string
	Realm                string
	Resolver             string
	ForwardClientIP      bool
	ForwardAuthorization bool
}

// ForwardResponse is the HTTP-shaped relay outcome, suitable for returning
// verbatim to the original caller.
type ForwardResponse struct {
	StatusCode  int
	Body        []byte
	ContentType string
}
