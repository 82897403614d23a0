package goOTP

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the verification engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrTokenNotFound is an exported constant or variable used by the verification engine.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenInactive is an exported constant or variable used by the verification engine.
	ErrTokenInactive = errors.New("token inactive")
	// ErrTokenLocked is an exported constant or variable used by the verification engine.
	ErrTokenLocked = errors.New("token locked")
	// ErrUnknownTokenKind is an exported constant or variable used by the verification engine.
	ErrUnknownTokenKind = errors.New("unknown token kind")
	// ErrSecretUnavailable is an exported constant or variable used by the verification engine.
	ErrSecretUnavailable = errors.New("secret material unavailable")
	// ErrChallengeNotFound is an exported constant or variable used by the verification engine.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeExpired is an exported constant or variable used by the verification engine.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrChallengeBackend is an exported constant or variable used by the verification engine.
	ErrChallengeBackend = errors.New("challenge backend unavailable")
	// ErrConfirmationInvalid is an exported constant or variable used by the verification engine.
	ErrConfirmationInvalid = errors.New("confirmation signature invalid")
	// ErrDeliveryFailed is an exported constant or variable used by the verification engine.
	ErrDeliveryFailed = errors.New("challenge delivery failed")
	// ErrChannelConfiguration is an exported constant or variable used by the verification engine.
	ErrChannelConfiguration = errors.New("delivery channel misconfigured")
	// ErrNoDestination is an exported constant or variable used by the verification engine.
	ErrNoDestination = errors.New("no delivery destination for token")
	// ErrUnknownFederationServer is an exported constant or variable used by the verification engine.
	ErrUnknownFederationServer = errors.New("unknown federation server")
	// ErrForwardFailed is an exported constant or variable used by the verification engine.
	ErrForwardFailed = errors.New("federation relay failed")
)
