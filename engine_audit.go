package goOTP

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventChallengeCreated       = "challenge_created"
	auditEventChallengeDeliveryFail  = "challenge_delivery_failed"
	auditEventChallengeConsumed      = "challenge_consumed"
	auditEventChallengeConfirmed     = "challenge_confirmed"
	auditEventVerifySuccess          = "verify_success"
	auditEventVerifyFailure          = "verify_failure"
	auditEventReplayRejected         = "replay_rejected"
	auditEventAutoResend             = "auto_resend"
	auditEventPostCheckSent          = "post_check_sent"
	auditEventPostCheckFailed        = "post_check_failed"
	auditEventAuthItemIssued         = "auth_item_issued"
	auditEventAuthItemUnsupported    = "auth_item_unsupported"
	auditEventForwardRelayed         = "forward_relayed"
	auditEventForwardSkipped         = "forward_skipped"
	auditEventForwardFailed          = "forward_failed"
)

// AuditErrorCode defines a public type used by goOTP APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrTokenNotFound    AuditErrorCode = "token_not_found"
	auditErrTokenInactive    AuditErrorCode = "token_inactive"
	auditErrTokenLocked      AuditErrorCode = "token_locked"
	auditErrUnknownKind      AuditErrorCode = "unknown_token_kind"
	auditErrSecret           AuditErrorCode = "secret_unavailable"
	auditErrChallengeExpired AuditErrorCode = "challenge_expired"
	auditErrConfirmation     AuditErrorCode = "confirmation_invalid"
	auditErrDelivery         AuditErrorCode = "delivery_failed"
	auditErrChannelConfig    AuditErrorCode = "channel_misconfigured"
	auditErrNoDestination    AuditErrorCode = "no_destination"
	auditErrForward          AuditErrorCode = "forward_failed"
	auditErrUnknownServer    AuditErrorCode = "unknown_federation_server"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	serial string,
	transactionID string,
	user string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if userAgent := userAgentFromContext(ctx); userAgent != "" {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["user_agent"] = userAgent
	}

	event := AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     eventType,
		Serial:        serial,
		TransactionID: transactionID,
		User:          user,
		IP:            clientIPFromContext(ctx),
		Success:       success,
		Metadata:      metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenNotFound):
		return auditErrTokenNotFound
	case errors.Is(err, ErrTokenInactive):
		return auditErrTokenInactive
	case errors.Is(err, ErrTokenLocked):
		return auditErrTokenLocked
	case errors.Is(err, ErrUnknownTokenKind):
		return auditErrUnknownKind
	case errors.Is(err, ErrSecretUnavailable):
		return auditErrSecret
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrConfirmationInvalid):
		return auditErrConfirmation
	case errors.Is(err, ErrChallengeBackend):
		return auditErrUnavailable
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDelivery
	case errors.Is(err, ErrChannelConfiguration):
		return auditErrChannelConfig
	case errors.Is(err, ErrNoDestination):
		return auditErrNoDestination
	case errors.Is(err, ErrUnknownFederationServer):
		return auditErrUnknownServer
	case errors.Is(err, ErrForwardFailed):
		return auditErrForward
	default:
		return auditErrInternal
	}
}
