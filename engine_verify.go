package goOTP

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// IsChallengeRequest decides the first leg of the challenge-response flow:
// it reports whether password is a bare PIN asking for a challenge to be
// issued, rather than a complete authentication attempt. Only
// challenge-response kinds ever answer true.
//
// The PIN portion is compared in constant time; a trailing OTP appended to a
// correct PIN still counts as a challenge request, matching the first-leg
// semantics of deployed clients.
func (e *Engine) IsChallengeRequest(ctx context.Context, token *Token, password string) (bool, error) {
	if e == nil || e.tokens == nil {
		return false, ErrEngineNotReady
	}
	if err := e.checkTokenUsable(token); err != nil {
		return false, err
	}
	ops, ok := kindOps[token.Kind]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownTokenKind, token.Kind)
	}
	if !ops.info.ChallengeResponse {
		return false, nil
	}
	return checkPIN(token, password)
}

// CreateChallenge opens a challenge-response transaction: it persists a
// challenge record and, for deliverable kinds, dispatches the OTP message.
//
// Persisting and dispatching are separable steps. A delivery failure never
// discards the stored challenge; it either softens the reply message or, with
// [ChallengeOptions.StrictDelivery], escalates to an error wrapping
// [ErrDeliveryFailed]. A channel misconfiguration is always a hard
// [ErrChannelConfiguration] error.
//
// An enrollment-session challenge ([ChallengeSessionEnrollment]) is recorded
// but intentionally not dispatched.
func (e *Engine) CreateChallenge(ctx context.Context, token *Token, opts ChallengeOptions) (*ChallengeResult, error) {
	if e == nil || e.challenges == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.checkTokenUsable(token); err != nil {
		return nil, err
	}
	ops, ok := kindOps[token.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTokenKind, token.Kind)
	}

	validity := e.config.Challenge.DefaultValidity
	switch token.Kind {
	case KindSMS:
		validity = e.config.SMS.ChallengeValidity
	case KindPush:
		validity = e.config.Push.ChallengeValidity
	}

	deliver := ops.info.ChallengeResponse && opts.Session != ChallengeSessionEnrollment

	var otp string
	var data string
	challengeValue := opts.Challenge
	if deliver {
		if token.Kind == KindPush {
			// A push challenge carries a random nonce instead of an OTP; the
			// device signs the nonce out of band through ConfirmChallenge.
			if challengeValue == "" {
				nonce, err := newPushNonce()
				if err != nil {
					return nil, err
				}
				challengeValue = nonce
			}
		} else {
			// Advance the counter first so the dispatched OTP is ahead of the
			// replay watermark and every challenge carries a fresh value.
			next := token.Counter + 1
			if err := e.tokens.SetCounter(ctx, token.Serial, next); err != nil {
				return nil, err
			}
			token.Counter = next

			err := withPlaintext(token.Secret, func(secret []byte) error {
				var codeErr error
				otp, codeErr = hotpCode(secret, next, e.config.HOTP.Digits, e.config.HOTP.Algorithm)
				return codeErr
			})
			if err != nil {
				return nil, err
			}
			if e.config.SMS.ConcurrentChallenges {
				data = otp
			}
		}
	}

	challenge := &Challenge{
		Serial:        token.Serial,
		TransactionID: opts.TransactionID,
		Challenge:     challengeValue,
		Data:          data,
		Session:       opts.Session,
		Validity:      validity,
	}
	transactionID, err := e.challenges.Create(ctx, challenge)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	e.metricInc(MetricChallengeCreated)
	e.emitAudit(ctx, auditEventChallengeCreated, true, token.Serial, transactionID, userLogin(opts.User), nil, func() map[string]string {
		return map[string]string{"session": opts.Session, "kind": token.Kind.String()}
	})

	result := &ChallengeResult{
		Message:       e.challengeText(ctx, opts.User, token.Kind),
		TransactionID: transactionID,
		Attributes: map[string]string{
			"state":       transactionID,
			"valid_until": challenge.CreatedAt.Add(validity).UTC().Format(time.RFC3339),
		},
	}

	if !deliver {
		return result, nil
	}

	template := e.smsText(ctx, opts.User, false)
	if token.Kind == KindPush {
		template = e.config.Push.DefaultTemplate
	}
	if _, err := e.sendTokenMessage(ctx, token, template, otp, opts.User, false, challengeValue); err != nil {
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventChallengeDeliveryFail, false, token.Serial, transactionID, userLogin(opts.User), err, nil)
		e.logger.Warn().Str("serial", token.Serial).Str("transaction_id", transactionID).Err(err).Msg("challenge stored but message delivery failed")

		if errors.Is(err, ErrChannelConfiguration) {
			return nil, err
		}
		if opts.StrictDelivery {
			return nil, err
		}
		if token.Kind == KindPush {
			result.Message = result.Message + " " + pushDeliveryErrorText
		} else {
			result.Message = "The PIN was correct, but the SMS could not be sent!"
		}
		return result, nil
	}

	e.metricInc(MetricDeliverySuccess)
	result.Delivered = true
	return result, nil
}

// CheckResponse verifies a submitted OTP against the token. It returns the
// matched counter or time slice, or [NotFound] for a plain mismatch; errors
// are reserved for dependency and state failures.
//
// When a transaction ID locates an open challenge, a successful verification
// consumes it atomically; a challenge lost to a concurrent consumer turns the
// success into [NotFound]. An unmatched OTP on an SMS token additionally
// falls back to the challenge's recorded data under concurrent-challenge
// mode.
func (e *Engine) CheckResponse(ctx context.Context, token *Token, otp string, opts CheckOptions) (int64, error) {
	start := time.Now()
	defer func() {
		e.metricObserve(MetricCheckLatency, time.Since(start))
	}()

	if e == nil || e.tokens == nil {
		return NotFound, ErrEngineNotReady
	}
	if err := e.checkTokenUsable(token); err != nil {
		return NotFound, err
	}
	ops, ok := kindOps[token.Kind]
	if !ok {
		return NotFound, fmt.Errorf("%w: %d", ErrUnknownTokenKind, token.Kind)
	}

	challenge, err := e.openChallenge(ctx, token, opts.TransactionID)
	if err != nil {
		return NotFound, err
	}
	if opts.TransactionID != "" && challenge == nil {
		// The referenced transaction has no open challenge left: it expired
		// or was already consumed. The OTP can still match directly.
		e.metricInc(MetricChallengeExpired)
	}

	matched, err := ops.check(e, ctx, token, otp, opts)
	if err != nil {
		return NotFound, err
	}

	if matched == NotFound && token.Kind == KindSMS && e.config.SMS.ConcurrentChallenges &&
		challenge != nil && challenge.Data != "" {
		if subtle.ConstantTimeCompare([]byte(challenge.Data), []byte(otp)) == 1 {
			// The counter moved past this OTP when a later challenge was
			// issued; the recorded value still authenticates this one.
			matched = 1
		}
	}

	if matched == NotFound {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, token.Serial, opts.TransactionID, userLogin(opts.User), nil, nil)
		if err := e.tokens.IncFailCount(ctx, token.Serial); err != nil {
			e.logger.Warn().Str("serial", token.Serial).Err(err).Msg("failcount update failed")
		}
		return NotFound, nil
	}

	if challenge != nil {
		consumed, err := e.challenges.Consume(ctx, token.Serial, challenge.TransactionID)
		if err != nil {
			return NotFound, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		if !consumed {
			// A concurrent verification won the challenge.
			e.metricInc(MetricReplayRejected)
			e.emitAudit(ctx, auditEventReplayRejected, false, token.Serial, challenge.TransactionID, userLogin(opts.User), nil, nil)
			return NotFound, nil
		}
		e.metricInc(MetricChallengeConsumed)
		e.emitAudit(ctx, auditEventChallengeConsumed, true, token.Serial, challenge.TransactionID, userLogin(opts.User), nil, nil)
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, token.Serial, opts.TransactionID, userLogin(opts.User), nil, func() map[string]string {
		return map[string]string{"matched": strconv.FormatInt(matched, 10), "kind": token.Kind.String()}
	})

	if token.Kind == KindSMS {
		e.afterSMSSuccess(ctx, token, opts.User)
	}
	return matched, nil
}

// openChallenge loads the challenge addressed by transactionID for this
// token, if any. An expired or missing challenge is a soft nil; only backend
// failures surface as errors.
func (e *Engine) openChallenge(ctx context.Context, token *Token, transactionID string) (*Challenge, error) {
	if transactionID == "" || e.challenges == nil {
		return nil, nil
	}
	challenges, err := e.challenges.GetByTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	for _, c := range challenges {
		if c.Serial == token.Serial {
			return c, nil
		}
	}
	return nil, nil
}

// afterSMSSuccess runs the post-authentication side effects of an SMS token:
// either chain-dispatch a fresh challenge (auto-send policy) or send the
// passive post-check notification. Failures here never undo the successful
// authentication; they are logged and counted only.
func (e *Engine) afterSMSSuccess(ctx context.Context, token *Token, user *UserInfo) {
	if e.autoResend(ctx, user) {
		e.metricInc(MetricAutoResend)
		result, err := e.CreateChallenge(ctx, token, ChallengeOptions{User: user})
		if err != nil || !result.Delivered {
			e.logger.Warn().Str("serial", token.Serial).Err(err).Msg("automatic resend failed")
			return
		}
		e.emitAudit(ctx, auditEventAutoResend, true, token.Serial, result.TransactionID, userLogin(user), nil, nil)
		return
	}

	template := e.smsText(ctx, user, true)
	var otp string
	err := withPlaintext(token.Secret, func(secret []byte) error {
		var codeErr error
		otp, codeErr = hotpCode(secret, token.Counter, e.config.HOTP.Digits, e.config.HOTP.Algorithm)
		return codeErr
	})
	if err == nil {
		_, err = e.sendTokenMessage(ctx, token, template, otp, user, true, "")
	}
	if err != nil {
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventPostCheckFailed, false, token.Serial, "", userLogin(user), err, nil)
		e.logger.Warn().Str("serial", token.Serial).Err(err).Msg("post-check notification failed")
		return
	}
	e.metricInc(MetricPostCheckSent)
	e.emitAudit(ctx, auditEventPostCheckSent, true, token.Serial, "", userLogin(user), nil, nil)
}

// autoResend reports whether the auto-send policy matches for user.
func (e *Engine) autoResend(ctx context.Context, user *UserInfo) bool {
	if e.policy == nil {
		return false
	}
	return len(e.policy.MatchUserPolicy(ctx, ScopeAuth, ActionSMSAuto, user)) > 0
}

// smsText resolves the outbound message template: a unique policy value wins,
// otherwise the configured default.
func (e *Engine) smsText(ctx context.Context, user *UserInfo, postCheck bool) string {
	action := ActionSMSText
	if postCheck {
		action = ActionSMSPostCheckText
	}
	if e.policy != nil {
		if values := e.policy.MatchUserPolicy(ctx, ScopeAuth, action, user); len(values) == 1 {
			return values[0]
		}
	}
	return e.config.SMS.DefaultTemplate
}

// challengeText resolves the user-facing challenge prompt for the token kind.
func (e *Engine) challengeText(ctx context.Context, user *UserInfo, kind TokenKind) string {
	if e.policy != nil {
		if values := e.policy.MatchUserPolicy(ctx, ScopeAuth, ActionChallengeText, user); len(values) == 1 {
			return values[0]
		}
	}
	if kind == KindPush {
		return e.config.Push.DefaultChallengeText
	}
	return e.config.SMS.DefaultChallengeText
}
