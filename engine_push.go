package goOTP

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/MrEthical07/goOTP/internal"
)

const (
	// pushNonceBytes sizes the random nonce dispatched to the device.
	pushNonceBytes = 20
	// pushChallengeAnswered is stored in Challenge.Data once the device
	// confirmation arrived.
	pushChallengeAnswered = "answered"
	pushSignatureAlgo     = "SHA256"
	pushDeliveryErrorText = "Use the polling feature of your app to check for open challenges."
)

func newPushNonce() (string, error) {
	return internal.RandomHex(pushNonceBytes)
}

// ConfirmChallenge records the out-of-band device confirmation for an open
// push challenge. signature must be the hex HMAC-SHA256 over
// "<nonce>|<serial>" keyed with the token secret; a mismatch is rejected with
// [ErrConfirmationInvalid] and leaves the challenge unanswered.
//
// Confirmation only marks the challenge as answered. The authentication
// itself still runs through [Engine.CheckResponse], which consumes the
// challenge on success.
func (e *Engine) ConfirmChallenge(ctx context.Context, token *Token, transactionID, signature string) error {
	if e == nil || e.challenges == nil {
		return ErrEngineNotReady
	}
	if err := e.checkTokenUsable(token); err != nil {
		return err
	}

	challenge, err := e.openChallenge(ctx, token, transactionID)
	if err != nil {
		return err
	}
	if challenge == nil {
		return ErrChallengeNotFound
	}

	signedData := challenge.Challenge + "|" + token.Serial
	var expected string
	err = withPlaintext(token.Secret, func(secret []byte) error {
		var sigErr error
		expected, sigErr = hotpResponseHex(secret, []byte(signedData), pushSignatureAlgo)
		return sigErr
	})
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		e.emitAudit(ctx, auditEventChallengeConfirmed, false, token.Serial, challenge.TransactionID, "", ErrConfirmationInvalid, nil)
		e.logger.Warn().Str("serial", token.Serial).Str("transaction_id", challenge.TransactionID).Msg("push confirmation signature rejected")
		return ErrConfirmationInvalid
	}

	challenge.Data = pushChallengeAnswered
	if _, err := e.challenges.Create(ctx, challenge); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	e.metricInc(MetricChallengeConfirmed)
	e.emitAudit(ctx, auditEventChallengeConfirmed, true, token.Serial, challenge.TransactionID, "", nil, nil)
	return nil
}

// checkPush ignores the submitted value entirely: a push authentication
// succeeds only when the referenced challenge has been answered by the
// device through [Engine.ConfirmChallenge].
func (e *Engine) checkPush(ctx context.Context, token *Token, _ string, opts CheckOptions) (int64, error) {
	if opts.TransactionID == "" {
		return NotFound, nil
	}

	challenge, err := e.openChallenge(ctx, token, opts.TransactionID)
	if err != nil {
		return NotFound, err
	}
	if challenge == nil || challenge.Data != pushChallengeAnswered {
		return NotFound, nil
	}
	return 1, nil
}
