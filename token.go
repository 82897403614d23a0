package goOTP

import (
	"context"
	"crypto/subtle"
	"time"
)

// ClassInfo describes a token kind: its wire type, human-readable title, and
// whether it authenticates through the two-phase challenge-response flow.
type ClassInfo struct {
	Type              string
	Title             string
	Description       string
	ChallengeResponse bool
}

// tokenOps is the capability set implemented per token kind. Kinds are a
// closed enumeration dispatched through kindOps; there is no subclassing.
type tokenOps struct {
	info  ClassInfo
	check func(e *Engine, ctx context.Context, token *Token, otp string, opts CheckOptions) (int64, error)
}

var kindOps = map[TokenKind]*tokenOps{
	KindMOTP: {
		info: ClassInfo{
			Type:        "motp",
			Title:       "mOTP Token",
			Description: "mobile-OTP: time-based md5 OTP for smartphone apps.",
		},
		check: (*Engine).checkMOTP,
	},
	KindHOTP: {
		info: ClassInfo{
			Type:        "hotp",
			Title:       "HOTP Token",
			Description: "HOTP: event-based OTP with a forward counter window.",
		},
		check: (*Engine).checkHOTP,
	},
	KindSMS: {
		info: ClassInfo{
			Type:              "sms",
			Title:             "SMS Token",
			Description:       "SMS: send a one-time password to the user's mobile phone.",
			ChallengeResponse: true,
		},
		check: (*Engine).checkHOTP,
	},
	KindPush: {
		info: ClassInfo{
			Type:              "push",
			Title:             "PUSH Token",
			Description:       "PUSH: send a confirmation request to a smartphone.",
			ChallengeResponse: true,
		},
		check: (*Engine).checkPush,
	},
}

// GetClassInfo returns the descriptor for a token kind.
func (e *Engine) GetClassInfo(kind TokenKind) (ClassInfo, bool) {
	ops, ok := kindOps[kind]
	if !ok {
		return ClassInfo{}, false
	}
	return ops.info, true
}

// checkMOTP scans time slices around now (or the InitTime override) and
// applies the scalar replay watermark stored in Token.Counter. On success the
// watermark advances to the matched slice.
func (e *Engine) checkMOTP(ctx context.Context, token *Token, otp string, opts CheckOptions) (int64, error) {
	cfg := e.config.MOTP

	window := cfg.Window
	if opts.Window > 0 {
		window = opts.Window
	}
	window *= cfg.SearchFactor

	base := opts.InitTime
	if base == 0 {
		base = motpSlice(time.Now(), cfg.TimeStepSeconds)
	}

	matched := NotFound
	replay := false
	err := withPlaintext2(token.Secret, token.PIN, func(key, pin []byte) error {
		matched, replay = motpCheckWindow(otp, token.Counter, base, window, key, pin, cfg.Digits)
		return nil
	})
	if err != nil {
		return NotFound, err
	}

	if replay {
		e.metricInc(MetricReplayRejected)
		e.emitAudit(ctx, auditEventReplayRejected, false, token.Serial, opts.TransactionID, userLogin(opts.User), nil, nil)
		e.logger.Warn().Str("serial", token.Serial).Int64("slice", matched).Int64("watermark", token.Counter).Msg("motp value checked once before")
		return NotFound, nil
	}
	if matched == NotFound {
		return NotFound, nil
	}

	if err := e.tokens.SetCounter(ctx, token.Serial, matched); err != nil {
		return NotFound, err
	}
	token.Counter = matched
	return matched, nil
}

// checkHOTP scans counters forward from the stored counter. On success the
// stored counter advances to matched+1, which is what makes the same OTP fail
// on replay.
func (e *Engine) checkHOTP(ctx context.Context, token *Token, otp string, opts CheckOptions) (int64, error) {
	cfg := e.config.HOTP

	if len(otp) != cfg.Digits || !isNumericString(otp) {
		return NotFound, nil
	}

	window := cfg.Window
	if opts.Window > 0 {
		window = opts.Window
	}

	matched := NotFound
	err := withPlaintext(token.Secret, func(secret []byte) error {
		var checkErr error
		matched, checkErr = hotpCheckWindow(secret, otp, token.Counter, window, cfg.Digits, cfg.Algorithm)
		return checkErr
	})
	if err != nil {
		return NotFound, err
	}
	if matched == NotFound {
		return NotFound, nil
	}

	if err := e.tokens.SetCounter(ctx, token.Serial, matched+1); err != nil {
		return NotFound, err
	}
	token.Counter = matched + 1
	return matched, nil
}

// checkPIN compares the PIN portion of password against the token PIN in
// constant time, ignoring any trailing OTP portion. A token without PIN
// material matches only the empty password.
func checkPIN(token *Token, password string) (bool, error) {
	if token.PIN == nil {
		return password == "", nil
	}

	match := false
	err := withPlaintext(token.PIN, func(pin []byte) error {
		candidate := []byte(password)
		if len(candidate) > len(pin) {
			candidate = candidate[:len(pin)]
		}
		match = subtle.ConstantTimeCompare(candidate, pin) == 1
		return nil
	})
	return match, err
}

func userLogin(user *UserInfo) string {
	if user == nil {
		return ""
	}
	return user.Login
}
