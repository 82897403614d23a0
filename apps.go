package goOTP

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MrEthical07/goOTP/internal"
)

// diskEncryptChallengeBytes is the random challenge length for disk
// encryption keyslot material.
const diskEncryptChallengeBytes = 32

// diskEncryptSerialPrefix marks tokens enrolled for disk-encryption unlock.
const diskEncryptSerialPrefix = "UBOM"

// sshSerialPrefix marks tokens carrying an SSH public key.
const sshSerialPrefix = "SSHK"

// diskEncryptApplication derives challenge/response keyslot material for
// disk-encryption unlock. The response is the full untruncated HMAC of the
// challenge, not a truncated OTP: the keyslot needs the whole digest as key
// material.
type diskEncryptApplication struct{}

func (diskEncryptApplication) Name() string { return "diskencrypt" }

func (diskEncryptApplication) AllowBulkCall() bool { return false }

func (diskEncryptApplication) Options() map[string]AppOption {
	return map[string]AppOption{
		"slot":      {Type: AppOptionInt},
		"partition": {Type: AppOptionString},
	}
}

func (a diskEncryptApplication) AuthItem(ctx context.Context, deps AppDeps, req AuthItemRequest) (map[string]string, error) {
	if req.TokenType != "" && req.TokenType != KindHOTP.String() {
		return map[string]string{}, nil
	}

	serial := req.Serial
	if serial == "" {
		serial = req.FilterParams["serial"]
	}
	if serial == "" || !strings.HasPrefix(serial, diskEncryptSerialPrefix) {
		return map[string]string{}, nil
	}

	token, err := deps.ActiveTokenBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}

	challengeHex := req.Challenge
	if challengeHex == "" {
		challengeHex, err = internal.RandomHex(diskEncryptChallengeBytes)
		if err != nil {
			return nil, err
		}
	}

	response, err := deps.ChallengeResponseHex(token, challengeHex)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"challenge": challengeHex,
		"response":  response,
	}, nil
}

// sshApplication serves enrolled SSH public keys to machines. It supports
// bulk calls so a host can fetch every key assigned to it in one request.
type sshApplication struct{}

func (sshApplication) Name() string { return "ssh" }

func (sshApplication) AllowBulkCall() bool { return true }

func (sshApplication) Options() map[string]AppOption {
	return map[string]AppOption{
		"user":       {Type: AppOptionString, Required: true},
		"service_id": {Type: AppOptionString},
	}
}

func (a sshApplication) AuthItem(ctx context.Context, deps AppDeps, req AuthItemRequest) (map[string]string, error) {
	serial := req.Serial
	if serial == "" {
		serial = req.FilterParams["serial"]
	}
	if serial == "" || !strings.HasPrefix(serial, sshSerialPrefix) {
		return map[string]string{}, nil
	}

	token, err := deps.ActiveTokenBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}

	key := token.TokenInfo("sshkey")
	if key == "" {
		return map[string]string{}, nil
	}
	item := map[string]string{
		"sshkey": key,
		"user":   req.Options["user"],
	}
	if serviceID := req.Options["service_id"]; serviceID != "" {
		item["service_id"] = serviceID
	}
	return item, nil
}

// builtinApplications returns the applications registered by default. A
// Builder can extend or override the set.
func builtinApplications() []MachineApplication {
	return []MachineApplication{
		diskEncryptApplication{},
		sshApplication{},
	}
}

// ActiveTokenBySerial implements [AppDeps]: it loads the token and requires
// it to be active and unlocked.
func (e *Engine) ActiveTokenBySerial(ctx context.Context, serial string) (*Token, error) {
	token, err := e.GetToken(ctx, serial)
	if err != nil {
		return nil, err
	}
	if err := e.checkTokenUsable(token); err != nil {
		return nil, err
	}
	return token, nil
}

// ChallengeResponseHex implements [AppDeps]: it decodes the hex challenge and
// returns the hex of the untruncated HMAC under the token secret.
func (e *Engine) ChallengeResponseHex(token *Token, challengeHex string) (string, error) {
	challenge, err := hex.DecodeString(challengeHex)
	if err != nil {
		return "", fmt.Errorf("invalid challenge encoding: %w", err)
	}

	var response string
	err = withPlaintext(token.Secret, func(secret []byte) error {
		var respErr error
		response, respErr = hotpResponseHex(secret, challenge, e.config.HOTP.Algorithm)
		return respErr
	})
	if err != nil {
		return "", err
	}
	return response, nil
}
