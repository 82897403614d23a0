package goOTP

import (
	"context"
	"fmt"
	"strings"
)

// tokenInfoGatewayKey is the tokeninfo entry overriding the system-wide
// default gateway for a single token.
const tokenInfoGatewayKey = "gateway.identifier"

// channelUIDAttributeOption is the channel option naming the tokeninfo
// attribute that holds the destination identity for identity-addressed
// channels.
const channelUIDAttributeOption = "uid_tokeninfo_attribute"

// resolveChannel picks the delivery channel for a token: the token-level
// gateway override wins over the configured default. No resolvable channel
// is a configuration error, never a soft delivery failure.
func (e *Engine) resolveChannel(token *Token) (DeliveryChannel, error) {
	identifier := token.TokenInfo(tokenInfoGatewayKey)
	if identifier == "" {
		identifier = e.config.Delivery.DefaultGateway
	}
	if identifier == "" {
		return nil, fmt.Errorf("%w: no gateway configured for %s", ErrChannelConfiguration, token.Serial)
	}
	channel, ok := e.channels[identifier]
	if !ok {
		return nil, fmt.Errorf("%w: unknown gateway %q", ErrChannelConfiguration, identifier)
	}
	return channel, nil
}

// resolveDestination determines where the message goes. Identity-addressed
// channels receive the user login (or a tokeninfo attribute named by the
// channel); phone-addressed channels read the static phone tokeninfo entry,
// unless the token is marked dynamic, in which case the user directory is
// queried and the first returned entry wins.
func (e *Engine) resolveDestination(ctx context.Context, token *Token, user *UserInfo, channel DeliveryChannel) (string, error) {
	if channel.SendToIdentity() {
		uid := userLogin(user)
		if uid == "" {
			if attr := channel.Options()[channelUIDAttributeOption]; attr != "" {
				uid = token.TokenInfo(attr)
			}
		}
		if uid == "" {
			return "", fmt.Errorf("%w: no user identity for %s", ErrNoDestination, token.Serial)
		}
		return uid, nil
	}

	if token.TokenInfo(e.config.Delivery.DynamicPhoneInfoKey) != "" {
		if e.directory == nil || user == nil {
			return "", fmt.Errorf("%w: dynamic phone requires a user directory", ErrNoDestination)
		}
		numbers, err := e.directory.GetUserAddress(ctx, user, "mobile")
		if err != nil {
			return "", fmt.Errorf("%w: directory lookup: %v", ErrNoDestination, err)
		}
		if len(numbers) == 0 {
			return "", fmt.Errorf("%w: user %s has no mobile number", ErrNoDestination, userLogin(user))
		}
		return numbers[0], nil
	}

	phone := token.TokenInfo(e.config.Delivery.PhoneInfoKey)
	if phone == "" {
		return "", fmt.Errorf("%w: token %s has no phone number", ErrNoDestination, token.Serial)
	}
	return phone, nil
}

// renderMessage expands a message template. The legacy placeholders <otp>
// and <serial> are substituted first, then the named {tag} set in a single
// pass. Unknown tags stay literal.
func renderMessage(template, otp, serial string, tags map[string]string) string {
	message := strings.ReplaceAll(template, "<otp>", otp)
	message = strings.ReplaceAll(message, "<serial>", serial)

	pairs := make([]string, 0, 2*(len(tags)+2))
	pairs = append(pairs, "{otp}", otp, "{serial}", serial)
	for tag, value := range tags {
		pairs = append(pairs, "{"+tag+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(message)
}

// messageTags builds the named tag set for one dispatch.
func messageTags(token *Token, user *UserInfo, challenge string) map[string]string {
	tags := map[string]string{
		"tokentype": token.Kind.String(),
		"challenge": challenge,
	}
	if user != nil {
		tags["tokenowner"] = user.Login
		tags["user"] = user.Login
		tags["realm"] = user.Realm
		tags["recipient[givenname]"] = user.GivenName
		tags["recipient[surname]"] = user.Surname
	} else {
		tags["tokenowner"] = ""
		tags["user"] = ""
		tags["realm"] = ""
		tags["recipient[givenname]"] = ""
		tags["recipient[surname]"] = ""
	}
	return tags
}

// sendTokenMessage renders and dispatches one outbound message for token.
// postCheck selects the post-authentication submit variant. It returns the
// rendered message; errors other than [ErrChannelConfiguration] wrap
// [ErrDeliveryFailed] or [ErrNoDestination] and are soft for the caller to
// interpret.
func (e *Engine) sendTokenMessage(ctx context.Context, token *Token, template, otp string, user *UserInfo, postCheck bool, challenge string) (string, error) {
	channel, err := e.resolveChannel(token)
	if err != nil {
		return "", err
	}

	destination, err := e.resolveDestination(ctx, token, user, channel)
	if err != nil {
		e.logger.Warn().Str("serial", token.Serial).Err(err).Msg("no destination for message dispatch")
		return "", err
	}

	message := renderMessage(template, otp, token.Serial, messageTags(token, user, challenge))

	dctx := ctx
	if e.config.Delivery.Timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, e.config.Delivery.Timeout)
		defer cancel()
	}

	if postCheck {
		err = channel.SubmitPostCheck(dctx, destination, message)
	} else {
		err = channel.SubmitMessage(dctx, destination, message)
	}
	if err != nil {
		return message, fmt.Errorf("%w: gateway %s: %v", ErrDeliveryFailed, channel.Identifier(), err)
	}

	e.logger.Debug().Str("serial", token.Serial).Str("gateway", channel.Identifier()).Bool("post_check", postCheck).Msg("message submitted")
	return message, nil
}
