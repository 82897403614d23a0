package goOTP

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// forwardPayloadClientKey is the payload key carrying the original client IP
// to the remote server.
const forwardPayloadClientKey = "client"

// Forward relays an inbound request to the named remote server and returns
// the remote outcome verbatim, status code included, so the caller can hand
// it back to the original client unchanged except for the injected
// detail.origin marker.
//
// Only GET, POST and DELETE are relayed. Any other method is a logged no-op
// returning (nil, nil): the caller proceeds with local handling. Payload and
// header mutations happen strictly when the corresponding [ForwardAction]
// flag or value is set.
func (e *Engine) Forward(ctx context.Context, req InboundRequest, action ForwardAction) (*ForwardResponse, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	server, ok := e.federation[action.Server]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFederationServer, action.Server)
	}

	switch req.Method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		e.metricInc(MetricForwardSkipped)
		e.emitAudit(ctx, auditEventForwardSkipped, false, "", "", "", nil, func() map[string]string {
			return map[string]string{"method": req.Method, "server": server.Identifier}
		})
		e.logger.Warn().Str("method", req.Method).Str("server", server.Identifier).Msg("method not eligible for forwarding")
		return nil, nil
	}

	payload := url.Values{}
	for key, value := range req.Payload {
		payload.Set(key, value)
	}
	if action.ForwardClientIP {
		if ip := clientIPFromContext(ctx); ip != "" {
			payload.Set(forwardPayloadClientKey, ip)
		}
	}
	if action.Realm != "" {
		payload.Set("realm", action.Realm)
	}
	if action.Resolver != "" {
		payload.Set("resolver", action.Resolver)
	}

	requestURL := strings.TrimRight(server.URL, "/") + req.Path

	var outbound *http.Request
	var err error
	if req.Method == http.MethodGet {
		outbound, err = http.NewRequestWithContext(ctx, req.Method, requestURL, nil)
		if err == nil {
			outbound.URL.RawQuery = payload.Encode()
		}
	} else {
		outbound, err = http.NewRequestWithContext(ctx, req.Method, requestURL, strings.NewReader(payload.Encode()))
		if err == nil {
			outbound.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForwardFailed, err)
	}
	if action.ForwardAuthorization && req.Authorization != "" {
		outbound.Header.Set("Authorization", req.Authorization)
	}

	client := e.httpClient
	if !server.TLSVerify {
		client = e.insecureClient
	}

	resp, err := client.Do(outbound)
	if err != nil {
		e.metricInc(MetricForwardFailed)
		e.emitAudit(ctx, auditEventForwardFailed, false, "", "", "", ErrForwardFailed, func() map[string]string {
			return map[string]string{"server": server.Identifier, "url": requestURL}
		})
		return nil, fmt.Errorf("%w: %s: %v", ErrForwardFailed, server.Identifier, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.metricInc(MetricForwardFailed)
		return nil, fmt.Errorf("%w: reading response from %s: %v", ErrForwardFailed, server.Identifier, err)
	}

	e.metricInc(MetricForwardRelayed)
	e.emitAudit(ctx, auditEventForwardRelayed, true, "", "", "", nil, func() map[string]string {
		return map[string]string{"server": server.Identifier, "status": resp.Status}
	})

	return &ForwardResponse{
		StatusCode:  resp.StatusCode,
		Body:        injectOrigin(body, requestURL),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// injectOrigin marks a JSON response body with detail.origin so the original
// caller can tell the answer came from a remote server. A body without a
// detail object, or a non-JSON body, is returned untouched.
func injectOrigin(body []byte, origin string) []byte {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return body
	}

	detail, ok := parsed["detail"].(map[string]any)
	if !ok {
		return body
	}
	detail["origin"] = origin
	parsed["detail"] = detail

	out, err := json.Marshal(parsed)
	if err != nil {
		return body
	}
	return out
}
