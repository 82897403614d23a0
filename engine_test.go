package goOTP

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// memoryTokenProvider is an in-memory TokenProvider for tests.
type memoryTokenProvider struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

func newMemoryTokenProvider(tokens ...*Token) *memoryTokenProvider {
	tp := &memoryTokenProvider{tokens: map[string]*Token{}}
	for _, token := range tokens {
		tp.tokens[token.Serial] = token
	}
	return tp
}

func (tp *memoryTokenProvider) GetTokenBySerial(_ context.Context, serial string) (*Token, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.tokens[serial], nil
}

func (tp *memoryTokenProvider) GetTokens(_ context.Context, filter TokenFilter) ([]*Token, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	var out []*Token
	for _, token := range tp.tokens {
		if filter.Serial != "" && token.Serial != filter.Serial {
			continue
		}
		if filter.Kind != nil && token.Kind != *filter.Kind {
			continue
		}
		if filter.ActiveOnly && !token.Active {
			continue
		}
		out = append(out, token)
	}
	return out, nil
}

func (tp *memoryTokenProvider) SetCounter(_ context.Context, serial string, counter int64) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	token, ok := tp.tokens[serial]
	if !ok {
		return ErrTokenNotFound
	}
	token.Counter = counter
	return nil
}

func (tp *memoryTokenProvider) IncFailCount(_ context.Context, serial string) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	token, ok := tp.tokens[serial]
	if !ok {
		return ErrTokenNotFound
	}
	token.FailCount++
	return nil
}

// fakeChannel records submitted messages and can be told to fail.
type fakeChannel struct {
	mu         sync.Mutex
	identifier string
	toIdentity bool
	options    map[string]string
	fail       bool

	sent      []sentMessage
	postCheck []sentMessage
}

type sentMessage struct {
	destination string
	message     string
}

func (c *fakeChannel) Identifier() string { return c.identifier }

func (c *fakeChannel) SendToIdentity() bool { return c.toIdentity }

func (c *fakeChannel) Options() map[string]string {
	if c.options == nil {
		return map[string]string{}
	}
	return c.options
}

func (c *fakeChannel) SubmitMessage(_ context.Context, destination, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("gateway unreachable")
	}
	c.sent = append(c.sent, sentMessage{destination: destination, message: message})
	return nil
}

func (c *fakeChannel) SubmitPostCheck(_ context.Context, destination, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("gateway unreachable")
	}
	c.postCheck = append(c.postCheck, sentMessage{destination: destination, message: message})
	return nil
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeChannel) lastSent(t *testing.T) sentMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		t.Fatal("no message submitted")
	}
	return c.sent[len(c.sent)-1]
}

// staticPolicy answers fixed values per action name.
type staticPolicy struct {
	values map[string][]string
}

func (p *staticPolicy) MatchUserPolicy(_ context.Context, _, action string, _ *UserInfo) []string {
	if p == nil || p.values == nil {
		return nil
	}
	return p.values[action]
}

// staticDirectory answers fixed addresses per login.
type staticDirectory struct {
	addresses map[string][]string
}

func (d *staticDirectory) GetUserAddress(_ context.Context, user *UserInfo, _ string) ([]string, error) {
	if user == nil {
		return nil, errors.New("no user")
	}
	return d.addresses[user.Login], nil
}

type testEngineOptions struct {
	config   *Config
	policy   PolicyLookup
	dir      UserDirectory
	channels []DeliveryChannel
	servers  []FederationServer
}

func newTestEngine(t *testing.T, tp TokenProvider, opts testEngineOptions) (*Engine, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := defaultConfig()
	if opts.config != nil {
		cfg = *opts.config
	}
	if cfg.Delivery.DefaultGateway == "" {
		cfg.Delivery.DefaultGateway = "test.gateway"
	}

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithTokenProvider(tp).
		WithPolicy(opts.policy).
		WithUserDirectory(opts.dir).
		WithChannels(opts.channels...).
		WithFederationServers(opts.servers...)

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		mr.Close()
	}
}
