package goOTP

import (
	"crypto/tls"
	"errors"
	"net/http"

	"github.com/phuslu/log"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goOTP APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	tokenProvider TokenProvider
	challenges    ChallengeStore
	channels      map[string]DeliveryChannel
	policy        PolicyLookup
	directory     UserDirectory
	applications  []MachineApplication
	federation    []FederationServer

	auditSink AuditSink
	logger    *log.Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config:   defaultConfig(),
		channels: map[string]DeliveryChannel{},
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis wires the default Redis-backed challenge store. A custom
// [ChallengeStore] supplied through [Builder.WithChallengeStore] wins.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithChallengeStore describes the withchallengestore operation and its observable behavior.
//
// WithChallengeStore may return an error when input validation, dependency calls, or security checks fail.
// WithChallengeStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithChallengeStore(store ChallengeStore) *Builder {
	b.challenges = store
	return b
}

// WithTokenProvider describes the withtokenprovider operation and its observable behavior.
//
// WithTokenProvider may return an error when input validation, dependency calls, or security checks fail.
// WithTokenProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithTokenProvider(tp TokenProvider) *Builder {
	b.tokenProvider = tp
	return b
}

// WithChannel registers one delivery channel under its identifier.
func (b *Builder) WithChannel(channel DeliveryChannel) *Builder {
	if channel != nil {
		b.channels[channel.Identifier()] = channel
	}
	return b
}

// WithChannels registers several delivery channels at once.
func (b *Builder) WithChannels(channels ...DeliveryChannel) *Builder {
	for _, channel := range channels {
		b.WithChannel(channel)
	}
	return b
}

// WithPolicy describes the withpolicy operation and its observable behavior.
//
// WithPolicy may return an error when input validation, dependency calls, or security checks fail.
// WithPolicy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPolicy(policy PolicyLookup) *Builder {
	b.policy = policy
	return b
}

// WithUserDirectory describes the withuserdirectory operation and its observable behavior.
//
// WithUserDirectory may return an error when input validation, dependency calls, or security checks fail.
// WithUserDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserDirectory(directory UserDirectory) *Builder {
	b.directory = directory
	return b
}

// WithApplications registers machine applications in addition to the
// built-in set. A supplied application with a built-in name overrides it.
func (b *Builder) WithApplications(apps ...MachineApplication) *Builder {
	b.applications = append(b.applications, apps...)
	return b
}

// WithFederationServers registers the named remote servers available to
// [Engine.Forward].
func (b *Builder) WithFederationServers(servers ...FederationServer) *Builder {
	b.federation = append(b.federation, servers...)
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.tokenProvider == nil {
		return nil, errors.New("token provider required")
	}

	// -------- CHALLENGE STORE --------
	challenges := b.challenges
	if challenges == nil {
		if b.redis == nil {
			return nil, errors.New("challenge store or redis client required")
		}
		challenges = newRedisChallengeStore(b.redis, cfg.Challenge.RedisPrefix)
	}

	// -------- APPLICATION REGISTRY --------
	apps := map[string]MachineApplication{}
	for _, app := range builtinApplications() {
		apps[app.Name()] = app
	}
	for _, app := range b.applications {
		if app == nil {
			continue
		}
		apps[app.Name()] = app
	}

	// -------- FEDERATION SERVERS --------
	federation := map[string]FederationServer{}
	for _, server := range b.federation {
		if server.Identifier == "" || server.URL == "" {
			return nil, errors.New("federation server requires identifier and url")
		}
		federation[server.Identifier] = server
	}

	channels := make(map[string]DeliveryChannel, len(b.channels))
	for identifier, channel := range b.channels {
		channels[identifier] = channel
	}

	logger := b.logger
	if logger == nil {
		logger = silentLogger()
	}

	engine := &Engine{
		config:     cfg,
		tokens:     b.tokenProvider,
		challenges: challenges,
		channels:   channels,
		policy:     b.policy,
		directory:  b.directory,
		apps:       apps,
		federation: federation,
		logger:     logger,
	}

	engine.httpClient = &http.Client{Timeout: cfg.Federation.Timeout}
	engine.insecureClient = &http.Client{
		Timeout: cfg.Federation.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // per-server TLSVerify=false opt-in
		},
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true
	return engine, nil
}
