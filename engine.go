package goOTP

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/phuslu/log"
)

// Engine defines a public type used by goOTP APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	tokens     TokenProvider
	challenges ChallengeStore
	channels   map[string]DeliveryChannel
	policy     PolicyLookup
	directory  UserDirectory
	apps       map[string]MachineApplication
	federation map[string]FederationServer

	httpClient     *http.Client
	insecureClient *http.Client

	audit   *auditDispatcher
	metrics *Metrics
	logger  *log.Logger
}

func silentLogger() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// GetToken loads a token by serial through the configured [TokenProvider].
//
// GetToken may return an error when input validation, dependency calls, or security checks fail.
// GetToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetToken(ctx context.Context, serial string) (*Token, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	token, err := e.tokens.GetTokenBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

func (e *Engine) checkTokenUsable(token *Token) error {
	if token == nil {
		return ErrTokenNotFound
	}
	if !token.Active {
		return ErrTokenInactive
	}
	if token.Locked {
		return ErrTokenLocked
	}
	return nil
}
