package goOTP

import (
	"context"
	"sort"
)

// GetAuthenticationItem runs the named machine application and returns its
// authentication material. An unknown application and an application that
// yields nothing for the request are both soft outcomes: an empty map, a log
// line, and an audit event, never an error. Errors are reserved for
// dependency failures inside a supported application.
func (e *Engine) GetAuthenticationItem(ctx context.Context, application string, req AuthItemRequest) (map[string]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	app, ok := e.apps[application]
	if !ok {
		e.metricInc(MetricAuthItemUnsupported)
		e.emitAudit(ctx, auditEventAuthItemUnsupported, false, req.Serial, "", "", nil, func() map[string]string {
			return map[string]string{"application": application}
		})
		e.logger.Info().Str("application", application).Msg("unknown machine application")
		return map[string]string{}, nil
	}

	item, err := app.AuthItem(ctx, e, req)
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		e.metricInc(MetricAuthItemUnsupported)
		e.logger.Info().Str("application", application).Str("serial", req.Serial).Str("token_type", req.TokenType).Msg("no authentication item for request")
		return map[string]string{}, nil
	}

	e.metricInc(MetricAuthItemIssued)
	e.emitAudit(ctx, auditEventAuthItemIssued, true, req.Serial, "", "", nil, func() map[string]string {
		return map[string]string{"application": application}
	})
	return item, nil
}

// IsBulkAllowed reports whether the named application permits fetching items
// for many machines in one call. Unknown applications answer false.
func (e *Engine) IsBulkAllowed(application string) bool {
	if e == nil {
		return false
	}
	app, ok := e.apps[application]
	if !ok {
		return false
	}
	return app.AllowBulkCall()
}

// ListApplications returns the registered application names, sorted.
func (e *Engine) ListApplications() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.apps))
	for name := range e.apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListApplicationTypes returns every registered application's option schema,
// keyed by application name.
func (e *Engine) ListApplicationTypes() map[string]map[string]AppOption {
	if e == nil {
		return nil
	}
	types := make(map[string]map[string]AppOption, len(e.apps))
	for name, app := range e.apps {
		types[name] = app.Options()
	}
	return types
}

// ApplicationOptions returns the option schema of the named application.
func (e *Engine) ApplicationOptions(application string) (map[string]AppOption, bool) {
	if e == nil {
		return nil, false
	}
	app, ok := e.apps[application]
	if !ok {
		return nil, false
	}
	return app.Options(), true
}
