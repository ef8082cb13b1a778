package logging

import (
	"context"
	"log/slog"

	"github.com/rollbar/rollbar-go"
)

// Reporter forwards unexpected errors to an external error tracker.
type Reporter interface {
	Report(ctx context.Context, err error, extras map[string]interface{})
	Close()
}

// NewReporter returns a Rollbar-backed reporter when token is set and a
// no-op reporter otherwise.
func NewReporter(token, environment, host string) Reporter {
	if token == "" {
		return nopReporter{}
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	rollbar.SetServerHost(host)
	slog.Info("error reporting enabled", "provider", "rollbar", "environment", environment)
	return rollbarReporter{}
}

type rollbarReporter struct{}

func (rollbarReporter) Report(ctx context.Context, err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	if extras == nil {
		extras = make(map[string]interface{}, 1)
	}
	args := Attrs(ctx)
	for i := 0; i+1 < len(args); i += 2 {
		if k, ok := args[i].(string); ok {
			extras[k] = args[i+1]
		}
	}
	rollbar.Error(err, extras)
}

// Close flushes queued reports. Call once on shutdown.
func (rollbarReporter) Close() {
	rollbar.Close()
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, error, map[string]interface{}) {}
func (nopReporter) Close()                                                {}
