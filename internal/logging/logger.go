// Package logging configures log/slog for the portal and builds loggers
// that carry who a request or job is acting for.
//
// Every logger from FromContext is tagged with chi's request_id and with
// the acting party: the signed-in flat and role for HTTP requests, or the
// actor name ("rwactl", "scheduler") for commands and background jobs.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/rwa/internal/auth"
)

// Setup installs the default logger.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type actorKey struct{}

// WithActor records who is acting: a flat number for residents and the
// committee, or a tool name such as "rwactl" or "scheduler".
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the actor recorded by WithActor, or "".
func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}

// Attrs returns the request_id and acting-party fields for ctx as slog
// key/value pairs. A signed-in principal wins over a bare actor.
func Attrs(ctx context.Context) []any {
	var args []any
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		args = append(args, "request_id", reqID)
	}
	if p, ok := auth.PrincipalFrom(ctx); ok {
		args = append(args, "flat_no", p.FlatNo, "role", p.Role)
	} else if actor := Actor(ctx); actor != "" {
		args = append(args, "actor", actor)
	}
	return args
}

// FromContext returns the default logger tagged with Attrs(ctx).
//
//	logging.FromContext(r.Context()).Info("receipt archived", "receipt_no", no)
//	// ... request_id=... flat_no=A-101 role=admin receipt_no=RCPT-12
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if args := Attrs(ctx); len(args) > 0 {
		logger = logger.With(args...)
	}
	return logger
}

// WithFields returns FromContext(ctx) with extra fields, for a multi-step
// operation that logs the same keys at each step.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
