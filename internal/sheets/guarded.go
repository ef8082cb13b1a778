package sheets

import (
	"context"
	"time"

	"github.com/JonMunkholm/rwa/internal/metrics"
)

// Guarded wraps a Store with a call limiter, a per-call timeout and metrics.
type Guarded struct {
	next    Store
	limiter *CallLimiter
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewGuarded wraps next. limiter and m may be nil; timeout <= 0 disables
// the per-call deadline.
func NewGuarded(next Store, limiter *CallLimiter, timeout time.Duration, m *metrics.Metrics) *Guarded {
	return &Guarded{next: next, limiter: limiter, timeout: timeout, metrics: m}
}

// Limiter returns the wrapped limiter.
func (g *Guarded) Limiter() *CallLimiter {
	return g.limiter
}

// Unwrap returns the wrapped store.
func (g *Guarded) Unwrap() Store {
	return g.next
}

func (g *Guarded) call(ctx context.Context, tab, op string, fn func(context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Acquire(ctx); err != nil {
			g.metrics.ObserveSheetCall(tab, op, 0, err)
			return err
		}
		defer g.limiter.Release()
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	g.metrics.ObserveSheetCall(tab, op, time.Since(start), err)
	return err
}

func (g *Guarded) Read(ctx context.Context, tab string, width int) ([][]string, error) {
	var rows [][]string
	err := g.call(ctx, tab, "read", func(ctx context.Context) error {
		var err error
		rows, err = g.next.Read(ctx, tab, width)
		return err
	})
	return rows, err
}

func (g *Guarded) Append(ctx context.Context, tab string, rows [][]string) error {
	return g.call(ctx, tab, "append", func(ctx context.Context) error {
		return g.next.Append(ctx, tab, rows)
	})
}

func (g *Guarded) Update(ctx context.Context, tab string, row, col int, values []string) error {
	return g.call(ctx, tab, "update", func(ctx context.Context) error {
		return g.next.Update(ctx, tab, row, col, values)
	})
}

func (g *Guarded) EnsureTab(ctx context.Context, tab string, header []string) error {
	return g.call(ctx, tab, "ensure_tab", func(ctx context.Context) error {
		return g.next.EnsureTab(ctx, tab, header)
	})
}

// Snapshot delegates to the wrapped store when it supports snapshots.
func (g *Guarded) Snapshot(ctx context.Context) ([]byte, error) {
	s, ok := g.next.(Snapshotter)
	if !ok {
		return nil, nil
	}
	var data []byte
	err := g.call(ctx, "*", "snapshot", func(ctx context.Context) error {
		var err error
		data, err = s.Snapshot(ctx)
		return err
	})
	return data, err
}
