package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory keeps entries in process. Used by tests and the memory driver.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Insert(ctx context.Context, p Params) (*Entry, error) {
	e := NewEntry(p, m.now())
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return &e, nil
}

func (m *Memory) List(ctx context.Context, f Filter) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		switch {
		case f.Tab != "" && e.Tab != f.Tab,
			f.Action != "" && e.Action != f.Action,
			f.Flat != "" && e.Flat != f.Flat,
			f.Actor != "" && e.Actor != f.Actor,
			!f.StartTime.IsZero() && e.CreatedAt.Before(f.StartTime),
			!f.EndTime.IsZero() && !e.CreatedAt.Before(f.EndTime):
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if n := f.limit(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
