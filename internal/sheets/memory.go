package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps tabs in process memory. Used by tests and dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	tabs map[string][][]string // includes header row
}

// NewMemoryStore creates an empty in-memory workbook.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tabs: make(map[string][][]string)}
}

// Seed replaces tab with header followed by rows. Test helper.
func (m *MemoryStore) Seed(tab string, header []string, rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := make([][]string, 0, len(rows)+1)
	data = append(data, append([]string(nil), header...))
	for _, r := range rows {
		data = append(data, append([]string(nil), r...))
	}
	m.tabs[tab] = data
}

// Rows returns a copy of every row of tab including the header. Test helper.
func (m *MemoryStore) Rows(tab string) [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRows(m.tabs[tab])
}

func (m *MemoryStore) Read(_ context.Context, tab string, width int) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.tabs[tab]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	if len(data) <= HeaderRows {
		return nil, nil
	}
	return normalizeRows(data[HeaderRows:], width), nil
}

func (m *MemoryStore) Append(_ context.Context, tab string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.tabs[tab]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	// Append after the last non-empty row, like the spreadsheet APIs do.
	last := len(data)
	for last > HeaderRows && isBlank(data[last-1]) {
		last--
	}
	data = data[:last]
	for _, r := range rows {
		data = append(data, append([]string(nil), r...))
	}
	m.tabs[tab] = data
	return nil
}

func (m *MemoryStore) Update(_ context.Context, tab string, row, col int, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.tabs[tab]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	idx := row + HeaderRows
	if row < 0 || idx >= len(data) {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, tab, SheetRow(row))
	}
	r := data[idx]
	if need := col + len(values); len(r) < need {
		grown := make([]string, need)
		copy(grown, r)
		r = grown
	}
	copy(r[col:], values)
	data[idx] = r
	return nil
}

func (m *MemoryStore) EnsureTab(_ context.Context, tab string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tabs[tab]; ok {
		return nil
	}
	m.tabs[tab] = [][]string{append([]string(nil), header...)}
	return nil
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
