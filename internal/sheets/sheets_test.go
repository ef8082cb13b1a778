package sheets

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{0, "A"},
		{9, "J"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := ColumnLetter(tt.col); got != tt.want {
			t.Errorf("ColumnLetter(%d) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestColumnIndex_RoundTrip(t *testing.T) {
	for col := 0; col < 800; col++ {
		if got := ColumnIndex(ColumnLetter(col)); got != col {
			t.Fatalf("ColumnIndex(ColumnLetter(%d)) = %d", col, got)
		}
	}
	if got := ColumnIndex("a1"); got != -1 {
		t.Errorf("ColumnIndex(a1) = %d, want -1", got)
	}
	if got := ColumnIndex("j"); got != 9 {
		t.Errorf("ColumnIndex(j) = %d, want 9", got)
	}
}

func TestRanges(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"tab range", TabRange("Members", 10), "Members!A2:J"},
		{"header range", HeaderRange("Members", 10), "Members!A1:J1"},
		{"row range", RowRange("Maintenance", 5, 0, 1), "Maintenance!A7:A7"},
		{"row range span", RowRange("Maintenance", 0, 4, 4), "Maintenance!E2:H2"},
		{"quoted tab", TabRange("Flat Owners", 2), "'Flat Owners'!A2:B"},
		{"quote in tab", QuoteTab("Owner's"), "'Owner''s'"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestNormalizeRows(t *testing.T) {
	in := [][]string{
		{"A-101", " Asha "},
		{"A-102", "Ravi", "extra", "dropped"},
		{"", ""},
		{"A-104"},
		{},
		{" ", ""},
	}
	got := normalizeRows(in, 3)
	want := [][]string{
		{"A-101", "Asha", ""},
		{"A-102", "Ravi", "extra"},
		{"", "", ""},
		{"A-104", "", ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeRows = %v, want %v", got, want)
	}
}

// storeContract exercises behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Read(ctx, "Missing", 2); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("Read(missing) error = %v, want ErrTabNotFound", err)
	}

	header := []string{"Flat No", "Name", "Status"}
	if err := s.EnsureTab(ctx, "Members", header); err != nil {
		t.Fatalf("EnsureTab: %v", err)
	}
	// Second call is a no-op.
	if err := s.EnsureTab(ctx, "Members", []string{"changed"}); err != nil {
		t.Fatalf("EnsureTab again: %v", err)
	}

	rows, err := s.Read(ctx, "Members", 3)
	if err != nil {
		t.Fatalf("Read empty: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("Read empty = %v, want no rows", rows)
	}

	if err := s.Append(ctx, "Members", [][]string{
		{"A-101", "Asha", "Active"},
		{"A-102", "Ravi", "Active"},
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, "Members", [][]string{{"B-201", "Meera", "Active"}}); err != nil {
		t.Fatalf("Append second: %v", err)
	}

	if err := s.Update(ctx, "Members", 1, 2, []string{"Vacated"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Update(ctx, "Members", 10, 0, []string{"x"}); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("Update out of range error = %v, want ErrRowOutOfRange", err)
	}

	rows, err = s.Read(ctx, "Members", 3)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := [][]string{
		{"A-101", "Asha", "Active"},
		{"A-102", "Ravi", "Vacated"},
		{"B-201", "Meera", "Active"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Read = %v, want %v", rows, want)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestWorkbookStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "rwa.xlsx")
	wb, err := OpenWorkbook(path)
	if err != nil {
		t.Fatalf("OpenWorkbook: %v", err)
	}
	storeContract(t, wb)

	snap, err := wb.Snapshot(context.Background())
	if err != nil || len(snap) == 0 {
		t.Fatalf("Snapshot = %d bytes, err %v", len(snap), err)
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen from disk: data must have been saved.
	wb2, err := OpenWorkbook(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer wb2.Close()
	rows, err := wb2.Read(context.Background(), "Members", 3)
	if err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
	if len(rows) != 3 || rows[1][2] != "Vacated" {
		t.Errorf("rows after reopen = %v", rows)
	}
}

func TestGuardedStore(t *testing.T) {
	mem := NewMemoryStore()
	g := NewGuarded(mem, NewCallLimiter(1, time.Second), time.Second, nil)
	storeContract(t, g)

	if g.Limiter().ActiveCount() != 0 {
		t.Errorf("limiter slots leaked: %d active", g.Limiter().ActiveCount())
	}
	// Memory store has no snapshot support.
	data, err := g.Snapshot(context.Background())
	if err != nil || data != nil {
		t.Errorf("Snapshot on memory = %v, %v; want nil, nil", data, err)
	}
}

func TestGuardedStore_LimiterFull(t *testing.T) {
	limiter := NewCallLimiter(1, 20*time.Millisecond)
	g := NewGuarded(NewMemoryStore(), limiter, 0, nil)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer limiter.Release()

	if _, err := g.Read(context.Background(), "Members", 1); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("Read with full limiter error = %v, want ErrTooManyRequests", err)
	}
}

func TestGoogleStore_MissingCredentials(t *testing.T) {
	g := NewGoogleStore("sheet-id", filepath.Join(t.TempDir(), "nope.json"))
	_, err := g.Read(context.Background(), "Members", 3)
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Errorf("Read error = %v, want ErrCredentialsMissing", err)
	}
}
