package audit

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		action Action
		want   Severity
	}{
		{ActionMemberVacate, SeverityCritical},
		{ActionPaymentCash, SeverityHigh},
		{ActionPaymentConfirm, SeverityHigh},
		{ActionMemberAdd, SeverityMedium},
		{ActionComplaintStatus, SeverityMedium},
		{ActionLogin, SeverityLow},
		{ActionBackup, SeverityLow},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.action); got != tt.want {
			t.Errorf("SeverityFor(%s) = %s, want %s", tt.action, got, tt.want)
		}
	}
}

func TestWhereClause(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := whereClause(Filter{Tab: "Members", Flat: "B-201", Actor: "A-101", StartTime: start}, func(n int) string {
		return "$" + string(rune('0'+n))
	})
	want := " WHERE tab = $1 AND flat = $2 AND actor = $3 AND created_at >= $4"
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	if len(args) != 4 || args[1] != "B-201" {
		t.Errorf("args = %v", args)
	}

	if where, args := whereClause(Filter{}, func(int) string { return "?" }); where != "" || len(args) != 0 {
		t.Errorf("empty filter = %q, %v", where, args)
	}
}

// storeContract runs the same scenario against every backend.
func storeContract(t *testing.T, s Store, setNow func(func() time.Time)) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seed := []Params{
		{Action: ActionMemberAdd, Tab: "Members", Flat: "B-201", Actor: "A-101", RowKey: "B-201", NewValue: "Meera"},
		{Action: ActionPaymentCash, Tab: "Maintenance", Flat: "B-201", Actor: "A-101", RowKey: "RCPT-1", RowsAffected: 2,
			RowData: map[string]interface{}{"receipts": "RCPT-1"}},
		{Action: ActionMemberVacate, Tab: "Members", Flat: "C-301", Actor: "A-101", RowKey: "C-301", Reason: "sold"},
	}
	for i, p := range seed {
		at := base.Add(time.Duration(i) * time.Hour)
		setNow(func() time.Time { return at })
		e, err := s.Insert(ctx, p)
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		if e.ID == "" || e.Severity != SeverityFor(p.Action) {
			t.Errorf("Insert %d entry = %+v", i, e)
		}
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List = %d entries, want 3", len(all))
	}
	if all[0].Action != ActionMemberVacate || all[2].Action != ActionMemberAdd {
		t.Errorf("List not newest first: %s, %s", all[0].Action, all[2].Action)
	}
	if all[0].Reason != "sold" || all[0].Severity != SeverityCritical {
		t.Errorf("vacate entry = %+v", all[0])
	}
	if all[1].RowData["receipts"] != "RCPT-1" || all[1].RowsAffected != 2 || all[1].Flat != "B-201" {
		t.Errorf("payment entry = %+v", all[1])
	}

	members, err := s.List(ctx, Filter{Tab: "Members"})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Errorf("List(tab=Members) = %d, want 2", len(members))
	}

	byFlat, err := s.List(ctx, Filter{Flat: "B-201"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byFlat) != 2 || byFlat[0].Action != ActionPaymentCash || byFlat[1].Action != ActionMemberAdd {
		t.Errorf("List(flat=B-201) = %+v", byFlat)
	}
	if none, _ := s.List(ctx, Filter{Flat: "D-404"}); len(none) != 0 {
		t.Errorf("List(flat=D-404) = %+v", none)
	}

	windowed, err := s.List(ctx, Filter{StartTime: base.Add(30 * time.Minute), EndTime: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if len(windowed) != 1 || windowed[0].Action != ActionPaymentCash {
		t.Errorf("List(window) = %+v", windowed)
	}

	page, err := s.List(ctx, Filter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Action != ActionPaymentCash {
		t.Errorf("List(limit 1 offset 1) = %+v", page)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	storeContract(t, m, func(f func() time.Time) { m.now = f })
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "audit", "audit.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	storeContract(t, s, func(f func() time.Time) { s.now = f })
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := OpenPostgres(ctx, url, 2)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer p.Close()
	if _, err := p.pool.Exec(ctx, "TRUNCATE audit_log"); err != nil {
		t.Fatal(err)
	}
	storeContract(t, p, func(f func() time.Time) { p.now = f })
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mongo"}); err == nil {
		t.Error("Open(mongo) succeeded")
	}
	s, err := Open(context.Background(), Config{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(memory) = %T", s)
	}
}

func TestOpenSQLite_AddsFlatColumn(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE audit_log (
		id TEXT PRIMARY KEY, action TEXT NOT NULL, severity TEXT NOT NULL,
		tab TEXT NOT NULL DEFAULT '', actor TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '', user_agent TEXT NOT NULL DEFAULT '',
		row_key TEXT NOT NULL DEFAULT '', old_value TEXT NOT NULL DEFAULT '',
		new_value TEXT NOT NULL DEFAULT '', row_data TEXT NOT NULL DEFAULT '',
		rows_affected INTEGER NOT NULL DEFAULT 0, reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite on old schema: %v", err)
	}
	defer s.Close()
	if _, err := s.Insert(ctx, Params{Action: ActionLogin, Flat: "A-101", Actor: "A-101"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := s.List(ctx, Filter{Flat: "A-101"})
	if err != nil || len(got) != 1 {
		t.Errorf("List(flat) = %+v, %v", got, err)
	}
}
