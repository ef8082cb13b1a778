package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            TEXT PRIMARY KEY,
	action        TEXT NOT NULL,
	severity      TEXT NOT NULL,
	tab           TEXT NOT NULL DEFAULT '',
	flat          TEXT NOT NULL DEFAULT '',
	actor         TEXT NOT NULL DEFAULT '',
	ip_address    TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	row_key       TEXT NOT NULL DEFAULT '',
	old_value     TEXT NOT NULL DEFAULT '',
	new_value     TEXT NOT NULL DEFAULT '',
	row_data      TEXT NOT NULL DEFAULT '',
	rows_affected INTEGER NOT NULL DEFAULT 0,
	reason        TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at);
`

// sqliteAddFlat upgrades databases created before the flat column existed.
const sqliteAddFlat = `ALTER TABLE audit_log ADD COLUMN flat TEXT NOT NULL DEFAULT ''`

const sqliteFlatIndex = `CREATE INDEX IF NOT EXISTS audit_log_flat_idx ON audit_log (flat, created_at)`

// sqliteTime is lexically sortable so created_at comparisons work on TEXT.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLite writes the audit trail to a local SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = "data/audit.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteAddFlat); err != nil && !strings.Contains(err.Error(), "duplicate column") {
		_ = db.Close()
		return nil, fmt.Errorf("add flat column: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteFlatIndex); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create flat index: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Insert(ctx context.Context, p Params) (*Entry, error) {
	e := NewEntry(p, s.now())

	var rowData string
	if e.RowData != nil {
		if b, err := json.Marshal(e.RowData); err == nil {
			rowData = string(b)
		}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_log (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Action), string(e.Severity), e.Tab, e.Flat, e.Actor, e.IPAddress, e.UserAgent,
		e.RowKey, e.OldValue, e.NewValue, rowData, e.RowsAffected, e.Reason,
		e.CreatedAt.Format(sqliteTime),
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return &e, nil
}

func (s *SQLite) List(ctx context.Context, f Filter) ([]Entry, error) {
	// Times are bound as formatted text to match the stored column.
	tf := f
	tf.StartTime, tf.EndTime = time.Time{}, time.Time{}
	where, args := whereClause(tf, func(int) string { return "?" })
	var extra []string
	if !f.StartTime.IsZero() {
		extra = append(extra, "created_at >= ?")
		args = append(args, f.StartTime.UTC().Format(sqliteTime))
	}
	if !f.EndTime.IsZero() {
		extra = append(extra, "created_at < ?")
		args = append(args, f.EndTime.UTC().Format(sqliteTime))
	}
	for _, cond := range extra {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}
	args = append(args, f.limit(), f.Offset)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e                         Entry
			action, severity, rowData string
			createdAt                 string
		)
		if err := rows.Scan(&e.ID, &action, &severity, &e.Tab, &e.Flat, &e.Actor, &e.IPAddress, &e.UserAgent,
			&e.RowKey, &e.OldValue, &e.NewValue, &rowData, &e.RowsAffected, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = Action(action)
		e.Severity = Severity(severity)
		if t, err := time.Parse(sqliteTime, createdAt); err == nil {
			e.CreatedAt = t
		}
		if rowData != "" {
			_ = json.Unmarshal([]byte(rowData), &e.RowData)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
