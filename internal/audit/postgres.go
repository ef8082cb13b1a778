package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            UUID PRIMARY KEY,
	action        TEXT NOT NULL,
	severity      TEXT NOT NULL,
	tab           TEXT,
	flat          TEXT,
	actor         TEXT,
	ip_address    TEXT,
	user_agent    TEXT,
	row_key       TEXT,
	old_value     TEXT,
	new_value     TEXT,
	row_data      JSONB,
	rows_affected INTEGER,
	reason        TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at DESC);
ALTER TABLE audit_log ADD COLUMN IF NOT EXISTS flat TEXT;
CREATE INDEX IF NOT EXISTS audit_log_tab_idx ON audit_log (tab, created_at DESC);
CREATE INDEX IF NOT EXISTS audit_log_flat_idx ON audit_log (flat, created_at DESC);
`

const auditColumns = `id, action, severity, tab, flat, actor, ip_address, user_agent, row_key,
	old_value, new_value, row_data, rows_affected, reason, created_at`

// Postgres writes the audit trail to PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects, pings and creates the audit_log table.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns int) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

func (p *Postgres) Insert(ctx context.Context, params Params) (*Entry, error) {
	e := NewEntry(params, p.now())

	var rowData []byte
	if e.RowData != nil {
		rowData, _ = json.Marshal(e.RowData)
	}
	id, _ := uuid.Parse(e.ID)

	_, err := p.pool.Exec(ctx, `INSERT INTO audit_log (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		pgtype.UUID{Bytes: id, Valid: true},
		string(e.Action),
		string(e.Severity),
		toPgText(e.Tab),
		toPgText(e.Flat),
		toPgText(e.Actor),
		toPgText(e.IPAddress),
		toPgText(e.UserAgent),
		toPgText(e.RowKey),
		toPgText(e.OldValue),
		toPgText(e.NewValue),
		rowData,
		toPgInt4(e.RowsAffected),
		toPgText(e.Reason),
		e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return &e, nil
}

func (p *Postgres) List(ctx context.Context, f Filter) ([]Entry, error) {
	where, args := whereClause(f, func(n int) string { return fmt.Sprintf("$%d", n) })
	args = append(args, f.limit(), f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_log%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		auditColumns, where, len(args)-1, len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanPostgres(rows pgx.Rows) (Entry, error) {
	var (
		id                                          pgtype.UUID
		action, severity                            string
		tab, flat, actor, ip, ua, rowKey, oldV, newV, why pgtype.Text
		rowData                                     []byte
		affected                                    pgtype.Int4
		createdAt                                   time.Time
	)
	if err := rows.Scan(&id, &action, &severity, &tab, &flat, &actor, &ip, &ua, &rowKey,
		&oldV, &newV, &rowData, &affected, &why, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}
	e := Entry{
		Action:       Action(action),
		Severity:     Severity(severity),
		Tab:          tab.String,
		Flat:         flat.String,
		Actor:        actor.String,
		IPAddress:    ip.String,
		UserAgent:    ua.String,
		RowKey:       rowKey.String,
		OldValue:     oldV.String,
		NewValue:     newV.String,
		RowsAffected: int(affected.Int32),
		Reason:       why.String,
		CreatedAt:    createdAt,
	}
	if id.Valid {
		e.ID = uuid.UUID(id.Bytes).String()
	}
	if len(rowData) > 0 {
		_ = json.Unmarshal(rowData, &e.RowData)
	}
	return e, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgInt4(i int) pgtype.Int4 {
	if i == 0 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}
