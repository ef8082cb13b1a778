// Package audit records who changed what in the association's sheets.
//
// The sheets hold the data; the audit trail lives in a small SQL database
// (PostgreSQL or SQLite) so it cannot be edited from the spreadsheet UI.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is the type of change being audited.
type Action string

const (
	ActionLogin              Action = "login"
	ActionMemberAdd          Action = "member_add"
	ActionMemberVacate       Action = "member_vacate"
	ActionPasswordChange     Action = "password_change"
	ActionPasswordReset      Action = "password_reset"
	ActionPaymentCash        Action = "payment_cash"
	ActionPaymentOrder       Action = "payment_order"
	ActionPaymentConfirm     Action = "payment_confirm"
	ActionComplaintRaise     Action = "complaint_raise"
	ActionComplaintStatus    Action = "complaint_status"
	ActionExpenditureRecord  Action = "expenditure_record"
	ActionNotificationPost   Action = "notification_post"
	ActionNotificationExpire Action = "notification_expire"
	ActionReminderSent       Action = "reminder_sent"
	ActionBackup             Action = "backup"
)

// Severity ranks audit entries for review.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFor returns the severity recorded for an action.
func SeverityFor(action Action) Severity {
	switch action {
	case ActionPaymentCash, ActionPaymentConfirm, ActionExpenditureRecord, ActionPasswordReset:
		return SeverityHigh
	case ActionMemberVacate:
		return SeverityCritical
	case ActionLogin, ActionComplaintRaise, ActionNotificationPost, ActionNotificationExpire,
		ActionReminderSent, ActionBackup:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Entry is a single audit log entry.
type Entry struct {
	ID           string                 `json:"id"`
	Action       Action                 `json:"action"`
	Severity     Severity               `json:"severity"`
	Tab          string                 `json:"tab,omitempty"`
	Flat         string                 `json:"flat,omitempty"`
	Actor        string                 `json:"actor,omitempty"`
	IPAddress    string                 `json:"ipAddress,omitempty"`
	UserAgent    string                 `json:"userAgent,omitempty"`
	RowKey       string                 `json:"rowKey,omitempty"`
	OldValue     string                 `json:"oldValue,omitempty"`
	NewValue     string                 `json:"newValue,omitempty"`
	RowData      map[string]interface{} `json:"rowData,omitempty"`
	RowsAffected int                    `json:"rowsAffected,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// Params are the caller-supplied fields of a new entry. Flat is the flat
// the change concerns; Actor is whoever made it.
type Params struct {
	Action       Action
	Tab          string
	Flat         string
	Actor        string
	IPAddress    string
	UserAgent    string
	RowKey       string
	OldValue     string
	NewValue     string
	RowData      map[string]interface{}
	RowsAffected int
	Reason       string
}

// NewEntry fills ID, severity and timestamp for params.
func NewEntry(p Params, now time.Time) Entry {
	return Entry{
		ID:           uuid.NewString(),
		Action:       p.Action,
		Severity:     SeverityFor(p.Action),
		Tab:          p.Tab,
		Flat:         p.Flat,
		Actor:        p.Actor,
		IPAddress:    p.IPAddress,
		UserAgent:    p.UserAgent,
		RowKey:       p.RowKey,
		OldValue:     p.OldValue,
		NewValue:     p.NewValue,
		RowData:      p.RowData,
		RowsAffected: p.RowsAffected,
		Reason:       p.Reason,
		CreatedAt:    now.UTC(),
	}
}

// DefaultLimit caps List when Filter.Limit is unset.
const DefaultLimit = 100

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Tab       string
	Action    Action
	Flat      string
	Actor     string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return DefaultLimit
	}
	return f.Limit
}

// Store persists audit entries. List returns newest first.
type Store interface {
	Insert(ctx context.Context, p Params) (*Entry, error)
	List(ctx context.Context, f Filter) ([]Entry, error)
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	MaxConns    int
}

// Open builds the Store named by cfg.Driver and creates its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
	case "sqlite", "":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown audit driver %q", cfg.Driver)
	}
}

// whereClause renders the filter as SQL conditions. ph returns the
// placeholder for the n-th (1-based) argument.
func whereClause(f Filter, ph func(n int) string) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, ph(len(args))))
	}
	if f.Tab != "" {
		add("tab = %s", f.Tab)
	}
	if f.Action != "" {
		add("action = %s", string(f.Action))
	}
	if f.Flat != "" {
		add("flat = %s", f.Flat)
	}
	if f.Actor != "" {
		add("actor = %s", f.Actor)
	}
	if !f.StartTime.IsZero() {
		add("created_at >= %s", f.StartTime.UTC())
	}
	if !f.EndTime.IsZero() {
		add("created_at < %s", f.EndTime.UTC())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
