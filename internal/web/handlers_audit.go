package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/rwa/internal/audit"
	"github.com/JonMunkholm/rwa/internal/core"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// auditFilter reads ?action=&flat=&actor=&tab=&from=&to=&page= into a filter.
func auditFilter(r *http.Request, pageSize int) audit.Filter {
	q := r.URL.Query()
	page := parseIntParam(r, "page", 1)
	f := audit.Filter{
		Tab:    q.Get("tab"),
		Action: audit.Action(q.Get("action")),
		Flat:   core.NormalizeFlat(q.Get("flat")),
		Actor:  q.Get("actor"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			f.StartTime = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			f.EndTime = t.Add(24*time.Hour - time.Second)
		}
	}
	return f
}

// handleAuditLog lists audit entries newest first, or exports them as CSV
// with ?format=csv.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	pageSize := parseIntParam(r, "limit", 50)
	if r.URL.Query().Get("format") == "csv" {
		pageSize = 1000
	}
	entries, err := s.service.AuditLog(r.Context(), auditFilter(r, pageSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	if r.URL.Query().Get("format") != "csv" {
		writeJSON(w, entries)
		return
	}

	filename := fmt.Sprintf("audit_log_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"ID", "Timestamp", "Action", "Severity", "Tab", "Flat", "Actor", "IP Address",
		"Row Key", "Old Value", "New Value", "Rows Affected", "Reason",
	}); err != nil {
		return
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			string(e.Action),
			string(e.Severity),
			e.Tab,
			e.Flat,
			e.Actor,
			e.IPAddress,
			e.RowKey,
			e.OldValue,
			e.NewValue,
			strconv.Itoa(e.RowsAffected),
			e.Reason,
		}); err != nil {
			return
		}
	}
	cw.Flush()
}
