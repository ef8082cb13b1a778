package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/rwa/internal/core"
)

// monthParam parses an optional month query parameter.
func monthParam(r *http.Request, name string) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return core.Month{}, nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return core.Month{}, fmt.Errorf("%w: %s", core.ErrInvalidInput, name)
	}
	return m, nil
}

// handleSummary returns the collection/expenditure summary for
// ?from=&to= (defaults: the last reporting window ending this month, no
// earlier than the billing start).
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, err := monthParam(r, "from")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	to, err := monthParam(r, "to")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	summary, err := s.service.Summary(r.Context(), from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	name := fmt.Sprintf("summary_%s_%s", summary.From, summary.To)
	s.writeReport(w, r, name, summary, core.SummaryTable(summary))
}

// handleDefaulters returns members with unpaid months up to ?month=.
func (s *Server) handleDefaulters(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r, "month")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	report, err := s.service.Defaulters(r.Context(), month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeReport(w, r, "defaulters_"+report.Month.String(), report, core.DefaulterTable(report))
}

// writeReport writes v as JSON, or the table as a CSV or XLSX download
// when ?format= asks for one.
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, name string, v interface{}, t core.Table) {
	var (
		buf         bytes.Buffer
		contentType string
		ext         string
		err         error
	)
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		writeJSON(w, v)
		return
	case "csv":
		contentType, ext = "text/csv", "csv"
		err = core.WriteCSV(&buf, t)
	case "xlsx":
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
		err = core.WriteXLSX(&buf, t)
	default:
		s.respondError(w, r, fmt.Errorf("%w: unknown format", core.ErrInvalidInput))
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, ext))
	w.Write(buf.Bytes())
}
