package web

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rwa/internal/core"
	"github.com/JonMunkholm/rwa/internal/web/templates"
)

// ----------------------------------------------------------------------------
// Complaints
// ----------------------------------------------------------------------------

// handleListComplaints lists the caller's complaints; admins see all and
// may filter by ?flat=, ?status= and ?kind=.
func (s *Server) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.ComplaintFilter{FlatNo: scopeFlat(r)}
	if v := q.Get("status"); v != "" {
		status, ok := core.ParseComplaintStatus(v)
		if !ok {
			s.respondError(w, r, core.ErrInvalidInput)
			return
		}
		f.Status = status
	}
	if v := q.Get("kind"); v != "" {
		kind, ok := core.ParseComplaintKind(v)
		if !ok {
			s.respondError(w, r, core.ErrInvalidInput)
			return
		}
		f.Kind = kind
	}

	complaints, err := s.service.ListComplaints(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, complaints)
}

// handleRaiseComplaint files a complaint or suggestion for the caller's flat.
func (s *Server) handleRaiseComplaint(w http.ResponseWriter, r *http.Request) {
	var req core.NewComplaint
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.FlatNo = principal(r).FlatNo
	c, err := s.service.RaiseComplaint(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}

type complaintUpdate struct {
	Status  string `json:"status" validate:"required"`
	Remarks string `json:"remarks" validate:"max=500"`
}

// handleUpdateComplaint moves a complaint to a new status.
func (s *Server) handleUpdateComplaint(w http.ResponseWriter, r *http.Request) {
	var req complaintUpdate
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	status, ok := core.ParseComplaintStatus(req.Status)
	if !ok {
		s.respondError(w, r, core.ErrInvalidInput)
		return
	}
	c, err := s.service.UpdateComplaintStatus(r.Context(), chi.URLParam(r, "id"), status, req.Remarks)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

// ----------------------------------------------------------------------------
// Expenditure
// ----------------------------------------------------------------------------

// handleListExpenditures lists expenses, optionally for ?month=.
func (s *Server) handleListExpenditures(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r, "month")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	list, err := s.service.ListExpenditures(r.Context(), month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, list)
}

// handleRecordExpenditure records an expense paid by the association.
func (s *Server) handleRecordExpenditure(w http.ResponseWriter, r *http.Request) {
	var req core.NewExpenditure
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	e, err := s.service.RecordExpenditure(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, e)
}

// ----------------------------------------------------------------------------
// Notifications
// ----------------------------------------------------------------------------

// handleListNotifications lists active notices; ?all=true includes expired
// ones for admins.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true" && principal(r).IsAdmin()
	notices, err := s.service.ListNotifications(r.Context(), core.Date{}, all)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, notices)
}

// handleNoticeBoard renders the active notices as a page.
func (s *Server) handleNoticeBoard(w http.ResponseWriter, r *http.Request) {
	notices, err := s.service.ListNotifications(r.Context(), core.Date{}, false)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := templates.NoticeBoard(s.service.Billing().AssociationName, notices).Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handlePostNotification posts a notice.
func (s *Server) handlePostNotification(w http.ResponseWriter, r *http.Request) {
	var req core.NewNotification
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	n, err := s.service.PostNotification(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, n)
}

// handleExpireNotification takes a notice down today.
func (s *Server) handleExpireNotification(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.ExpireNotification(r.Context(), chi.URLParam(r, "id"), core.Date{})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, n)
}
