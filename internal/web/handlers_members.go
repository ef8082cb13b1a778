package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rwa/internal/core"
)

// handleListMembers lists members, optionally by ?status=active|vacated.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	var f core.MemberFilter
	switch r.URL.Query().Get("status") {
	case "active", "Active":
		f.Status = core.StatusActive
	case "vacated", "Vacated":
		f.Status = core.StatusVacated
	}
	members, err := s.service.ListMembers(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, members)
}

// handleAddMember registers a new occupant.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req core.NewMember
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	m, err := s.service.AddMember(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, m)
}

type vacateRequest struct {
	VacatedOn core.Date `json:"vacated_on"`
}

// handleVacateMember ends the flat's active membership. An empty body
// vacates today.
func (s *Server) handleVacateMember(w http.ResponseWriter, r *http.Request) {
	var req vacateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	m, err := s.service.VacateMember(r.Context(), chi.URLParam(r, "flatNo"), req.VacatedOn)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, m)
}
