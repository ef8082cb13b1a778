package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/core"
)

type loginRequest struct {
	FlatNo   string `json:"flat_no" validate:"required,max=20"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Member    core.Member `json:"member"`
}

// handleLogin checks a flat's password, issues a session token and sets it
// as an HTTP-only cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	m, err := s.service.Login(r.Context(), req.FlatNo, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	token, exp, err := s.tokens.Issue(auth.Principal{FlatNo: m.FlatNo, Name: m.Name, Role: m.Role})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, loginResponse{Token: token, ExpiresAt: exp, Member: m})
}

// handleLogout clears the session cookie. Tokens are stateless, so a bearer
// token stays valid until it expires.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cookieName() string {
	if s.cfg.Auth.CookieName == "" {
		return "rwa_session"
	}
	return s.cfg.Auth.CookieName
}

// handleMe returns the signed-in member.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	m, err := s.service.GetMember(r.Context(), principal(r).FlatNo)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, m)
}

type passwordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,nefield=OldPassword"`
}

// handleChangePassword replaces the signed-in member's password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.ChangePassword(r.Context(), principal(r).FlatNo, req.OldPassword, req.NewPassword); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// handleResetPassword sets a member's password without the old one.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.ResetPassword(r.Context(), chi.URLParam(r, "flatNo"), req.NewPassword); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
