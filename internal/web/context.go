package web

import (
	"net/http"

	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/core"
)

// principal returns the signed-in member. Routes behind RequireAuth always
// have one.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// scopeFlat returns the flat a request may read: residents always see
// their own flat, admins the ?flat= parameter (blank for all).
func scopeFlat(r *http.Request) string {
	p := principal(r)
	if p.IsAdmin() {
		return core.NormalizeFlat(r.URL.Query().Get("flat"))
	}
	return p.FlatNo
}
