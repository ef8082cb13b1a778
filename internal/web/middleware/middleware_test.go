package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/core"
)

// ----------------------------------------------------------------------------
// Authentication
// ----------------------------------------------------------------------------

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokens("secret", "rwa", time.Hour)
	good, _, err := tokens.Issue(auth.Principal{FlatNo: "A-101", Role: auth.RoleResident})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var seen auth.Principal
	var seenOK bool
	var actor string
	h := Authenticate(tokens, "rwa_session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, seenOK = auth.PrincipalFrom(r.Context())
		actor = core.GetActorFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		wantOK bool
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+good) }, true},
		{"lower case scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+good) }, true},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "rwa_session", Value: good}) }, true},
		{"no token", func(r *http.Request) {}, false},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, seenOK, actor = auth.Principal{}, false, ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			h.ServeHTTP(httptest.NewRecorder(), req)
			if seenOK != tt.wantOK {
				t.Fatalf("principal present = %v, want %v", seenOK, tt.wantOK)
			}
			if tt.wantOK && (seen.FlatNo != "A-101" || actor != "A-101") {
				t.Errorf("principal = %+v, actor = %q", seen, actor)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name      string
		principal *auth.Principal
		want      int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"resident", &auth.Principal{FlatNo: "A-101", Role: auth.RoleResident}, http.StatusForbidden},
		{"admin", &auth.Principal{FlatNo: "A-101", Role: auth.RoleAdmin}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(auth.WithPrincipal(req.Context(), *tt.principal))
			}
			rec := httptest.NewRecorder()
			RequireAdmin(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	RequireAuth(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("RequireAuth anonymous = %d", rec.Code)
	}
}

// ----------------------------------------------------------------------------
// Real IP
// ----------------------------------------------------------------------------

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted proxy ignored", []string{"10.0.0.0/8"}, "203.0.113.9:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.9"},
		{"trusted real ip", []string{"10.0.0.0/8"}, "10.1.2.3:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted forwarded for", []string{"10.1.2.3"}, "10.1.2.3:5000", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.1.2.3"}, "5.6.7.8"},
		{"invalid header kept out", []string{"10.0.0.0/8"}, "10.1.2.3:5000", map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3"},
		{"no trusted proxies", nil, "10.1.2.3:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = core.GetIPAddressFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("ip = %q, want %q", got, tt.want)
			}
		})
	}
}
