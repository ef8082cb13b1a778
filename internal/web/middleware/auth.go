package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/core"
)

// Authenticate reads a session token from the Authorization bearer header
// or the session cookie and, when it verifies, stores the principal in the
// request context. Requests without a valid token pass through
// unauthenticated; RequireAuth rejects them.
func Authenticate(tokens *auth.Tokens, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" && cookieName != "" {
				if c, err := r.Cookie(cookieName); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				slog.Warn("auth: invalid session token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				next.ServeHTTP(w, r)
				return
			}

			p := claims.Principal()
			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = core.ContextWithActor(ctx, p.FlatNo)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFrom(r.Context()); !ok {
			deny(w, http.StatusUnauthorized, "Please sign in to continue", "AUTH001")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose principal is not a committee admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "Please sign in to continue", "AUTH001")
			return
		}
		if !p.IsAdmin() {
			slog.Warn("auth: admin route denied",
				"path", r.URL.Path,
				"flat_no", p.FlatNo,
			)
			deny(w, http.StatusForbidden, "Only committee members can do this", "AUTH002")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func deny(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `","message":"` + message + `","code":"` + code + `"}`))
}
