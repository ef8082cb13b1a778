package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Roles.
const (
	RoleResident = "resident"
	RoleAdmin    = "admin"
)

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Principal is the authenticated caller.
type Principal struct {
	FlatNo string `json:"flat_no"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the principal holds the committee role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Claims are the JWT claims of a session token. Subject carries the flat number.
type Claims struct {
	jwt.StandardClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// Principal converts claims into the request principal.
func (c *Claims) Principal() Principal {
	return Principal{FlatNo: c.Subject, Name: c.Name, Role: c.Role}
}

// Tokens issues and parses HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokens creates a token issuer. ttl defaults to 12 hours.
func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue signs a token for p and returns it with its expiry.
func (t *Tokens) Issue(p Principal) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   p.FlatNo,
			Issuer:    t.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: exp.Unix(),
		},
		Name: p.Name,
		Role: p.Role,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return ss, exp, nil
}

// Parse validates a token string and returns its claims.
func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if t.issuer != "" && !claims.VerifyIssuer(t.issuer, true) {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type principalKey struct{}

// WithPrincipal stores p in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
