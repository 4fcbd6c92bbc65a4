// Package jwtauth authenticates API requests with HMAC-signed bearer tokens.
// It is a thin collaborator: it establishes the caller's identity and puts it
// on the request context; it does not issue tokens to end users.
package jwtauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// userIDKey is the context key for the authenticated user ID.
type userIDKey struct{}

// UserIDFromContext extracts the authenticated user ID from the context.
// It returns an empty string if the request was not authenticated.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Authenticator validates bearer tokens and stamps requests with the caller's
// user ID.
type Authenticator struct {
	secret []byte
}

// New creates an Authenticator with the given HMAC signing secret.
func New(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// Middleware rejects requests without a valid "Authorization: Bearer" token
// and stores the token subject in the request context for handlers.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := a.subjectFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var (
	errMalformedHeader = jwt.ErrTokenMalformed
)

// subjectFromHeader parses the Authorization header and returns the verified
// token subject.
func (a *Authenticator) subjectFromHeader(header string) (string, error) {
	scheme, tokenStr, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
		return "", errMalformedHeader
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return subject, nil
}

// Issue mints a token for the given user ID with the given lifetime. Used by
// tests and operational tooling; the public API has no issuance endpoint.
func (a *Authenticator) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
