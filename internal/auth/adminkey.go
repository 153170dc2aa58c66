package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/sakif/challenge-tracker/internal/apperror"
)

// AdminKeyHeader carries the admin key on GET requests, where there is no
// body to put it in.
const AdminKeyHeader = "X-Admin-Key"

// AdminGate checks the shared admin secret.
//
// There is exactly one admin credential, configured as admin.key. An empty
// configuration disables every admin operation rather than accepting an empty
// key.
type AdminGate struct {
	secret []byte
}

// NewAdminGate creates a gate for the configured secret.
func NewAdminGate(secret string) *AdminGate {
	return &AdminGate{secret: []byte(secret)}
}

// Check returns apperror.Unauthorized unless key matches the secret.
// The comparison is constant-time.
func (g *AdminGate) Check(key string) error {
	if len(g.secret) == 0 || subtle.ConstantTimeCompare([]byte(key), g.secret) != 1 {
		return apperror.Unauthorized()
	}
	return nil
}

// KeyFromRequest reads the admin key of a GET request: the X-Admin-Key header,
// falling back to the "key" query parameter.
func KeyFromRequest(r *http.Request) string {
	if k := r.Header.Get(AdminKeyHeader); k != "" {
		return k
	}
	return r.URL.Query().Get("key")
}
