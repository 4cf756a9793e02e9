package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/quickbite/quickbite/internal/domain/auth"
)

// identityKey is the context key for the authenticated identity.
type identityKey struct{}

// IdentityFromContext extracts the authenticated identity set by
// Authenticate. The second return is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// Authenticate resolves the Authorization bearer token to an identity by
// HMAC-SHA256 hashing it with the configured pepper and looking up the hash.
// The stored hash is re-compared in constant time to guard against timing
// side-channels even though the lookup already matched.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(token))
		sum := mac.Sum(nil)
		hash := hex.EncodeToString(sum)

		t, err := h.tokens.FindByHash(r.Context(), hash)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		stored, err := hex.DecodeString(t.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
			writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		identity := auth.Identity{UserID: t.UserID, Role: t.Role}
		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// identity returns the request identity, responding with 401 when absent.
// Routes behind Authenticate always carry one; this guards direct calls in
// tests.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}

// requireAdmin responds with 403 unless the identity is an admin.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := h.identity(w, r)
	if !ok {
		return id, false
	}
	if !id.Admin() {
		writeMessage(w, http.StatusForbidden, "admin privileges required")
		return id, false
	}
	return id, true
}
