// Package auth resolves bearer tokens to an acting identity. Authorization
// decisions themselves live in the services, which take the identity as an
// explicit parameter.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrTokenNotFound is returned when no active token matches the given hash.
var ErrTokenNotFound = errors.New("token not found")

// Role is the privilege level of an authenticated user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Role   Role
}

// Admin reports whether the identity carries admin privileges.
func (id Identity) Admin() bool {
	return id.Role == RoleAdmin
}

// Token is a stored API credential. The raw token is never persisted, only
// its HMAC-SHA256 hash.
type Token struct {
	ID      string
	KeyHash string
	UserID  string
	Role    Role
	Active  bool
}

// Repository provides lookup of tokens by their hex-encoded HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Token, error)
}
