package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbite/quickbite/internal/domain/auth"
)

const getTokenByHashSQL = `SELECT id, key_hash, user_id, role
	FROM auth_tokens WHERE key_hash = $1 AND active = TRUE`

var _ auth.Repository = (*TokenRepository)(nil)

// TokenRepository provides bearer token lookups backed by PostgreSQL.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a TokenRepository that uses the given pool.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// FindByHash looks up an active token by its HMAC-SHA256 hash.
func (r *TokenRepository) FindByHash(ctx context.Context, hash string) (*auth.Token, error) {
	var (
		t    auth.Token
		role string
	)
	err := r.pool.QueryRow(ctx, getTokenByHashSQL, hash).Scan(
		&t.ID, &t.KeyHash, &t.UserID, &role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, fmt.Errorf("finding token by hash: %w", err)
	}
	t.Role = auth.Role(role)
	t.Active = true
	return &t, nil
}
