package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/aerox/internal/shared"
)

// TokenKey is the fixed storage key of the persisted bearer token.
const TokenKey = "spotify_access_token"

// TokenRepository persists the single bearer token.
type TokenRepository struct {
	kv *KeyValueRepository
}

// NewTokenRepository creates a [TokenRepository] backed by kv.
func NewTokenRepository(kv *KeyValueRepository) *TokenRepository {
	return &TokenRepository{kv: kv}
}

// Load returns the persisted token. A missing token is ("", nil).
func (r *TokenRepository) Load(ctx context.Context) (string, error) {
	token, err := r.kv.Get(ctx, TokenKey)
	if errors.Is(err, shared.ErrNotFound) {
		return "", nil
	}
	return token, err
}

// Save persists token, replacing any previous one.
func (r *TokenRepository) Save(ctx context.Context, token string) error {
	return r.kv.Set(ctx, TokenKey, token)
}

// Delete purges the persisted token.
func (r *TokenRepository) Delete(ctx context.Context) error {
	return r.kv.Delete(ctx, TokenKey)
}

// SavedAt returns when the token was stored, zero if none is stored.
func (r *TokenRepository) SavedAt(ctx context.Context) (time.Time, error) {
	t, err := r.kv.UpdatedAt(ctx, TokenKey)
	if errors.Is(err, shared.ErrNotFound) {
		return time.Time{}, nil
	}
	return t, err
}
