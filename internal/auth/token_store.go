package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStoreInterface defines the interface for refresh-token storage. Tokens
// are keyed under the owning account so all of an account's sessions can be
// revoked at once (password reset and credential refresh do this).
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, accountID uuid.UUID, tokenID string, ttl time.Duration) error
	RefreshTokenValid(ctx context.Context, accountID uuid.UUID, tokenID string) (bool, error)
	DeleteRefreshToken(ctx context.Context, accountID uuid.UUID, tokenID string) error
	RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error
}

// TokenStore tracks refresh tokens in Redis. Errors are real errors here: a
// token write that silently fails would strand the client with an unusable
// refresh token.
type TokenStore struct {
	client *redis.Client
}

var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func refreshKey(accountID uuid.UUID, tokenID string) string {
	return fmt.Sprintf("refresh_token:%s:%s", accountID, tokenID)
}

// StoreRefreshToken records an issued refresh token with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, accountID uuid.UUID, tokenID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshKey(accountID, tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// RefreshTokenValid reports whether the token is still tracked.
func (s *TokenStore) RefreshTokenValid(ctx context.Context, accountID uuid.UUID, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, refreshKey(accountID, tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check refresh token: %w", err)
	}
	return n > 0, nil
}

// DeleteRefreshToken removes one refresh token.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, accountID uuid.UUID, tokenID string) error {
	if err := s.client.Del(ctx, refreshKey(accountID, tokenID)).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// RevokeAllForAccount drops every refresh token the account holds.
func (s *TokenStore) RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	pattern := fmt.Sprintf("refresh_token:%s:*", accountID)
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan refresh tokens: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
