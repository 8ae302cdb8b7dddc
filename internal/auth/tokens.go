package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bugtrail/bugtrail/internal/shared"
)

const tokenKeyPrefix = "auth:token:"

// TokenStore resolves bearer tokens to principals.
//
// Tokens are minted by the external identity service and written into Redis
// as JSON principals; this store only consumes them. Issuance never happens
// here.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Resolve looks up the principal behind token.
func (s *TokenStore) Resolve(ctx context.Context, token string) (*shared.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, shared.ErrTokenMissing
	}
	payload, err := s.client.Get(ctx, tokenKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrTokenUnknown
		}
		return nil, fmt.Errorf("auth: resolve token: %w", err)
	}
	var p shared.Principal
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("auth: decode principal: %w", err)
	}
	if p.UserID == 0 {
		return nil, shared.ErrTokenUnknown
	}
	// Sliding expiry keeps active sessions alive.
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, tokenKeyPrefix+token, s.ttl).Err()
	}
	return &p, nil
}

// Put stores a principal under token. Used by seeds and tests.
func (s *TokenStore) Put(ctx context.Context, token string, p shared.Principal) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tokenKeyPrefix+token, payload, s.ttl).Err()
}
