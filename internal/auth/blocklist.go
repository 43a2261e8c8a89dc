// File: internal/auth/blocklist.go
package auth

import (
	"context"
	"errors"
	"time"

	"ordena_backend/internal/platform/cache"
)

const blocklistKeyPrefix = "auth:blocklist:"

// TokenBlocklistService defines the interface for a JWT blocklist.
type TokenBlocklistService interface {
	// AddToBlocklist adds a token's JTI (JWT ID) to the blocklist until the token expires.
	AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error
	// IsBlocklisted checks if a token's JTI is in the blocklist.
	IsBlocklisted(ctx context.Context, jti string) (bool, error)
}

// CacheBlocklistService keeps revoked JTIs in the application cache: process
// memory (go-cache) by default, Redis when several instances share it.
type CacheBlocklistService struct {
	store cache.Store
}

// NewCacheBlocklistService creates a blocklist backed by store.
func NewCacheBlocklistService(store cache.Store) *CacheBlocklistService {
	return &CacheBlocklistService{store: store}
}

// AddToBlocklist stores the JTI for as long as the token would have stayed valid.
func (s *CacheBlocklistService) AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error {
	duration := time.Until(expiresAt)
	if jti == "" || duration <= 0 {
		return nil
	}
	return s.store.Set(ctx, blocklistKeyPrefix+jti, []byte{1}, duration)
}

// IsBlocklisted checks if a token JTI is in the blocklist.
func (s *CacheBlocklistService) IsBlocklisted(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := s.store.Get(ctx, blocklistKeyPrefix+jti)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cache.ErrMiss):
		return false, nil
	default:
		return false, err
	}
}
