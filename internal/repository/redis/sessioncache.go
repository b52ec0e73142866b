package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyunwoo-kim/docchat/internal/domain"
)

const (
	sessionCachePrefix = "session:"
	sessionCacheTTL    = 30 * time.Minute
)

// SessionCache fronts the session store for hot sessions. All methods
// treat Redis failures as misses; the store stays authoritative.
type SessionCache struct {
	client *Client
}

// NewSessionCache creates a new session cache
func NewSessionCache(client *Client) *SessionCache {
	return &SessionCache{client: client}
}

// Get retrieves a cached session
func (c *SessionCache) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	key := fmt.Sprintf("%s%s", sessionCachePrefix, id.String())

	data, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, nil // Cache miss
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Set caches a session
func (c *SessionCache) Set(ctx context.Context, session *domain.Session) error {
	key := fmt.Sprintf("%s%s", sessionCachePrefix, session.ID.String())

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return c.client.rdb.Set(ctx, key, data, sessionCacheTTL).Err()
}

// Invalidate removes a cached session
func (c *SessionCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("%s%s", sessionCachePrefix, id.String())
	return c.client.rdb.Del(ctx, key).Err()
}
