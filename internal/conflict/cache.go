package conflict

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/abm-orchestrator/internal/domain"
)

// negative is the cache sentinel for "contact has no responses", so a quiet
// contact does not hit the backing store on every campaign step.
const negative = "none"

// CachedLookup wraps a ResponseLookup with a Redis cache. Cache failures fall
// through to the backing lookup.
type CachedLookup struct {
	inner  ResponseLookup
	client *redis.Client
	ttl    time.Duration
}

// NewCachedLookup builds a cached lookup. A zero TTL defaults to one minute.
func NewCachedLookup(inner ResponseLookup, client *redis.Client, ttl time.Duration) *CachedLookup {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedLookup{inner: inner, client: client, ttl: ttl}
}

// LatestResponse returns the cached latest response for a contact, consulting
// the backing lookup on a miss.
func (l *CachedLookup) LatestResponse(ctx context.Context, contactID string) (*domain.Response, error) {
	key := cacheKey(contactID)

	if val, err := l.client.Get(ctx, key).Result(); err == nil {
		if val == negative {
			return nil, nil
		}
		var resp domain.Response
		if err := json.Unmarshal([]byte(val), &resp); err == nil {
			return &resp, nil
		}
	}

	resp, err := l.inner.LatestResponse(ctx, contactID)
	if err != nil {
		return nil, err
	}

	if resp == nil {
		l.client.Set(ctx, key, negative, l.ttl)
		return nil, nil
	}
	if data, err := json.Marshal(resp); err == nil {
		l.client.Set(ctx, key, data, l.ttl)
	}
	return resp, nil
}

// Invalidate drops the cache entry for a contact. Called when a new inbound
// response is recorded so the next conflict check sees it immediately.
func (l *CachedLookup) Invalidate(ctx context.Context, contactID string) {
	l.client.Del(ctx, cacheKey(contactID))
}

func cacheKey(contactID string) string {
	return fmt.Sprintf("abm:response:%s", contactID)
}
