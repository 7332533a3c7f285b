package gopixel

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores decoded responses between calls.
type Cache interface {
	Get(key string) (Response, bool)
	Set(key string, resp Response, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

// InMemoryCache is a Cache backed by go-cache. Stored and returned
// responses are copies, so callers may mutate what they get.
type InMemoryCache struct {
	store *gocache.Cache
}

// NewInMemoryCache creates a cache whose entries default to ttl and are
// swept every 2*ttl.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	cleanup := 2 * ttl
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &InMemoryCache{store: gocache.New(ttl, cleanup)}
}

func (c *InMemoryCache) Get(key string) (Response, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	resp, ok := v.(Response)
	if !ok {
		return nil, false
	}
	return cloneResponse(resp), true
}

func (c *InMemoryCache) Set(key string, resp Response, ttl time.Duration) {
	c.store.Set(key, cloneResponse(resp), ttl)
}

func (c *InMemoryCache) Delete(key string) {
	c.store.Delete(key)
}

func (c *InMemoryCache) Clear() {
	c.store.Flush()
}

func (c *InMemoryCache) Len() int {
	return c.store.ItemCount()
}

// cacheKeyFor identifies a call independently of the key that made it,
// so every key of a pool shares one entry.
func cacheKeyFor(action string, params Params) string {
	shared := make(Params, len(params))
	for name, value := range params {
		if name != keyParam {
			shared[name] = value
		}
	}
	return action + "?" + EncodeQuery(shared)
}

func cloneResponse(resp Response) Response {
	if resp == nil {
		return nil
	}
	out := make(Response, len(resp))
	for k, v := range resp {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
