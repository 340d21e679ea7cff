package netroute

import (
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultLinkCacheTTL bounds how long an interface alias lookup is reused.
const DefaultLinkCacheTTL = 30 * time.Second

// linkCache memoizes interface alias lookups (link index on linux, LUID on
// windows). Aliases are matched case-insensitively. Hits do not extend an
// entry's lifetime, so a recreated interface is picked up within one TTL.
type linkCache[V any] struct {
	cache *ttlcache.Cache[string, V]
	load  func(alias string) (V, error)
}

func newLinkCache[V any](ttl time.Duration, load func(alias string) (V, error)) *linkCache[V] {
	if ttl <= 0 {
		ttl = DefaultLinkCacheTTL
	}
	return &linkCache[V]{
		cache: ttlcache.New[string, V](
			ttlcache.WithTTL[string, V](ttl),
			ttlcache.WithDisableTouchOnHit[string, V](),
		),
		load:  load,
	}
}

func (c *linkCache[V]) Get(alias string) (V, error) {
	key := canonAlias(alias)
	if item := c.cache.Get(key); item != nil {
		return item.Value(), nil
	}
	v, err := c.load(strings.TrimSpace(alias))
	if err != nil {
		var zero V
		return zero, err
	}
	c.cache.Set(key, v, ttlcache.DefaultTTL)
	return v, nil
}

// Forget drops alias, e.g. after the OS reported the interface gone.
func (c *linkCache[V]) Forget(alias string) {
	c.cache.Delete(canonAlias(alias))
}

func canonAlias(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
