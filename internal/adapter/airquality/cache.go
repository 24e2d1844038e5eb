package airquality

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/couchcryptid/aqi-advisory-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedProvider wraps an AirQualityProvider with an in-memory LRU cache whose
// entries expire after a TTL.
type CachedProvider struct {
	inner     domain.AirQualityProvider
	current   *lruCache[domain.Conditions]
	forecasts *lruCache[domain.ForecastPoint]
	metrics   *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.AirQualityProvider, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedProvider {
	return newCachedProvider(inner, maxEntries, ttl, metrics, clockwork.NewRealClock())
}

func newCachedProvider(inner domain.AirQualityProvider, maxEntries int, ttl time.Duration, metrics *observability.Metrics, clock clockwork.Clock) *CachedProvider {
	return &CachedProvider{
		inner:     inner,
		current:   newLRUCache[domain.Conditions](maxEntries, ttl, clock),
		forecasts: newLRUCache[domain.ForecastPoint](maxEntries, ttl, clock),
		metrics:   metrics,
	}
}

func (c *CachedProvider) CurrentConditions(ctx context.Context, lat, lon float64) (domain.Conditions, error) {
	key := fmt.Sprintf("cur:%.4f,%.4f", lat, lon)
	if result, ok := c.current.get(key); ok {
		c.metrics.ProviderCache.WithLabelValues("current", "hit").Inc()
		return result, nil
	}
	c.metrics.ProviderCache.WithLabelValues("current", "miss").Inc()

	result, err := c.inner.CurrentConditions(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient gaps can be retried.
	if result.AQI > 0 || result.DominantPollutant != "" {
		c.current.put(key, result)
	}
	return result, nil
}

func (c *CachedProvider) Forecast(ctx context.Context, lat, lon float64, target time.Time) (domain.ForecastPoint, error) {
	// A zero target resolves relative to now inside the provider, so it is not cacheable.
	if target.IsZero() {
		return c.inner.Forecast(ctx, lat, lon, target)
	}

	key := fmt.Sprintf("fc:%.4f,%.4f@%s", lat, lon, target.UTC().Truncate(time.Hour).Format(time.RFC3339))
	if result, ok := c.forecasts.get(key); ok {
		c.metrics.ProviderCache.WithLabelValues("forecast", "hit").Inc()
		return result, nil
	}
	c.metrics.ProviderCache.WithLabelValues("forecast", "miss").Inc()

	result, err := c.inner.Forecast(ctx, lat, lon, target)
	if err != nil {
		return result, err
	}
	c.forecasts.put(key, result)
	return result, nil
}

// lruCache is a small thread-safe LRU cache with per-entry expiry.
type lruCache[V any] struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	prev      *entry[V]
	next      *entry[V]
}

func newLRUCache[V any](maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
