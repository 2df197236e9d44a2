// Package querycache memoizes computed answers per normalized query, filter
// set and result size, with per-entry expiry.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/lexical"
)

const DefaultTTL = time.Hour

type entry[V any] struct {
	value     V
	createdAt time.Time
	ttl       time.Duration
}

func (e entry[V]) liveAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.createdAt) < ttl
}

type result[V any] struct {
	value  V
	cached bool
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type Cache[V any] struct {
	defaultTTL time.Duration
	now        func() time.Time

	mu         sync.Mutex
	entries    map[string]entry[V]
	generation uint64

	flights singleflight.Group
}

func New[V any](defaultTTL time.Duration, opts ...Option) *Cache[V] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		defaultTTL: defaultTTL,
		now:        o.now,
		entries:    make(map[string]entry[V]),
	}
}

// Key derives the cache key from the normalized query, the canonical filter
// pairs and k.
func Key(query string, filter domain.SearchFilter, k int) string {
	h := sha256.New()
	h.Write([]byte(lexical.NormalizeQuery(query)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(filter.Canonical(), "&")))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(k)))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns a live entry for the key or runs compute and stores its
// result. Concurrent misses on one key share a single compute call. A failed
// compute stores nothing and its error is returned as is.
func (c *Cache[V]) GetOrCompute(
	query string,
	filter domain.SearchFilter,
	k int,
	ttl time.Duration,
	compute func() (V, error),
) (V, bool, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	key := Key(query, filter, k)

	if v, ok := c.lookup(key, ttl); ok {
		return v, true, nil
	}

	out, err, _ := c.flights.Do(key, func() (any, error) {
		if v, ok := c.lookup(key, ttl); ok {
			return result[V]{value: v, cached: true}, nil
		}

		c.mu.Lock()
		gen := c.generation
		c.mu.Unlock()

		v, err := compute()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if gen == c.generation {
			c.entries[key] = entry[V]{value: v, createdAt: c.now(), ttl: ttl}
		}
		c.mu.Unlock()
		return result[V]{value: v}, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	r := out.(result[V])
	return r.value, r.cached, nil
}

func (c *Cache[V]) lookup(key string, ttl time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.liveAt(c.now(), ttl) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	valid := 0
	for _, e := range c.entries {
		if e.liveAt(now, e.ttl) {
			valid++
		}
	}
	return domain.CacheStats{
		TotalEntries: len(c.entries),
		ValidEntries: valid,
		TTLSeconds:   int(c.defaultTTL / time.Second),
	}
}

// Clear drops every entry. Computes already in flight do not repopulate it.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.generation++
}

// Prune removes expired entries and reports how many were dropped.
func (c *Cache[V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !e.liveAt(now, e.ttl) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Run prunes expired entries every interval until ctx is done.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Prune(); removed > 0 {
				slog.Debug("query_cache_pruned", "removed", removed)
			}
		}
	}
}
