package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/halfmovies/recsvc/internal/audit"
	"github.com/halfmovies/recsvc/internal/observability"
)

// Recommender recomputes a recommendation from scratch.
type Recommender interface {
	SelectAndRank(ctx context.Context, userID string) (Result, error)
}

type cacheEntry struct {
	result    Result
	createdAt time.Time
}

// Cache memoizes recommendation results per user with bounded freshness.
// Hits are lock-free apart from a read lock; misses for the same user are
// collapsed into a single recomputation, so concurrent callers share one
// catalog round-trip and exactly one audit entry.
type Cache struct {
	engine   Recommender
	sink     audit.Sink
	ttl      time.Duration
	slowCall time.Duration
	metrics  *observability.Metrics
	logger   zerolog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewCache(engine Recommender, sink audit.Sink, ttl, slowCall time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		engine:   engine,
		sink:     sink,
		ttl:      ttl,
		slowCall: slowCall,
		metrics:  metrics,
		logger:   logger.With().Str("component", "recommend_cache").Logger(),
		entries:  make(map[string]cacheEntry),
	}
}

type flightResult struct {
	result Result
	cached bool
}

// Get returns the user's recommendations, serving a fresh-enough snapshot
// when one exists. Cached and LatencyMS on the returned value describe
// this call only.
func (c *Cache) Get(ctx context.Context, userID string) (Result, error) {
	start := time.Now()

	if res, ok := c.lookup(userID); ok {
		return c.finish(res, true, start), nil
	}

	v, err, _ := c.group.Do(userID, func() (any, error) {
		// A racer may have populated the entry while we queued for the flight.
		if res, ok := c.lookup(userID); ok {
			return flightResult{result: res, cached: true}, nil
		}
		res, err := c.recompute(ctx, userID)
		if err != nil {
			return nil, err
		}
		return flightResult{result: res}, nil
	})
	if err != nil {
		return Result{}, err
	}

	fr := v.(flightResult)
	return c.finish(fr.result, fr.cached, start), nil
}

// recompute runs the ranker, stores the snapshot, and writes the audit
// entry. The caller's cancellation is deliberately detached: the work is
// shared, so it should land in the cache even if this caller walked away.
func (c *Cache) recompute(ctx context.Context, userID string) (Result, error) {
	dctx := context.WithoutCancel(ctx)

	computeStart := time.Now()
	res, err := c.engine.SelectAndRank(dctx, userID)
	if err != nil {
		return Result{}, err
	}
	computeElapsed := time.Since(computeStart)

	c.store(userID, res)

	entry := audit.Entry{
		UserID:    userID,
		Strategy:  string(res.Strategy),
		ItemCount: len(res.Recommendations),
		LatencyMS: computeElapsed.Milliseconds(),
	}
	if err := c.sink.Record(dctx, entry); err != nil {
		// Non-fatal: the caller still gets their result, operators get the failure.
		c.metrics.AuditWriteErrors.Inc()
		c.logger.Error().Err(err).Str("user_id", userID).Msg("audit write failed")
	}

	if c.slowCall > 0 && computeElapsed > c.slowCall {
		c.logger.Warn().
			Str("user_id", userID).
			Str("strategy", string(res.Strategy)).
			Dur("elapsed", computeElapsed).
			Msg("slow recommendation recompute")
	}

	return res, nil
}

func (c *Cache) finish(res Result, cached bool, start time.Time) Result {
	out := res.clone()
	out.Cached = cached
	elapsed := time.Since(start)
	out.LatencyMS = elapsed.Milliseconds()
	c.metrics.ObserveRecommendation(string(out.Strategy), cached, elapsed)
	return out
}

func (c *Cache) lookup(userID string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[userID]
	if !ok || time.Since(e.createdAt) > c.ttl {
		return Result{}, false
	}
	return e.result, true
}

func (c *Cache) store(userID string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cacheEntry{result: res.clone(), createdAt: time.Now()}
	c.metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Invalidate drops the user's entry so the next call recomputes.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Len reports the number of stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor periodically evicts stale entries until ctx is done.
// Stale entries are already treated as absent on lookup; the janitor just
// keeps the map and the gauge from growing with one-off users.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.evictStale()
			}
		}
	}()
}

func (c *Cache) evictStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for userID, e := range c.entries {
		if time.Since(e.createdAt) > c.ttl {
			delete(c.entries, userID)
		}
	}
	c.metrics.CacheEntries.Set(float64(len(c.entries)))
}
