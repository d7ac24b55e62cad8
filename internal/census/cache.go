package census

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/airshed-group/exposure-cli/internal/resilience"
)

// DefaultTTL is how long a fetched population table serves before a refresh
// is triggered.
const DefaultTTL = 24 * time.Hour

const fetchKey = "population-table"

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock injects a time source, letting tests drive TTL expiry with a
// fake clock.
func WithClock(clock clockwork.Clock) CacheOption {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// Cache holds the bulk-fetched population table with TTL-based refresh.
//
// The first lookup blocks on a bulk fetch; concurrent first lookups collapse
// to a single outstanding fetch. Once the TTL elapses, stale data keeps
// serving reads while one background refresh runs. A failed refresh never
// evicts previously fetched data.
type Cache struct {
	source Source
	ttl    time.Duration
	clock  clockwork.Clock
	group  singleflight.Group

	mu        sync.RWMutex
	table     map[string]Record
	fetchedAt time.Time
	gen       uint64
}

// NewCache creates a population cache over the given source.
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{
		source: source,
		ttl:    DefaultTTL,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the population record for a GEOID. Invalid GEOIDs are excluded
// silently (ok=false, no error). An error is returned only when no table has
// ever been fetched and the bulk fetch fails.
func (c *Cache) Get(ctx context.Context, geoid string) (Record, bool, error) {
	if !ValidGEOID(geoid) {
		return Record{}, false, nil
	}

	table, err := c.snapshot(ctx)
	if err != nil {
		return Record{}, false, err
	}

	rec, ok := table[geoid]
	return rec, ok, nil
}

// Total sums the populations of the given GEOIDs. Invalid or unknown GEOIDs
// contribute zero.
func (c *Cache) Total(ctx context.Context, geoids []string) (int64, error) {
	table, err := c.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, id := range geoids {
		if !ValidGEOID(id) {
			continue
		}
		if rec, ok := table[id]; ok {
			total += rec.Population
		}
	}
	return total, nil
}

// Reset drops the cached table and any fetch-in-flight bookkeeping. A fetch
// already running when Reset is called completes but its table is discarded.
func (c *Cache) Reset() {
	c.group.Forget(fetchKey)
	c.mu.Lock()
	c.table = nil
	c.fetchedAt = time.Time{}
	c.gen++
	c.mu.Unlock()
}

// snapshot returns the current table, fetching synchronously when the cache
// is cold and refreshing in the background when the TTL has elapsed.
func (c *Cache) snapshot(ctx context.Context) (map[string]Record, error) {
	c.mu.RLock()
	table := c.table
	age := c.clock.Since(c.fetchedAt)
	c.mu.RUnlock()

	if table == nil {
		// Cold cache: block, collapsing concurrent callers.
		v, err, _ := c.group.Do(fetchKey, func() (any, error) {
			return c.fetch(ctx)
		})
		if err != nil {
			return nil, eris.Wrap(err, "census: bulk population fetch")
		}
		return v.(map[string]Record), nil
	}

	if age > c.ttl {
		// Stale: serve what we have, refresh once in the background.
		refreshCtx := context.WithoutCancel(ctx)
		go func() {
			_, err, _ := c.group.Do(fetchKey, func() (any, error) {
				return c.fetch(refreshCtx)
			})
			if err != nil {
				zap.L().Warn("census: background refresh failed, serving stale table",
					zap.Error(err))
			}
		}()
	}

	return table, nil
}

// fetch pulls the full table from the source and installs it on success.
// Transient connection failures retry with backoff before surfacing.
func (c *Cache) fetch(ctx context.Context) (map[string]Record, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	records, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), c.source.FetchAll)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.table = records
		c.fetchedAt = c.clock.Now()
	}
	c.mu.Unlock()

	zap.L().Info("census: population table fetched",
		zap.Int("records", len(records)))
	return records, nil
}
