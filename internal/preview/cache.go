package preview

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"prompt2web_server/internal/types"
)

const (
	defaultNumCounters = 1e5
	defaultMaxCost     = 64 << 20
	defaultBufferItems = 64
	defaultTTL         = 30 * time.Minute
)

// Cache memoises composited documents. Keys must change whenever the project
// changes; callers use the session revision for that.
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCache creates a Cache bounded by maxCost bytes of composited HTML.
func NewCache(maxCost int64, ttl time.Duration) (*Cache, error) {
	if maxCost <= 0 {
		maxCost = defaultMaxCost
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: defaultNumCounters,
		MaxCost:     maxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create preview cache: %w", err)
	}
	return &Cache{cache: cache, ttl: ttl}, nil
}

// Key builds the cache key for one session revision and edit flag.
func Key(sessionID string, revision uint64, editMode bool) string {
	return fmt.Sprintf("%s:%d:%t", sessionID, revision, editMode)
}

// Render returns the cached document for key, composing and storing it on a miss.
func (c *Cache) Render(key string, project *types.Project, editMode bool) string {
	if v, ok := c.cache.Get(key); ok {
		if doc, ok := v.(string); ok {
			return doc
		}
	}
	doc := Compose(project, editMode)
	c.cache.SetWithTTL(key, doc, int64(len(doc)), c.ttl)
	return doc
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.cache.Close()
}
