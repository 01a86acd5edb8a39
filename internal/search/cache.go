package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Aman-CERP/gpsearch/internal/store"
)

// DefaultCacheTTL bounds how long a cached result may hide writes made by
// other processes.
const DefaultCacheTTL = 5 * time.Second

// resultCache is an LRU of search results whose entries expire after a TTL.
// A nil cache is disabled.
type resultCache struct {
	lru *expirable.LRU[string, *Result]
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &resultCache{lru: expirable.NewLRU[string, *Result](size, nil, ttl)}
}

func (c *resultCache) get(key string) (*Result, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) add(key string, res *Result) {
	if c == nil {
		return
	}
	c.lru.Add(key, res)
}

func (c *resultCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func (i *Index) purgeCache() {
	i.cache.purge()
}

// cacheKey identifies a query by everything that shapes its result.
func cacheKey(q store.Query, withPayloads bool) string {
	return fmt.Sprintf("%s\x00%d\x00%d\x00%s\x00%t\x00%t\x00%s\x00%t",
		q.Text, q.Offset, q.Limit, q.SortBy, q.SortAsc, q.Highlight(),
		strings.Join(q.Return, ","), withPayloads)
}
