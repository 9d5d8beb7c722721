package session

// lruKey identifies one cached page by (settingsKey, pageNumber), per §4.7.
type lruKey struct {
	settingsKey string
	pageNumber  int
}

// lruCache is a small fixed-capacity cache keyed by lruKey, evicting the
// least-recently-touched entry once full. Modeled on the map-plus-order-
// slice eviction shape used for line caching in pager-style readers.
type lruCache struct {
	capacity int
	entries  map[lruKey]Page
	order    []lruKey
}

func newLRU(capacity int) *lruCache {
	return &lruCache{capacity: capacity, entries: make(map[lruKey]Page, capacity)}
}

func (c *lruCache) get(k lruKey) (Page, bool) {
	p, ok := c.entries[k]
	if ok {
		c.touch(k)
	}
	return p, ok
}

func (c *lruCache) put(k lruKey, p Page) {
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[k] = p
	c.touch(k)
}

func (c *lruCache) touch(k lruKey) {
	for i, v := range c.order {
		if v == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, k)
}

func (c *lruCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

// invalidateRange drops cached entries for settingsKey whose page number
// falls in [fromPage, toPage], the exact range a BatchCommitted
// notification covers (§4.7: "invalidates ... the relevant LRU range").
func (c *lruCache) invalidateRange(settingsKey string, fromPage, toPage int) {
	for k := range c.entries {
		if k.settingsKey == settingsKey && k.pageNumber >= fromPage && k.pageNumber <= toPage {
			delete(c.entries, k)
		}
	}
	filtered := c.order[:0]
	for _, k := range c.order {
		if _, stillPresent := c.entries[k]; stillPresent {
			filtered = append(filtered, k)
		}
	}
	c.order = filtered
}
