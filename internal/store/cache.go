package store

import (
	"container/list"
	"sync"
)

// objectCache is a small LRU over decoded payload bytes. It only ever
// holds bytes that already exist on disk, so eviction is always safe.
type objectCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	items   map[string]*list.Element
}

type cacheEntry struct {
	digest string
	data   []byte
}

func newObjectCache(maxSize int) *objectCache {
	return &objectCache{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element),
	}
}

func (c *objectCache) get(digest string) ([]byte, bool) {
	if c.maxSize <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[digest]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).data, true
}

func (c *objectCache) add(digest string, data []byte) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[digest]; ok {
		c.order.MoveToFront(elem)
		return
	}

	for len(c.items) >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).digest)
	}

	c.items[digest] = c.order.PushFront(&cacheEntry{digest: digest, data: data})
}

func (c *objectCache) has(digest string) bool {
	if c.maxSize <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[digest]
	return ok
}
