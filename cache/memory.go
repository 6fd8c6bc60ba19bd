package cache

import (
	"container/list"
	"image"
	"sync"
	"sync/atomic"
)

const memoryShards = 16

// Memory is a sharded in-memory LRU slide cache. Sharding keeps lock
// contention low when a display thread and a prefetcher hit the cache at the
// same time; each shard has its own lock and LRU list.
type Memory struct {
	shards [memoryShards]*memoryShard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type memoryShard struct {
	mu      sync.RWMutex
	items   map[int]*list.Element
	order   *list.List // front = most recently used
	maxSize int        // 0 = unbounded
}

type memoryEntry struct {
	index int
	img   *image.RGBA
}

// NewMemory creates a memory cache holding at most capacity slides across all
// shards. capacity <= 0 means unbounded.
func NewMemory(capacity int) *Memory {
	sizePerShard := 0
	if capacity > 0 {
		sizePerShard = capacity / memoryShards
		if sizePerShard < 1 {
			sizePerShard = 1
		}
	}

	c := &Memory{}
	for i := range c.shards {
		c.shards[i] = &memoryShard{
			items:   make(map[int]*list.Element),
			order:   list.New(),
			maxSize: sizePerShard,
		}
	}
	return c
}

func (c *Memory) shard(index int) *memoryShard {
	return c.shards[uint(index)%memoryShards]
}

// Retrieve returns the cached buffer for a page index and promotes it to most
// recently used.
func (c *Memory) Retrieve(index int) (*image.RGBA, bool) {
	s := c.shard(index)

	s.mu.RLock()
	elem, ok := s.items[index]
	s.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	// Promotion mutates the LRU list, so re-check under the write lock.
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok = s.items[index]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	s.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*memoryEntry).img, true
}

// Put stores a buffer, overwriting any previous entry for the index and
// evicting the least recently used slide if the shard is full.
func (c *Memory) Put(index int, img *image.RGBA) {
	s := c.shard(index)

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[index]; ok {
		elem.Value.(*memoryEntry).img = img
		s.order.MoveToFront(elem)
		return
	}

	s.items[index] = s.order.PushFront(&memoryEntry{index: index, img: img})

	if s.maxSize > 0 && s.order.Len() > s.maxSize {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.items, oldest.Value.(*memoryEntry).index)
			c.evictions.Add(1)
		}
	}
}

// Len returns the number of cached slides.
func (c *Memory) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Clear drops every cached slide. Counters are left alone.
func (c *Memory) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.items = make(map[int]*list.Element)
		s.order.Init()
		s.mu.Unlock()
	}
}

// Stats returns the cumulative hit, miss and eviction counts.
func (c *Memory) Stats() (hits, misses, evictions uint64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}
