// ABOUTME: Thread-safe TTL memo of decoded capability documents
// ABOUTME: Size-bounded with oldest-first eviction so repeated lookups skip the store

package capabilities

import (
	"container/list"
	"sync"
	"time"
)

// memoEntry stores the document, its insertion time and list element.
type memoEntry struct {
	doc       Document
	timestamp time.Time
	element   *list.Element
}

// memo is a TTL-based, size-limited map of interface name to decoded
// document. A doubly-linked list keeps insertion order for O(1) eviction.
type memo struct {
	mu      sync.Mutex
	entries map[string]*memoEntry
	order   *list.List // keys, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// newMemo creates a memo. A background goroutine periodically drops
// expired entries until stop.
func newMemo(ttl time.Duration, maxSize int) *memo {
	m := &memo{
		entries: make(map[string]*memoEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// get returns the document for key if present and not expired.
func (m *memo) get(key string) (Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || m.now().Sub(entry.timestamp) >= m.ttl {
		return nil, false
	}
	return entry.doc, true
}

// put stores doc under key. If the memo is full the oldest entry is evicted.
func (m *memo) put(key string, doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if entry, exists := m.entries[key]; exists {
		entry.doc = doc
		entry.timestamp = now
		m.order.MoveToBack(entry.element)
		return
	}

	if len(m.entries) >= m.maxSize {
		m.evictOldest()
	}

	elem := m.order.PushBack(key)
	m.entries[key] = &memoEntry{
		doc:       doc,
		timestamp: now,
		element:   elem,
	}
}

func (m *memo) forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[key]; ok {
		m.order.Remove(entry.element)
		delete(m.entries, key)
	}
}

func (m *memo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (m *memo) evictOldest() {
	front := m.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	m.order.Remove(front)
	delete(m.entries, key)
}

func (m *memo) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.dropExpired()
		case <-m.done:
			return
		}
	}
}

func (m *memo) dropExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if now.Sub(entry.timestamp) >= m.ttl {
			m.order.Remove(entry.element)
			delete(m.entries, key)
		}
	}
}

// stop ends the cleanup goroutine. It is safe to call multiple times.
func (m *memo) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		close(m.done)
		m.closed = true
	}
}
