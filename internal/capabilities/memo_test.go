// ABOUTME: Tests for the capability document memo
// ABOUTME: Validates TTL expiration, size limits, eviction order, cleanup and concurrency safety

package capabilities

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move the memo's notion of now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemo(t *testing.T, ttl time.Duration, size int) (*memo, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newMemo(ttl, size)
	m.now = clock.Now
	t.Cleanup(m.stop)
	return m, clock
}

func TestMemo_GetMissing(t *testing.T) {
	m, _ := newTestMemo(t, time.Minute, 10)

	_, ok := m.get("UI")
	assert.False(t, ok)
}

func TestMemo_PutAndGet(t *testing.T) {
	m, _ := newTestMemo(t, time.Minute, 10)

	m.put("UI", Document{"a": 1.0})
	doc, ok := m.get("UI")
	assert.True(t, ok)
	assert.Equal(t, 1.0, doc["a"])
}

func TestMemo_Expired(t *testing.T) {
	m, clock := newTestMemo(t, time.Minute, 10)

	m.put("UI", Document{})
	clock.Advance(59 * time.Second)
	_, ok := m.get("UI")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = m.get("UI")
	assert.False(t, ok)
}

func TestMemo_PutRefreshes(t *testing.T) {
	m, clock := newTestMemo(t, time.Minute, 10)

	m.put("UI", Document{"v": 1.0})
	clock.Advance(40 * time.Second)
	m.put("UI", Document{"v": 2.0})
	clock.Advance(40 * time.Second)

	doc, ok := m.get("UI")
	assert.True(t, ok, "refreshed entry should outlive the original ttl")
	assert.Equal(t, 2.0, doc["v"])
}

func TestMemo_EvictionOrder(t *testing.T) {
	m, _ := newTestMemo(t, time.Minute, 3)

	m.put("first", Document{})
	m.put("second", Document{})
	m.put("third", Document{})

	// refreshing moves first to the back
	m.put("first", Document{})
	m.put("fourth", Document{})

	_, ok := m.get("second")
	assert.False(t, ok, "second should be evicted")
	for _, key := range []string{"first", "third", "fourth"} {
		_, ok := m.get(key)
		assert.True(t, ok, key)
	}
	assert.Equal(t, 3, m.size())
}

func TestMemo_Forget(t *testing.T) {
	m, _ := newTestMemo(t, time.Minute, 3)

	m.put("UI", Document{})
	m.forget("UI")
	m.forget("UI")

	_, ok := m.get("UI")
	assert.False(t, ok)
	assert.Equal(t, 0, m.size())
}

func TestMemo_DropExpired(t *testing.T) {
	m, clock := newTestMemo(t, time.Minute, 10)

	m.put("a", Document{})
	m.put("b", Document{})
	clock.Advance(30 * time.Second)
	m.put("c", Document{})
	clock.Advance(30 * time.Second)

	m.dropExpired()
	assert.Equal(t, 1, m.size(), "only the newer entry survives")

	// the list stays in step with the map
	m.put("d", Document{})
	assert.Equal(t, 2, m.order.Len())
}

func TestMemo_Concurrent(t *testing.T) {
	m, _ := newTestMemo(t, time.Minute, 50)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("iface-%d-%d", id%7, j%13)
				m.put(key, Document{})
				m.get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, m.size(), 50)
	m.put("final", Document{})
	_, ok := m.get("final")
	assert.True(t, ok)
}

func TestMemo_StopTwice(t *testing.T) {
	m := newMemo(time.Minute, 1)
	m.stop()
	m.stop()
}
