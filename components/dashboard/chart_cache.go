package dashboard

import (
	"sync"
	"time"
)

// RenderCache memoizes rendered chart HTML. Each report owns one slot; a
// render for a different version replaces whatever the slot held.
type RenderCache interface {
	GetOrRender(slot, version string, render func() (string, error)) (string, error)
}

// ChartCache keeps the last rendered chart per report for at most ttl.
type ChartCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	slots map[string]chartEntry
}

type chartEntry struct {
	version string
	html    string
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL. A TTL <= 0 disables it.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:   ttl,
		now:   time.Now,
		slots: make(map[string]chartEntry),
	}
}

// GetOrRender returns the slot's HTML when it holds version and has not
// expired, otherwise renders and stores it.
func (c *ChartCache) GetOrRender(slot, version string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	c.mu.Lock()
	entry, ok := c.slots[slot]
	c.mu.Unlock()
	if ok && entry.version == version && c.now().Before(entry.expires) {
		return entry.html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.store(slot, version, html)
	return html, nil
}

func (c *ChartCache) store(slot, version, html string) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.slots {
		if !now.Before(entry.expires) {
			delete(c.slots, key)
		}
	}
	c.slots[slot] = chartEntry{version: version, html: html, expires: now.Add(c.ttl)}
}
