package storage

import (
	"encoding/json"
	"os"
	"time"

	"github.com/maypok86/otter/v2"
)

// Cache wraps an otter cache with access-based expiry and optional JSON
// persistence. A zero filePath disables persistence.
type Cache[T any] struct {
	outer *otter.Cache[string, T]

	filePath  string
	stopFlush chan struct{}
}

func NewCache[T any](capacity int, ttl time.Duration, filePath string, flushInterval time.Duration) *Cache[T] {
	c := &Cache[T]{
		filePath:  filePath,
		stopFlush: make(chan struct{}),
	}
	c.outer = otter.Must(&otter.Options[string, T]{
		InitialCapacity:  capacity,
		ExpiryCalculator: otter.ExpiryAccessing[string, T](ttl),
	})

	if c.filePath != "" {
		_ = c.loadFromDisk()
		if flushInterval > 0 {
			go c.periodicFlush(flushInterval)
		}
	}

	return c
}

func (c *Cache[T]) Set(key string, val T) {
	c.outer.Set(key, val)
}

func (c *Cache[T]) Get(key string) (T, bool) {
	return c.outer.GetIfPresent(key)
}

func (c *Cache[T]) ClearKey(key string) {
	c.outer.Invalidate(key)
}

func (c *Cache[T]) ClearAll() {
	c.outer.InvalidateAll()
}

func (c *Cache[T]) FlushToDisk() {
	if c.filePath == "" {
		return
	}

	cacheData := make(map[string]T)
	for k, v := range c.outer.All() {
		cacheData[k] = v
	}

	data, err := json.MarshalIndent(cacheData, "", "  ")
	if err != nil {
		return
	}

	_ = os.WriteFile(c.filePath, data, 0600)
}

func (c *Cache[T]) periodicFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.FlushToDisk()
		case <-c.stopFlush:
			return
		}
	}
}

func (c *Cache[T]) loadFromDisk() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		return err
	}

	var items map[string]T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	for k, v := range items {
		c.outer.Set(k, v)
	}

	return nil
}

func (c *Cache[T]) Close() {
	if c.filePath != "" {
		c.FlushToDisk()
	}
	close(c.stopFlush)
}
