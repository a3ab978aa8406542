// Package factory caches recognition services per option set. Each cache
// holds a single service; asking for different options closes the old
// service and builds a new one.
package factory

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/visionbridge/internal/metrics"
)

// Fingerprinter is implemented by option types that can be used as cache keys.
type Fingerprinter interface {
	Fingerprint() string
}

// Cache is a single-slot, mutex guarded handle cache keyed by the options
// fingerprint.
type Cache[O Fingerprinter, H io.Closer] struct {
	name  string
	build func(opts O) (H, error)

	mu     sync.Mutex
	key    string
	handle H
	ready  bool
	builds int
}

// NewCache returns an empty cache. name labels log lines and metrics.
func NewCache[O Fingerprinter, H io.Closer](name string, build func(opts O) (H, error)) *Cache[O, H] {
	return &Cache[O, H]{name: name, build: build}
}

// GetOrCreate returns the cached handle when opts fingerprint to the cached
// key; otherwise it closes the cached handle and builds a new one. Lookup
// and construction happen under one lock.
func (c *Cache[O, H]) GetOrCreate(opts O) (H, error) {
	key := opts.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready && c.key == key {
		metrics.CacheEvents.WithLabelValues(c.name, "hit").Inc()
		return c.handle, nil
	}

	event := "miss"
	if c.ready {
		event = "rebuild"
		c.release()
	}

	h, err := c.build(opts)
	if err != nil {
		metrics.CacheEvents.WithLabelValues(c.name, "error").Inc()
		var zero H
		return zero, fmt.Errorf("%s: build for %q: %w", c.name, key, err)
	}
	metrics.CacheEvents.WithLabelValues(c.name, event).Inc()
	slog.Debug("Options cache built handle", "cache", c.name, "key", key, "event", event)

	c.handle = h
	c.key = key
	c.ready = true
	c.builds++
	return h, nil
}

// Key returns the fingerprint of the cached handle, or "" when empty.
func (c *Cache[O, H]) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Builds reports how many handles the cache has constructed.
func (c *Cache[O, H]) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

// Close releases the cached handle. The cache can be used again afterwards.
func (c *Cache[O, H]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil
	}
	err := c.handle.Close()
	c.reset()
	return err
}

// release closes the current handle. Close failures are logged, not
// returned, so a replacement can still be built.
func (c *Cache[O, H]) release() {
	if err := c.handle.Close(); err != nil {
		slog.Warn("Failed to close cached handle", "cache", c.name, "key", c.key, "error", err)
	}
	c.reset()
}

func (c *Cache[O, H]) reset() {
	var zero H
	c.handle = zero
	c.key = ""
	c.ready = false
}
