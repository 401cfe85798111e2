// Package cache holds blobs behind object URLs until they are revoked.
package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/stackvity/fsaccess/internal/blob"
)

// Registry maps object URLs to blobs. It is safe for concurrent use.
type Registry struct {
	prefix string
	logger *slog.Logger

	mu    sync.RWMutex
	next  uint64
	blobs map[string]blob.Blob
}

// NewRegistry creates a registry whose URLs start with "blob:" + origin.
func NewRegistry(origin string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		prefix: "blob:" + origin + "/",
		logger: logger,
		blobs:  make(map[string]blob.Blob),
	}
}

// Put registers b and returns a fresh URL for it.
func (r *Registry) Put(b blob.Blob) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	url := fmt.Sprintf("%s%d", r.prefix, r.next)
	r.blobs[url] = b
	r.logger.Debug("Object URL created", "url", url, "size", b.Size())
	return url
}

// Get returns the blob behind url while it is registered.
func (r *Registry) Get(url string) (blob.Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[url]
	return b, ok
}

// Revoke forgets url. It reports whether url was registered.
func (r *Registry) Revoke(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blobs[url]; !ok {
		return false
	}
	delete(r.blobs, url)
	r.logger.Debug("Object URL revoked", "url", url)
	return true
}

// Len is the number of live URLs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
