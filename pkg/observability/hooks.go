// Package observability provides hooks for metrics, tracing, and logging.
//
// The pipeline has no hard dependency on any observability backend. Consumers
// register hooks at startup to receive events about discovery, restoration,
// and cache operations; libraries emit through the registered hooks without
// knowing what listens.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetDiscoveryHooks(&myDiscoveryHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Discovery().OnRunStart(ctx, root)
//	// ... discover ...
//	observability.Discovery().OnRunComplete(ctx, root, nodeCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// DiscoveryHooks receives events from dependency discovery.
type DiscoveryHooks interface {
	// OnRunStart records the start of a discovery run from a root file.
	OnRunStart(ctx context.Context, root string)

	// OnRunComplete records the end of a run with the final graph size.
	OnRunComplete(ctx context.Context, root string, nodeCount int, duration time.Duration, err error)

	// OnNodeResolved records one file whose references were processed.
	OnNodeResolved(ctx context.Context, key string, refCount, unresolvedCount int)
}

// RestoreHooks receives events from restoration.
type RestoreHooks interface {
	// OnRestoreStart records the start of one file's restoration.
	OnRestoreStart(ctx context.Context, relPath string)

	// OnRestoreComplete records one file's outcome, including whether the
	// result came from cache.
	OnRestoreComplete(ctx context.Context, relPath string, cached bool, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopDiscoveryHooks is a no-op implementation of DiscoveryHooks.
type NoopDiscoveryHooks struct{}

func (NoopDiscoveryHooks) OnRunStart(context.Context, string)                               {}
func (NoopDiscoveryHooks) OnRunComplete(context.Context, string, int, time.Duration, error) {}
func (NoopDiscoveryHooks) OnNodeResolved(context.Context, string, int, int)                 {}

// NoopRestoreHooks is a no-op implementation of RestoreHooks.
type NoopRestoreHooks struct{}

func (NoopRestoreHooks) OnRestoreStart(context.Context, string)                                {}
func (NoopRestoreHooks) OnRestoreComplete(context.Context, string, bool, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	discoveryHooks DiscoveryHooks = NoopDiscoveryHooks{}
	restoreHooks   RestoreHooks   = NoopRestoreHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	hooksMu        sync.RWMutex
)

// SetDiscoveryHooks registers custom discovery hooks.
// Call once at application startup before any discovery runs.
func SetDiscoveryHooks(h DiscoveryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		discoveryHooks = h
	}
}

// SetRestoreHooks registers custom restoration hooks.
// Call once at application startup before any restoration runs.
func SetRestoreHooks(h RestoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		restoreHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// Call once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Discovery returns the registered discovery hooks.
func Discovery() DiscoveryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return discoveryHooks
}

// Restore returns the registered restoration hooks.
func Restore() RestoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return restoreHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	discoveryHooks = NoopDiscoveryHooks{}
	restoreHooks = NoopRestoreHooks{}
	cacheHooks = NoopCacheHooks{}
}
