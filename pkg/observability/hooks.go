// Package observability provides hooks for metrics, tracing, and logging.
//
// The package uses a simple hooks pattern: hook interfaces for each event
// category, no-op default implementations, and a registry that main can
// populate at startup. Libraries emit events without taking a dependency on
// any particular observability backend, and registration by main avoids
// import cycles.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPersistenceHooks(&myHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Persistence().OnFlattenStart(ctx, len(roots))
//	// ... flatten ...
//	observability.Persistence().OnFlattenComplete(ctx, count, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// PersistenceHooks receives events from the persistence pipeline. The
// flatten and save events bracket the two phases whose timings matter for
// performance diagnosis of large graphs.
type PersistenceHooks interface {
	// Connection events. OnConnectAttempt fires once per dial with the
	// running attempt number; OnConnectComplete carries the configured
	// retry budget, not the attempts used (count the attempt events for
	// that).
	OnConnectAttempt(ctx context.Context, uri string, attempt int)
	OnConnectComplete(ctx context.Context, uri string, maxAttempts int, duration time.Duration, err error)

	// OnPurge records the destructive pre-write purge.
	OnPurge(ctx context.Context, duration time.Duration, err error)

	// Flatten events
	OnFlattenStart(ctx context.Context, rootCount int)
	OnFlattenComplete(ctx context.Context, nodeCount int, duration time.Duration)

	// Save events
	OnSaveStart(ctx context.Context, nodeCount, depth int)
	OnSaveComplete(ctx context.Context, nodeCount int, duration time.Duration, err error)
}

// ScanHooks receives events from the source scanner.
type ScanHooks interface {
	OnFileStart(ctx context.Context, path string)
	OnFileComplete(ctx context.Context, path string, nodeCount int, duration time.Duration, err error)
}

// CacheHooks receives events from scan-cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopPersistenceHooks is a no-op implementation of PersistenceHooks.
type NoopPersistenceHooks struct{}

func (NoopPersistenceHooks) OnConnectAttempt(context.Context, string, int) {}
func (NoopPersistenceHooks) OnConnectComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPersistenceHooks) OnPurge(context.Context, time.Duration, error)            {}
func (NoopPersistenceHooks) OnFlattenStart(context.Context, int)                      {}
func (NoopPersistenceHooks) OnFlattenComplete(context.Context, int, time.Duration)    {}
func (NoopPersistenceHooks) OnSaveStart(context.Context, int, int)                    {}
func (NoopPersistenceHooks) OnSaveComplete(context.Context, int, time.Duration, error) {
}

// NoopScanHooks is a no-op implementation of ScanHooks.
type NoopScanHooks struct{}

func (NoopScanHooks) OnFileStart(context.Context, string)                                {}
func (NoopScanHooks) OnFileComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	persistenceHooks PersistenceHooks = NoopPersistenceHooks{}
	scanHooks        ScanHooks        = NoopScanHooks{}
	cacheHooks       CacheHooks       = NoopCacheHooks{}
	hooksMu          sync.RWMutex
)

// SetPersistenceHooks registers custom persistence hooks.
// This should be called once at application startup before any pipeline runs.
func SetPersistenceHooks(h PersistenceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		persistenceHooks = h
	}
}

// SetScanHooks registers custom scanner hooks.
// This should be called once at application startup before any scanning.
func SetScanHooks(h ScanHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		scanHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Persistence returns the registered persistence hooks.
func Persistence() PersistenceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return persistenceHooks
}

// Scan returns the registered scanner hooks.
func Scan() ScanHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return scanHooks
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
	persistenceHooks = NoopPersistenceHooks{}
	scanHooks = NoopScanHooks{}
	cacheHooks = NoopCacheHooks{}
}
