// Package observability provides hooks for progress reporting, metrics and
// tracing.
//
// Library packages emit events through the registered hooks; nothing here
// depends on a particular backend. The CLI registers hooks that drive its
// spinner; other embedders can forward the same events to a metrics system.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnStageStart(ctx, observability.StageDecompile)
//	// ... run the stage ...
//	observability.Pipeline().OnStageComplete(ctx, observability.StageDecompile, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stage names a pipeline stage in hook events.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageCache     Stage = "cache"
	StagePublish   Stage = "publish"
	StageFilter    Stage = "filter"
	StageDecompile Stage = "decompile"
	StagePackage   Stage = "package"
	StageCleanup   Stage = "cleanup"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the materialization pipeline.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage Stage)
	OnStageComplete(ctx context.Context, stage Stage, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the version cache.
type CacheHooks interface {
	// OnCacheRead records a read; hit is false for a cold cache.
	OnCacheRead(ctx context.Context, hit bool, err error)

	// OnCacheWrite records a write of version.
	OnCacheWrite(ctx context.Context, version string, err error)
}

// =============================================================================
// Worker Hooks
// =============================================================================

// WorkerHooks receives events from the decompile worker.
type WorkerHooks interface {
	OnDecompileStart(ctx context.Context, input string, classes int)
	OnDecompileComplete(ctx context.Context, issues int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, Stage)                            {}
func (NoopPipelineHooks) OnStageComplete(context.Context, Stage, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheRead(context.Context, bool, error)    {}
func (NoopCacheHooks) OnCacheWrite(context.Context, string, error) {}

// NoopWorkerHooks is a no-op implementation of WorkerHooks.
type NoopWorkerHooks struct{}

func (NoopWorkerHooks) OnDecompileStart(context.Context, string, int)                  {}
func (NoopWorkerHooks) OnDecompileComplete(context.Context, int, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	workerHooks   WorkerHooks   = NoopWorkerHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline runs.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetWorkerHooks registers custom worker hooks.
func SetWorkerHooks(h WorkerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		workerHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Worker returns the registered worker hooks.
func Worker() WorkerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return workerHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	workerHooks = NoopWorkerHooks{}
}
