package engine

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/view"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the host configuration.
//
// Parameters:
//   - cfg: the configuration, usually from config.Load
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithVariant overrides the build's feature selection.
//
// Parameters:
//   - v: the variant
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithVariant(v view.Variant) EngineBuilderOption {
	return func(e *engine) {
		e.variant = v
	}
}

// WithBackend sets the graphics backend. Defaults to wgpu.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackend(b backend.Backend) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
	}
}

// WithFatalHandler replaces the bridges' default fatal handler.
//
// Parameters:
//   - h: the handler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFatalHandler(h view.FatalHandler) EngineBuilderOption {
	return func(e *engine) {
		e.fatal = h
	}
}

// WithWorkerPool sets the pool frame rate reports are delivered on when profiling is enabled.
// Without one a single-worker pool is created.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorkerPool(pool worker.DynamicWorkerPool) EngineBuilderOption {
	return func(e *engine) {
		e.pool = pool
	}
}
