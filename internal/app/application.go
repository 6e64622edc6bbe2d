// Package app provides the main application structure and coordination.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keystorm/internal/integration/debug"
)

// Options configures a new Application.
type Options struct {
	// Logger is the application logger. Defaults to NewLogger(DefaultLoggerConfig()).
	Logger *Logger

	// Metrics is the application metrics tracker. Defaults to NewMetrics().
	Metrics *Metrics
}

// Application is the top-level process coordinator: it owns the
// application-wide logger and metrics, and wires them to the debug
// session once one is created. cmd/nuclide's main is a thin driver
// around an Application plus the console/command layer debug.Debugger
// itself does not know about.
type Application struct {
	mu sync.RWMutex

	logger   *Logger
	metrics  *Metrics
	debugger *debug.Debugger

	running atomic.Bool
	done    chan struct{}

	shutdownOnce sync.Once
}

// New creates an Application with the given options, defaulting any
// unset Logger/Metrics to fresh instances rather than the process-wide
// singletons, so multiple Applications in the same process (as in
// tests) don't share state.
func New(opts Options) *Application {
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(DefaultLoggerConfig())
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Application{
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// SetDebugger wires a debug session into the application, routing the
// engine's internal diagnostics (spec.md §7: event-handler failures
// that must never propagate into the event loop) through the
// application logger under the "engine" component.
func (app *Application) SetDebugger(d *debug.Debugger) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.debugger = d
	if d != nil {
		engineLog := app.Logger().WithComponent("engine")
		d.SetLogger(func(format string, args ...any) {
			engineLog.Debug(format, args...)
		})
	}
}

// Debugger returns the wired debug session, or nil if none has been set.
func (app *Application) Debugger() *debug.Debugger {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.debugger
}

// IsRunning returns true if the application is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Run marks the application as running and blocks until ctx is
// canceled or Shutdown is called. It returns ErrAlreadyRunning if
// called while already running.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	select {
	case <-ctx.Done():
	case <-app.done:
	}

	return nil
}

// Shutdown signals Run to return and closes the wired debug session, if
// any, within timeout. Safe to call multiple times, including before
// Run. Returns ErrShutdownTimeout if the debugger does not close in time.
func (app *Application) Shutdown(timeout time.Duration) error {
	var err error
	app.shutdownOnce.Do(func() {
		close(app.done)

		app.mu.RLock()
		d := app.debugger
		app.mu.RUnlock()
		if d == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if closeErr := d.CloseSession(ctx); closeErr != nil {
			if errors.Is(closeErr, context.DeadlineExceeded) {
				err = ErrShutdownTimeout
				return
			}
			err = closeErr
		}
	})
	return err
}
