// Package integration provides the adapter-process supervision and
// event-publishing layer that sits around the debug engine.
//
// debug.Debugger owns the DAP session's state machine and spawns its
// own adapter subprocess as part of Launch/relaunch, but does not
// itself guarantee that subprocess is signaled and reaped on shutdown.
// Manager closes that gap: cmd/nuclide adopts the running adapter
// process (via Debugger.AdapterCmd) into a process.Supervisor once a
// session launches, so SIGTERM/SIGKILL shutdown sequencing and process
// tracking happen through one place regardless of how many sessions a
// process runs over its lifetime.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Integration Manager                         │
//	│  - adapter-subprocess lifecycle (via process.Supervisor)         │
//	│  - event publishing (via EventBus)                                │
//	│  - health reporting                                               │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	              ┌─────────────────────────────────┐
//	              │         Process Supervisor        │
//	              │  - adopt/track the adapter process │
//	              │  - signal forwarding               │
//	              │  - graceful shutdown with timeout  │
//	              └─────────────────────────────────┘
//
// # Process Supervisor
//
// The process supervisor (process subpackage) manages the adapter
// subprocess once Debugger.Launch has started it. It provides:
//
//   - Lifecycle tracking with proper cleanup
//   - Signal forwarding to the adapter process
//   - Graceful shutdown with configurable timeout
//   - Resource tracking and limits
//
// # Thread Safety
//
// The Manager and its components are safe for concurrent use. All
// public methods use appropriate synchronization.
//
// # Event Publishing
//
// Integration events are published through the EventPublisher
// interface, following the same dot-notation the rest of the debug
// engine logs under:
//
//   - integration.started, integration.stopping, integration.stopped
//   - integration.workspace.changed
//
// # Usage
//
// Create a Manager once per nuclide process:
//
//	mgr, err := integration.NewManagerWithConfig(integration.ManagerConfig{
//	    EventBus: integration.NewEventBus(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	if err := debugger.Launch(ctx, adapter); err == nil {
//	    mgr.Supervisor().Adopt("dap-adapter", debugger.AdapterCmd())
//	}
package integration
