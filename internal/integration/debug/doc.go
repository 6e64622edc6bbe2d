// Package debug implements an interactive command-line debugger core
// that drives back-end debug adapters over the Debug Adapter Protocol
// (DAP). It owns the session state machine, thread and breakpoint
// collections, source-file cache, call-stack navigation, and variable
// inspection; it consumes the adapter's event stream and exposes
// execution control (continue, step, pause) to a command dispatcher.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                          Debugger                                │
//	│  - session state machine (initializing/configuring/running/     │
//	│    stopped/terminated)                                          │
//	│  - breakpoint reconciliation against the adapter                │
//	│  - thread collection, stack navigation, variable inspection     │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      dap.Client                                  │
//	│  - request/response/event framing over stdio or a socket        │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                    adapters.Adapter                              │
//	│  - launch/attach argument construction per backend               │
//	│  - Delve, debugpy, node-debug, or any other DAP adapter          │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Session states
//
//   - initializing: the initialize request is in flight.
//   - configuring: initialized received, not attach mode; breakpoints
//     may be added, run transitions to running.
//   - running: program executing, REPL input stopped.
//   - stopped: program paused at a stop event, REPL input active.
//   - terminated: program gone; launch mode auto-relaunches.
//
// # Breakpoints
//
// A Breakpoint is either a source breakpoint (path + line) or a
// function breakpoint (name). Each may be enabled, disabled, or
// "once" (auto-disables the first time it is hit, if the adapter
// advertises breakpoint-id-on-stop). BreakpointCollection batches
// updates per source path, since the underlying protocol replaces the
// whole set for a path on every call.
//
// # Variables and evaluation
//
// When stopped, GetVariablesByScope and GetVariablesByReference walk
// the scope/variable tree the adapter reports, and EvaluateExpression
// runs an expression in REPL context against the currently selected
// stack frame.
//
// # Usage
//
//	d := debug.NewDebugger(console, debug.NewCommandRegistry())
//	if err := d.Launch(ctx, adapter); err != nil {
//		log.Fatal(err)
//	}
//	idx, err := d.SetSourceBreakpoint(ctx, "main.go", 42, false)
//	if err := d.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Subpackages
//
//   - adapters: per-backend Adapter implementations (Delve, Node.js, Python)
//   - dap: Debug Adapter Protocol wire types and client
package debug
