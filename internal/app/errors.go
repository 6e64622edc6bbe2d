// Package app provides the main application structure and coordination.
package app

import "errors"

// Application errors.
var (
	// ErrQuit signals that the application should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrAlreadyRunning indicates the application is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNotRunning indicates the application is not running.
	ErrNotRunning = errors.New("application not running")

	// ErrNoActiveDebugger indicates an operation needed a debugger
	// session wired in via SetDebugger before it could run.
	ErrNoActiveDebugger = errors.New("no active debugger session")

	// ErrInitialization indicates an initialization failure.
	ErrInitialization = errors.New("initialization failed")

	// ErrShutdownTimeout indicates shutdown timed out.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)
