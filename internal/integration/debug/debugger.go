package debug

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/dshills/keystorm/internal/integration/debug/adapters"
	"github.com/dshills/keystorm/internal/integration/debug/dap"
)

// SessionState is the single engine-level state variable. Only the
// engine mutates it; every user-visible operation validates against
// it before doing anything else.
type SessionState int

const (
	// StateInitializing: session created; initialize request in
	// flight or just completed; waiting for the initialized event.
	StateInitializing SessionState = iota
	// StateConfiguring: initialized received, not attach-mode.
	StateConfiguring
	// StateRunning: program executing; REPL input is stopped.
	StateRunning
	// StateStopped: program paused at a stop event; REPL input active.
	StateStopped
	// StateTerminated: program gone.
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ConsoleIO is the terminal/REPL I/O surface. It is an external
// collaborator: the engine only calls it, never implements it.
type ConsoleIO interface {
	Output(text string)
	OutputLine(text string)
	StartInput()
	StopInput()
	Close()
}

// Command is the thin protocol through which the (external) dispatcher
// invokes semantic operations on the engine. Execute receives the raw
// argument words already split by the dispatcher; Name is used for
// help text and registry lookup. A Command that also implements
// StoppedHook has OnStopped invoked by the engine on every first-stop
// transition (spec.md §4.F.7).
type Command interface {
	Name() string
	Execute(ctx context.Context, d *Debugger, args []string) error
}

// StoppedHook is the optional callback a Command may additionally
// register to run whenever the engine transitions into stopped.
type StoppedHook interface {
	OnStopped(d *Debugger)
}

// CommandRegistry holds the set of commands a CommandDispatcher (out
// of scope) may invoke, and the subset of those that also observe
// stop transitions.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]Command
	hooks    []StoppedHook
}

// NewCommandRegistry returns an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]Command)}
}

// Register adds a command, and its StoppedHook if it implements one.
func (r *CommandRegistry) Register(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[c.Name()] = c
	if hook, ok := c.(StoppedHook); ok {
		r.hooks = append(r.hooks, hook)
	}
}

// Lookup returns the command registered under name.
func (r *CommandRegistry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

func (r *CommandRegistry) fireStopped(d *Debugger) {
	r.mu.RLock()
	hooks := append([]StoppedHook(nil), r.hooks...)
	r.mu.RUnlock()
	for _, h := range hooks {
		h.OnStopped(d)
	}
}

// SessionConfig is the fixed set of identifying fields sent with every
// initialize request, independent of which adapter/program is launched.
type SessionConfig struct {
	AdapterID       string
	ClientID        string
	ClientName      string
	LinesStartAt1   bool
	ColumnsStartAt1 bool
	PathFormat      string
}

// DefaultSessionConfig returns 1-based line/column numbering, which
// every adapter this module ships an Adapter for expects.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ClientID:        "nuclide",
		ClientName:      "Nuclide Debugger",
		LinesStartAt1:   true,
		ColumnsStartAt1: true,
		PathFormat:      "path",
	}
}

// Debugger is the session state machine: it drives the adapter via a
// DAP client, consumes the adapter's event streams, reconciles
// breakpoints, and gates REPL input according to state.
//
// Debugger runs on a single-threaded cooperative scheduler: the
// caller must never invoke two of its methods concurrently, and must
// never call it from inside one of its own event handlers except via
// the OnStopped hook. Suspension points are exactly the awaits on
// outstanding DAP requests.
type Debugger struct {
	stateMu sync.RWMutex
	state   SessionState

	client       *dap.Client
	capabilities *dap.Capabilities
	cmd          *exec.Cmd

	threadsMu sync.RWMutex
	threads   *ThreadCollection

	breakpoints *BreakpointCollection
	sourceCache *SourceFileCache

	stack     *StackNavigator
	variables *VariableInspector

	console  ConsoleIO
	commands *CommandRegistry
	config   SessionConfig

	adapter adapters.Adapter
	mode    string // "launch" or "attach", mirrors adapter.Request

	muteOutputCategories map[string]bool
	readyForEvaluations  bool
	disconnecting        bool

	onLog func(format string, args ...any)

	// dial constructs the transport and client relaunch uses; it
	// defaults to dialAdapter and is overridden in tests to exercise
	// relaunch without spawning a real adapter subprocess.
	dial func(adapters.Adapter) (*dap.Client, *exec.Cmd, error)
}

// NewDebugger wires an already-connected console and command registry
// to a fresh, unlaunched engine. Call Launch to bring up the first
// adapter session.
func NewDebugger(console ConsoleIO, commands *CommandRegistry) *Debugger {
	d := &Debugger{
		state:                StateTerminated,
		threads:              NewThreadCollection(),
		sourceCache:          NewSourceFileCache(nil),
		console:              console,
		commands:             commands,
		config:               DefaultSessionConfig(),
		muteOutputCategories: map[string]bool{"telemetry": true},
		onLog:                func(string, ...any) {},
	}
	d.stack = NewStackNavigator(d)
	d.variables = NewVariableInspector(d)
	d.stack.SetVariableInspector(d.variables)
	d.dial = d.dialAdapter
	return d
}

// SetLogger installs a sink for internal diagnostics (event-handler
// failures per spec.md §7, which must never propagate into the event
// loop). The zero value is a no-op sink.
func (d *Debugger) SetLogger(logf func(format string, args ...any)) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	d.onLog = logf
}

// State returns the current engine state.
func (d *Debugger) State() SessionState {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state
}

func (d *Debugger) setState(s SessionState) {
	d.stateMu.Lock()
	d.state = s
	d.stateMu.Unlock()
}

// Capabilities returns the adapter capabilities recorded from the
// initialize response, or nil before the first one completes.
func (d *Debugger) Capabilities() *dap.Capabilities {
	return d.capabilities
}

// SupportsCodeBlocks reports whether the current adapter accepts a
// multi-statement block to evaluateExpression.
func (d *Debugger) SupportsCodeBlocks() bool {
	return d.adapter != nil && d.adapter.SupportsCodeBlocks()
}

// SupportsStoppedAtBreakpoint reports whether a once breakpoint may be
// created, i.e. whether the adapter advertises breakpoint-id-on-stop.
func (d *Debugger) SupportsStoppedAtBreakpoint() bool {
	return d.breakpoints != nil && d.breakpoints.SupportsOnceState()
}

// Threads returns the thread collection for read access by commands.
func (d *Debugger) Threads() *ThreadCollection {
	d.threadsMu.RLock()
	defer d.threadsMu.RUnlock()
	return d.threads
}

// Stack returns the call-stack cache used to back stack-navigation commands.
func (d *Debugger) Stack() *StackNavigator { return d.stack }

// Variables returns the variable inspector used to back variable commands.
func (d *Debugger) Variables() *VariableInspector { return d.variables }

// Breakpoints returns the breakpoint collection.
func (d *Debugger) Breakpoints() *BreakpointCollection { return d.breakpoints }

// Adapter returns the adapter descriptor the session was launched with,
// or nil before the first Launch.
func (d *Debugger) Adapter() adapters.Adapter { return d.adapter }

// AdapterCmd returns the OS process currently backing the adapter
// session, or nil if the adapter connects over a socket or no session
// has been launched. Callers that want the subprocess tracked by
// external supervision (signal forwarding, forced shutdown) hand this
// to a process.Supervisor via Adopt rather than managing it twice.
func (d *Debugger) AdapterCmd() *exec.Cmd { return d.cmd }

// requireState fails unless the engine is in one of the given states.
func (d *Debugger) requireState(kind ErrorKind, msg string, allowed ...SessionState) error {
	current := d.State()
	for _, s := range allowed {
		if current == s {
			return nil
		}
	}
	return newErr(kind, msg)
}

// ---- Launch / relaunch (spec.md §4.F.2) ----

// Launch starts a brand new debug session against adapter: it
// allocates a fresh breakpoint collection (this is the only operation
// that does — relaunch always preserves the existing one) and calls
// relaunch.
func (d *Debugger) Launch(ctx context.Context, adapter adapters.Adapter) error {
	if err := adapter.Validate(); err != nil {
		return wrapErr(KindInternal, "adapter configuration", err)
	}
	d.adapter = adapter
	d.mode = adapter.Request()
	d.breakpoints = NewBreakpointCollection()
	return d.relaunch(ctx)
}

// relaunch tears down the current session (if any), spawns a fresh
// adapter subprocess, performs the initialize/launch-or-attach
// handshake, and lets the initialized-event handler drive the rest of
// the state machine. Breakpoints are not touched here; they are
// re-established by resetAllBreakpoints once the state machine reaches
// running (see onInitializedEvent and onStoppedEvent's once handling).
func (d *Debugger) relaunch(ctx context.Context) error {
	if d.adapter == nil {
		return newErr(KindInternal, "relaunch called before launch")
	}

	d.teardown()
	d.setState(StateInitializing)
	d.threads.Clear()
	d.sourceCache.Flush()

	client, cmd, err := d.dial(d.adapter)
	if err != nil {
		return wrapErr(KindAdapterRequestFailed, "start adapter", err)
	}
	d.client = client
	d.cmd = cmd
	d.wireEventHandlers()

	caps, err := d.client.Initialize(ctx, dap.InitializeRequestArguments{
		ClientID:        d.config.ClientID,
		ClientName:      d.config.ClientName,
		AdapterID:       d.config.AdapterID,
		LinesStartAt1:   d.config.LinesStartAt1,
		ColumnsStartAt1: d.config.ColumnsStartAt1,
		PathFormat:      d.config.PathFormat,
	})
	if err != nil {
		return wrapErr(KindAdapterRequestFailed, "initialize", err)
	}
	d.capabilities = caps
	d.breakpoints.EnableOnceState(caps.SupportsBreakpointIdOnStop)

	if d.mode == "attach" {
		rawArgs, err := d.adapter.GetAttachArgs()
		if err != nil {
			return wrapErr(KindInternal, "build attach arguments", err)
		}
		if err := d.client.Attach(ctx, d.adapter.TransformAttachArguments(rawArgs)); err != nil {
			return wrapErr(KindAdapterRequestFailed, "attach", err)
		}
	} else {
		rawArgs, err := d.adapter.GetLaunchArgs()
		if err != nil {
			return wrapErr(KindInternal, "build launch arguments", err)
		}
		if err := d.client.Launch(ctx, d.adapter.TransformLaunchArguments(rawArgs)); err != nil {
			return wrapErr(KindAdapterRequestFailed, "launch", err)
		}
	}

	// The adapter's "initialized" event, delivered asynchronously by
	// the client's receive loop, drives the rest of the transition
	// (configuring/attach double-gate) from onInitializedEvent.
	return nil
}

func (d *Debugger) dialAdapter(adapter adapters.Adapter) (*dap.Client, *exec.Cmd, error) {
	if adapter.GetConnectionType() == "socket" {
		transport, err := dap.NewSocketTransport(adapter.GetAddress())
		if err != nil {
			return nil, nil, err
		}
		return dap.NewClient(transport), nil, nil
	}

	cmd, err := adapter.GetCommand()
	if err != nil {
		return nil, nil, err
	}
	transport, err := dap.NewStdioTransport(cmd)
	if err != nil {
		return nil, nil, err
	}
	return dap.NewClient(transport), cmd, nil
}

// teardown drops the current transport/client without touching
// breakpoints, used both by relaunch and CloseSession.
func (d *Debugger) teardown() {
	if d.client != nil {
		_ = d.client.Close()
		d.client = nil
	}
	d.cmd = nil
}

// CloseSession sets the disconnecting flag, issues disconnect, and
// drops references. The adapter-exited event this produces is
// recognized by the flag and ignored (spec.md §5).
func (d *Debugger) CloseSession(ctx context.Context) error {
	d.disconnecting = true
	defer func() { d.disconnecting = false }()

	if d.client != nil {
		_ = d.client.Disconnect(ctx, dap.DisconnectArguments{TerminateDebuggee: true})
	}
	d.teardown()
	d.threads.Clear()
	d.sourceCache.Flush()
	d.setState(StateTerminated)
	return nil
}

// resetAllBreakpoints re-sends every path and every function
// breakpoint to the adapter, used after relaunch and after disabling
// a once breakpoint on stop.
func (d *Debugger) resetAllBreakpoints(ctx context.Context) error {
	for _, path := range d.breakpoints.GetAllBreakpointPaths() {
		if err := d.breakpoints.reconcilePath(ctx, d, path); err != nil {
			return err
		}
	}
	if err := d.breakpoints.reconcileFunctions(ctx, d); err != nil {
		return err
	}
	d.breakpoints.ClearPending()
	return nil
}

// ---- Breakpoint management (DebuggerInterface, spec.md §6) ----

// SetSourceBreakpoint adds a breakpoint at path:line and reconciles it
// with the adapter immediately, unless the session is still
// configuring, in which case it is deferred to resetAllBreakpoints at
// the transition into running.
func (d *Debugger) SetSourceBreakpoint(ctx context.Context, path string, line int, once bool) (int, error) {
	idx := d.breakpoints.AddSourceBreakpoint(path, line, once)
	return idx, d.syncOrDefer(ctx, path, idx)
}

// SetFunctionBreakpoint adds a function breakpoint and reconciles it,
// subject to the same configuring-time deferral as source breakpoints.
func (d *Debugger) SetFunctionBreakpoint(ctx context.Context, name string, once bool) (int, error) {
	if d.capabilities == nil || !d.capabilities.SupportsFunctionBreakpoints {
		return 0, newErr(KindUnsupportedCapability, "adapter does not support function breakpoints")
	}
	idx := d.breakpoints.AddFunctionBreakpoint(name, once)
	if d.State() == StateConfiguring {
		d.breakpoints.MarkPending(idx)
		return idx, nil
	}
	return idx, d.breakpoints.reconcileFunctions(ctx, d)
}

func (d *Debugger) syncOrDefer(ctx context.Context, path string, idx int) error {
	if d.State() == StateConfiguring {
		d.breakpoints.MarkPending(idx)
		return nil
	}
	return d.breakpoints.reconcilePath(ctx, d, path)
}

// GetAllBreakpoints returns every breakpoint.
func (d *Debugger) GetAllBreakpoints() []*Breakpoint { return d.breakpoints.AllBreakpoints() }

// GetBreakpointByIndex returns a single breakpoint, failing with NotFound.
func (d *Debugger) GetBreakpointByIndex(idx int) (*Breakpoint, error) {
	return d.breakpoints.GetBreakpointByIndex(idx)
}

// SetBreakpointEnabled enables or disables a breakpoint and reconciles
// its path, rolling back to the prior state on adapter failure.
func (d *Debugger) SetBreakpointEnabled(ctx context.Context, idx int, enabled bool) error {
	bp, err := d.breakpoints.GetBreakpointByIndex(idx)
	if err != nil {
		return err
	}
	prior := bp.State
	target := BreakpointDisabled
	if enabled {
		target = BreakpointEnabled
	}
	if err := d.breakpoints.SetState(idx, target); err != nil {
		return err
	}
	if err := d.reconcileAfterChange(ctx, bp); err != nil {
		d.breakpoints.RestoreState(idx, prior)
		return err
	}
	return nil
}

// ToggleBreakpoint flips a breakpoint enabled<->disabled and
// reconciles it, rolling back on adapter failure (spec.md scenario 3).
func (d *Debugger) ToggleBreakpoint(ctx context.Context, idx int) error {
	bp, err := d.breakpoints.GetBreakpointByIndex(idx)
	if err != nil {
		return err
	}
	prior, err := d.breakpoints.ToggleState(idx)
	if err != nil {
		return err
	}
	if err := d.reconcileAfterChange(ctx, bp); err != nil {
		d.breakpoints.RestoreState(idx, prior)
		return err
	}
	return nil
}

// ToggleAllBreakpoints toggles every breakpoint in turn.
func (d *Debugger) ToggleAllBreakpoints(ctx context.Context) error {
	for _, bp := range d.breakpoints.AllBreakpoints() {
		if err := d.ToggleBreakpoint(ctx, bp.Index); err != nil {
			return err
		}
	}
	return nil
}

// SetAllBreakpointsEnabled sets every breakpoint to the same enabled state.
func (d *Debugger) SetAllBreakpointsEnabled(ctx context.Context, enabled bool) error {
	for _, bp := range d.breakpoints.AllBreakpoints() {
		if err := d.SetBreakpointEnabled(ctx, bp.Index, enabled); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBreakpoint removes a breakpoint and, if it was a source
// breakpoint, re-sends the remaining list for its path.
func (d *Debugger) DeleteBreakpoint(ctx context.Context, idx int) error {
	bp, err := d.breakpoints.GetBreakpointByIndex(idx)
	if err != nil {
		return err
	}
	if err := d.breakpoints.DeleteBreakpoint(idx); err != nil {
		return err
	}
	return d.reconcileAfterChange(ctx, bp)
}

// DeleteAllBreakpoints clears every breakpoint and its adapter state.
func (d *Debugger) DeleteAllBreakpoints(ctx context.Context) error {
	paths := d.breakpoints.GetAllBreakpointPaths()
	d.breakpoints.DeleteAllBreakpoints()
	if d.State() == StateConfiguring {
		return nil
	}
	for _, path := range paths {
		if err := d.breakpoints.reconcilePath(ctx, d, path); err != nil {
			return err
		}
	}
	return d.breakpoints.reconcileFunctions(ctx, d)
}

func (d *Debugger) reconcileAfterChange(ctx context.Context, bp *Breakpoint) error {
	if d.State() == StateConfiguring {
		d.breakpoints.MarkPending(bp.Index)
		return nil
	}
	if bp.IsFunction() {
		return d.breakpoints.reconcileFunctions(ctx, d)
	}
	return d.breakpoints.reconcilePath(ctx, d, bp.Path)
}

// ---- Execution control ----

// Run transitions out of configuring, issuing setExceptionBreakpoints,
// re-sending every breakpoint (which clears pending flags), and
// configurationDone.
func (d *Debugger) Run(ctx context.Context) error {
	if err := d.requireState(KindNotRunning, "run requires configuring state", StateConfiguring); err != nil {
		return err
	}
	if err := d.client.SetExceptionBreakpoints(ctx, dap.SetExceptionBreakpointsArguments{}); err != nil {
		return wrapErr(KindAdapterRequestFailed, "setExceptionBreakpoints", err)
	}
	if err := d.resetAllBreakpoints(ctx); err != nil {
		return err
	}
	if err := d.client.ConfigurationDone(ctx); err != nil {
		return wrapErr(KindAdapterRequestFailed, "configurationDone", err)
	}
	d.setState(StateRunning)
	d.console.StopInput()
	return nil
}

func (d *Debugger) setBreakpointsWithConditions(ctx context.Context, path string, bps []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
	return d.client.SetBreakpoints(ctx, dap.SetBreakpointsArguments{
		Source:      dap.Source{Path: path},
		Breakpoints: bps,
	})
}

func (d *Debugger) requireStopped() error {
	return d.requireState(KindNotStopped, "operation requires a stopped thread", StateStopped)
}

// Continue resumes the given thread.
func (d *Debugger) Continue(ctx context.Context, threadID int) error {
	if err := d.requireStopped(); err != nil {
		return err
	}
	d.console.StopInput()
	if _, err := d.client.Continue(ctx, dap.ContinueArguments{ThreadID: threadID}); err != nil {
		return wrapErr(KindAdapterRequestFailed, "continue", err)
	}
	return nil
}

// Next performs step-over on the given thread.
func (d *Debugger) Next(ctx context.Context, threadID int) error {
	if err := d.requireStopped(); err != nil {
		return err
	}
	d.console.StopInput()
	if err := d.client.Next(ctx, dap.NextArguments{ThreadID: threadID}); err != nil {
		return wrapErr(KindAdapterRequestFailed, "next", err)
	}
	return nil
}

// StepIn steps into the callee on the given thread.
func (d *Debugger) StepIn(ctx context.Context, threadID int) error {
	if err := d.requireStopped(); err != nil {
		return err
	}
	d.console.StopInput()
	if err := d.client.StepIn(ctx, dap.StepInArguments{ThreadID: threadID}); err != nil {
		return wrapErr(KindAdapterRequestFailed, "stepIn", err)
	}
	return nil
}

// StepOut steps out of the current function on the given thread.
func (d *Debugger) StepOut(ctx context.Context, threadID int) error {
	if err := d.requireStopped(); err != nil {
		return err
	}
	d.console.StopInput()
	if err := d.client.StepOut(ctx, dap.StepOutArguments{ThreadID: threadID}); err != nil {
		return wrapErr(KindAdapterRequestFailed, "stepOut", err)
	}
	return nil
}

// Pause requests a break-in on the given thread; permitted while running.
func (d *Debugger) Pause(ctx context.Context, threadID int) error {
	if err := d.requireState(KindNotRunning, "pause requires running state", StateRunning); err != nil {
		return err
	}
	if err := d.client.Pause(ctx, dap.PauseArguments{ThreadID: threadID}); err != nil {
		return wrapErr(KindAdapterRequestFailed, "pause", err)
	}
	return nil
}

// ---- Stack and variable inspection (spec.md §4.F.5) ----

// GetThreads fetches the live thread list and folds it into the
// thread collection.
func (d *Debugger) GetThreads(ctx context.Context) ([]dap.Thread, error) {
	threads, err := d.client.Threads(ctx)
	if err != nil {
		return nil, wrapErr(KindAdapterRequestFailed, "threads", err)
	}
	d.threads.UpdateThreads(dapThreadsToThreads(threads))
	return threads, nil
}

// GetStackTrace requires the thread to exist and be stopped.
func (d *Debugger) GetStackTrace(ctx context.Context, threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	t := d.threads.GetThreadById(threadID)
	if t == nil || !t.IsStopped() {
		return nil, 0, d.requireStopped()
	}
	resp, err := d.client.StackTrace(ctx, dap.StackTraceArguments{ThreadID: threadID, StartFrame: startFrame, Levels: levels})
	if err != nil {
		return nil, 0, wrapErr(KindAdapterRequestFailed, "stackTrace", err)
	}
	return resp.StackFrames, resp.TotalFrames, nil
}

// GetCurrentStackFrame returns the frame at the focus thread's
// selected stack-frame index.
func (d *Debugger) GetCurrentStackFrame(ctx context.Context) (*dap.StackFrame, error) {
	focus := d.threads.FocusThread()
	if focus == nil {
		return nil, newErr(KindNotStopped, "no focus thread")
	}
	frames, _, err := d.GetStackTrace(ctx, focus.ID(), 0, 0)
	if err != nil {
		return nil, err
	}
	idx := focus.SelectedStackFrame()
	if idx < 0 || idx >= len(frames) {
		return nil, newErr(KindNotFound, "selected stack frame out of range")
	}
	return &frames[idx], nil
}

// SetSelectedStackFrame validates idx against the observed depth
// before recording it on the thread.
func (d *Debugger) SetSelectedStackFrame(ctx context.Context, threadID, idx int) error {
	frames, _, err := d.GetStackTrace(ctx, threadID, 0, 0)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(frames) {
		return newErr(KindNotFound, "stack frame index out of range")
	}
	t := d.threads.GetThreadById(threadID)
	if t == nil {
		return newErr(KindNotFound, fmt.Sprintf("thread %d", threadID))
	}
	t.SetSelectedStackFrame(idx)
	return nil
}

// GetScopes is a thin passthrough used by VariableInspector.
func (d *Debugger) GetScopes(ctx context.Context, frameID int) ([]dap.Scope, error) {
	scopes, err := d.client.Scopes(ctx, dap.ScopesArguments{FrameID: frameID})
	if err != nil {
		return nil, wrapErr(KindAdapterRequestFailed, "scopes", err)
	}
	return scopes, nil
}

// GetVariables is a thin passthrough used by VariableInspector.
func (d *Debugger) GetVariables(ctx context.Context, variablesRef int) ([]dap.Variable, error) {
	vars, err := d.client.Variables(ctx, dap.VariablesArguments{VariablesReference: variablesRef})
	if err != nil {
		return nil, wrapErr(KindAdapterRequestFailed, "variables", err)
	}
	return vars, nil
}

// SetVariable is a thin passthrough used by VariableInspector.
func (d *Debugger) SetVariable(ctx context.Context, variablesRef int, name, value string) (string, error) {
	resp, err := d.client.SetVariable(ctx, dap.SetVariableArguments{
		VariablesReference: variablesRef,
		Name:               name,
		Value:              value,
	})
	if err != nil {
		return "", wrapErr(KindAdapterRequestFailed, "setVariable", err)
	}
	return resp.Value, nil
}

// Evaluate is a thin passthrough used by VariableInspector.
func (d *Debugger) Evaluate(ctx context.Context, expression string, frameID int, evalContext string) (*dap.EvaluateResponseBody, error) {
	resp, err := d.client.Evaluate(ctx, dap.EvaluateArguments{
		Expression: expression,
		FrameID:    frameID,
		Context:    evalContext,
	})
	if err != nil {
		return nil, wrapErr(KindAdapterRequestFailed, "evaluate", err)
	}
	return resp, nil
}

// ScopeVariables pairs a scope with its fetched variables. Variables
// is nil for expensive scopes, which are listed but never queried.
type ScopeVariables struct {
	Scope     *VariableScope
	Variables []*Variable
}

// GetVariablesByScope requests scopes for the currently selected
// frame. If name is non-empty only the matching scope is queried;
// otherwise every non-expensive scope is queried concurrently and
// expensive scopes are listed with Variables left nil. Scope order is
// the order reported by the adapter.
func (d *Debugger) GetVariablesByScope(ctx context.Context, name string) ([]*ScopeVariables, error) {
	frame, err := d.GetCurrentStackFrame(ctx)
	if err != nil {
		return nil, err
	}
	scopes, err := d.variables.GetScopes(ctx, frame.ID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		var filtered []*VariableScope
		for _, s := range scopes {
			if s.Name == name {
				filtered = append(filtered, s)
			}
		}
		scopes = filtered
	}

	result := make([]*ScopeVariables, len(scopes))
	var wg sync.WaitGroup
	for i, s := range scopes {
		result[i] = &ScopeVariables{Scope: s}
		if s.Expensive {
			continue
		}
		wg.Add(1)
		go func(i int, ref int) {
			defer wg.Done()
			vars, err := d.variables.GetVariables(ctx, ref)
			if err == nil {
				result[i].Variables = vars
			}
		}(i, s.VariablesReference)
	}
	wg.Wait()

	return result, nil
}

// GetVariablesByReference is a flat passthrough to the adapter.
func (d *Debugger) GetVariablesByReference(ctx context.Context, ref int) ([]*Variable, error) {
	return d.variables.GetVariables(ctx, ref)
}

// ---- Evaluation (spec.md §4.F.6) ----

// EvaluateExpression transforms text through the adapter's expression
// transform and evaluates it in the "repl" context, attaching the
// currently selected frame if the session is stopped.
func (d *Debugger) EvaluateExpression(ctx context.Context, text string, isBlockOfCode bool) (*Variable, error) {
	if isBlockOfCode && !d.SupportsCodeBlocks() {
		return nil, newErr(KindUnsupportedCapability, "adapter does not support code-block evaluation")
	}
	if d.adapter != nil {
		text = d.adapter.TransformExpression(text)
	}
	frameID := 0
	if d.State() == StateStopped {
		if frame, err := d.GetCurrentStackFrame(ctx); err == nil {
			frameID = frame.ID
		}
	}
	return d.variables.EvaluateForRepl(ctx, text, frameID)
}

// ---- Event handlers (spec.md §4.F.7) ----

func (d *Debugger) wireEventHandlers() {
	d.client.OnInitialized(d.onInitializedEvent)
	d.client.OnStopped(d.onStoppedEvent)
	d.client.OnContinued(d.onContinuedEvent)
	d.client.OnExited(d.onExitedEvent)
	d.client.OnTerminated(d.onTerminatedEvent)
	d.client.OnThread(d.onThreadEvent)
	d.client.OnOutput(d.onOutputEvent)
	d.client.OnBreakpoint(d.onBreakpointEvent)
	d.client.OnAnyEvent(d.onAnyEvent)
}

func (d *Debugger) onInitializedEvent() {
	ctx := context.Background()

	if d.mode == "attach" {
		if err := d.client.ConfigurationDone(ctx); err != nil {
			d.onLog("configurationDone after attach: %v", err)
			return
		}
		d.setState(StateRunning)
		if err := d.resetAllBreakpoints(ctx); err != nil {
			d.onLog("reset breakpoints after attach: %v", err)
		}

		threadID, ok := d.chooseAsyncStopThread(ctx)
		if !ok {
			return
		}
		if err := d.client.Pause(ctx, dap.PauseArguments{ThreadID: threadID}); err != nil {
			d.onLog("pause after attach: %v", err)
		}
		return
	}

	d.setState(StateConfiguring)
	if d.readyForEvaluations {
		d.console.StartInput()
	}
}

// chooseAsyncStopThread picks, in order: the adapter-declared
// asyncStopThread hint, else the first thread in the thread list, else
// reports false (no pause is issued, control returns to the REPL).
func (d *Debugger) chooseAsyncStopThread(ctx context.Context) (int, bool) {
	if d.adapter != nil {
		if id, ok := d.adapter.AsyncStopThread(); ok {
			return id, true
		}
	}
	threads, err := d.client.Threads(ctx)
	if err != nil || len(threads) == 0 {
		return 0, false
	}
	d.threads.UpdateThreads(dapThreadsToThreads(threads))
	return threads[0].ID, true
}

func (d *Debugger) onStoppedEvent(body dap.StoppedEventBody) {
	firstStop := d.threads.AllThreadsRunning()

	if body.AllThreadsStopped {
		d.threads.MarkAllThreadsStopped()
	} else if body.ThreadID != 0 {
		d.threads.MarkThreadStopped(body.ThreadID)
	}

	for _, bpID := range body.HitBreakpointIds {
		bp, err := d.breakpoints.GetBreakpointById(bpID)
		if err != nil {
			continue
		}
		if bp.State == BreakpointOnce {
			if err := d.breakpoints.SetState(bp.Index, BreakpointDisabled); err != nil {
				d.onLog("disable once breakpoint %d: %v", bp.Index, err)
				continue
			}
			if err := d.resetAllBreakpoints(context.Background()); err != nil {
				d.onLog("reset breakpoints after once-hit: %v", err)
			}
		}
	}

	if body.ThreadID != 0 {
		d.threads.SetFocusThread(body.ThreadID)
	} else if t := d.threads.FirstStoppedThread(); t != nil {
		d.threads.SetFocusThread(t.ID())
	}

	d.setState(StateStopped)
	d.console.StartInput()

	if !firstStop {
		return
	}

	d.emitStopBanner(body)
	if d.commands != nil {
		d.commands.fireStopped(d)
	}
}

func (d *Debugger) emitStopBanner(body dap.StoppedEventBody) {
	frame, err := d.GetCurrentStackFrame(context.Background())
	if err != nil || frame == nil || frame.Source == nil {
		d.console.OutputLine(fmt.Sprintf("Stopped (%s)", body.Reason))
		return
	}
	lines := d.sourceCache.GetByPath(frame.Source.Path)
	text := ""
	if frame.Line >= 1 && frame.Line <= len(lines) {
		text = lines[frame.Line-1]
	}
	d.console.OutputLine(fmt.Sprintf("Stopped at %s:%d: %s", frame.Source.Path, frame.Line, text))
}

func (d *Debugger) onContinuedEvent(body dap.ContinuedEventBody) {
	if body.AllThreadsContinued {
		d.threads.MarkAllThreadsRunning()
	} else if body.ThreadID != 0 {
		d.threads.MarkThreadRunning(body.ThreadID)
	}
	if d.threads.AllThreadsRunning() {
		d.setState(StateRunning)
		d.console.StopInput()
	}
}

func (d *Debugger) onExitedEvent(dap.ExitedEventBody) {
	d.onSessionEnded()
}

func (d *Debugger) onTerminatedEvent(dap.TerminatedEventBody) {
	d.onSessionEnded()
}

// onSessionEnded implements the shared exited/terminated/adapter-exited
// handling of spec.md §4.F.7: transition to terminated; in launch mode
// print the exit line, start the REPL, and auto-relaunch; in attach
// mode the host is expected to observe StateTerminated and exit.
// Adapter-exited while disconnecting is the teardown we ourselves
// initiated, so it is a no-op.
func (d *Debugger) onSessionEnded() {
	if d.disconnecting {
		return
	}
	d.setState(StateTerminated)
	d.threads.Clear()

	if d.mode != "attach" {
		d.console.OutputLine("Program exited.")
		d.console.StartInput()
		go func() {
			if err := d.relaunch(context.Background()); err != nil {
				d.onLog("auto-relaunch: %v", err)
			}
		}()
	}
}

func (d *Debugger) onThreadEvent(body dap.ThreadEventBody) {
	ctx := context.Background()
	switch body.Reason {
	case "started":
		d.threads.AddThread(NewThread(body.ThreadID, ""))
		if threads, err := d.client.Threads(ctx); err == nil {
			d.threads.UpdateThreads(dapThreadsToThreads(threads))
		}
	case "exited":
		d.threads.RemoveThread(body.ThreadID)
	}
}

func (d *Debugger) onOutputEvent(body dap.OutputEventBody) {
	if d.muteOutputCategories[body.Category] {
		return
	}
	d.console.OutputLine(body.Output)
}

func (d *Debugger) onBreakpointEvent(body dap.BreakpointEventBody) {
	if body.Reason != "new" && body.Reason != "changed" {
		return
	}
	bp, err := d.breakpoints.GetBreakpointById(body.Breakpoint.ID)
	if err != nil {
		return
	}
	if err := d.breakpoints.SetBreakpointVerified(bp.Index, body.Breakpoint.Verified); err != nil {
		d.onLog("update breakpoint %d verification: %v", bp.Index, err)
	}
}

func (d *Debugger) onAnyEvent(evt dap.Event) {
	if evt.Event != "readyForEvaluations" {
		return
	}
	d.readyForEvaluations = true
	if d.State() == StateConfiguring {
		d.console.StartInput()
	}
}

func dapThreadsToThreads(threads []dap.Thread) []Thread {
	result := make([]Thread, len(threads))
	for i, t := range threads {
		result[i] = Thread{id: t.ID, name: t.Name}
	}
	return result
}
