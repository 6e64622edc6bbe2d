package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/keystorm/internal/app"
	"github.com/dshills/keystorm/internal/integration/debug"
)

// focusThread resolves the thread a command should act on: the first
// explicit numeric argument, falling back to the engine's current
// focus thread (spec.md §4.F.7's "stop event ... sets focus thread").
func focusThread(d *debug.Debugger, args []string) (int, error) {
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("invalid thread id %q", args[0])
		}
		return id, nil
	}
	id, ok := d.Threads().FocusThreadId()
	if !ok {
		return 0, fmt.Errorf("no focused thread")
	}
	return id, nil
}

// ContinueCommand resumes the focused (or named) thread.
type ContinueCommand struct{ console *Console }

func NewContinueCommand(c *Console) *ContinueCommand { return &ContinueCommand{console: c} }
func (*ContinueCommand) Name() string                { return "continue" }
func (c *ContinueCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	id, err := focusThread(d, args)
	if err != nil {
		return err
	}
	return d.Continue(ctx, id)
}

// NextCommand steps over the current line.
type NextCommand struct{ console *Console }

func NewNextCommand(c *Console) *NextCommand { return &NextCommand{console: c} }
func (*NextCommand) Name() string            { return "next" }
func (c *NextCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	id, err := focusThread(d, args)
	if err != nil {
		return err
	}
	return d.Next(ctx, id)
}

// StepInCommand steps into the current call.
type StepInCommand struct{ console *Console }

func NewStepInCommand(c *Console) *StepInCommand { return &StepInCommand{console: c} }
func (*StepInCommand) Name() string              { return "step" }
func (c *StepInCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	id, err := focusThread(d, args)
	if err != nil {
		return err
	}
	return d.StepIn(ctx, id)
}

// StepOutCommand steps out of the current function.
type StepOutCommand struct{ console *Console }

func NewStepOutCommand(c *Console) *StepOutCommand { return &StepOutCommand{console: c} }
func (*StepOutCommand) Name() string               { return "stepout" }
func (c *StepOutCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	id, err := focusThread(d, args)
	if err != nil {
		return err
	}
	return d.StepOut(ctx, id)
}

// PauseCommand breaks in to a running thread.
type PauseCommand struct{ console *Console }

func NewPauseCommand(c *Console) *PauseCommand { return &PauseCommand{console: c} }
func (*PauseCommand) Name() string             { return "pause" }
func (c *PauseCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	id, err := focusThread(d, args)
	if err != nil {
		return err
	}
	return d.Pause(ctx, id)
}

// BreakCommand sets a breakpoint, either "break path:line" or
// "break funcName" for a function breakpoint (spec.md §3/§4.D).
type BreakCommand struct{ console *Console }

func NewBreakCommand(c *Console) *BreakCommand { return &BreakCommand{console: c} }
func (*BreakCommand) Name() string             { return "break" }
func (c *BreakCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <path:line>|<function>")
	}
	spec := args[0]
	once := len(args) > 1 && args[1] == "once"

	path, line, isSource := parseSourceLocation(spec)
	var idx int
	var err error
	if isSource {
		idx, err = d.SetSourceBreakpoint(ctx, path, line, once)
	} else {
		idx, err = d.SetFunctionBreakpoint(ctx, spec, once)
	}
	if err != nil {
		return err
	}
	c.console.OutputLine(fmt.Sprintf("breakpoint %d set", idx))
	return nil
}

// parseSourceLocation splits "path:line" into its parts. A spec with
// no parseable trailing ":line" is treated as a function name.
func parseSourceLocation(spec string) (path string, line int, isSource bool) {
	idx := strings.LastIndex(spec, ":")
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(spec[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return spec[:idx], n, true
}

// DeleteCommand deletes a single breakpoint by index, or every
// breakpoint when called with no arguments.
type DeleteCommand struct{ console *Console }

func NewDeleteCommand(c *Console) *DeleteCommand { return &DeleteCommand{console: c} }
func (*DeleteCommand) Name() string              { return "delete" }
func (c *DeleteCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	if len(args) == 0 {
		return d.DeleteAllBreakpoints(ctx)
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint index %q", args[0])
	}
	return d.DeleteBreakpoint(ctx, idx)
}

// ToggleCommand flips a breakpoint's enabled state, or every
// breakpoint's when called with no arguments.
type ToggleCommand struct{ console *Console }

func NewToggleCommand(c *Console) *ToggleCommand { return &ToggleCommand{console: c} }
func (*ToggleCommand) Name() string              { return "toggle" }
func (c *ToggleCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	if len(args) == 0 {
		return d.ToggleAllBreakpoints(ctx)
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint index %q", args[0])
	}
	return d.ToggleBreakpoint(ctx, idx)
}

// ThreadsCommand lists all threads and marks the focused one.
type ThreadsCommand struct{ console *Console }

func NewThreadsCommand(c *Console) *ThreadsCommand { return &ThreadsCommand{console: c} }
func (*ThreadsCommand) Name() string               { return "threads" }
func (c *ThreadsCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	focus, _ := d.Threads().FocusThreadId()
	for _, t := range d.Threads().AllThreads() {
		marker := " "
		if t.ID() == focus {
			marker = "*"
		}
		status := "running"
		if t.IsStopped() {
			status = "stopped"
		}
		c.console.OutputLine(fmt.Sprintf("%s %d %s (%s)", marker, t.ID(), t.Name(), status))
	}
	return nil
}

// BacktraceCommand prints the call stack of the focused thread.
type BacktraceCommand struct{ console *Console }

func NewBacktraceCommand(c *Console) *BacktraceCommand { return &BacktraceCommand{console: c} }
func (*BacktraceCommand) Name() string                 { return "bt" }
func (c *BacktraceCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	id, err := focusThread(d, args)
	if err != nil {
		return err
	}
	frames, _, err := d.GetStackTrace(ctx, id, 0, 0)
	if err != nil {
		return err
	}
	for i, f := range frames {
		loc := ""
		if f.Source != nil {
			loc = fmt.Sprintf(" at %s:%d", f.Source.Path, f.Line)
		}
		c.console.OutputLine(fmt.Sprintf("#%d %s%s", i, f.Name, loc))
	}
	return nil
}

// PrintCommand evaluates an expression in the context of the current
// stack frame (spec.md §4.F.6).
type PrintCommand struct{ console *Console }

func NewPrintCommand(c *Console) *PrintCommand { return &PrintCommand{console: c} }
func (*PrintCommand) Name() string             { return "print" }
func (c *PrintCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expression>")
	}
	expr := strings.Join(args, " ")
	frame, err := d.GetCurrentStackFrame(ctx)
	frameID := 0
	if err == nil && frame != nil {
		frameID = frame.ID
	}
	result, err := d.Evaluate(ctx, expr, frameID, "repl")
	if err != nil {
		return err
	}
	c.console.OutputLine(result.Result)
	return nil
}

// QuitCommand ends the REPL session. It reports app.ErrQuit so the
// dispatcher (and ultimately cmd/nuclide's main, via errors.Is) treat
// this as a normal exit rather than a command failure.
type QuitCommand struct{ console *Console }

func NewQuitCommand(c *Console) *QuitCommand { return &QuitCommand{console: c} }
func (*QuitCommand) Name() string            { return "quit" }
func (c *QuitCommand) Execute(ctx context.Context, d *debug.Debugger, args []string) error {
	return app.ErrQuit
}

// RegisterAll wires every built-in command into registry, sharing the
// given console for their output.
func RegisterAll(registry *debug.CommandRegistry, console *Console) {
	registry.Register(NewContinueCommand(console))
	registry.Register(NewNextCommand(console))
	registry.Register(NewStepInCommand(console))
	registry.Register(NewStepOutCommand(console))
	registry.Register(NewPauseCommand(console))
	registry.Register(NewBreakCommand(console))
	registry.Register(NewDeleteCommand(console))
	registry.Register(NewToggleCommand(console))
	registry.Register(NewThreadsCommand(console))
	registry.Register(NewBacktraceCommand(console))
	registry.Register(NewPrintCommand(console))
	registry.Register(NewQuitCommand(console))
}
