package repl

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/keystorm/internal/app"
	"github.com/dshills/keystorm/internal/integration/debug"
)

// CommandDispatcher is the out-of-scope collaborator spec.md §4.G and
// §6 name but deliberately leave unspecified: it owns the REPL loop,
// turns raw input lines into (command, args) pairs, looks the command
// up in the engine's CommandRegistry, and executes it with the
// context passed to Run. No separate per-command context is created,
// so an in-flight command is canceled only when that context is.
type CommandDispatcher struct {
	console  *Console
	registry *debug.CommandRegistry
	debugger *debug.Debugger
	metrics  *app.Metrics
	logger   *app.Logger
}

// NewCommandDispatcher wires a dispatcher around an already-launched
// debugger, its command registry, and the console both share.
func NewCommandDispatcher(console *Console, registry *debug.CommandRegistry, d *debug.Debugger, a *app.Application) *CommandDispatcher {
	return &CommandDispatcher{
		console:  console,
		registry: registry,
		debugger: d,
		metrics:  a.Metrics(),
		logger:   a.Logger().WithComponent("dispatcher"),
	}
}

// Run reads lines from the console until ctx is canceled or stdin is
// exhausted. Each line is dispatched synchronously: the engine runs on
// a single cooperative scheduler (spec.md §5) and must never see two
// commands in flight at once.
func (cd *CommandDispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-cd.console.Lines():
			if !ok {
				return nil
			}
			if !cd.console.Reading() {
				// Input arrived while the engine had input stopped
				// (e.g. the program is running); drop it silently
				// rather than queuing stale commands.
				continue
			}
			if stop := cd.dispatch(ctx, line); stop {
				return nil
			}
			cd.console.Reprompt()
		}
	}
}

// dispatch executes a single line and reports whether the dispatcher
// loop should stop — the sole, sentinel-error-carried way (grounded on
// the same errors.Is(err, app.ErrQuit) idiom cmd/keystorm's main used)
// a command signals normal exit rather than failure.
func (cd *CommandDispatcher) dispatch(ctx context.Context, line string) bool {
	name, args := splitArgs(line)
	if name == "" {
		return false
	}

	cmd, ok := cd.registry.Lookup(name)
	if !ok {
		cd.console.OutputLine(fmt.Sprintf("unknown command: %s", name))
		return false
	}

	timer := app.StartTimer()
	err := cmd.Execute(ctx, cd.debugger, args)
	cd.metrics.RecordCommand(timer.Elapsed())

	if errors.Is(err, app.ErrQuit) {
		return true
	}

	if err != nil {
		cd.metrics.RecordCommandError()
		cd.logger.WithField("command", name).Error("command failed: %v", err)
		cd.console.OutputLine(fmt.Sprintf("error: %v", err))
		return false
	}

	return false
}
