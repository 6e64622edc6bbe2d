package repl

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dshills/keystorm/internal/app"
	"github.com/dshills/keystorm/internal/integration/debug"
)

func TestCommandDispatcher_QuitStopsLoop(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(strings.NewReader("quit\n"), &out, "")
	console.StartInput()

	registry := debug.NewCommandRegistry()
	RegisterAll(registry, console)

	d := debug.NewDebugger(console, registry)
	application := app.New(app.Options{})

	dispatcher := NewCommandDispatcher(console, registry, d, application)

	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after quit")
	}
}

func TestCommandDispatcher_UnknownCommandReported(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(strings.NewReader("bogus\nquit\n"), &out, "")
	console.StartInput()

	registry := debug.NewCommandRegistry()
	RegisterAll(registry, console)

	d := debug.NewDebugger(console, registry)
	application := app.New(app.Options{})
	dispatcher := NewCommandDispatcher(console, registry, d, application)

	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(context.Background()) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after quit")
	}

	if !strings.Contains(out.String(), "unknown command: bogus") {
		t.Errorf("expected unknown command message, got: %s", out.String())
	}
}

func TestCommandDispatcher_CanceledContext(t *testing.T) {
	// A pipe whose write end is never closed blocks the console's scan
	// goroutine forever, so Lines() neither delivers nor closes and
	// ctx.Done() is the only case Run's select can take.
	pr, _ := io.Pipe()
	console := NewConsole(pr, &bytes.Buffer{}, "")
	registry := debug.NewCommandRegistry()
	RegisterAll(registry, console)
	d := debug.NewDebugger(console, registry)
	application := app.New(app.Options{})
	dispatcher := NewCommandDispatcher(console, registry, d, application)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := dispatcher.Run(ctx); err == nil {
		t.Error("expected Run() to return an error for an already-canceled context")
	}
}
