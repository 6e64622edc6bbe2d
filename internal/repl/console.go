// Package repl provides the terminal console, command implementations,
// and REPL dispatch loop that cmd/nuclide wires around the debug engine.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console is a line-buffered stdin/stdout implementation of
// debug.ConsoleIO, gated by a start/stop-input signal so the engine
// can silence the prompt while the program is running (spec.md §4.F.1).
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	prompt string

	reading bool
	lines   chan string
}

// NewConsole creates a console reading lines from in and writing to out.
// prompt is printed before each accepted line of input.
func NewConsole(in io.Reader, out io.Writer, prompt string) *Console {
	c := &Console{
		out:    out,
		prompt: prompt,
		lines:  make(chan string),
	}
	go c.scan(bufio.NewScanner(in))
	return c
}

// scan runs for the console's lifetime, feeding every line read from
// stdin into c.lines regardless of whether input is currently
// "started" — StartInput/StopInput only decide whether the dispatcher
// acts on a delivered line, not whether the OS-level read happens, since a
// blocking bufio.Scanner.Scan() call cannot itself be paused.
func (c *Console) scan(scanner *bufio.Scanner) {
	defer close(c.lines)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
}

// Lines returns the channel of raw input lines. The dispatcher reads
// every line from it and drops those that arrive while input is
// stopped (StopInput called more recently than StartInput); see
// CommandDispatcher.Run.
func (c *Console) Lines() <-chan string {
	return c.lines
}

// Output writes text with no trailing newline.
func (c *Console) Output(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, text)
}

// OutputLine writes text followed by a newline.
func (c *Console) OutputLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// StartInput marks input as accepted and prints the prompt.
func (c *Console) StartInput() {
	c.mu.Lock()
	c.reading = true
	c.mu.Unlock()
	c.Output(c.prompt)
}

// StopInput marks input as not currently accepted. The engine calls
// this when transitioning away from configuring/stopped (spec.md §4.F.8).
func (c *Console) StopInput() {
	c.mu.Lock()
	c.reading = false
	c.mu.Unlock()
}

// Reading reports whether the engine has most recently called
// StartInput (vs. StopInput).
func (c *Console) Reading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reading
}

// Close stops accepting input. The underlying scan goroutine exits on
// its own once stdin reaches EOF; Close does not block waiting for it.
func (c *Console) Close() {
	c.mu.Lock()
	c.reading = false
	c.mu.Unlock()
}

// Reprompt writes the prompt again if input is currently accepted,
// used by the dispatcher after executing a command.
func (c *Console) Reprompt() {
	if c.Reading() {
		c.Output(c.prompt)
	}
}

// splitArgs splits a raw input line into a command name and its
// argument words, trimming surrounding whitespace.
func splitArgs(line string) (name string, args []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
