package repl

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestConsole_OutputAndOutputLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(strings.NewReader(""), &buf, "> ")

	c.Output("hello")
	c.OutputLine("world")

	got := buf.String()
	if got != "helloworld\n" {
		t.Errorf("output = %q, want %q", got, "helloworld\n")
	}
}

func TestConsole_StartStopInputTracksReading(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(strings.NewReader(""), &buf, "(nuclide) ")

	if c.Reading() {
		t.Error("expected Reading() to be false initially")
	}

	c.StartInput()
	if !c.Reading() {
		t.Error("expected Reading() to be true after StartInput")
	}
	if !strings.Contains(buf.String(), "(nuclide) ") {
		t.Error("expected StartInput to print the prompt")
	}

	c.StopInput()
	if c.Reading() {
		t.Error("expected Reading() to be false after StopInput")
	}
}

func TestConsole_LinesDeliversScannedInput(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(strings.NewReader("continue\nnext\n"), &buf, "")

	select {
	case line := <-c.Lines():
		if line != "continue" {
			t.Errorf("first line = %q, want %q", line, "continue")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first line")
	}

	select {
	case line := <-c.Lines():
		if line != "next" {
			t.Errorf("second line = %q, want %q", line, "next")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second line")
	}
}

func TestConsole_CloseStopsReading(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(strings.NewReader(""), &buf, "")
	c.StartInput()
	c.Close()

	if c.Reading() {
		t.Error("expected Reading() to be false after Close")
	}
}
