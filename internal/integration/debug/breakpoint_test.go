package debug

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBreakpointCollection_AddSourceBreakpoint(t *testing.T) {
	c := NewBreakpointCollection()

	idx := c.AddSourceBreakpoint("/a.c", 7, false)
	bp, err := c.GetBreakpointByIndex(idx)
	if err != nil {
		t.Fatalf("GetBreakpointByIndex failed: %v", err)
	}
	if bp.Path != "/a.c" || bp.Line != 7 {
		t.Errorf("expected /a.c:7, got %s:%d", bp.Path, bp.Line)
	}
	if bp.State != BreakpointEnabled {
		t.Errorf("expected enabled, got %v", bp.State)
	}
}

func TestBreakpointCollection_OnceRequiresCapability(t *testing.T) {
	c := NewBreakpointCollection()

	idx := c.AddSourceBreakpoint("/a.c", 7, true)
	bp, _ := c.GetBreakpointByIndex(idx)
	if bp.State != BreakpointEnabled {
		t.Errorf("once without capability should fall back to enabled, got %v", bp.State)
	}

	c.EnableOnceState(true)
	idx2 := c.AddSourceBreakpoint("/a.c", 8, true)
	bp2, _ := c.GetBreakpointByIndex(idx2)
	if bp2.State != BreakpointOnce {
		t.Errorf("expected once, got %v", bp2.State)
	}
}

func TestBreakpointCollection_SetStateRejectsOnceWithoutCapability(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.c", 7, false)

	if err := c.SetState(idx, BreakpointOnce); err == nil {
		t.Error("expected error setting once without capability")
	}
}

func TestBreakpointCollection_IndexNeverReused(t *testing.T) {
	c := NewBreakpointCollection()

	i0 := c.AddSourceBreakpoint("/a.c", 1, false)
	i1 := c.AddSourceBreakpoint("/a.c", 2, false)

	if err := c.DeleteBreakpoint(i0); err != nil {
		t.Fatalf("DeleteBreakpoint failed: %v", err)
	}

	i2 := c.AddSourceBreakpoint("/a.c", 3, false)
	if i2 == i0 || i2 == i1 {
		t.Errorf("expected fresh index distinct from %d and %d, got %d", i0, i1, i2)
	}
}

func TestBreakpointCollection_ToggleStateRoundTrip(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.c", 7, false)

	prior, err := c.ToggleState(idx)
	if err != nil {
		t.Fatalf("ToggleState failed: %v", err)
	}
	if prior != BreakpointEnabled {
		t.Errorf("expected prior state enabled, got %v", prior)
	}

	prior2, err := c.ToggleState(idx)
	if err != nil {
		t.Fatalf("second ToggleState failed: %v", err)
	}
	if prior2 != BreakpointDisabled {
		t.Errorf("expected prior state disabled, got %v", prior2)
	}

	bp, _ := c.GetBreakpointByIndex(idx)
	if bp.State != BreakpointEnabled {
		t.Errorf("double toggle should restore original state, got %v", bp.State)
	}
}

func TestBreakpointCollection_RestoreStateAfterFailedToggle(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.c", 7, false)

	prior, err := c.ToggleState(idx)
	if err != nil {
		t.Fatalf("ToggleState failed: %v", err)
	}

	// Simulate the adapter rejecting the change: caller rolls back.
	c.RestoreState(idx, prior)

	bp, _ := c.GetBreakpointByIndex(idx)
	if bp.State != BreakpointEnabled {
		t.Errorf("expected rollback to enabled, got %v", bp.State)
	}
}

func TestBreakpointCollection_DeleteRoundTrip(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.c", 7, false)

	before := c.GetAllEnabledBreakpointsForSource("/a.c")
	if len(before) != 1 {
		t.Fatalf("expected 1 enabled breakpoint, got %d", len(before))
	}

	if err := c.DeleteBreakpoint(idx); err != nil {
		t.Fatalf("DeleteBreakpoint failed: %v", err)
	}

	after := c.GetAllEnabledBreakpointsForSource("/a.c")
	if len(after) != 0 {
		t.Errorf("expected 0 enabled breakpoints after delete, got %d", len(after))
	}
}

func TestBreakpointCollection_DeleteNonexistent(t *testing.T) {
	c := NewBreakpointCollection()
	if err := c.DeleteBreakpoint(999); err == nil {
		t.Error("expected error deleting nonexistent breakpoint")
	}
}

func TestBreakpointCollection_GetAllEnabledBreakpointsForSourceOrdering(t *testing.T) {
	c := NewBreakpointCollection()
	c.AddSourceBreakpoint("/a.c", 10, false)
	c.AddSourceBreakpoint("/a.c", 20, false)
	c.AddSourceBreakpoint("/b.c", 30, false)

	bps := c.GetAllEnabledBreakpointsForSource("/a.c")
	if len(bps) != 2 {
		t.Fatalf("expected 2 breakpoints for /a.c, got %d", len(bps))
	}
	if bps[0].Index >= bps[1].Index {
		t.Error("expected breakpoints ordered by ascending index")
	}
}

func TestBreakpointCollection_GetAllEnabledBreakpointsByPath(t *testing.T) {
	c := NewBreakpointCollection()
	c.AddSourceBreakpoint("/a.c", 10, false)
	c.AddSourceBreakpoint("/b.c", 20, false)

	grouped := c.GetAllEnabledBreakpointsByPath()
	if len(grouped) != 2 {
		t.Errorf("expected 2 paths, got %d", len(grouped))
	}
}

func TestBreakpointCollection_GetAllEnabledFunctionBreakpoints(t *testing.T) {
	c := NewBreakpointCollection()
	c.AddFunctionBreakpoint("foo", false)
	c.AddFunctionBreakpoint("bar", false)
	c.AddSourceBreakpoint("/a.c", 1, false)

	bps := c.GetAllEnabledFunctionBreakpoints()
	if len(bps) != 2 {
		t.Errorf("expected 2 function breakpoints, got %d", len(bps))
	}
}

func TestBreakpointCollection_DisabledExcludedFromEnabledLists(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.c", 7, false)
	c.ToggleState(idx)

	bps := c.GetAllEnabledBreakpointsForSource("/a.c")
	if len(bps) != 0 {
		t.Errorf("expected disabled breakpoint excluded, got %d", len(bps))
	}
}

func TestBreakpointCollection_MarkPendingSetsMessage(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.c", 7, false)

	c.MarkPending(idx)

	bp, _ := c.GetBreakpointByIndex(idx)
	if bp.Message != "Breakpoint pending until program starts." {
		t.Errorf("unexpected pending message: %q", bp.Message)
	}
	if !bp.pending {
		t.Error("expected pending flag set")
	}
}

func TestBreakpointCollection_ClearPending(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.c", 7, false)
	c.MarkPending(idx)

	c.ClearPending()

	bp, _ := c.GetBreakpointByIndex(idx)
	if bp.pending {
		t.Error("expected pending flag cleared")
	}
}

func TestBreakpointCollection_GetBreakpointById(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.c", 7, false)
	if err := c.SetBreakpointId(idx, 42); err != nil {
		t.Fatalf("SetBreakpointId failed: %v", err)
	}

	bp, err := c.GetBreakpointById(42)
	if err != nil {
		t.Fatalf("GetBreakpointById failed: %v", err)
	}
	if bp.Index != idx {
		t.Errorf("expected index %d, got %d", idx, bp.Index)
	}

	if _, err := c.GetBreakpointById(999); err == nil {
		t.Error("expected error looking up unknown adapter id")
	}
}

func TestBreakpointCollection_SetPathAndFile(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddFunctionBreakpoint("foo", false)

	if err := c.SetPathAndFile(idx, "/x.c", 9); err != nil {
		t.Fatalf("SetPathAndFile failed: %v", err)
	}

	bp, _ := c.GetBreakpointByIndex(idx)
	if bp.Path != "/x.c" || bp.Line != 9 {
		t.Errorf("expected /x.c:9, got %s:%d", bp.Path, bp.Line)
	}
}

func TestBreakpointCollection_GetAllBreakpointPaths(t *testing.T) {
	c := NewBreakpointCollection()
	c.AddSourceBreakpoint("/a.c", 1, false)
	c.AddSourceBreakpoint("/a.c", 2, false)
	c.AddSourceBreakpoint("/b.c", 3, false)
	c.AddFunctionBreakpoint("foo", false)

	paths := c.GetAllBreakpointPaths()
	if len(paths) != 2 {
		t.Errorf("expected 2 distinct paths, got %d", len(paths))
	}
}

func TestBreakpointCollection_DeleteAllBreakpoints(t *testing.T) {
	c := NewBreakpointCollection()
	c.AddSourceBreakpoint("/a.c", 1, false)
	c.AddFunctionBreakpoint("foo", false)

	c.DeleteAllBreakpoints()

	if len(c.AllBreakpoints()) != 0 {
		t.Error("expected no breakpoints after DeleteAllBreakpoints")
	}
}

func TestBreakpointCollection_Persistence(t *testing.T) {
	tempDir := t.TempDir()
	persistPath := filepath.Join(tempDir, "breakpoints.json")

	c := NewBreakpointCollection()
	c.SetPersistPath(persistPath)
	c.AddSourceBreakpoint("/a.c", 10, false)
	c.AddFunctionBreakpoint("foo", false)

	if err := c.SaveToDisk(); err != nil {
		t.Fatalf("SaveToDisk failed: %v", err)
	}
	if _, err := os.Stat(persistPath); os.IsNotExist(err) {
		t.Fatal("persistence file not created")
	}

	c2 := NewBreakpointCollection()
	c2.SetPersistPath(persistPath)
	if err := c2.LoadFromDisk(); err != nil {
		t.Fatalf("LoadFromDisk failed: %v", err)
	}

	if len(c2.AllBreakpoints()) != 2 {
		t.Errorf("expected 2 breakpoints after load, got %d", len(c2.AllBreakpoints()))
	}
}

func TestBreakpointCollection_LoadFromDiskNonexistent(t *testing.T) {
	c := NewBreakpointCollection()
	c.SetPersistPath("/nonexistent/path/breakpoints.json")

	if err := c.LoadFromDisk(); err != nil {
		t.Errorf("LoadFromDisk should succeed silently for nonexistent file: %v", err)
	}
}

func TestBreakpointState_String(t *testing.T) {
	tests := []struct {
		state    BreakpointState
		expected string
	}{
		{BreakpointEnabled, "enabled"},
		{BreakpointDisabled, "disabled"},
		{BreakpointOnce, "once"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if tt.state.String() != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.state.String())
			}
		})
	}
}

func TestBreakpoint_IsFunction(t *testing.T) {
	source := &Breakpoint{Path: "/a.c", Line: 1}
	fn := &Breakpoint{FunctionName: "foo"}

	if source.IsFunction() {
		t.Error("source breakpoint should not report IsFunction")
	}
	if !fn.IsFunction() {
		t.Error("function breakpoint should report IsFunction")
	}
}
