package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/keystorm/internal/integration/debug/dap"
)

// BreakpointState is the enablement state of a Breakpoint.
type BreakpointState int

const (
	// BreakpointEnabled breakpoints are sent to the adapter.
	BreakpointEnabled BreakpointState = iota
	// BreakpointDisabled breakpoints are known locally but never sent.
	BreakpointDisabled
	// BreakpointOnce breakpoints behave like BreakpointEnabled but
	// auto-disable the first time they are hit. Only valid when the
	// adapter advertises supportsBreakpointIdOnStop.
	BreakpointOnce
)

func (s BreakpointState) String() string {
	switch s {
	case BreakpointEnabled:
		return "enabled"
	case BreakpointDisabled:
		return "disabled"
	case BreakpointOnce:
		return "once"
	default:
		return "unknown"
	}
}

// Breakpoint is a user breakpoint. It is either a source breakpoint
// (Path + Line) or a function breakpoint (FunctionName); exactly one
// kind is populated per breakpoint. Index is the stable, user-facing
// handle assigned once at creation and never reused. ID is the
// adapter-assigned identifier used to correlate later breakpoint
// events; it is zero until a setBreakpoints response supplies one.
type Breakpoint struct {
	Index int `json:"index"`
	ID    int `json:"id,omitempty"`

	Path         string `json:"path,omitempty"`
	Line         int    `json:"line,omitempty"`
	FunctionName string `json:"functionName,omitempty"`

	State    BreakpointState `json:"state"`
	Verified bool            `json:"verified"`
	Message  string          `json:"message,omitempty"`

	// pending marks a breakpoint created while the session is
	// configuring: it has not yet been sent to the adapter because the
	// program has not started running.
	pending bool
}

// IsFunction reports whether this is a function breakpoint rather
// than a source breakpoint.
func (b *Breakpoint) IsFunction() bool { return b.FunctionName != "" }

// IsEnabledOrOnce reports whether the breakpoint should currently be
// sent to the adapter.
func (b *Breakpoint) IsEnabledOrOnce() bool {
	return b.State == BreakpointEnabled || b.State == BreakpointOnce
}

// BreakpointCollection is the registry of all breakpoints: lookup by
// index, by adapter id, grouping by source path, and filtering by
// state. Breakpoints survive session teardown and relaunch; only
// Thread and the DAP session itself are torn down on relaunch.
type BreakpointCollection struct {
	mu sync.RWMutex

	byIndex map[int]*Breakpoint
	nextIdx int

	onceSupported bool

	persistPath string
}

// NewBreakpointCollection returns an empty collection.
func NewBreakpointCollection() *BreakpointCollection {
	return &BreakpointCollection{byIndex: make(map[int]*Breakpoint)}
}

// SetPersistPath sets the file the collection persists to/from when
// SaveToDisk/LoadFromDisk are called. Persistence is never invoked by
// the engine itself — it is an opt-in capability the host process may
// use, since the core's Non-goals exclude persisting state across runs.
func (c *BreakpointCollection) SetPersistPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistPath = path
}

// EnableOnceState is toggled by the engine after it learns the
// adapter's capabilities from the initialize response.
func (c *BreakpointCollection) EnableOnceState(supported bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onceSupported = supported
}

// SupportsOnceState reports whether BreakpointOnce may currently be used.
func (c *BreakpointCollection) SupportsOnceState() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onceSupported
}

// AddSourceBreakpoint registers a new source breakpoint and returns
// its index. once requests BreakpointOnce state; it is honored only
// if SupportsOnceState() is true, otherwise the breakpoint starts
// enabled.
func (c *BreakpointCollection) AddSourceBreakpoint(path string, line int, once bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := BreakpointEnabled
	if once && c.onceSupported {
		state = BreakpointOnce
	}

	idx := c.nextIdx
	c.nextIdx++
	c.byIndex[idx] = &Breakpoint{Index: idx, Path: path, Line: line, State: state}
	return idx
}

// AddFunctionBreakpoint registers a new function breakpoint and
// returns its index.
func (c *BreakpointCollection) AddFunctionBreakpoint(name string, once bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := BreakpointEnabled
	if once && c.onceSupported {
		state = BreakpointOnce
	}

	idx := c.nextIdx
	c.nextIdx++
	c.byIndex[idx] = &Breakpoint{Index: idx, FunctionName: name, State: state}
	return idx
}

// DeleteBreakpoint removes a breakpoint by index.
func (c *BreakpointCollection) DeleteBreakpoint(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byIndex[index]; !ok {
		return newErr(KindNotFound, fmt.Sprintf("breakpoint %d", index))
	}
	delete(c.byIndex, index)
	return nil
}

// DeleteAllBreakpoints removes every breakpoint. Index allocation is
// unaffected: future breakpoints still receive fresh indices.
func (c *BreakpointCollection) DeleteAllBreakpoints() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byIndex = make(map[int]*Breakpoint)
}

// GetBreakpointByIndex returns the breakpoint with the given index.
func (c *BreakpointCollection) GetBreakpointByIndex(index int) (*Breakpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bp, ok := c.byIndex[index]
	if !ok {
		return nil, newErr(KindNotFound, fmt.Sprintf("breakpoint %d", index))
	}
	return bp, nil
}

// GetBreakpointById returns the breakpoint carrying the given
// adapter-assigned id.
func (c *BreakpointCollection) GetBreakpointById(id int) (*Breakpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, bp := range c.byIndex {
		if bp.ID == id && bp.ID != 0 {
			return bp, nil
		}
	}
	return nil, newErr(KindNotFound, fmt.Sprintf("breakpoint with adapter id %d", id))
}

// SetBreakpointId records the adapter-assigned id for a breakpoint.
func (c *BreakpointCollection) SetBreakpointId(index, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bp, ok := c.byIndex[index]
	if !ok {
		return newErr(KindNotFound, fmt.Sprintf("breakpoint %d", index))
	}
	bp.ID = id
	return nil
}

// SetBreakpointVerified records the adapter's verification flag.
func (c *BreakpointCollection) SetBreakpointVerified(index int, verified bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bp, ok := c.byIndex[index]
	if !ok {
		return newErr(KindNotFound, fmt.Sprintf("breakpoint %d", index))
	}
	bp.Verified = verified
	return nil
}

// SetPathAndFile records the resolved source location the adapter
// returned for a function breakpoint.
func (c *BreakpointCollection) SetPathAndFile(index int, path string, line int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bp, ok := c.byIndex[index]
	if !ok {
		return newErr(KindNotFound, fmt.Sprintf("breakpoint %d", index))
	}
	bp.Path = path
	bp.Line = line
	return nil
}

// ToggleState flips enabled<->disabled; BreakpointOnce collapses to
// disabled on toggle. Returns the breakpoint's prior state so callers
// can roll back on adapter failure.
func (c *BreakpointCollection) ToggleState(index int) (BreakpointState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bp, ok := c.byIndex[index]
	if !ok {
		return 0, newErr(KindNotFound, fmt.Sprintf("breakpoint %d", index))
	}

	prior := bp.State
	switch bp.State {
	case BreakpointDisabled:
		bp.State = BreakpointEnabled
	default: // Enabled or Once both collapse toward Disabled
		bp.State = BreakpointDisabled
	}
	return prior, nil
}

// RestoreState rolls a breakpoint back to a previously observed
// state, used when an adapter request fails after a toggle.
func (c *BreakpointCollection) RestoreState(index int, state BreakpointState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bp, ok := c.byIndex[index]; ok {
		bp.State = state
	}
}

// SetState requires the target state be compatible with capabilities:
// BreakpointOnce requires SupportsOnceState().
func (c *BreakpointCollection) SetState(index int, state BreakpointState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bp, ok := c.byIndex[index]
	if !ok {
		return newErr(KindNotFound, fmt.Sprintf("breakpoint %d", index))
	}
	if state == BreakpointOnce && !c.onceSupported {
		return newErr(KindUnsupportedCapability, "adapter does not support breakpoint-id-on-stop")
	}
	bp.State = state
	return nil
}

// MarkPending flags a breakpoint created during configuring as
// deferred until the resetAllBreakpoints call at transition to running.
func (c *BreakpointCollection) MarkPending(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bp, ok := c.byIndex[index]; ok {
		bp.pending = true
		bp.Message = "Breakpoint pending until program starts."
	}
}

// ClearPending drops the pending flag from every breakpoint, called
// once all breakpoints have been re-sent after a state-machine
// transition into running.
func (c *BreakpointCollection) ClearPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, bp := range c.byIndex {
		bp.pending = false
	}
}

// GetAllEnabledBreakpointsForSource returns enabled-or-once source
// breakpoints at path, ordered by ascending index.
func (c *BreakpointCollection) GetAllEnabledBreakpointsForSource(path string) []*Breakpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*Breakpoint
	for _, bp := range c.byIndex {
		if !bp.IsFunction() && bp.Path == path && bp.IsEnabledOrOnce() {
			result = append(result, bp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}

// GetAllEnabledBreakpointsByPath groups enabled-or-once source
// breakpoints by path, for every path that carries at least one.
func (c *BreakpointCollection) GetAllEnabledBreakpointsByPath() map[string][]*Breakpoint {
	c.mu.RLock()
	paths := make(map[string]bool)
	for _, bp := range c.byIndex {
		if !bp.IsFunction() && bp.IsEnabledOrOnce() {
			paths[bp.Path] = true
		}
	}
	c.mu.RUnlock()

	result := make(map[string][]*Breakpoint, len(paths))
	for path := range paths {
		result[path] = c.GetAllEnabledBreakpointsForSource(path)
	}
	return result
}

// GetAllEnabledFunctionBreakpoints returns enabled-or-once function
// breakpoints, ordered by ascending index.
func (c *BreakpointCollection) GetAllEnabledFunctionBreakpoints() []*Breakpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*Breakpoint
	for _, bp := range c.byIndex {
		if bp.IsFunction() && bp.IsEnabledOrOnce() {
			result = append(result, bp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}

// GetAllBreakpointPaths returns every source path carrying any
// breakpoint, used to clear batches (e.g. on deleteAllBreakpoints).
func (c *BreakpointCollection) GetAllBreakpointPaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	for _, bp := range c.byIndex {
		if !bp.IsFunction() {
			seen[bp.Path] = true
		}
	}
	result := make([]string, 0, len(seen))
	for path := range seen {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// AllBreakpoints returns every breakpoint ordered by ascending index.
func (c *BreakpointCollection) AllBreakpoints() []*Breakpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Breakpoint, 0, len(c.byIndex))
	for _, bp := range c.byIndex {
		result = append(result, bp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}

// reconcilePath sends the enabled-or-once breakpoints at path to the
// session and positionally updates id/verified/message from the
// response, per spec.md §4.F.3. If the adapter omitted an id, the
// engine assumes verified = true unconditionally because it cannot
// otherwise correlate a later breakpoint-changed event.
func (c *BreakpointCollection) reconcilePath(ctx context.Context, d *Debugger, path string) error {
	bps := c.GetAllEnabledBreakpointsForSource(path)

	request := make([]dap.SourceBreakpoint, len(bps))
	for i, bp := range bps {
		request[i] = dap.SourceBreakpoint{Line: bp.Line}
	}

	response, err := d.setBreakpointsWithConditions(ctx, path, request)
	if err != nil {
		return wrapErr(KindAdapterRequestFailed, "setBreakpoints for "+path, err)
	}
	if len(response) != len(request) {
		return newErr(KindInternal, "setBreakpoints response length did not match request length")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, bp := range bps {
		resp := response[i]
		bp.Message = resp.Message
		if resp.ID != 0 {
			bp.ID = resp.ID
			bp.Verified = resp.Verified
		} else {
			bp.Verified = true
		}
	}
	return nil
}

// reconcileFunctions sends every enabled-or-once function breakpoint
// and positionally updates the response, recording any resolved
// source location the adapter returned.
func (c *BreakpointCollection) reconcileFunctions(ctx context.Context, d *Debugger) error {
	caps := d.Capabilities()
	if caps == nil || !caps.SupportsFunctionBreakpoints {
		return nil
	}

	bps := c.GetAllEnabledFunctionBreakpoints()
	if len(bps) == 0 {
		return nil
	}

	request := make([]dap.FunctionBreakpoint, len(bps))
	for i, bp := range bps {
		request[i] = dap.FunctionBreakpoint{Name: bp.FunctionName}
	}

	response, err := d.client.SetFunctionBreakpoints(ctx, dap.SetFunctionBreakpointsArguments{Breakpoints: request})
	if err != nil {
		return wrapErr(KindAdapterRequestFailed, "setFunctionBreakpoints", err)
	}
	if len(response) != len(request) {
		return newErr(KindInternal, "setFunctionBreakpoints response length did not match request length")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, bp := range bps {
		resp := response[i]
		bp.Message = resp.Message
		if resp.ID != 0 {
			bp.ID = resp.ID
			bp.Verified = resp.Verified
		} else {
			bp.Verified = true
		}
		if resp.Source != nil && resp.Source.Path != "" && resp.Line > 0 {
			bp.Path = resp.Source.Path
			bp.Line = resp.Line
		}
	}
	return nil
}

// persistedBreakpoints is the on-disk JSON shape for SaveToDisk/LoadFromDisk.
type persistedBreakpoints struct {
	Version     int           `json:"version"`
	Breakpoints []*Breakpoint `json:"breakpoints"`
}

// SaveToDisk persists every breakpoint to persistPath. Never called
// by the engine itself.
func (c *BreakpointCollection) SaveToDisk() error {
	c.mu.RLock()
	path := c.persistPath
	data := persistedBreakpoints{Version: 1, Breakpoints: c.AllBreakpoints()}
	c.mu.RUnlock()

	if path == "" {
		return newErr(KindInternal, "persist path not set")
	}

	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return wrapErr(KindInternal, "marshal breakpoints", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return wrapErr(KindInternal, "create breakpoint persist directory", err)
	}
	return os.WriteFile(path, content, 0o644)
}

// LoadFromDisk restores breakpoints from persistPath, replacing the
// current collection. Never called by the engine itself.
func (c *BreakpointCollection) LoadFromDisk() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.persistPath == "" {
		return newErr(KindInternal, "persist path not set")
	}

	content, err := os.ReadFile(c.persistPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapErr(KindInternal, "read persisted breakpoints", err)
	}

	var data persistedBreakpoints
	if err := json.Unmarshal(content, &data); err != nil {
		return wrapErr(KindInternal, "unmarshal persisted breakpoints", err)
	}

	c.byIndex = make(map[int]*Breakpoint)
	maxIdx := -1
	for _, bp := range data.Breakpoints {
		bp.ID = 0
		bp.Verified = false
		c.byIndex[bp.Index] = bp
		if bp.Index > maxIdx {
			maxIdx = bp.Index
		}
	}
	c.nextIdx = maxIdx + 1
	return nil
}
