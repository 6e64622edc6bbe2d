package debug

import "sort"

// Thread is a value object describing one adapter-reported thread of
// execution: its id, display name, whether it is currently stopped,
// and which stack frame the user has selected.
type Thread struct {
	id            int
	name          string
	stopped       bool
	selectedFrame int
}

// NewThread creates a running thread with no frame selected.
func NewThread(id int, name string) *Thread {
	return &Thread{id: id, name: name}
}

// ID returns the thread's adapter-assigned identifier.
func (t *Thread) ID() int { return t.id }

// Name returns the thread's display name.
func (t *Thread) Name() string { return t.name }

// IsStopped reports whether the thread is currently paused.
func (t *Thread) IsStopped() bool { return t.stopped }

// SelectedStackFrame returns the index of the frame the user is
// currently inspecting on this thread.
func (t *Thread) SelectedStackFrame() int { return t.selectedFrame }

// SetSelectedStackFrame updates the selected frame index.
func (t *Thread) SetSelectedStackFrame(n int) { t.selectedFrame = n }

// ClearSelectedStackFrame resets the selected frame to 0, the frame
// nearest the top of the stack.
func (t *Thread) ClearSelectedStackFrame() { t.selectedFrame = 0 }

// ThreadCollection is the set of threads known to the engine. It
// tracks which thread currently has "focus" — the implicit subject of
// stack/variable inspection commands that name no thread.
type ThreadCollection struct {
	threads map[int]*Thread
	focusID *int
}

// NewThreadCollection returns an empty collection with no focus thread.
func NewThreadCollection() *ThreadCollection {
	return &ThreadCollection{threads: make(map[int]*Thread)}
}

// AddThread registers a new thread.
func (c *ThreadCollection) AddThread(t *Thread) {
	c.threads[t.id] = t
}

// RemoveThread drops a thread from the collection. If it held focus,
// focus is cleared.
func (c *ThreadCollection) RemoveThread(id int) {
	delete(c.threads, id)
	if c.focusID != nil && *c.focusID == id {
		c.focusID = nil
	}
}

// UpdateThreads replaces the collection by id with the supplied list,
// preserving stopped state and selected frame for ids that already
// existed, and preserving focus if the focused id is still present.
func (c *ThreadCollection) UpdateThreads(list []Thread) {
	next := make(map[int]*Thread, len(list))
	for _, incoming := range list {
		if existing, ok := c.threads[incoming.id]; ok {
			existing.name = incoming.name
			next[incoming.id] = existing
			continue
		}
		t := incoming
		next[t.id] = &t
	}
	c.threads = next

	if c.focusID != nil {
		if _, ok := c.threads[*c.focusID]; !ok {
			c.focusID = nil
		}
	}
}

// GetThreadById returns the thread with the given id, or nil.
func (c *ThreadCollection) GetThreadById(id int) *Thread {
	return c.threads[id]
}

// AllThreads returns every thread, ordered by ascending id for stable
// display.
func (c *ThreadCollection) AllThreads() []*Thread {
	result := make([]*Thread, 0, len(c.threads))
	for _, t := range c.threads {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].id < result[j].id })
	return result
}

// MarkThreadRunning marks a single thread running and resets its
// selected frame.
func (c *ThreadCollection) MarkThreadRunning(id int) {
	if t, ok := c.threads[id]; ok {
		t.stopped = false
		t.ClearSelectedStackFrame()
	}
}

// MarkAllThreadsRunning marks every thread running.
func (c *ThreadCollection) MarkAllThreadsRunning() {
	for _, t := range c.threads {
		t.stopped = false
		t.ClearSelectedStackFrame()
	}
}

// MarkThreadStopped marks a single thread stopped.
func (c *ThreadCollection) MarkThreadStopped(id int) {
	if t, ok := c.threads[id]; ok {
		t.stopped = true
	}
}

// MarkAllThreadsStopped marks every thread stopped.
func (c *ThreadCollection) MarkAllThreadsStopped() {
	for _, t := range c.threads {
		t.stopped = true
	}
}

// AllThreadsRunning reports whether every known thread is running. An
// empty collection counts as "all running".
func (c *ThreadCollection) AllThreadsRunning() bool {
	for _, t := range c.threads {
		if t.stopped {
			return false
		}
	}
	return true
}

// FirstStoppedThread returns a stopped thread, breaking ties by
// ascending id, or nil if none are stopped.
func (c *ThreadCollection) FirstStoppedThread() *Thread {
	var best *Thread
	for _, t := range c.threads {
		if !t.stopped {
			continue
		}
		if best == nil || t.id < best.id {
			best = t
		}
	}
	return best
}

// SetFocusThread sets the focus thread id. It is the caller's
// responsibility to ensure id refers to an existing thread.
func (c *ThreadCollection) SetFocusThread(id int) {
	v := id
	c.focusID = &v
}

// FocusThread returns the focused thread, or nil if no thread has
// focus.
func (c *ThreadCollection) FocusThread() *Thread {
	if c.focusID == nil {
		return nil
	}
	return c.threads[*c.focusID]
}

// FocusThreadId returns the focused thread id and whether one is set.
func (c *ThreadCollection) FocusThreadId() (int, bool) {
	if c.focusID == nil {
		return 0, false
	}
	return *c.focusID, true
}

// Clear removes every thread and the focus, used on session close.
func (c *ThreadCollection) Clear() {
	c.threads = make(map[int]*Thread)
	c.focusID = nil
}
