package debug

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// FetchByReference retrieves the full source text for a DAP
// sourceReference that has no filesystem path (the adapter is the
// only thing that can resolve it, via a "source" request).
type FetchByReference func(ref int) (string, error)

// sourceKey identifies a SourceFileCache entry: either a filesystem
// path or a DAP sourceReference, never both.
type sourceKey struct {
	path string
	ref  int
}

// SourceFileCache is a lazy, keyed cache of source-file line arrays,
// keyed by either filesystem path or DAP sourceReference. Entries are
// fetched once per key and kept until Flush is called.
type SourceFileCache struct {
	mu      sync.Mutex
	entries map[sourceKey][]string
	fetch   FetchByReference
}

// NewSourceFileCache creates an empty cache. fetchByRef resolves a
// sourceReference to its full text; it is invoked only by
// GetByReference, since GetByPath always reads the filesystem.
func NewSourceFileCache(fetchByRef FetchByReference) *SourceFileCache {
	return &SourceFileCache{
		entries: make(map[sourceKey][]string),
		fetch:   fetchByRef,
	}
}

// GetByPath returns the lines of the file at path, reading it from
// disk on first access. A read failure yields a single-element slice
// containing a human-readable error line rather than an error return;
// callers treat cache content as opaque display text.
func (c *SourceFileCache) GetByPath(path string) []string {
	key := sourceKey{path: path}

	c.mu.Lock()
	if lines, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return lines
	}
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	var lines []string
	if err != nil {
		lines = []string{fmt.Sprintf("<error reading %s: %v>", path, err)}
	} else {
		lines = splitLines(string(data))
	}

	c.mu.Lock()
	c.entries[key] = lines
	c.mu.Unlock()

	return lines
}

// GetByReference returns the lines of the source identified by a DAP
// sourceReference, invoking the caller-supplied fetch callback on
// first access.
func (c *SourceFileCache) GetByReference(ref int) []string {
	key := sourceKey{ref: ref}

	c.mu.Lock()
	if lines, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return lines
	}
	c.mu.Unlock()

	var lines []string
	if c.fetch == nil {
		lines = []string{fmt.Sprintf("<no fetch callback for sourceReference %d>", ref)}
	} else if text, err := c.fetch(ref); err != nil {
		lines = []string{fmt.Sprintf("<error fetching sourceReference %d: %v>", ref, err)}
	} else {
		lines = splitLines(text)
	}

	c.mu.Lock()
	c.entries[key] = lines
	c.mu.Unlock()

	return lines
}

// Flush empties all cache entries.
func (c *SourceFileCache) Flush() {
	c.mu.Lock()
	c.entries = make(map[sourceKey][]string)
	c.mu.Unlock()
}

// splitLines splits text on line terminators, preserving order and
// the 1-based line numbering convention: line 1 lives at index 0.
func splitLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
