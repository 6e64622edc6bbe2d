package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maintains all known settings definitions and provides
// type-safe access to setting values.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]*Setting
	sections map[string][]*Setting // Settings grouped by section
}

// New creates a new settings registry.
func New() *Registry {
	return &Registry{
		settings: make(map[string]*Setting),
		sections: make(map[string][]*Setting),
	}
}

// NewWithDefaults creates a registry with built-in default settings.
func NewWithDefaults() *Registry {
	r := New()
	r.RegisterDefaults()
	return r
}

// Register adds a setting definition to the registry.
// Returns an error if a setting with the same path already exists.
func (r *Registry) Register(setting Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.settings[setting.Path]; exists {
		return fmt.Errorf("%w: %s", ErrSettingAlreadyRegistered, setting.Path)
	}

	s := &setting // Copy to heap
	r.settings[setting.Path] = s

	// Add to section index
	section := extractSection(setting.Path)
	r.sections[section] = append(r.sections[section], s)

	return nil
}

// MustRegister registers a setting and panics on error.
// Useful for registering built-in settings at init time.
func (r *Registry) MustRegister(setting Setting) {
	if err := r.Register(setting); err != nil {
		panic(err)
	}
}

// Get returns the setting definition for the given path.
// Returns nil if the setting is not registered.
func (r *Registry) Get(path string) *Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings[path]
}

// Has checks if a setting is registered.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.settings[path]
	return exists
}

// All returns all registered settings sorted by path.
func (r *Registry) All() []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Setting, 0, len(r.settings))
	for _, s := range r.settings {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})

	return result
}

// Section returns all settings in a given section (e.g., "editor").
func (r *Registry) Section(name string) []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	settings := r.sections[name]
	result := make([]*Setting, len(settings))
	copy(result, settings)
	return result
}

// Sections returns all section names.
func (r *Registry) Sections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.sections))
	for section := range r.sections {
		result = append(result, section)
	}
	sort.Strings(result)
	return result
}

// Search finds settings matching a query string.
// Searches path, description, and tags.
func (r *Registry) Search(query string) []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query = strings.ToLower(query)
	var result []*Setting

	for _, s := range r.settings {
		if matchesSetting(s, query) {
			result = append(result, s)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})

	return result
}

// ByTag returns all settings with the given tag.
func (r *Registry) ByTag(tag string) []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Setting
	for _, s := range r.settings {
		for _, t := range s.Tags {
			if t == tag {
				result = append(result, s)
				break
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})

	return result
}

// Deprecated returns all deprecated settings.
func (r *Registry) Deprecated() []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Setting
	for _, s := range r.settings {
		if s.Deprecated {
			result = append(result, s)
		}
	}
	return result
}

// Default returns the default value for a setting.
// Returns nil if the setting is not registered.
func (r *Registry) Default(path string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.settings[path]; ok {
		return s.Default
	}
	return nil
}

// Defaults returns a map of all default values.
func (r *Registry) Defaults() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]any, len(r.settings))
	for path, s := range r.settings {
		if s.Default != nil {
			result[path] = s.Default
		}
	}
	return result
}

// Validate checks if a value is valid for a setting.
func (r *Registry) Validate(path string, value any) error {
	r.mu.RLock()
	s, ok := r.settings[path]
	r.mu.RUnlock()

	if !ok {
		// Unknown setting - could be a plugin setting.
		// Unknown settings are allowed without any check.
		return nil
	}

	return s.Validate(value)
}

// extractSection extracts the top-level section from a path.
func extractSection(path string) string {
	parts := strings.SplitN(path, ".", 2)
	return parts[0]
}

// matchesSetting checks if a setting matches a search query.
func matchesSetting(s *Setting, query string) bool {
	// Match path
	if strings.Contains(strings.ToLower(s.Path), query) {
		return true
	}

	// Match description
	if strings.Contains(strings.ToLower(s.Description), query) {
		return true
	}

	// Match tags
	for _, tag := range s.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}

	return false
}

// ErrSettingAlreadyRegistered is returned when attempting to register a duplicate setting.
var ErrSettingAlreadyRegistered = fmt.Errorf("setting already registered")

// RegisterDefaults registers all built-in nuclide debugger settings.
func (r *Registry) RegisterDefaults() {
	// Adapter settings
	r.MustRegister(Setting{
		Path:        "adapter.type",
		Type:        TypeEnum,
		Default:     "delve",
		Description: "Default DAP adapter backend used when none is specified on launch",
		Scope:       ScopeAll,
		Enum:        []any{"delve", "nodejs", "python", "lldb", "generic"},
		Tags:        []string{"adapter"},
	})

	r.MustRegister(Setting{
		Path:        "adapter.request",
		Type:        TypeEnum,
		Default:     "launch",
		Description: "Default DAP request kind used to start a session",
		Scope:       ScopeAll,
		Enum:        []any{"launch", "attach"},
		Tags:        []string{"adapter"},
	})

	r.MustRegister(Setting{
		Path:        "adapter.stopOnEntry",
		Type:        TypeBool,
		Default:     false,
		Description: "Pause at the program's entry point before running",
		Scope:       ScopeAll,
		Tags:        []string{"adapter"},
	})

	r.MustRegister(Setting{
		Path:        "adapter.connectRetries",
		Type:        TypeInt,
		Default:     20,
		Description: "Number of times to retry connecting to an adapter's DAP port before failing",
		Scope:       ScopeAll,
		Minimum:     MinValue(0),
		Maximum:     MaxValue(1000),
		Tags:        []string{"adapter"},
	})

	// Breakpoint settings
	r.MustRegister(Setting{
		Path:        "breakpoints.persist",
		Type:        TypeBool,
		Default:     false,
		Description: "Persist breakpoints to disk between sessions",
		Scope:       ScopeAll,
		Tags:        []string{"breakpoints"},
	})

	r.MustRegister(Setting{
		Path:        "breakpoints.storagePath",
		Type:        TypeString,
		Default:     "",
		Description: "File path used to persist breakpoints when persist is enabled",
		Scope:       ScopeAll,
		Tags:        []string{"breakpoints"},
	})

	// Console settings
	r.MustRegister(Setting{
		Path:        "console.muteOutputCategories",
		Type:        TypeArray,
		Default:     []string{"telemetry"},
		Description: "DAP output event categories suppressed from the console",
		Scope:       ScopeAll,
		Tags:        []string{"console"},
	})

	r.MustRegister(Setting{
		Path:        "console.prompt",
		Type:        TypeString,
		Default:     "(nuclide) ",
		Description: "REPL prompt text",
		Scope:       ScopeAll,
		Tags:        []string{"console"},
	})

	// Logging settings
	r.MustRegister(Setting{
		Path:        "logging.level",
		Type:        TypeEnum,
		Default:     "info",
		Description: "Minimum severity of log records written by the application logger",
		Scope:       ScopeAll,
		Enum:        []any{"debug", "info", "warn", "error"},
		Tags:        []string{"logging"},
	})

	r.MustRegister(Setting{
		Path:        "logging.format",
		Type:        TypeEnum,
		Default:     "text",
		Description: "Log record encoding",
		Scope:       ScopeAll,
		Enum:        []any{"text", "json"},
		Tags:        []string{"logging"},
	})
}
