// Package config provides the layered configuration system for nuclide.
//
// The config package manages loading, merging, validating, and providing
// access to debugger settings: default adapter selection, breakpoint
// persistence, console presentation, and logging behavior.
//
// # Architecture
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Environment Variables   │  ← Highest priority, NUCLIDE_* prefix
//	├─────────────────────────────┤
//	│  3. Project/Workspace       │  ← <project config dir>/config.toml
//	├─────────────────────────────┤
//	│  2. User Settings           │  ← ~/.config/nuclide/settings.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: Configuration file loading (TOML, environment variables)
//   - layer: Layer management and merging strategies
//   - schema: JSON Schema validation
//   - watcher: File watching for live reload
//   - notify: Change notification and observer pattern
//
// # Basic Usage
//
// Load configuration from default paths:
//
//	cfg := config.New()
//	if err := cfg.Load(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Access typed settings
//	retries, _ := cfg.GetInt("adapter.connectRetries")
//
//	// Access typed sections
//	adapter := cfg.Adapter()
//	fmt.Println(adapter.Type)
//
// # Type-Safe Access
//
// Typed section accessors fall back to documented defaults and record the
// failure (retrievable via ConfigErrors) rather than panicking, so a
// malformed settings file degrades the session instead of aborting it:
//
//	// Using generic accessor
//	retries, err := cfg.GetInt("adapter.connectRetries")
//	if err != nil {
//	    // Handle error (wrong type or unknown setting)
//	}
//
//	// Using typed section
//	adapter := cfg.Adapter() // Compile-time type safety, defaulted on error
//
// # Configuration Files
//
// nuclide uses TOML as the primary configuration format:
//
//	# ~/.config/nuclide/settings.toml
//	[adapter]
//	type = "delve"
//	request = "launch"
//
//	[console]
//	prompt = "(nuclide) "
//
// # Error Handling
//
// The package defines several error types:
//
//   - ErrSettingNotFound: Setting path doesn't exist
//   - ErrTypeMismatch: Value type doesn't match expected type
//   - ErrValidationFailed: Value fails schema validation
//   - ParseError: Configuration file parsing failed
//   - ErrFileNotFound: Configuration file doesn't exist
package config
