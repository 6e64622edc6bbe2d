package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/keystorm/internal/config/notify"
)

func TestConfigSystem_New(t *testing.T) {
	tmpDir := t.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	if sys.Config() == nil {
		t.Error("Config() returned nil")
	}

	if sys.LoadTime() == 0 {
		t.Error("LoadTime() returned 0")
	}

	if sys.LastReloadAt().IsZero() {
		t.Error("LastReloadAt() returned zero time")
	}
}

func TestConfigSystem_TypedAccessors(t *testing.T) {
	tmpDir := t.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	adapter := sys.Adapter()
	if adapter.Type != "delve" {
		t.Errorf("Adapter().Type = %q, want 'delve'", adapter.Type)
	}
	if adapter.Request != "launch" {
		t.Errorf("Adapter().Request = %q, want 'launch'", adapter.Request)
	}
	if adapter.ConnectRetries != 20 {
		t.Errorf("Adapter().ConnectRetries = %d, want 20", adapter.ConnectRetries)
	}

	bp := sys.Breakpoints()
	if bp.Persist {
		t.Error("Breakpoints().Persist = true, want false")
	}

	console := sys.Console()
	if len(console.MuteOutputCategories) != 1 || console.MuteOutputCategories[0] != "telemetry" {
		t.Errorf("Console().MuteOutputCategories = %v, want [telemetry]", console.MuteOutputCategories)
	}

	logging := sys.Logging()
	if logging.Level != "info" {
		t.Errorf("Logging().Level = %q, want 'info'", logging.Level)
	}
}

func TestConfigSystem_Registry(t *testing.T) {
	tmpDir := t.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	reg := sys.Registry()
	if reg == nil {
		t.Fatal("Registry() returned nil")
	}

	if !reg.Has("adapter.type") {
		t.Error("registry missing adapter.type")
	}

	if err := sys.Set("adapter.connectRetries", "not-an-int"); err == nil {
		t.Error("Set() with wrong type should fail registry validation")
	}
}

func TestConfigSystem_Health(t *testing.T) {
	tmpDir := t.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	health := sys.Health()

	if health.Status != HealthOK {
		t.Errorf("Health().Status = %v, want HealthOK", health.Status)
	}

	if health.ErrorCount != 0 {
		t.Errorf("Health().ErrorCount = %d, want 0", health.ErrorCount)
	}
}

func TestConfigSystem_Health_Degraded(t *testing.T) {
	tmpDir := t.TempDir()

	// Force a type-mismatch with a settings file whose adapter.type is a
	// non-string; Load does not validate file contents.
	settingsPath := filepath.Join(tmpDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte("[adapter]\ntype = 42\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	_ = sys.Adapter()

	health := sys.Health()
	if health.Status != HealthDegraded {
		t.Errorf("Health().Status = %v, want HealthDegraded", health.Status)
	}
	if health.ErrorCount == 0 {
		t.Error("Health().ErrorCount = 0, want > 0")
	}

	sys.ClearConfigErrors()
	if len(sys.ConfigErrors()) != 0 {
		t.Error("ConfigErrors() not empty after ClearConfigErrors()")
	}
}

func TestConfigSystem_Reload(t *testing.T) {
	tmpDir := t.TempDir()

	settingsPath := filepath.Join(tmpDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte("[adapter]\nconnectRetries = 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	retries, _ := sys.GetInt("adapter.connectRetries")
	if retries != 2 {
		t.Errorf("initial adapter.connectRetries = %d, want 2", retries)
	}

	if err := os.WriteFile(settingsPath, []byte("[adapter]\nconnectRetries = 8\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := sys.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	retries, _ = sys.GetInt("adapter.connectRetries")
	if retries != 8 {
		t.Errorf("after reload adapter.connectRetries = %d, want 8", retries)
	}
}

func TestConfigSystem_EndToEnd(t *testing.T) {
	tmpDir := t.TempDir()

	settingsContent := `
[adapter]
type = "nodejs"
request = "attach"
stopOnEntry = true

[breakpoints]
persist = true
storagePath = "/tmp/nuclide-breakpoints.json"

[logging]
level = "debug"
`
	settingsPath := filepath.Join(tmpDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte(settingsContent), 0644); err != nil {
		t.Fatal(err)
	}

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	adapter := sys.Adapter()
	if adapter.Type != "nodejs" {
		t.Errorf("Adapter().Type = %q, want 'nodejs'", adapter.Type)
	}
	if adapter.Request != "attach" {
		t.Errorf("Adapter().Request = %q, want 'attach'", adapter.Request)
	}
	if !adapter.StopOnEntry {
		t.Error("Adapter().StopOnEntry = false, want true")
	}

	bp := sys.Breakpoints()
	if !bp.Persist {
		t.Error("Breakpoints().Persist = false, want true")
	}
	if bp.StoragePath != "/tmp/nuclide-breakpoints.json" {
		t.Errorf("Breakpoints().StoragePath = %q, want the configured path", bp.StoragePath)
	}

	logging := sys.Logging()
	if logging.Level != "debug" {
		t.Errorf("Logging().Level = %q, want 'debug'", logging.Level)
	}
}

func TestConfigSystem_Subscription(t *testing.T) {
	tmpDir := t.TempDir()

	settingsPath := filepath.Join(tmpDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte("[adapter]\ntype = \"delve\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
		WithSystemSchemaValidation(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	var changes []notify.Change
	var mu sync.Mutex

	sub := sys.Subscribe(func(change notify.Change) {
		mu.Lock()
		changes = append(changes, change)
		mu.Unlock()
	})
	defer sub.Unsubscribe()

	_ = sys.Set("adapter.type", "python")
	_ = sys.Set("logging.level", "debug")

	mu.Lock()
	count := len(changes)
	mu.Unlock()

	if count != 2 {
		t.Errorf("received %d changes, want 2", count)
	}
}

func TestConfigSystem_ConcurrentAccess(t *testing.T) {
	tmpDir := t.TempDir()

	settingsPath := filepath.Join(tmpDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte("[adapter]\nconnectRetries = 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
		WithSystemSchemaValidation(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	var wg sync.WaitGroup
	iterations := 100

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sys.Adapter()
			_ = sys.Breakpoints()
			_, _ = sys.GetInt("adapter.connectRetries")
			_ = sys.Merged()
		}()
	}

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = sys.Set("adapter.connectRetries", i%10+1)
		}(i)
	}

	wg.Wait()
}

func TestHealthStatus_String(t *testing.T) {
	tests := []struct {
		status HealthStatus
		want   string
	}{
		{HealthOK, "ok"},
		{HealthDegraded, "degraded"},
		{HealthUnhealthy, "unhealthy"},
		{HealthStatus(99), "unknown"},
	}

	for _, tt := range tests {
		got := tt.status.String()
		if got != tt.want {
			t.Errorf("HealthStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func BenchmarkConfigSystem_Get(b *testing.B) {
	tmpDir := b.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		b.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sys.Get("adapter.type")
	}
}

func BenchmarkConfigSystem_Adapter(b *testing.B) {
	tmpDir := b.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		b.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sys.Adapter()
	}
}

func BenchmarkConfigSystem_Merged(b *testing.B) {
	tmpDir := b.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		b.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sys.Merged()
	}
}

func BenchmarkConfigSystem_ConcurrentReads(b *testing.B) {
	tmpDir := b.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		b.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = sys.Adapter()
			_, _ = sys.GetInt("adapter.connectRetries")
		}
	})
}

func TestConfigSystem_LoadTimePerformance(t *testing.T) {
	tmpDir := t.TempDir()

	settingsContent := `
[adapter]
type = "delve"
request = "launch"
stopOnEntry = false
connectRetries = 20

[breakpoints]
persist = false

[console]
prompt = "(nuclide) "

[logging]
level = "info"
format = "text"
`
	settingsPath := filepath.Join(tmpDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte(settingsContent), 0644); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	loadTime := time.Since(start)

	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	if loadTime > 50*time.Millisecond {
		t.Errorf("Load time = %v, want < 50ms", loadTime)
	}

	t.Logf("Config load time: %v", loadTime)
}

func TestConfigSystem_ClosedBehavior(t *testing.T) {
	tmpDir := t.TempDir()

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(false),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}

	sys.Close()

	if sys.Config() != nil {
		t.Error("Config() should return nil after Close()")
	}

	if err := sys.Reload(context.Background()); err != ErrSystemClosed {
		t.Errorf("Reload() after close = %v, want ErrSystemClosed", err)
	}

	if err := sys.Set("adapter.type", "delve"); err != ErrSystemClosed {
		t.Errorf("Set() after close = %v, want ErrSystemClosed", err)
	}

	if sub := sys.Subscribe(func(notify.Change) {}); sub != nil {
		t.Error("Subscribe() should return nil after Close()")
	}

	if sub := sys.SubscribePath("adapter", func(notify.Change) {}); sub != nil {
		t.Error("SubscribePath() should return nil after Close()")
	}

	// Close is idempotent.
	sys.Close()
}

func TestConfigSystem_FileWatchReload(t *testing.T) {
	tmpDir := t.TempDir()

	settingsPath := filepath.Join(tmpDir, "settings.toml")
	if err := os.WriteFile(settingsPath, []byte("[adapter]\nconnectRetries = 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sys, err := NewConfigSystem(context.Background(),
		WithSystemUserConfigDir(tmpDir),
		WithSystemWatcher(true),
	)
	if err != nil {
		t.Fatalf("NewConfigSystem() error = %v", err)
	}
	defer sys.Close()

	var reloadReceived atomic.Bool

	sub := sys.Subscribe(func(change notify.Change) {
		if change.Type == notify.ChangeReload {
			reloadReceived.Store(true)
		}
	})
	defer sub.Unsubscribe()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(settingsPath, []byte("[adapter]\nconnectRetries = 9\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !reloadReceived.Load() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	if !reloadReceived.Load() {
		t.Error("did not receive reload notification")
	}
}
