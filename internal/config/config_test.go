package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Test API defaults
	if cfg.API.BaseURL != "https://v2.jokeapi.dev" {
		t.Errorf("API.BaseURL = %s, want https://v2.jokeapi.dev", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want 10s", cfg.API.Timeout)
	}
	if cfg.API.UserAgent == "" {
		t.Error("API.UserAgent should not be empty")
	}

	// Test fetch policy defaults
	if cfg.Jokes.BatchSize != 2 {
		t.Errorf("Jokes.BatchSize = %d, want 2", cfg.Jokes.BatchSize)
	}
	if cfg.Jokes.MaxPerCategory != 6 {
		t.Errorf("Jokes.MaxPerCategory = %d, want 6", cfg.Jokes.MaxPerCategory)
	}
	if cfg.Jokes.RefreshFloor != 1*time.Second {
		t.Errorf("Jokes.RefreshFloor = %v, want 1s", cfg.Jokes.RefreshFloor)
	}

	// Logging stays off so the TUI is never drawn over
	if cfg.Log.Level != "off" {
		t.Errorf("Log.Level = %s, want 'off'", cfg.Log.Level)
	}

	// Test key bindings
	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Keys.Bindings.GoTop != "t" {
		t.Errorf("Keys.Bindings.GoTop = %s, want 't'", cfg.Keys.Bindings.GoTop)
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Jokes.BatchSize != 2 {
		t.Errorf("Jokes.BatchSize = %d, want 2", cfg.Jokes.BatchSize)
	}
	if cfg.API.BaseURL != "https://v2.jokeapi.dev" {
		t.Errorf("API.BaseURL = %s, want https://v2.jokeapi.dev", cfg.API.BaseURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("QUIP_JOKES_BATCH_SIZE", "3")
	t.Setenv("QUIP_LOG_LEVEL", "debug")
	t.Setenv("QUIP_API_TIMEOUT", "4s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Jokes.BatchSize != 3 {
		t.Errorf("Jokes.BatchSize = %d, want 3 from QUIP_JOKES_BATCH_SIZE", cfg.Jokes.BatchSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug from QUIP_LOG_LEVEL", cfg.Log.Level)
	}
	if cfg.API.Timeout != 4*time.Second {
		t.Errorf("API.Timeout = %v, want 4s from QUIP_API_TIMEOUT", cfg.API.Timeout)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[api]
timeout = "3s"
user_agent = "test-agent"
blacklist_flags = ["nsfw", "racist"]

[jokes]
batch_size = 3
max_per_category = 9

[ui.colors]
primary = "#FF0000"
`

	if writeErr := os.WriteFile(configPath, []byte(configContent), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.API.UserAgent != "test-agent" {
		t.Errorf("API.UserAgent = %s, want 'test-agent'", cfg.API.UserAgent)
	}
	if len(cfg.API.BlacklistFlags) != 2 || cfg.API.BlacklistFlags[0] != "nsfw" {
		t.Errorf("API.BlacklistFlags = %v, want [nsfw racist]", cfg.API.BlacklistFlags)
	}
	if cfg.Jokes.BatchSize != 3 {
		t.Errorf("Jokes.BatchSize = %d, want 3", cfg.Jokes.BatchSize)
	}
	if cfg.Jokes.MaxPerCategory != 9 {
		t.Errorf("Jokes.MaxPerCategory = %d, want 9", cfg.Jokes.MaxPerCategory)
	}
	// Keys not present in the file fall back to defaults
	if cfg.API.BaseURL != "https://v2.jokeapi.dev" {
		t.Errorf("API.BaseURL = %s, want default", cfg.API.BaseURL)
	}
	if cfg.Jokes.RefreshFloor != time.Second {
		t.Errorf("Jokes.RefreshFloor = %v, want 1s", cfg.Jokes.RefreshFloor)
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want '#FF0000'", cfg.UI.Colors.Primary)
	}
	if cfg.UI.Colors.Secondary != "#4ECDC4" {
		t.Errorf("UI.Colors.Secondary = %s, want default", cfg.UI.Colors.Secondary)
	}
}

func TestLoad_RejectsInvalidPolicy(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "zero batch size",
			content: "[jokes]\nbatch_size = 0\n",
		},
		{
			name:    "max below batch",
			content: "[jokes]\nbatch_size = 4\nmax_per_category = 2\n",
		},
		{
			name:    "localhost base url",
			content: "[api]\nbase_url = \"http://localhost:8080\"\n",
		},
		{
			name:    "non-http base url",
			content: "[api]\nbase_url = \"ftp://jokes.example.org\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error, got nil")
			}
		})
	}
}

func TestLoad_AllowLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[api]\nbase_url = \"http://127.0.0.1:8080\"\nallow_local = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://127.0.0.1:8080" {
		t.Errorf("API.BaseURL = %s, want http://127.0.0.1:8080", cfg.API.BaseURL)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := defaultConfig()
	cfg.API.UserAgent = "test-save-agent"
	cfg.API.Timeout = 45 * time.Second
	cfg.Jokes.BatchSize = 1
	cfg.Jokes.RefreshFloor = 2 * time.Second
	cfg.UI.Colors.Primary = "#00FF00"
	cfg.Keys.Modifier = "alt"
	cfg.Keys.Bindings.AddMore = "m"

	savePath := filepath.Join(tmpDir, "nested", "saved-config.toml")
	if saveErr := Save(cfg, savePath); saveErr != nil {
		t.Fatalf("Save() error = %v", saveErr)
	}

	if _, statErr := os.Stat(savePath); os.IsNotExist(statErr) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.API.UserAgent != cfg.API.UserAgent {
		t.Errorf("Loaded API.UserAgent = %s, want %s", loaded.API.UserAgent, cfg.API.UserAgent)
	}
	if loaded.API.Timeout != cfg.API.Timeout {
		t.Errorf("Loaded API.Timeout = %v, want %v", loaded.API.Timeout, cfg.API.Timeout)
	}
	if loaded.Jokes.BatchSize != 1 {
		t.Errorf("Loaded Jokes.BatchSize = %d, want 1", loaded.Jokes.BatchSize)
	}
	if loaded.Jokes.RefreshFloor != 2*time.Second {
		t.Errorf("Loaded Jokes.RefreshFloor = %v, want 2s", loaded.Jokes.RefreshFloor)
	}
	if loaded.UI.Colors.Primary != "#00FF00" {
		t.Errorf("Loaded UI.Colors.Primary = %s, want #00FF00", loaded.UI.Colors.Primary)
	}
	if loaded.Keys.Modifier != cfg.Keys.Modifier {
		t.Errorf("Loaded Keys.Modifier = %s, want %s", loaded.Keys.Modifier, cfg.Keys.Modifier)
	}
	if loaded.Keys.Bindings.AddMore != "m" {
		t.Errorf("Loaded Keys.Bindings.AddMore = %s, want m", loaded.Keys.Bindings.AddMore)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if genErr := GenerateDefaultConfig(configPath); genErr != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", genErr)
	}

	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		t.Fatal("GenerateDefaultConfig() did not create file")
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Generated config has Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Jokes.MaxPerCategory != 6 {
		t.Errorf("Generated config has Jokes.MaxPerCategory = %d, want 6", cfg.Jokes.MaxPerCategory)
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg == nil {
		t.Fatal("TestConfig() returned nil")
	}

	if cfg.API.UserAgent != "quip-test/1.0" {
		t.Errorf("TestConfig API.UserAgent = %s, want 'quip-test/1.0'", cfg.API.UserAgent)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("TestConfig should validate: %v", err)
	}
}

func TestEncode(t *testing.T) {
	cfg := defaultConfig()
	cfg.API.BlacklistFlags = []string{"nsfw", "racist"}
	cfg.Jokes.RefreshFloor = 1500 * time.Millisecond

	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"[api]", "[jokes]", "[keys.bindings]", "refresh_floor = '1.5s'", "'nsfw'"} {
		if !strings.Contains(out, want) {
			t.Errorf("Encode() output missing %q:\n%s", want, out)
		}
	}

	// The encoded form is a loadable config file
	path := filepath.Join(t.TempDir(), "encoded.toml")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of encoded config error = %v", err)
	}
	if loaded.Jokes.RefreshFloor != 1500*time.Millisecond {
		t.Errorf("RefreshFloor = %v, want 1.5s", loaded.Jokes.RefreshFloor)
	}
	if len(loaded.API.BlacklistFlags) != 2 {
		t.Errorf("BlacklistFlags = %v, want 2 entries", loaded.API.BlacklistFlags)
	}
}
