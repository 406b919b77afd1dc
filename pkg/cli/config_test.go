package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFrom_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFile)
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom error: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	if cfg.ServeAddr() != DefaultServeAddr {
		t.Errorf("ServeAddr() = %q, want %q", cfg.ServeAddr(), DefaultServeAddr)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("LoadConfigFrom created %s", path)
	}
}

func TestLoadConfigFrom(t *testing.T) {
	path := writeConfig(t, `
import_paths:
  - /opt/scripts
  - lib
api_version: "1.4"
max_depth: 16
log_level: debug
settings:
  backend: badger
  dir: state
serve:
  addr: ":9000"
`)
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom error: %v", err)
	}
	if len(cfg.ImportPaths) != 2 || cfg.ImportPaths[1] != "lib" {
		t.Errorf("ImportPaths = %v", cfg.ImportPaths)
	}
	if cfg.APIVersion != "1.4" || cfg.MaxDepth != 16 {
		t.Errorf("APIVersion, MaxDepth = %q, %d", cfg.APIVersion, cfg.MaxDepth)
	}
	if cfg.ServeAddr() != ":9000" {
		t.Errorf("ServeAddr() = %q", cfg.ServeAddr())
	}
	if want := filepath.Join(cfg.Dir(), "state"); cfg.SettingsDir() != want {
		t.Errorf("SettingsDir() = %q, want %q", cfg.SettingsDir(), want)
	}
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "import_paths: [", "failed to parse config"},
		{"backend", "settings:\n  backend: redis\n", "unknown settings backend"},
		{"level", "log_level: loud\n", "unknown log level"},
		{"depth", "max_depth: -1\n", "max_depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFrom(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", DefaultConfigFile)
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.APIVersion = "1.2"
	cfg.ImportPaths = []string{"a", "b"}
	cfg.Settings.Backend = "memory"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if got.APIVersion != "1.2" || len(got.ImportPaths) != 2 || got.Settings.Backend != "memory" {
		t.Errorf("reloaded config = %+v", got)
	}
}

func TestConfig_SettingsDirAbsolute(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{path: filepath.Join(t.TempDir(), DefaultConfigFile)}
	cfg.Settings.Dir = dir
	if cfg.SettingsDir() != dir {
		t.Errorf("SettingsDir() = %q, want %q", cfg.SettingsDir(), dir)
	}
	cfg.Settings.Dir = ""
	if want := filepath.Join(cfg.Dir(), "settings"); cfg.SettingsDir() != want {
		t.Errorf("SettingsDir() = %q, want %q", cfg.SettingsDir(), want)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
