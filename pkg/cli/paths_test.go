package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPaths_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STARSIDE_CONFIG_DIR", dir)

	paths, err := NewPaths()
	if err != nil {
		t.Fatalf("NewPaths error: %v", err)
	}
	if paths.Root != dir {
		t.Errorf("Root = %q, want %q", paths.Root, dir)
	}
	if want := filepath.Join(dir, DefaultConfigFile); paths.ConfigFile() != want {
		t.Errorf("ConfigFile() = %q, want %q", paths.ConfigFile(), want)
	}
}

func TestNewPaths_Default(t *testing.T) {
	t.Setenv("STARSIDE_CONFIG_DIR", "")
	base, err := os.UserConfigDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	paths, err := NewPaths()
	if err != nil {
		t.Fatalf("NewPaths error: %v", err)
	}
	if want := filepath.Join(base, DefaultAppDir); paths.Root != want {
		t.Errorf("Root = %q, want %q", paths.Root, want)
	}
}

func TestPaths_EnsureScriptsDir(t *testing.T) {
	paths := &Paths{Root: t.TempDir()}
	if err := paths.EnsureScriptsDir(); err != nil {
		t.Fatalf("EnsureScriptsDir error: %v", err)
	}
	info, err := os.Stat(paths.ScriptsDir())
	if err != nil || !info.IsDir() {
		t.Errorf("ScriptsDir() not created: %v", err)
	}
}
