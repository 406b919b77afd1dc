package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the starside directories under os.UserConfigDir().
// STARSIDE_CONFIG_DIR overrides the root.
type Paths struct {
	Root string
}

// NewPaths resolves the root directory.
func NewPaths() (*Paths, error) {
	if dir := os.Getenv("STARSIDE_CONFIG_DIR"); dir != "" {
		return &Paths{Root: dir}, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &Paths{Root: filepath.Join(base, DefaultAppDir)}, nil
}

// ConfigFile returns <root>/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.Root, DefaultConfigFile)
}

// ScriptsDir returns <root>/scripts, which is always on the import path.
func (p *Paths) ScriptsDir() string {
	return filepath.Join(p.Root, "scripts")
}

// EnsureScriptsDir creates the scripts directory if it doesn't exist
func (p *Paths) EnsureScriptsDir() error {
	return os.MkdirAll(p.ScriptsDir(), 0755)
}
