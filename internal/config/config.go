// internal/config/config.go
//
// This package handles configuration and the ~/.burrow directory structure.
// Every machine that runs burrow gets a .burrow/ folder under the operator's
// home directory holding the config file, logs, and the module working copy.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	// BurrowDir is the name of the directory we create in the operator's home.
	BurrowDir = ".burrow"

	configFileName = "config.yaml"
	logFileName    = "burrow.log"
)

const defaultConfigYAML = `# burrow configuration
version: 1

source:
  # Remote module catalog. Any URL git can clone works here.
  repository: https://github.com/burrowlabs/modules
  branch: main
  # Reconciliation policy for an existing working copy:
  #   preserve - stash local edits, rebase onto the remote, reapply.
  #   discard  - delete the working copy and clone fresh. Local edits are lost.
  policy: preserve

catalog:
  # Working copy location. Relative paths resolve under ~/.burrow.
  dir: catalog
  # Files ending with this suffix are treated as installable modules.
  suffix: _setup.sh

options:
  # Pre-selects the "stream live output" toggle on the checklist.
  stream_output: false
`

// SourceConfig declares where the module catalog lives and how an existing
// working copy is reconciled against it.
type SourceConfig struct {
	Repository string `yaml:"repository" validate:"required"`
	Branch     string `yaml:"branch"`
	Policy     string `yaml:"policy" validate:"oneof=preserve discard"`
}

// CatalogConfig controls module discovery inside the working copy.
type CatalogConfig struct {
	Dir    string `yaml:"dir" validate:"required"`
	Suffix string `yaml:"suffix" validate:"required"`
}

// Options holds the default state of the checklist mode toggles.
type Options struct {
	StreamOutput bool `yaml:"stream_output"`
}

// Config models ~/.burrow/config.yaml plus the resolved state directory.
type Config struct {
	Version int           `yaml:"version"`
	Source  SourceConfig  `yaml:"source" validate:"required"`
	Catalog CatalogConfig `yaml:"catalog" validate:"required"`
	Options Options       `yaml:"options"`

	// StateDir is the resolved ~/.burrow directory. Not part of the file.
	StateDir string `yaml:"-"`
}

// Load resolves the operator's home directory, initializes the .burrow tree,
// and reads (creating if absent) the config file.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("config: resolve home directory: %w", err)
	}
	return LoadFrom(filepath.Join(home, BurrowDir))
}

// LoadFrom loads configuration rooted at an explicit state directory.
// Tests use this to avoid touching the real home directory.
func LoadFrom(stateDir string) (*Config, error) {
	if err := initStateDir(stateDir); err != nil {
		return nil, err
	}
	path := filepath.Join(stateDir, configFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if werr := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); werr != nil {
			return nil, fmt.Errorf("config: write default config: %w", werr)
		}
		data = []byte(defaultConfigYAML)
	} else if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{StateDir: stateDir}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Source.Policy) == "" {
		c.Source.Policy = "preserve"
	}
	if strings.TrimSpace(c.Catalog.Dir) == "" {
		c.Catalog.Dir = "catalog"
	}
	if strings.TrimSpace(c.Catalog.Suffix) == "" {
		c.Catalog.Suffix = "_setup.sh"
	}
}

// WorkingCopyDir returns the absolute path of the module working copy.
// Relative catalog dirs resolve under the state directory.
func (c *Config) WorkingCopyDir() string {
	dir := strings.TrimSpace(c.Catalog.Dir)
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.StateDir, dir)
}

// LogPath returns the run log location under the state directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.StateDir, "logs", logFileName)
}

// initStateDir creates the .burrow directory structure.
//
// Structure created:
// .burrow/
// ├── logs/     <- run log, tailed by the TUI
// └── catalog/  <- default working copy location (created by the syncer)
func initStateDir(stateDir string) error {
	dirs := []string{
		stateDir,
		filepath.Join(stateDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return nil
}
