// Package config loads liftws settings from a liftws.toml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	liftErrors "github.com/FocuswithJustin/liftws/core/errors"
	"github.com/FocuswithJustin/liftws/internal/logging"
)

// FileName is the name of the configuration file searched for.
const FileName = "liftws.toml"

// Config holds all settings.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Backup   BackupConfig   `toml:"backup"`
	Registry RegistryConfig `toml:"registry"`

	// Path is the file the settings were read from, empty for defaults.
	Path string `toml:"-"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
}

// BackupConfig controls the backup written before a file is replaced.
type BackupConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // empty: a .liftws-backup directory next to each file
}

// RegistryConfig locates the writing-system registry database.
type RegistryConfig struct {
	Path string `toml:"path"`
}

// Default returns the settings used when no file is found.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Backup:   BackupConfig{Enabled: true},
		Registry: RegistryConfig{Path: "writing-systems.db"},
	}
}

// Find looks for FileName in startDir and its parents.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads the file at path over the defaults. Relative paths inside the
// file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, liftErrors.NewIO("read", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, parseError(path, err)
	}
	cfg.Path = path

	base := filepath.Dir(path)
	if cfg.Registry.Path != "" && !filepath.IsAbs(cfg.Registry.Path) {
		cfg.Registry.Path = filepath.Join(base, cfg.Registry.Path)
	}
	if cfg.Backup.Dir != "" && !filepath.IsAbs(cfg.Backup.Dir) {
		cfg.Backup.Dir = filepath.Join(base, cfg.Backup.Dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the file at explicit when set; otherwise it searches from
// startDir and falls back to the defaults when nothing is found.
func Discover(explicit, startDir string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks values that can be wrong.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return liftErrors.NewValidation("[log].level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return liftErrors.NewValidation("[log].format", err.Error())
	}
	return nil
}

// parseError turns a decode failure into a ParseError, keeping the line
// when the decoder reports one.
func parseError(path string, err error) error {
	perr := liftErrors.NewParse("TOML", path, err.Error())
	perr.Err = err

	var terr toml.ParseError
	if liftErrors.As(err, &terr) {
		perr.Line = terr.Position.Line
		perr.Message = terr.Message
	}
	return perr
}

// BackupDirFor returns where the backup of the file at path goes, or ""
// when backups are disabled.
func (c *Config) BackupDirFor(path string) string {
	if !c.Backup.Enabled {
		return ""
	}
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(filepath.Dir(path), ".liftws-backup")
}
