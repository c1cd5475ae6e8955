// Package config loads casectl configuration from an optional YAML file and
// CASEFLOW_* environment variables.
//
// Precedence, lowest first: built-in defaults, the YAML file, the
// environment. Command-line flags are applied by the caller on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	cflog "github.com/roach88/caseflow/internal/log"
	"github.com/roach88/caseflow/internal/store"
)

// DefaultDBPath is used when neither the file nor the environment names a
// database.
const DefaultDBPath = "caseflow.db"

// Log output formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config is the complete casectl configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Policy   PolicyConfig   `yaml:"policy"`
}

// DatabaseConfig selects the SQLite driver and file.
type DatabaseConfig struct {
	// Driver is store.DriverCGO ("sqlite3") or store.DriverPure ("sqlite").
	Driver string `yaml:"driver" env:"CASEFLOW_DB_DRIVER"`
	Path   string `yaml:"path" env:"CASEFLOW_DB_PATH"`
}

// LogConfig controls the base logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"CASEFLOW_LOG_LEVEL"`
	Format string `yaml:"format" env:"CASEFLOW_LOG_FORMAT"`
}

// PolicyConfig points at an optional CUE guard policy. Empty means the
// built-in policy.
type PolicyConfig struct {
	Path string `yaml:"path" env:"CASEFLOW_POLICY_PATH"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: store.DriverCGO, Path: DefaultDBPath},
		Log:      LogConfig{Level: "warn", Format: LogFormatJSON},
	}
}

// Loader reads configuration. The zero value reads the OS filesystem and
// environment.
type Loader struct {
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func (l Loader) Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		fs := l.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: l.Environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load is Loader{}.Load.
func Load(path string) (Config, error) {
	return Loader{}.Load(path)
}

// decodeYAML rejects unknown keys so typos do not silently fall back to
// defaults.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case store.DriverCGO, store.DriverPure:
	default:
		errs = append(errs, fmt.Errorf("database.driver: %q is not one of %q, %q",
			c.Database.Driver, store.DriverCGO, store.DriverPure))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path: must not be empty"))
	}
	if _, err := cflog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case LogFormatJSON, LogFormatConsole:
	default:
		errs = append(errs, fmt.Errorf("log.format: %q is not one of %q, %q",
			c.Log.Format, LogFormatJSON, LogFormatConsole))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
