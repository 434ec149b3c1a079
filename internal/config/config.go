package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/asynkron/blockpatch/pkg/patch"
)

// DefaultFile is read from the working directory when no config path is given.
const DefaultFile = ".blockpatch.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLOCKPATCH_"

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		File   string `yaml:"file"`   // empty disables logging
		Format string `yaml:"format"` // "json" (default) or "console"
	} `yaml:"log"`

	Output struct {
		Color string `yaml:"color"` // "auto", "always" or "never"
		Diff  bool   `yaml:"diff"`  // print a unified diff after applying
	} `yaml:"output"`

	Apply struct {
		BackupSuffix string `yaml:"backup_suffix"`
	} `yaml:"apply"`

	Batch struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"batch"`
}

// Default returns the configuration used when no file or overrides are present.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = LogFormatJSON
	cfg.Output.Color = ColorAuto
	cfg.Batch.Concurrency = patch.DefaultBatchConcurrency
	return cfg
}

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadEnvFile loads a .env file into the process environment. A missing file is fine,
// but other errors are surfaced.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}

// Load reads the YAML config at path and applies environment overrides from lookup.
// When path is empty, DefaultFile is used if it exists.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file; defaults apply.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FILE"); ok {
		c.Log.File = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvPrefix + "COLOR"); ok {
		c.Output.Color = v
	}
	if v, ok := lookup(EnvPrefix + "BACKUP_SUFFIX"); ok {
		c.Apply.BackupSuffix = v
	}
	if v, ok := lookup(EnvPrefix + "CONCURRENCY"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sCONCURRENCY %q: %w", EnvPrefix, v, err)
		}
		c.Batch.Concurrency = n
	}
	return nil
}

// Validate checks enumerated values and fills in defaults for zero values.
func (c *Config) Validate() error {
	c.Output.Color = strings.ToLower(strings.TrimSpace(c.Output.Color))
	switch c.Output.Color {
	case "":
		c.Output.Color = ColorAuto
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid output.color %q (want auto, always or never)", c.Output.Color)
	}

	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = LogFormatJSON
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("invalid log.format %q (want json or console)", c.Log.Format)
	}

	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = patch.DefaultBatchConcurrency
	}
	return nil
}
