// Package config loads logdash settings from a YAML file, optional .env files
// and LOGDASH_* environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "LOGDASH_"

const (
	DefaultBaseURL                = "http://127.0.0.1:5000/api"
	DefaultTimeout                = 10 * time.Second
	DefaultMaxRetries             = 1
	DefaultBootstrapOverviewDelay = time.Second
	DefaultListen                 = ":8080"
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "console"
)

// Config holds every tunable of the CLI and the dashboard server.
type Config struct {
	BaseURL                string         `yaml:"base_url" validate:"required,url"`
	Timeout                time.Duration  `yaml:"timeout" validate:"gt=0"`
	MaxRetries             *int           `yaml:"max_retries" validate:"required,gte=0,lte=5"`
	BootstrapOverviewDelay *time.Duration `yaml:"bootstrap_overview_delay" validate:"required,gte=0"`
	Listen                 string         `yaml:"listen" validate:"required,hostname_port"`
	LogLevel               string         `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat              string         `yaml:"log_format" validate:"oneof=console json"`
}

var validate = validator.New()

// Default returns a config with every default applied.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads path (optional), then envFiles (missing files are skipped), then
// the process environment, and validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path) //nolint:gosec
		if err != nil {
			return Config{}, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()
		decoded, err := Decode(f)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
		cfg = decoded
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses a YAML document. Unknown keys are rejected. Defaults are not applied.
func Decode(r io.Reader) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LOGDASH_* variables returned by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := env(lookup, "BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := env(lookup, "LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := env(lookup, "LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := env(lookup, "LOG_FORMAT"); ok {
		c.LogFormat = strings.ToLower(v)
	}
	if v, ok := env(lookup, "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := env(lookup, "BOOTSTRAP_OVERVIEW_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sBOOTSTRAP_OVERVIEW_DELAY: %w", EnvPrefix, err)
		}
		c.BootstrapOverviewDelay = &d
	}
	if v, ok := env(lookup, "MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sMAX_RETRIES: %w", EnvPrefix, err)
		}
		c.MaxRetries = &n
	}
	return nil
}

// Validate checks field constraints and reports every failing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: validate: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid %s", strings.Join(fields, ", "))
}

// Retries returns MaxRetries, defaulted.
func (c Config) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// OverviewDelay returns BootstrapOverviewDelay, defaulted.
func (c Config) OverviewDelay() time.Duration {
	if c.BootstrapOverviewDelay == nil {
		return DefaultBootstrapOverviewDelay
	}
	return *c.BootstrapOverviewDelay
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries == nil {
		n := DefaultMaxRetries
		c.MaxRetries = &n
	}
	if c.BootstrapOverviewDelay == nil {
		d := DefaultBootstrapOverviewDelay
		c.BootstrapOverviewDelay = &d
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

func env(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// loadEnvFiles exports variables from existing files without overriding the
// process environment.
func loadEnvFiles(files []string) error {
	var existing []string
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: stat %s: %w", file, err)
		}
		existing = append(existing, file)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	return nil
}
