package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-logdash/components/dashboard"
	"github.com/goliatone/go-logdash/pkg/analytics"
	"github.com/goliatone/go-logdash/pkg/config"
	"github.com/goliatone/go-logdash/pkg/telemetry"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Globals are flags shared by every subcommand.
type Globals struct {
	Config   string   `short:"c" type:"path" help:"YAML config file."`
	EnvFile  []string `name:"env-file" default:".env" help:"Dotenv files read before the environment."`
	BaseURL  string   `name:"base-url" help:"Backend API root, e.g. http://127.0.0.1:5000/api."`
	LogLevel string   `name:"log-level" help:"Log level (trace, debug, info, warn, error)."`
	Mock     bool     `help:"Use the embedded demo dataset instead of a backend."`

	stdout io.Writer
}

func (g *Globals) out() io.Writer {
	if g.stdout == nil {
		return os.Stdout
	}
	return g.stdout
}

func (g *Globals) load() (config.Config, error) {
	cfg, err := config.Load(g.Config, g.EnvFile...)
	if err != nil {
		return config.Config{}, err
	}
	if g.BaseURL != "" {
		cfg.BaseURL = g.BaseURL
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (g *Globals) logger(cfg config.Config) (zerolog.Logger, error) {
	return telemetry.NewZerolog(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

func (g *Globals) backend(cfg config.Config) (dashboard.Backend, error) {
	if g.Mock {
		fixtures, err := analytics.DemoFixtures()
		if err != nil {
			return nil, err
		}
		return analytics.NewMockClient(fixtures), nil
	}
	policy := analytics.DefaultRetryPolicy()
	policy.MaxRetries = cfg.Retries()
	client, err := analytics.NewHTTPClient(analytics.HTTPConfig{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Retry:   &policy,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// env bundles what every subcommand builds from the globals.
type env struct {
	cfg     config.Config
	log     zerolog.Logger
	backend dashboard.Backend
}

func (g *Globals) setup() (env, error) {
	cfg, err := g.load()
	if err != nil {
		return env{}, err
	}
	log, err := g.logger(cfg)
	if err != nil {
		return env{}, err
	}
	backend, err := g.backend(cfg)
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, log: log, backend: backend}, nil
}

func printYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("logdashctl: encode output: %w", err)
	}
	return enc.Close()
}
