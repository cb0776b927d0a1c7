// Package config loads host configuration from defaults, an optional HCL
// file and SUDOKU_-prefixed environment variables, in that order.
//
// Example file:
//
//	artifact      = "${env.HOME}/solvers/sudoku_solver.wasm"
//	factory_name  = "createModule"
//	fetch_timeout = "30s"
//
//	engine {
//	  memory_limit_pages = 256
//	  views              = ["bulk", "unsigned"]
//
//	  exports {
//	    compute = "solve_sudoku"
//	  }
//	}
//
//	log {
//	  level  = "debug"
//	  format = "console"
//	  file   = "/var/log/sudoku.log"
//	}
//
//	telemetry {
//	  otlp_endpoint = "localhost:4318"
//	}
//
// The file may reference environment variables through the env object.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-sudoku/engine"
	"github.com/wippyai/wasm-sudoku/errors"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "SUDOKU_"

// Config is the host configuration.
type Config struct {
	Artifact         string        `env:"ARTIFACT"`
	FactoryName      string        `env:"FACTORY_NAME"`
	LogLevel         string        `env:"LOG_LEVEL"`
	LogFormat        string        `env:"LOG_FORMAT"`
	LogFile          string        `env:"LOG_FILE"`
	OTLPEndpoint     string        `env:"OTLP_ENDPOINT"`
	ServiceName      string        `env:"SERVICE_NAME"`
	Exports          Exports       `envPrefix:"EXPORT_"`
	Views            []string      `env:"VIEWS" envSeparator:","`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT"`
	MemoryLimitPages uint32        `env:"MEMORY_LIMIT_PAGES"`
}

// Exports overrides module export names.
type Exports struct {
	Allocate string `env:"ALLOCATE"`
	Free     string `env:"FREE"`
	Compute  string `env:"COMPUTE"`
	Memory   string `env:"MEMORY"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Artifact:     "sudoku_solver.wasm",
		FactoryName:  "createModule",
		FetchTimeout: 30 * time.Second,
		LogLevel:     "info",
		LogFormat:    "console",
		ServiceName:  "wasm-sudoku",
	}
}

// fileConfig mirrors the HCL layout. Pointers distinguish unset attributes
// from zero values.
type fileConfig struct {
	Artifact     *string         `hcl:"artifact,optional"`
	FactoryName  *string         `hcl:"factory_name,optional"`
	FetchTimeout *string         `hcl:"fetch_timeout,optional"`
	Engine       *engineBlock    `hcl:"engine,block"`
	Log          *logBlock       `hcl:"log,block"`
	Telemetry    *telemetryBlock `hcl:"telemetry,block"`
}

type engineBlock struct {
	MemoryLimitPages *int         `hcl:"memory_limit_pages,optional"`
	Views            *[]string    `hcl:"views,optional"`
	Exports          *exportBlock `hcl:"exports,block"`
}

type exportBlock struct {
	Allocate *string `hcl:"allocate,optional"`
	Free     *string `hcl:"free,optional"`
	Compute  *string `hcl:"compute,optional"`
	Memory   *string `hcl:"memory,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
	File   *string `hcl:"file,optional"`
}

type telemetryBlock struct {
	OTLPEndpoint *string `hcl:"otlp_endpoint,optional"`
	ServiceName  *string `hcl:"service_name,optional"`
}

// Load builds the configuration. path may be empty to skip the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv overlays SUDOKU_ environment variables onto target. Unset
// variables leave fields untouched.
func ParseEnv(target *Config) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Cause(err).
			Detail("parse env").
			Build()
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return configError(fmt.Errorf("failed to parse HCL file %s: %s", path, diags.Error()))
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, evalContext(), &fc)
	if diags.HasErrors() {
		return configError(fmt.Errorf("failed to decode HCL file %s: %s", path, diags.Error()))
	}
	return fc.apply(cfg)
}

// evalContext exposes the process environment as the env object.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !validIdent(name) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	envVal := cty.EmptyObjectVal
	if len(vars) > 0 {
		envVal = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

func (fc *fileConfig) apply(cfg *Config) error {
	setString(&cfg.Artifact, fc.Artifact)
	setString(&cfg.FactoryName, fc.FactoryName)
	if fc.FetchTimeout != nil {
		d, err := time.ParseDuration(*fc.FetchTimeout)
		if err != nil {
			return configError(fmt.Errorf("fetch_timeout: %w", err))
		}
		cfg.FetchTimeout = d
	}

	if e := fc.Engine; e != nil {
		if e.MemoryLimitPages != nil {
			if *e.MemoryLimitPages < 0 {
				return configError(fmt.Errorf("memory_limit_pages must not be negative"))
			}
			cfg.MemoryLimitPages = uint32(*e.MemoryLimitPages)
		}
		if e.Views != nil {
			cfg.Views = *e.Views
		}
		if x := e.Exports; x != nil {
			setString(&cfg.Exports.Allocate, x.Allocate)
			setString(&cfg.Exports.Free, x.Free)
			setString(&cfg.Exports.Compute, x.Compute)
			setString(&cfg.Exports.Memory, x.Memory)
		}
	}
	if l := fc.Log; l != nil {
		setString(&cfg.LogLevel, l.Level)
		setString(&cfg.LogFormat, l.Format)
		setString(&cfg.LogFile, l.File)
	}
	if t := fc.Telemetry; t != nil {
		setString(&cfg.OTLPEndpoint, t.OTLPEndpoint)
		setString(&cfg.ServiceName, t.ServiceName)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Artifact == "":
		return invalid("artifact must be set")
	case c.FactoryName == "":
		return invalid("factory_name must be set")
	case c.FetchTimeout < 0:
		return invalid("fetch_timeout must not be negative")
	case c.MemoryLimitPages > 65536:
		return invalid("memory_limit_pages %d exceeds 65536", c.MemoryLimitPages)
	}
	if _, err := engine.ParseViews(c.Views); err != nil {
		return invalid("%v", err)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return invalid("log level %q: %v", c.LogLevel, err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return invalid("log format %q, want console or json", c.LogFormat)
	}
	return nil
}

// Engine converts the settings to an engine configuration.
func (c Config) Engine() (*engine.Config, error) {
	views, err := engine.ParseViews(c.Views)
	if err != nil {
		return nil, invalid("%v", err)
	}
	return &engine.Config{
		MemoryLimitPages: c.MemoryLimitPages,
		Views:            views,
		Exports: engine.ExportNames{
			Allocate: c.Exports.Allocate,
			Free:     c.Exports.Free,
			Compute:  c.Exports.Compute,
			Memory:   c.Exports.Memory,
		},
	}, nil
}

func configError(err error) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Cause(err).Detail("load config").Build()
}

func invalid(format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Detail(format, args...).Build()
}
