// Package telemetry builds the host's logger and tracer provider.
package telemetry

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-sudoku/bootstrap"
	"github.com/wippyai/wasm-sudoku/bridge"
	"github.com/wippyai/wasm-sudoku/engine"
	"github.com/wippyai/wasm-sudoku/loader"
	"github.com/wippyai/wasm-sudoku/solver"
)

// NewLogger builds a zap logger. format is "json" for production encoding
// or "console" for human-readable output. output is a file path; empty
// means stderr.
func NewLogger(level, format, output string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if output == "" {
		output = "stderr"
	}
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{output}

	return cfg.Build()
}

// InstallLogger routes the package loggers of the solver stack to l.
func InstallLogger(l *zap.Logger) {
	engine.SetLogger(l.Named("engine"))
	bootstrap.SetLogger(l.Named("bootstrap"))
	bridge.SetLogger(l.Named("bridge"))
	loader.SetLogger(l.Named("loader"))
	solver.SetLogger(l.Named("solver"))
}
