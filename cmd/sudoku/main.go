package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-sudoku/board"
	"github.com/wippyai/wasm-sudoku/bootstrap"
	"github.com/wippyai/wasm-sudoku/bridge"
	"github.com/wippyai/wasm-sudoku/config"
	"github.com/wippyai/wasm-sudoku/engine"
	"github.com/wippyai/wasm-sudoku/loader"
	"github.com/wippyai/wasm-sudoku/registry"
	"github.com/wippyai/wasm-sudoku/solver"
	"github.com/wippyai/wasm-sudoku/telemetry"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to an HCL config file")
		artifact    = flag.String("artifact", "", "Solver module path or http(s) URL (overrides config)")
		boardArg    = flag.String("board", "", "Board as 81 characters, '.' or '0' for empty cells")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if err := run(*configFile, *artifact, *boardArg, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stack is the wired solver pipeline plus everything that must be torn down.
type stack struct {
	solver   *solver.Solver
	loader   *loader.Loader
	engine   *engine.Engine
	logger   *zap.Logger
	shutdown func(context.Context) error
}

// logOutput keeps log lines off the terminal while the alt-screen grid owns
// it. An explicit log file always wins.
func logOutput(cfg config.Config, interactive bool) string {
	if cfg.LogFile != "" || !interactive {
		return cfg.LogFile
	}
	return filepath.Join(os.TempDir(), "sudoku.log")
}

func newStack(ctx context.Context, cfg config.Config, interactive bool) (*stack, error) {
	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat, logOutput(cfg, interactive))
	if err != nil {
		return nil, err
	}
	telemetry.InstallLogger(logger)

	shutdown, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	ec, err := cfg.Engine()
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	eng, err := engine.New(ctx, ec)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	boot := bootstrap.New(eng, bootstrap.ParseSource(cfg.Artifact, cfg.FetchTimeout))
	ld := loader.New(registry.Default(), boot, loader.WithFactoryName(cfg.FactoryName))

	return &stack{
		solver:   solver.NewSolver(solver.New(ld, bridge.New())),
		loader:   ld,
		engine:   eng,
		logger:   logger,
		shutdown: shutdown,
	}, nil
}

func (s *stack) Close(ctx context.Context) {
	if err := s.loader.Reset(ctx); err != nil {
		s.logger.Warn("reset loader", zap.Error(err))
	}
	if err := s.engine.Close(ctx); err != nil {
		s.logger.Warn("close engine", zap.Error(err))
	}
	if err := s.shutdown(ctx); err != nil {
		s.logger.Warn("shutdown tracing", zap.Error(err))
	}
	_ = s.logger.Sync()
}

func run(configFile, artifact, boardArg string, interactive bool) error {
	ctx := context.Background()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if artifact != "" {
		cfg.Artifact = artifact
	}

	interactive = boardArg == "" && (interactive || term.IsTerminal(int(os.Stdin.Fd())))

	st, err := newStack(ctx, cfg, interactive)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	if interactive {
		return runInteractive(st, cfg.Artifact)
	}

	text := boardArg
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	b, err := board.Parse(text)
	if err != nil {
		return err
	}

	out, err := st.solver.Solve(ctx, b)
	if err != nil {
		return err
	}

	fmt.Print(out.Format())
	if !out.Complete() {
		fmt.Println("no solution")
	}
	return nil
}
