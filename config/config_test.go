package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/wasm-sudoku/engine"
	werrors "github.com/wippyai/wasm-sudoku/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sudoku.hcl")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Artifact != want.Artifact || cfg.FactoryName != "createModule" || cfg.FetchTimeout != 30*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("SOLVER_HOME", "/opt/solvers")
	path := writeConfig(t, `
artifact      = "${env.SOLVER_HOME}/sudoku_solver.wasm"
factory_name  = "SudokuModule"
fetch_timeout = "5s"

engine {
  memory_limit_pages = 256
  views              = ["signed", "buffer"]

  exports {
    compute = "_solve_sudoku"
    memory  = "wasmMemory"
  }
}

log {
  level  = "debug"
  format = "json"
  file   = "${env.SOLVER_HOME}/sudoku.log"
}

telemetry {
  otlp_endpoint = "localhost:4318"
}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Artifact != "/opt/solvers/sudoku_solver.wasm" {
		t.Errorf("Artifact = %q", cfg.Artifact)
	}
	if cfg.FactoryName != "SudokuModule" || cfg.FetchTimeout != 5*time.Second {
		t.Errorf("FactoryName = %q, FetchTimeout = %s", cfg.FactoryName, cfg.FetchTimeout)
	}
	if cfg.MemoryLimitPages != 256 || len(cfg.Views) != 2 {
		t.Errorf("engine = %d pages, views %v", cfg.MemoryLimitPages, cfg.Views)
	}
	if cfg.Exports.Compute != "_solve_sudoku" || cfg.Exports.Memory != "wasmMemory" || cfg.Exports.Allocate != "" {
		t.Errorf("Exports = %+v", cfg.Exports)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" || cfg.OTLPEndpoint != "localhost:4318" {
		t.Errorf("log/telemetry = %q %q %q", cfg.LogLevel, cfg.LogFormat, cfg.OTLPEndpoint)
	}
	if cfg.LogFile != "/opt/solvers/sudoku.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.ServiceName != "wasm-sudoku" {
		t.Errorf("ServiceName default lost: %q", cfg.ServiceName)
	}

	ec, err := cfg.Engine()
	if err != nil {
		t.Fatal(err)
	}
	if ec.Views != engine.ViewSigned|engine.ViewBuffer || ec.Exports.Compute != "_solve_sudoku" || ec.MemoryLimitPages != 256 {
		t.Errorf("engine config = %+v", ec)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
artifact = "from-file.wasm"

log {
  level = "warn"
}
`)
	t.Setenv("SUDOKU_ARTIFACT", "https://example.com/sudoku_solver.wasm")
	t.Setenv("SUDOKU_VIEWS", "bulk,unsigned")
	t.Setenv("SUDOKU_FETCH_TIMEOUT", "2m")
	t.Setenv("SUDOKU_EXPORT_ALLOCATE", "_malloc")
	t.Setenv("SUDOKU_MEMORY_LIMIT_PAGES", "1024")
	t.Setenv("SUDOKU_LOG_FILE", "/tmp/sudoku.log")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Artifact != "https://example.com/sudoku_solver.wasm" {
		t.Errorf("Artifact = %q", cfg.Artifact)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, file value lost", cfg.LogLevel)
	}
	if len(cfg.Views) != 2 || cfg.Views[0] != "bulk" || cfg.FetchTimeout != 2*time.Minute {
		t.Errorf("Views = %v, FetchTimeout = %s", cfg.Views, cfg.FetchTimeout)
	}
	if cfg.LogFile != "/tmp/sudoku.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.Exports.Allocate != "_malloc" || cfg.MemoryLimitPages != 1024 {
		t.Errorf("Exports = %+v, pages = %d", cfg.Exports, cfg.MemoryLimitPages)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		env      map[string]string
		contains string
	}{
		{name: "syntax", body: `artifact = `, contains: "parse HCL"},
		{name: "unknown attribute", body: `solver = "x"`, contains: "decode HCL"},
		{name: "bad duration", body: `fetch_timeout = "soon"`, contains: "fetch_timeout"},
		{name: "negative pages", body: "engine {\n  memory_limit_pages = -1\n}", contains: "negative"},
		{name: "too many pages", body: "engine {\n  memory_limit_pages = 70000\n}", contains: "exceeds 65536"},
		{name: "unknown view", body: "engine {\n  views = [\"mapped\"]\n}", contains: "mapped"},
		{name: "bad log level", body: "log {\n  level = \"loud\"\n}", contains: "loud"},
		{name: "bad log format", body: "log {\n  format = \"xml\"\n}", contains: "xml"},
		{name: "empty artifact", body: `artifact = ""`, contains: "artifact must be set"},
		{name: "bad env value", body: "", env: map[string]string{"SUDOKU_MEMORY_LIMIT_PAGES": "many"}, contains: "parse env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			if werrors.KindOf(err) != werrors.KindInvalidInput {
				t.Fatalf("err = %v, want invalid_input", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("err = %q, want it to contain %q", err, tt.contains)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	if err == nil {
		t.Error("missing file accepted")
	}
}

func TestValidIdent(t *testing.T) {
	for s, want := range map[string]bool{
		"HOME":      true,
		"_private":  true,
		"GO-ENV":    true,
		"1ST":       false,
		"":          false,
		"A.B":       false,
		"CommonPro": true,
	} {
		if got := validIdent(s); got != want {
			t.Errorf("validIdent(%q) = %v", s, got)
		}
	}
}
