package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/wasm-sudoku/engine"
	werrors "github.com/wippyai/wasm-sudoku/errors"
	"github.com/wippyai/wasm-sudoku/internal/wasmtest"
	"github.com/wippyai/wasm-sudoku/registry"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	ctx := context.Background()
	e, err := engine.New(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func serveWasm(t *testing.T, wasm []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sudoku_solver.wasm" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/wasm")
		_, _ = w.Write(wasm)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "sudoku-solver-*.wasm"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	wasm := wasmtest.Solver(wasmtest.Emscripten())
	path := filepath.Join(t.TempDir(), "sudoku_solver.wasm")
	if err := os.WriteFile(path, wasm, 0o600); err != nil {
		t.Fatal(err)
	}

	art, err := FileSource(path).Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(art.Wasm) != len(wasm) || art.Origin != path || art.Detach != nil {
		t.Errorf("artifact = %d bytes from %q", len(art.Wasm), art.Origin)
	}

	if _, err := FileSource(filepath.Join(t.TempDir(), "missing.wasm")).Fetch(ctx); err == nil {
		t.Error("missing file fetched")
	}
}

func TestBytesSource(t *testing.T) {
	ctx := context.Background()
	if _, err := BytesSource("embedded", nil).Fetch(ctx); err == nil {
		t.Error("empty artifact fetched")
	}
	art, err := BytesSource("embedded", []byte{0x00, 0x61, 0x73, 0x6d}).Fetch(ctx)
	if err != nil || art.Origin != "embedded" {
		t.Errorf("Fetch = %+v, %v", art, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := BytesSource("embedded", []byte{1}).Fetch(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled fetch err = %v", err)
	}
}

func TestHTTPSource_StagesUntilDetach(t *testing.T) {
	ctx := context.Background()
	wasm := wasmtest.Solver(wasmtest.Emscripten())
	srv := serveWasm(t, wasm)
	dir := t.TempDir()

	art, err := HTTPSource(srv.URL+"/sudoku_solver.wasm", WithStagingDir(dir)).Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(art.Wasm) != string(wasm) {
		t.Error("downloaded bytes differ")
	}
	if n := len(stagedFiles(t, dir)); n != 1 {
		t.Fatalf("staged files = %d, want 1", n)
	}
	if err := art.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if n := len(stagedFiles(t, dir)); n != 0 {
		t.Errorf("staged files after detach = %d", n)
	}
	if err := art.Detach(); err != nil {
		t.Errorf("second Detach: %v", err)
	}
}

func TestHTTPSource_Failures(t *testing.T) {
	ctx := context.Background()
	srv := serveWasm(t, []byte("irrelevant"))
	dir := t.TempDir()

	_, err := HTTPSource(srv.URL+"/missing.wasm", WithStagingDir(dir)).Fetch(ctx)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want 404", err)
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()
	_, err = HTTPSource(slow.URL, WithTimeout(50*time.Millisecond), WithClient(slow.Client())).Fetch(ctx)
	if err == nil {
		t.Error("timeout not applied")
	}

	if n := len(stagedFiles(t, dir)); n != 0 {
		t.Errorf("failed fetches left %d staged files", n)
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		location string
		http     bool
	}{
		{"https://example.com/sudoku_solver.wasm", true},
		{"http://localhost:8080/sudoku_solver.wasm", true},
		{"./sudoku_solver.wasm", false},
		{"/opt/solver/sudoku_solver.wasm", false},
	}
	for _, tt := range tests {
		src := ParseSource(tt.location, time.Second)
		_, isHTTP := src.(*httpSource)
		if isHTTP != tt.http {
			t.Errorf("%s: http = %v", tt.location, isHTTP)
		}
		if src.String() != tt.location {
			t.Errorf("String = %q", src.String())
		}
	}
}

func TestBootstrap_RegistersFactory(t *testing.T) {
	ctx := context.Background()
	srv := serveWasm(t, wasmtest.Solver(wasmtest.Emscripten()))
	dir := t.TempDir()
	reg := registry.New()

	boot := New(newEngine(t), HTTPSource(srv.URL+"/sudoku_solver.wasm", WithStagingDir(dir)))
	detach, err := boot.Bootstrap(ctx, reg, "createModule")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	factory, ok := reg.Lookup("createModule")
	if !ok {
		t.Fatal("factory not registered")
	}
	m, err := factory(ctx)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if addr, err := m.Allocate(ctx, 81); err != nil || addr != wasmtest.HeapBase {
		t.Errorf("Allocate = %d, %v", addr, err)
	}

	if err := detach(); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if n := len(stagedFiles(t, dir)); n != 0 {
		t.Errorf("staged files after detach = %d", n)
	}
	if _, ok := reg.Lookup("createModule"); !ok {
		t.Error("detach removed the factory")
	}
}

func TestBootstrap_Failures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("fetch", func(t *testing.T) {
		reg := registry.New()
		boot := New(newEngine(t), FileSource(filepath.Join(dir, "missing.wasm")))
		_, err := boot.Bootstrap(ctx, reg, "createModule")
		if werrors.KindOf(err) != werrors.KindLoad {
			t.Errorf("err = %v, want load", err)
		}
		if len(reg.Names()) != 0 {
			t.Error("factory registered after failed fetch")
		}
	})

	t.Run("contract", func(t *testing.T) {
		reg := registry.New()
		srv := serveWasm(t, wasmtest.Solver(wasmtest.Stub{Memory: "memory"}))
		boot := New(newEngine(t), HTTPSource(srv.URL+"/sudoku_solver.wasm", WithStagingDir(dir)))
		_, err := boot.Bootstrap(ctx, reg, "createModule")

		var missing *werrors.MissingExportsError
		if !errors.As(err, &missing) {
			t.Errorf("err = %v, want MissingExportsError", err)
		}
		if len(reg.Names()) != 0 {
			t.Error("factory registered for an invalid module")
		}
		if n := len(stagedFiles(t, dir)); n != 0 {
			t.Errorf("staged files after failed compile = %d", n)
		}
	})
}

func TestFunc(t *testing.T) {
	called := false
	var b Bootstrapper = Func(func(ctx context.Context, reg *registry.Registry, name string) (Detach, error) {
		called = name == "createModule"
		return nil, nil
	})
	if _, err := b.Bootstrap(context.Background(), registry.New(), "createModule"); err != nil || !called {
		t.Errorf("Func not invoked: %v", err)
	}
}
