// Package bootstrap fetches the solver artifact and publishes its factory.
//
// Bootstrapping is the host's equivalent of attaching a loader script: the
// artifact is fetched from a Source, compiled, and the resulting factory is
// registered under the name the loader asked for. The returned Detach undoes
// whatever the fetch left behind once loading has settled; the registered
// factory stays.
package bootstrap

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-sudoku/engine"
	"github.com/wippyai/wasm-sudoku/errors"
	"github.com/wippyai/wasm-sudoku/registry"
)

// Detach releases bootstrap side effects. Safe to call once.
type Detach func() error

// Bootstrapper publishes a factory named name into reg.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, reg *registry.Registry, name string) (Detach, error)
}

// Compiler compiles module binaries. *engine.Engine satisfies it.
type Compiler interface {
	Compile(ctx context.Context, wasm []byte) (*engine.Module, error)
}

// ArtifactBootstrapper bootstraps from a Source through an engine.
type ArtifactBootstrapper struct {
	compiler Compiler
	source   Source
}

// New creates a bootstrapper that compiles artifacts fetched from src.
func New(c Compiler, src Source) *ArtifactBootstrapper {
	return &ArtifactBootstrapper{compiler: c, source: src}
}

// Source returns the artifact source.
func (b *ArtifactBootstrapper) Source() Source {
	return b.source
}

// Bootstrap fetches and compiles the artifact, then registers its factory.
func (b *ArtifactBootstrapper) Bootstrap(ctx context.Context, reg *registry.Registry, name string) (Detach, error) {
	art, err := b.source.Fetch(ctx)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindLoad).
			Value(b.source.String()).
			Cause(err).
			Detail("fetch artifact %s", b.source.String()).
			Build()
	}
	detach := once(art.Detach)

	mod, err := b.compiler.Compile(ctx, art.Wasm)
	if err != nil {
		if derr := detach(); derr != nil {
			Logger().Warn("detach after failed compile", zap.Error(derr))
		}
		return nil, err
	}

	reg.Register(name, mod.Factory())
	Logger().Info("solver module bootstrapped",
		zap.String("origin", art.Origin),
		zap.String("factory", name),
		zap.Int("bytes", len(art.Wasm)))

	return detach, nil
}

func once(d Detach) Detach {
	if d == nil {
		return func() error { return nil }
	}
	var (
		o   sync.Once
		err error
	)
	return func() error {
		o.Do(func() { err = d() })
		return err
	}
}

// Func adapts a function to a Bootstrapper.
type Func func(ctx context.Context, reg *registry.Registry, name string) (Detach, error)

// Bootstrap calls f.
func (f Func) Bootstrap(ctx context.Context, reg *registry.Registry, name string) (Detach, error) {
	return f(ctx, reg, name)
}
