package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MaxArtifactBytes bounds the size of a fetched artifact.
const MaxArtifactBytes = 64 << 20

// Artifact is a fetched module binary. Detach removes whatever the fetch
// left behind and may be nil.
type Artifact struct {
	Detach Detach
	Origin string
	Wasm   []byte
}

// Source fetches the module binary.
type Source interface {
	Fetch(ctx context.Context) (*Artifact, error)
	String() string
}

// ParseSource picks an HTTP source for http(s) URLs and a file source
// otherwise.
func ParseSource(location string, timeout time.Duration) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return HTTPSource(location, WithTimeout(timeout))
	}
	return FileSource(location)
}

type fileSource struct {
	path string
}

// FileSource reads the artifact from the local filesystem.
func FileSource(path string) Source {
	return fileSource{path: path}
}

func (s fileSource) String() string { return s.path }

func (s fileSource) Fetch(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	wasm, err := readLimited(f)
	if err != nil {
		return nil, err
	}
	return &Artifact{Wasm: wasm, Origin: s.path}, nil
}

type bytesSource struct {
	name string
	wasm []byte
}

// BytesSource serves an artifact already in memory, typically one embedded
// with go:embed.
func BytesSource(name string, wasm []byte) Source {
	return bytesSource{name: name, wasm: wasm}
}

func (s bytesSource) String() string { return s.name }

func (s bytesSource) Fetch(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.wasm) == 0 {
		return nil, fmt.Errorf("artifact %s is empty", s.name)
	}
	return &Artifact{Wasm: s.wasm, Origin: s.name}, nil
}

// HTTPOption configures an HTTP source.
type HTTPOption func(*httpSource)

// WithClient sets the client used for the download.
func WithClient(c *http.Client) HTTPOption {
	return func(s *httpSource) { s.client = c }
}

// WithTimeout bounds the whole download. 0 disables the bound.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *httpSource) { s.timeout = d }
}

// WithStagingDir sets where downloads are staged until detach.
func WithStagingDir(dir string) HTTPOption {
	return func(s *httpSource) { s.dir = dir }
}

type httpSource struct {
	client  *http.Client
	url     string
	dir     string
	timeout time.Duration
}

// HTTPSource downloads the artifact. The download is staged in a temporary
// file which Detach removes.
func HTTPSource(url string, opts ...HTTPOption) Source {
	s := &httpSource{url: url, client: http.DefaultClient}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *httpSource) String() string { return s.url }

func (s *httpSource) Fetch(ctx context.Context) (*Artifact, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/wasm")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", s.url, resp.Status)
	}

	staged, err := os.CreateTemp(s.dir, "sudoku-solver-*.wasm")
	if err != nil {
		return nil, fmt.Errorf("stage artifact: %w", err)
	}
	path := staged.Name()
	detach := func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove staged artifact: %w", err)
		}
		return nil
	}

	n, err := io.Copy(staged, io.LimitReader(resp.Body, MaxArtifactBytes+1))
	if cerr := staged.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxArtifactBytes {
		err = fmt.Errorf("artifact exceeds %d bytes", MaxArtifactBytes)
	}
	if err != nil {
		_ = detach()
		return nil, fmt.Errorf("download artifact: %w", err)
	}

	wasm, err := os.ReadFile(path)
	if err != nil {
		_ = detach()
		return nil, fmt.Errorf("read staged artifact: %w", err)
	}

	Logger().Debug("artifact downloaded",
		zap.String("url", s.url),
		zap.String("staged", path),
		zap.Int64("bytes", n))

	return &Artifact{Wasm: wasm, Origin: s.url, Detach: detach}, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	wasm, err := io.ReadAll(io.LimitReader(r, MaxArtifactBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if len(wasm) > MaxArtifactBytes {
		return nil, fmt.Errorf("artifact exceeds %d bytes", MaxArtifactBytes)
	}
	return wasm, nil
}
