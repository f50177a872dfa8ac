// Package fetch retrieves HiPS tiles: over HTTP, through a disk cache, in parallel.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abworrall/hips-mosaic/pkg/hips"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "hips-mosaic/1.0"

	// Tiles are ~100KB; anything past this is not a tile.
	maxTileBytes = 16 << 20
)

var (
	ErrNotFound   = errors.New("tile not found")
	ErrNoLocator  = errors.New("no tile to fetch")
	ErrNotAnImage = errors.New("not a JPEG, PNG or WEBP image")
)

// A Source hands back the encoded bytes of a tile.
type Source interface {
	Fetch(ctx context.Context, loc hips.TileLocator) ([]byte, error)
}

// StatusError is a non-200 answer from a HiPS server. A 404 unwraps to ErrNotFound.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Fetcher gets tiles from the survey's HiPS server.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) Option { return func(f *Fetcher) { f.timeout = d } }

func WithUserAgent(ua string) Option { return func(f *Fetcher) { f.userAgent = ua } }

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, loc hips.TileLocator) ([]byte, error) {
	if !loc.Valid() {
		return nil, ErrNoLocator
	}
	url := loc.URL()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
