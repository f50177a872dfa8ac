package fetch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/abworrall/hips-mosaic/pkg/hips"
)

// MinCachedBytes is the smallest file we believe is a real tile; error pages and
// truncated downloads tend to be smaller.
const MinCachedBytes = 1024

// DiskCache keeps tiles under Dir/{survey}/Norder{o}/Dir{d}/Npix{i}.{ext} and asks
// Source for anything missing or unusable.
type DiskCache struct {
	Dir       string
	Source    Source
	Verbosity int
}

func NewDiskCache(dir string, src Source) *DiskCache {
	return &DiskCache{Dir: dir, Source: src}
}

func (c *DiskCache) Path(loc hips.TileLocator) string {
	return filepath.Join(c.Dir, loc.Survey, filepath.FromSlash(loc.RelPath()))
}

// Usable reports whether a cached file looks like a tile worth keeping.
func Usable(data []byte) bool {
	return len(data) >= MinCachedBytes && Sniff(data) != FormatUnknown
}

// Cached returns the cached bytes for loc, if there are any worth using.
func (c *DiskCache) Cached(loc hips.TileLocator) ([]byte, bool) {
	if !loc.Valid() {
		return nil, false
	}
	data, err := os.ReadFile(c.Path(loc))
	if err != nil || !Usable(data) {
		return nil, false
	}
	return data, true
}

func (c *DiskCache) Fetch(ctx context.Context, loc hips.TileLocator) ([]byte, error) {
	if !loc.Valid() {
		return nil, ErrNoLocator
	}
	if data, ok := c.Cached(loc); ok {
		if c.Verbosity > 1 {
			log.Printf("cache hit %s\n", loc)
		}
		return data, nil
	}
	if c.Source == nil {
		return nil, fmt.Errorf("%s: %w", loc, ErrNotFound)
	}

	data, err := c.Source.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	if Sniff(data) == FormatUnknown {
		return nil, fmt.Errorf("%s: %w", loc, ErrNotAnImage)
	}

	if err := c.store(loc, data); err != nil {
		// A tile we can't cache is still a tile
		log.Printf("cache: %v\n", err)
	}
	return data, nil
}

func (c *DiskCache) store(loc hips.TileLocator, data []byte) error {
	path := c.Path(loc)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", loc, err)
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
