// Package cache wraps a pmtiles.Reader with a bounded, concurrency-safe
// directory cache, for callers serving many requests against one
// archive where repeated root/leaf directory fetches would otherwise
// dominate traffic to the byte-range source.
package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tilekit-oss/pmtiles/pmtiles"
	"github.com/tilekit-oss/pmtiles/pmtiles/metrics"
)

const (
	defaultNumCounters = 10 * 500 * 1024
	defaultMaxCost     = 50 * 1024 * 1024
	defaultBufferItems = 64
)

type dirCacheKey struct {
	offset uint64
	length uint64
}

// Reader decorates a *pmtiles.Reader with a bounded cache of decoded
// directory pages, keyed by (offset, length) within the archive.
// Concurrent Get calls for the same directory page are coalesced via
// singleflight so a cache miss only triggers one fetch.
type Reader struct {
	inner *pmtiles.Reader
	cache *ristretto.Cache[dirCacheKey, []pmtiles.Entry]
	group singleflight.Group
	m     *metrics.Metrics
}

// Option configures optional cache.Reader behavior.
type Option func(*Reader)

// WithMetrics attaches a Metrics instance that every directory cache
// lookup is reported against.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reader) { r.m = m }
}

// New wraps inner with a ristretto-backed directory cache sized by cost
// (approximate total bytes of cached, decoded directory entries).
func New(inner *pmtiles.Reader, costBudget int64, opts ...Option) (*Reader, error) {
	if costBudget <= 0 {
		costBudget = envInt("PMTILES_CACHE_MAX_COST", defaultMaxCost)
	}
	cache, err := ristretto.NewCache(&ristretto.Config[dirCacheKey, []pmtiles.Entry]{
		NumCounters: envInt("PMTILES_CACHE_NUM_COUNTERS", defaultNumCounters),
		MaxCost:     costBudget,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("pmtiles/cache: creating ristretto cache: %w", err)
	}
	r := &Reader{inner: inner, cache: cache}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func envInt(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

// Header delegates to the wrapped Reader (already self-caching).
func (r *Reader) Header(ctx context.Context) (pmtiles.Header, error) {
	return r.inner.Header(ctx)
}

// Metadata delegates to the wrapped Reader.
func (r *Reader) Metadata(ctx context.Context) (map[string]interface{}, error) {
	return r.inner.Metadata(ctx)
}

// maxDirectoryDepth mirrors pmtiles.Reader's hard descent cap; it is
// re-declared here because Get re-implements the descent loop against
// the cached FetchDirectory instead of delegating to the inner Reader
// (which would bypass the cache entirely).
const maxDirectoryDepth = 4

// Get resolves a single tile, serving directory pages from cache where
// possible. Semantics match pmtiles.Reader.Get: a nil slice with a nil
// error means the tile is absent.
func (r *Reader) Get(ctx context.Context, z uint8, x, y uint32) ([]byte, error) {
	tileID, err := pmtiles.ZxyToID(z, x, y)
	if err != nil {
		return nil, err
	}
	header, err := r.Header(ctx)
	if err != nil {
		return nil, err
	}

	dirOffset, dirLength := header.RootOffset, header.RootLength
	for depth := 0; depth < maxDirectoryDepth; depth++ {
		entries, err := r.FetchDirectory(ctx, dirOffset, dirLength)
		if err != nil {
			return nil, err
		}
		entry, ok := pmtiles.FindTile(entries, tileID)
		if !ok {
			return nil, nil
		}
		if entry.IsLeaf() {
			dirOffset = header.LeafDirectoryOffset + entry.Offset
			dirLength = uint64(entry.Length)
			continue
		}
		return r.inner.FetchTileData(ctx, header, entry)
	}
	return nil, pmtiles.ErrDepthExceeded
}

// FetchDirectory fetches and decodes the directory page at
// (offset, length), serving from cache when present and coalescing
// concurrent identical misses.
func (r *Reader) FetchDirectory(ctx context.Context, offset, length uint64) ([]pmtiles.Entry, error) {
	key := dirCacheKey{offset: offset, length: length}
	if cached, ok := r.cache.Get(key); ok {
		if r.m != nil {
			r.m.ObserveCacheLookup(true)
		}
		return cached, nil
	}
	if r.m != nil {
		r.m.ObserveCacheLookup(false)
	}

	groupKey := fmt.Sprintf("%d:%d", offset, length)
	v, err, _ := r.group.Do(groupKey, func() (interface{}, error) {
		entries, err := r.inner.FetchDirectory(ctx, offset, length)
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, entries, int64(len(entries)*32))
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]pmtiles.Entry), nil
}

// Close releases cache resources.
func (r *Reader) Close() {
	r.cache.Close()
}
