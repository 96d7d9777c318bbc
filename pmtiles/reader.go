package pmtiles

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tilekit-oss/pmtiles/pmtiles/metrics"
)

// maxDirectoryDepth bounds the number of directory levels a Get descent
// will traverse before giving up: the root plus up to 3 leaf levels,
// followed by 1 final data fetch, per spec §4.5.
const maxDirectoryDepth = 4

// Reader resolves (z, x, y) tile requests against a byte-range source by
// descending root -> leaf -> data. It is stateless beyond a cached
// header and performs no directory caching of its own; wrap it with
// pmtiles/cache for a bounded directory cache.
type Reader struct {
	source ByteRangeSource
	m      *metrics.Metrics

	headerOnce sync.Once
	header     Header
	headerErr  error
}

// ReaderOption configures optional Reader behavior.
type ReaderOption func(*Reader)

// WithMetrics attaches a Metrics instance that every byte-range request
// and directory descent is reported against.
func WithMetrics(m *metrics.Metrics) ReaderOption {
	return func(r *Reader) { r.m = m }
}

// NewReader constructs a Reader over the given byte-range source.
func NewReader(source ByteRangeSource, opts ...ReaderOption) *Reader {
	r := &Reader{source: source}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// get fetches (offset, length) from the source, reporting the request's
// outcome and duration when a Metrics is attached.
func (r *Reader) get(ctx context.Context, offset, length uint64) ([]byte, error) {
	if r.m == nil {
		return r.source.Get(ctx, offset, length)
	}
	start := time.Now()
	data, err := r.source.Get(ctx, offset, length)
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.m.ObserveSourceRequest(status, time.Since(start).Seconds())
	return data, err
}

// Header reads and validates the 127-byte archive header, caching it
// for subsequent calls.
func (r *Reader) Header(ctx context.Context) (Header, error) {
	r.headerOnce.Do(func() {
		raw, err := r.get(ctx, 0, HeaderLenBytes)
		if err != nil {
			r.headerErr = fmt.Errorf("%w: %v", ErrSourceError, err)
			return
		}
		r.header, r.headerErr = DeserializeHeader(raw)
	})
	return r.header, r.headerErr
}

// Metadata fetches and decodes the archive's opaque JSON metadata document.
func (r *Reader) Metadata(ctx context.Context) (map[string]interface{}, error) {
	header, err := r.Header(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := r.get(ctx, header.MetadataOffset, header.MetadataLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceError, err)
	}
	return DeserializeMetadata(raw, header.InternalCompression)
}

func (r *Reader) fetchDirectory(ctx context.Context, header Header, offset, length uint64) ([]Entry, error) {
	raw, err := r.get(ctx, offset, length)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceError, err)
	}
	return DeserializeEntries(raw, header.InternalCompression)
}

// FetchDirectory fetches and decodes the directory page at (offset,
// length) within the archive. It is exported so pmtiles/cache can
// interpose a cache between the Reader's descent and the byte-range
// source without duplicating header/decompression logic.
func (r *Reader) FetchDirectory(ctx context.Context, offset, length uint64) ([]Entry, error) {
	header, err := r.Header(ctx)
	if err != nil {
		return nil, err
	}
	return r.fetchDirectory(ctx, header, offset, length)
}

// Get resolves a single tile. A nil slice with a nil error means the
// tile is not present in the archive (TileMiss is not an error).
func (r *Reader) Get(ctx context.Context, z uint8, x, y uint32) ([]byte, error) {
	tileID, err := ZxyToID(z, x, y)
	if err != nil {
		return nil, err
	}

	header, err := r.Header(ctx)
	if err != nil {
		return nil, err
	}

	dirOffset, dirLength := header.RootOffset, header.RootLength
	for depth := 0; depth < maxDirectoryDepth; depth++ {
		entries, err := r.fetchDirectory(ctx, header, dirOffset, dirLength)
		if err != nil {
			return nil, err
		}

		entry, ok := FindTile(entries, tileID)
		if !ok {
			return nil, nil
		}
		if entry.IsLeaf() {
			dirOffset = header.LeafDirectoryOffset + entry.Offset
			dirLength = uint64(entry.Length)
			continue
		}

		if r.m != nil {
			r.m.ObserveDescent(depth + 1)
		}
		return r.FetchTileData(ctx, header, entry)
	}
	return nil, ErrDepthExceeded
}

// FetchTileData fetches the raw (still tile_compression-encoded) bytes
// a resolved, non-leaf Entry points at. Exported so pmtiles/cache can
// finish a Get resolved via its own cached directory descent without
// reaching into unexported Reader internals.
func (r *Reader) FetchTileData(ctx context.Context, header Header, entry Entry) ([]byte, error) {
	data, err := r.get(ctx, header.TileDataOffset+entry.Offset, uint64(entry.Length))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceError, err)
	}
	return data, nil
}

// TileResult is one (z, x, y) -> bytes pair yielded by AllTiles, or a
// terminal error.
type TileResult struct {
	Zxy  Zxy
	Data []byte
	Err  error
}

// AllTiles produces the lazy, depth-first, restartable sequence of every
// addressed tile in the archive. Reconstructing the iterator (calling
// AllTiles again) restarts the traversal from the root.
func (r *Reader) AllTiles(ctx context.Context) iter.Seq[TileResult] {
	return func(yield func(TileResult) bool) {
		header, err := r.Header(ctx)
		if err != nil {
			yield(TileResult{Err: err})
			return
		}

		var walk func(offset, length uint64) bool
		walk = func(offset, length uint64) bool {
			entries, err := r.fetchDirectory(ctx, header, offset, length)
			if err != nil {
				return yield(TileResult{Err: err})
			}
			for _, e := range entries {
				if e.IsLeaf() {
					if !walk(header.LeafDirectoryOffset+e.Offset, uint64(e.Length)) {
						return false
					}
					continue
				}
				data, err := r.get(ctx, header.TileDataOffset+e.Offset, uint64(e.Length))
				if err != nil {
					return yield(TileResult{Err: fmt.Errorf("%w: %v", ErrSourceError, err)})
				}
				for i := uint32(0); i < e.RunLength; i++ {
					z, x, y, err := IDToZxy(e.TileID + uint64(i))
					if err != nil {
						return yield(TileResult{Err: err})
					}
					if !yield(TileResult{Zxy: Zxy{Z: z, X: x, Y: y}, Data: data}) {
						return false
					}
				}
			}
			return true
		}
		walk(header.RootOffset, header.RootLength)
	}
}

// AllTilesConcurrent behaves like AllTiles but prefetches sibling
// leaf-directory pages with up to workers concurrent byte-range
// requests before walking them in root order. Output order matches
// AllTiles exactly; only the fetch latency is parallelized. Intended
// for sources with high per-request latency (e.g. cloud object storage)
// where AllTiles's one-at-a-time descent dominates wall-clock time.
func (r *Reader) AllTilesConcurrent(ctx context.Context, workers int) iter.Seq[TileResult] {
	if workers < 1 {
		workers = 1
	}
	return func(yield func(TileResult) bool) {
		header, err := r.Header(ctx)
		if err != nil {
			yield(TileResult{Err: err})
			return
		}

		var walk func(offset, length uint64) bool
		walk = func(offset, length uint64) bool {
			entries, err := r.fetchDirectory(ctx, header, offset, length)
			if err != nil {
				return yield(TileResult{Err: err})
			}

			leafData := make([][]Entry, len(entries))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(workers)
			for i, e := range entries {
				if !e.IsLeaf() {
					continue
				}
				i, e := i, e
				g.Go(func() error {
					sub, err := r.fetchDirectory(gctx, header, header.LeafDirectoryOffset+e.Offset, uint64(e.Length))
					if err != nil {
						return err
					}
					leafData[i] = sub
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return yield(TileResult{Err: fmt.Errorf("%w: %v", ErrSourceError, err)})
			}

			for i, e := range entries {
				if e.IsLeaf() {
					if !walkEntries(ctx, r, header, leafData[i], yield) {
						return false
					}
					continue
				}
				data, err := r.get(ctx, header.TileDataOffset+e.Offset, uint64(e.Length))
				if err != nil {
					return yield(TileResult{Err: fmt.Errorf("%w: %v", ErrSourceError, err)})
				}
				for k := uint32(0); k < e.RunLength; k++ {
					z, x, y, err := IDToZxy(e.TileID + uint64(k))
					if err != nil {
						return yield(TileResult{Err: err})
					}
					if !yield(TileResult{Zxy: Zxy{Z: z, X: x, Y: y}, Data: data}) {
						return false
					}
				}
			}
			return true
		}
		walk(header.RootOffset, header.RootLength)
	}
}

// walkEntries yields tile data for an already-fetched directory page,
// descending further leaf pointers sequentially (leaf-of-leaf nesting
// is rare in practice but permitted by the format).
func walkEntries(ctx context.Context, r *Reader, header Header, entries []Entry, yield func(TileResult) bool) bool {
	for _, e := range entries {
		if e.IsLeaf() {
			sub, err := r.fetchDirectory(ctx, header, header.LeafDirectoryOffset+e.Offset, uint64(e.Length))
			if err != nil {
				return yield(TileResult{Err: err})
			}
			if !walkEntries(ctx, r, header, sub, yield) {
				return false
			}
			continue
		}
		data, err := r.get(ctx, header.TileDataOffset+e.Offset, uint64(e.Length))
		if err != nil {
			return yield(TileResult{Err: fmt.Errorf("%w: %v", ErrSourceError, err)})
		}
		for k := uint32(0); k < e.RunLength; k++ {
			z, x, y, err := IDToZxy(e.TileID + uint64(k))
			if err != nil {
				return yield(TileResult{Err: err})
			}
			if !yield(TileResult{Zxy: Zxy{Z: z, X: x, Y: y}, Data: data}) {
				return false
			}
		}
	}
	return true
}
