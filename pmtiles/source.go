package pmtiles

import "context"

// ByteRangeSource is the single capability the Reader consumes: fetch
// exactly length bytes starting at offset, or fail. Implementations may
// be backed by memory, a memory-mapped file, an HTTP range request, or
// cloud object storage — see the pmtiles/source package for reference
// implementations. A ByteRangeSource is expected to be safe for
// concurrent Get calls; the Reader itself holds no mutable state beyond
// its once-initialized header cache.
type ByteRangeSource interface {
	Get(ctx context.Context, offset uint64, length uint64) ([]byte, error)
}
