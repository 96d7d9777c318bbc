package pmtiles

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/tilekit-oss/pmtiles/pmtiles/metrics"
)

// HeaderInputs carries the fields of Header a caller must supply;
// Writer computes the rest (offsets, lengths, counts) during Finalize.
type HeaderInputs struct {
	TileType        TileType
	TileCompression Compression
	MinLonE7        int32
	MinLatE7        int32
	MaxLonE7        int32
	MaxLatE7        int32
	CenterZoom      uint8
	CenterLonE7     int32
	CenterLatE7     int32
}

// Writer accumulates tiles in any tile ID order, deduplicating by
// content hash and coalescing runs, then sorts them and assembles a
// complete archive on Finalize. A Writer owns exactly one staging file on disk, created at
// construction and removed by Close (Finalize calls Close on every
// return path).
type Writer struct {
	staging     *os.File
	stagingPath string
	offset      uint64

	entries        []Entry
	hashToOffset   map[xxh3.Uint128]uint64
	addressedTiles uint64
	clustered      bool

	progress ProgressWriter
	m        *metrics.Metrics
}

// WriterOption configures optional Writer behavior.
type WriterOption func(*Writer)

// WithWriterMetrics attaches a Metrics instance that every WriteTile
// call and the final dedup ratio are reported against.
func WithWriterMetrics(m *metrics.Metrics) WriterOption {
	return func(w *Writer) { w.m = m }
}

// NewWriter creates a Writer backed by a temporary staging file in dir
// (the OS default temp directory if dir is empty).
func NewWriter(dir string, opts ...WriterOption) (*Writer, error) {
	f, err := os.CreateTemp(dir, "pmtiles-writer-*")
	if err != nil {
		return nil, fmt.Errorf("pmtiles: creating staging file: %w", err)
	}
	w := &Writer{
		staging:      f,
		stagingPath:  f.Name(),
		hashToOffset: make(map[xxh3.Uint128]uint64),
		clustered:    true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Close releases the staging file. Safe to call more than once.
func (w *Writer) Close() error {
	if w.staging == nil {
		return nil
	}
	closeErr := w.staging.Close()
	removeErr := os.Remove(w.stagingPath)
	w.staging = nil
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}

// WriteTile stages one tile's already-compressed bytes under tileID.
// Callers must invoke WriteTile in strictly increasing tileID order for
// the archive to end up clustered; out-of-order calls are accepted but
// clear the Clustered flag reported by Finalize, per spec.
func (w *Writer) WriteTile(tileID uint64, data []byte) error {
	if n := len(w.entries); n > 0 && tileID < w.entries[n-1].TileID {
		w.clustered = false
	}

	h := xxh3.Hash128(data)
	if existingOffset, ok := w.hashToOffset[h]; ok {
		existing := make([]byte, len(data))
		if _, err := w.staging.ReadAt(existing, int64(existingOffset)); err != nil {
			return fmt.Errorf("pmtiles: reading staged tile for dedup verify: %w", err)
		}
		if bytes.Equal(existing, data) {
			w.appendOrCoalesce(tileID, existingOffset, uint32(len(data)))
			w.addressedTiles++
			if w.m != nil {
				w.m.ObserveWriterTile(true)
			}
			return nil
		}
		// Hash collision on distinct content: fall through and store the
		// new bytes under a fresh offset. The hashToOffset entry is then
		// repointed at this new tile, so a later exact duplicate of the
		// *first* tile's bytes won't dedup against it; this is the cost of
		// treating xxh3-128 collisions as possible rather than ignoring
		// them outright.
	}

	offset := w.offset
	n, err := w.staging.Write(data)
	if err != nil {
		return fmt.Errorf("pmtiles: writing tile to staging file: %w", err)
	}
	w.hashToOffset[h] = offset
	w.entries = append(w.entries, Entry{TileID: tileID, Offset: offset, Length: uint32(n), RunLength: 1})
	w.offset += uint64(n)
	w.addressedTiles++
	if w.m != nil {
		w.m.ObserveWriterTile(false)
	}
	return nil
}

func (w *Writer) appendOrCoalesce(tileID, offset uint64, length uint32) {
	if n := len(w.entries); n > 0 {
		last := &w.entries[n-1]
		if tileID == last.TileID+uint64(last.RunLength) && last.Offset == offset {
			last.RunLength++
			return
		}
	}
	w.entries = append(w.entries, Entry{TileID: tileID, Offset: offset, Length: length, RunLength: 1})
}

// Finalize sorts the staged entries, builds the directory pyramid,
// writes the complete archive (header, root directory, metadata, leaf
// directories, tile data, in that order) to out, and releases the
// staging file. It returns the final Header for inspection.
func (w *Writer) Finalize(ctx context.Context, out io.Writer, inputs HeaderInputs, internalCompression Compression, metadata map[string]interface{}) (Header, error) {
	defer w.Close()

	if err := ctx.Err(); err != nil {
		return Header{}, err
	}

	if !sort.SliceIsSorted(w.entries, func(i, j int) bool { return w.entries[i].TileID < w.entries[j].TileID }) {
		progress := w.newCountProgress(int64(len(w.entries)), "sorting entries")
		sort.SliceStable(w.entries, func(i, j int) bool { return w.entries[i].TileID < w.entries[j].TileID })
		progress.Add(len(w.entries))
		progress.Close()
	}

	var minZoom, maxZoom uint8
	if len(w.entries) > 0 {
		z, _, _, err := IDToZxy(w.entries[0].TileID)
		if err != nil {
			return Header{}, err
		}
		minZoom = z
		z, _, _, err = IDToZxy(w.entries[len(w.entries)-1].TileID)
		if err != nil {
			return Header{}, err
		}
		maxZoom = z
	}

	root, leaves, _, err := OptimizeDirectories(w.entries, rootBudgetTargetBytes, internalCompression)
	if err != nil {
		return Header{}, fmt.Errorf("pmtiles: building directory pyramid: %w", err)
	}

	metadataBytes, err := SerializeMetadata(metadata, internalCompression)
	if err != nil {
		return Header{}, fmt.Errorf("pmtiles: serializing metadata: %w", err)
	}

	rootOffset := uint64(HeaderLenBytes)
	metadataOffset := rootOffset + uint64(len(root))
	leafOffset := metadataOffset + uint64(len(metadataBytes))
	tileDataOffset := leafOffset + uint64(len(leaves))

	contentsCount := uint64(len(w.hashToOffset))

	if w.m != nil && w.addressedTiles > 0 {
		deduped := w.addressedTiles - contentsCount
		w.m.WriterDedupRatio.Set(float64(deduped) / float64(w.addressedTiles))
	}

	header := Header{
		RootOffset:          rootOffset,
		RootLength:          uint64(len(root)),
		MetadataOffset:      metadataOffset,
		MetadataLength:      uint64(len(metadataBytes)),
		LeafDirectoryOffset: leafOffset,
		LeafDirectoryLength: uint64(len(leaves)),
		TileDataOffset:      tileDataOffset,
		TileDataLength:      w.offset,
		AddressedTilesCount: w.addressedTiles,
		TileEntriesCount:    uint64(len(w.entries)),
		TileContentsCount:   contentsCount,
		Clustered:           w.clustered,
		InternalCompression: internalCompression,
		TileCompression:     inputs.TileCompression,
		TileType:            inputs.TileType,
		MinZoom:             minZoom,
		MaxZoom:             maxZoom,
		MinLonE7:            inputs.MinLonE7,
		MinLatE7:            inputs.MinLatE7,
		MaxLonE7:            inputs.MaxLonE7,
		MaxLatE7:            inputs.MaxLatE7,
		CenterZoom:          inputs.CenterZoom,
		CenterLonE7:         inputs.CenterLonE7,
		CenterLatE7:         inputs.CenterLatE7,
	}

	if _, err := out.Write(SerializeHeader(header)); err != nil {
		return Header{}, err
	}
	if _, err := out.Write(root); err != nil {
		return Header{}, err
	}
	if _, err := out.Write(metadataBytes); err != nil {
		return Header{}, err
	}
	if _, err := out.Write(leaves); err != nil {
		return Header{}, err
	}

	progress := w.newBytesProgress(int64(w.offset), "writing tile data")
	defer progress.Close()
	if _, err := io.Copy(io.MultiWriter(out, progress), io.NewSectionReader(w.staging, 0, int64(w.offset))); err != nil {
		return Header{}, fmt.Errorf("pmtiles: copying staged tile data: %w", err)
	}

	return header, nil
}
