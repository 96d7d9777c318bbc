package pmtiles

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilekit-oss/pmtiles/pmtiles/metrics"
)

func TestWriterDeduplicatesIdenticalTiles(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	id0, _ := ZxyToID(1, 0, 0)
	id1, _ := ZxyToID(1, 0, 1)
	id2, _ := ZxyToID(1, 1, 0)

	require.NoError(t, w.WriteTile(id0, []byte("same")))
	require.NoError(t, w.WriteTile(id1, []byte("same")))
	require.NoError(t, w.WriteTile(id2, []byte("different")))

	var out bytes.Buffer
	header, err := w.Finalize(context.Background(), &out, HeaderInputs{TileType: Mvt}, NoCompression, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), header.AddressedTilesCount)
	assert.Equal(t, uint64(2), header.TileContentsCount)
	// id0 (1) and id1 (2) are consecutive Hilbert IDs, so the two "same"
	// tiles coalesce into one run-length-2 entry; the content count is what
	// matters here.
}

func TestWriterCoalescesRunsOfIdenticalAdjacentTiles(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	for id := uint64(100); id < 105; id++ {
		require.NoError(t, w.WriteTile(id, []byte("identical")))
	}

	require.Len(t, w.entries, 1)
	assert.Equal(t, uint32(5), w.entries[0].RunLength)
}

func TestWriterClusteredFlag(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(10, []byte("a")))
	require.NoError(t, w.WriteTile(20, []byte("b")))

	var out bytes.Buffer
	header, err := w.Finalize(context.Background(), &out, HeaderInputs{TileType: Mvt}, NoCompression, nil)
	require.NoError(t, err)
	assert.True(t, header.Clustered)
}

func TestWriterOutOfOrderClearsClustered(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(20, []byte("a")))
	require.NoError(t, w.WriteTile(10, []byte("b")))

	var out bytes.Buffer
	header, err := w.Finalize(context.Background(), &out, HeaderInputs{TileType: Mvt}, NoCompression, nil)
	require.NoError(t, err)
	assert.False(t, header.Clustered)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	tiles := map[uint64][]byte{}
	for z := uint8(0); z <= 5; z++ {
		dim := uint32(1) << z
		for x := uint32(0); x < dim; x++ {
			for y := uint32(0); y < dim; y++ {
				id, err := ZxyToID(z, x, y)
				require.NoError(t, err)
				tiles[id] = []byte{byte(z), byte(x), byte(y), byte(z + x + y)}
			}
		}
	}
	var ids []uint64
	for id := range tiles {
		ids = append(ids, id)
	}
	// Write in ascending order so the archive stays clustered.
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	for _, id := range ids {
		require.NoError(t, w.WriteTile(id, tiles[id]))
	}

	var out bytes.Buffer
	_, err = w.Finalize(context.Background(), &out, HeaderInputs{
		TileType:        Mvt,
		TileCompression: Gzip,
		MinLonE7:        -1800000000,
		MaxLonE7:        1800000000,
	}, Zstd, map[string]interface{}{"name": "roundtrip"})
	require.NoError(t, err)

	r := NewReader(&memorySource{data: out.Bytes()})
	ctx := context.Background()

	for id, data := range tiles {
		z, x, y, err := IDToZxy(id)
		require.NoError(t, err)
		got, err := r.Get(ctx, z, x, y)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}

	md, err := r.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", md["name"])
}

func TestWriterHashCollisionVerifiesBytes(t *testing.T) {
	// Not a true xxh3 collision (infeasible to construct), but exercises
	// the same code path: two different byte strings staged back to back
	// must never be reported as deduplicated against each other.
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(1, []byte("alpha")))
	require.NoError(t, w.WriteTile(2, []byte("beta")))

	assert.Len(t, w.entries, 2)
	assert.NotEqual(t, w.entries[0].Offset, w.entries[1].Offset)
}

func TestWriterCloseRemovesStagingFile(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	path := w.stagingPath
	require.NoError(t, w.WriteTile(1, []byte("x")))
	require.NoError(t, w.Close())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

type fakeProgress struct {
	written int
	added   int
	closed  bool
}

func (p *fakeProgress) Write(data []byte) (int, error) {
	p.written += len(data)
	return len(data), nil
}
func (p *fakeProgress) Add(num int) { p.added += num }
func (p *fakeProgress) Close() error {
	p.closed = true
	return nil
}

type fakeProgressWriter struct {
	count, bytes *fakeProgress
}

func (f *fakeProgressWriter) NewCountProgress(total int64, description string) Progress {
	f.count = &fakeProgress{}
	return f.count
}

func (f *fakeProgressWriter) NewBytesProgress(total int64, description string) Progress {
	f.bytes = &fakeProgress{}
	return f.bytes
}

func TestWriterWithProgressReportsTileDataCopy(t *testing.T) {
	pw := &fakeProgressWriter{}
	w, err := NewWriter(t.TempDir(), WithProgress(pw))
	require.NoError(t, err)

	require.NoError(t, w.WriteTile(1, []byte("abc")))
	require.NoError(t, w.WriteTile(2, []byte("defgh")))

	var out bytes.Buffer
	_, err = w.Finalize(context.Background(), &out, HeaderInputs{TileType: Mvt}, NoCompression, nil)
	require.NoError(t, err)

	require.NotNil(t, pw.bytes)
	assert.Equal(t, 8, pw.bytes.written)
	assert.True(t, pw.bytes.closed)
}

func TestWriterWithMetricsObservesDedupAndRatio(t *testing.T) {
	m := metrics.New("test_writer_metrics", log.Default())
	w, err := NewWriter(t.TempDir(), WithWriterMetrics(m))
	require.NoError(t, err)

	id0, _ := ZxyToID(1, 0, 0)
	id1, _ := ZxyToID(1, 0, 1)

	require.NoError(t, w.WriteTile(id0, []byte("same")))
	require.NoError(t, w.WriteTile(id1, []byte("same")))

	var out bytes.Buffer
	_, err = w.Finalize(context.Background(), &out, HeaderInputs{TileType: Mvt}, NoCompression, nil)
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.WriterTilesWritten))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WriterTilesDeduped))
	assert.Equal(t, float64(0.5), testutil.ToFloat64(m.WriterDedupRatio))
}
