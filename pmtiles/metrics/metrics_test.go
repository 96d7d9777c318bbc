package metrics

import (
	"log"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSourceRequest(t *testing.T) {
	m := New("test_source_request", log.Default())

	m.ObserveSourceRequest("ok", 0.05)
	m.ObserveSourceRequest("error", 0.1)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequests.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequests.WithLabelValues("error")))
}

func TestObserveCacheLookup(t *testing.T) {
	m := New("test_cache_lookup", log.Default())

	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.DirCacheRequests.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DirCacheRequests.WithLabelValues("miss")))
}

func TestObserveWriterTile(t *testing.T) {
	m := New("test_writer_tile", log.Default())

	m.ObserveWriterTile(false)
	m.ObserveWriterTile(true)
	m.ObserveWriterTile(true)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.WriterTilesWritten))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.WriterTilesDeduped))
}

func TestObserveDescent(t *testing.T) {
	m := New("test_descent", log.Default())

	m.ObserveDescent(2)
	require.NotNil(t, m.DescentDepth)
}
