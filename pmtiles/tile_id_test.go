package pmtiles

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustZxyToID(t *testing.T, z uint8, x, y uint32) uint64 {
	t.Helper()
	id, err := ZxyToID(z, x, y)
	require.NoError(t, err)
	return id
}

func mustIDToZxy(t *testing.T, id uint64) (uint8, uint32, uint32) {
	t.Helper()
	z, x, y, err := IDToZxy(id)
	require.NoError(t, err)
	return z, x, y
}

func TestZxyToID(t *testing.T) {
	assert.Equal(t, uint64(0), mustZxyToID(t, 0, 0, 0))
	assert.Equal(t, uint64(1), mustZxyToID(t, 1, 0, 0))
	assert.Equal(t, uint64(2), mustZxyToID(t, 1, 0, 1))
	assert.Equal(t, uint64(3), mustZxyToID(t, 1, 1, 1))
	assert.Equal(t, uint64(4), mustZxyToID(t, 1, 1, 0))
	assert.Equal(t, uint64(5), mustZxyToID(t, 2, 0, 0))
	assert.Equal(t, uint64(19078479), mustZxyToID(t, 12, 3423, 1763))
}

func TestIDToZxy(t *testing.T) {
	z, x, y := mustIDToZxy(t, 0)
	assert.Equal(t, uint8(0), z)
	assert.Equal(t, uint32(0), x)
	assert.Equal(t, uint32(0), y)

	z, x, y = mustIDToZxy(t, 1)
	assert.Equal(t, uint8(1), z)
	assert.Equal(t, uint32(0), x)
	assert.Equal(t, uint32(0), y)

	z, x, y = mustIDToZxy(t, 19078479)
	assert.Equal(t, uint8(12), z)
	assert.Equal(t, uint32(3423), x)
	assert.Equal(t, uint32(1763), y)
}

func TestBijectionUpToZoom12(t *testing.T) {
	for z := uint8(0); z <= 12; z++ {
		dim := uint32(1) << z
		for x := uint32(0); x < dim; x++ {
			for y := uint32(0); y < dim; y++ {
				id := mustZxyToID(t, z, x, y)
				rz, rx, ry := mustIDToZxy(t, id)
				if !(z == rz && x == rx && y == ry) {
					t.Fatalf("round trip mismatch on z=%d x=%d y=%d -> id=%d -> z=%d x=%d y=%d", z, x, y, id, rz, rx, ry)
				}
			}
		}
	}
}

func TestExtremes(t *testing.T) {
	for tz := uint8(0); tz < 32; tz++ {
		dim := (uint32(1) << tz) - 1

		z, x, y := mustIDToZxy(t, mustZxyToID(t, tz, 0, 0))
		assert.Equal(t, tz, z)
		assert.Equal(t, uint32(0), x)
		assert.Equal(t, uint32(0), y)

		z, x, y = mustIDToZxy(t, mustZxyToID(t, tz, dim, 0))
		assert.Equal(t, tz, z)
		assert.Equal(t, dim, x)
		assert.Equal(t, uint32(0), y)

		z, x, y = mustIDToZxy(t, mustZxyToID(t, tz, 0, dim))
		assert.Equal(t, tz, z)
		assert.Equal(t, uint32(0), x)
		assert.Equal(t, dim, y)

		z, x, y = mustIDToZxy(t, mustZxyToID(t, tz, dim, dim))
		assert.Equal(t, tz, z)
		assert.Equal(t, dim, x)
		assert.Equal(t, dim, y)
	}
}

func TestDomainOutOfRange(t *testing.T) {
	_, err := ZxyToID(32, 0, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ZxyToID(0, 1, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, _, _, err = IDToZxy(math.MaxUint64)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestParent(t *testing.T) {
	assert.Equal(t, mustZxyToID(t, 0, 0, 0), ParentID(mustZxyToID(t, 1, 0, 0)))

	assert.Equal(t, mustZxyToID(t, 1, 0, 0), ParentID(mustZxyToID(t, 2, 0, 0)))
	assert.Equal(t, mustZxyToID(t, 1, 0, 0), ParentID(mustZxyToID(t, 2, 0, 1)))
	assert.Equal(t, mustZxyToID(t, 1, 0, 0), ParentID(mustZxyToID(t, 2, 1, 0)))
	assert.Equal(t, mustZxyToID(t, 1, 0, 0), ParentID(mustZxyToID(t, 2, 1, 1)))

	assert.Equal(t, mustZxyToID(t, 1, 0, 1), ParentID(mustZxyToID(t, 2, 0, 2)))
	assert.Equal(t, mustZxyToID(t, 1, 0, 1), ParentID(mustZxyToID(t, 2, 0, 3)))
	assert.Equal(t, mustZxyToID(t, 1, 0, 1), ParentID(mustZxyToID(t, 2, 1, 2)))
	assert.Equal(t, mustZxyToID(t, 1, 0, 1), ParentID(mustZxyToID(t, 2, 1, 3)))

	assert.Equal(t, mustZxyToID(t, 1, 1, 0), ParentID(mustZxyToID(t, 2, 2, 0)))
	assert.Equal(t, mustZxyToID(t, 1, 1, 0), ParentID(mustZxyToID(t, 2, 2, 1)))
	assert.Equal(t, mustZxyToID(t, 1, 1, 0), ParentID(mustZxyToID(t, 2, 3, 0)))
	assert.Equal(t, mustZxyToID(t, 1, 1, 0), ParentID(mustZxyToID(t, 2, 3, 1)))

	assert.Equal(t, mustZxyToID(t, 1, 1, 1), ParentID(mustZxyToID(t, 2, 2, 2)))
	assert.Equal(t, mustZxyToID(t, 1, 1, 1), ParentID(mustZxyToID(t, 2, 2, 3)))
	assert.Equal(t, mustZxyToID(t, 1, 1, 1), ParentID(mustZxyToID(t, 2, 3, 2)))
	assert.Equal(t, mustZxyToID(t, 1, 1, 1), ParentID(mustZxyToID(t, 2, 3, 3)))
}
