package pmtiles

// Zxy is a single tile's zoom/column/row coordinate.
type Zxy struct {
	Z uint8
	X uint32
	Y uint32
}

const maxZoom = 31

func rotate(n uint64, x, y *uint64, rx, ry uint64) {
	if ry == 0 {
		if rx == 1 {
			*x = n - 1 - *x
			*y = n - 1 - *y
		}
		*x, *y = *y, *x
	}
}

func tOnLevel(z uint8, pos uint64) (uint8, uint32, uint32) {
	n := uint64(1) << z
	rx, ry, t := pos, pos, pos
	var tx, ty uint64
	for s := uint64(1); s < n; s *= 2 {
		rx = 1 & (t / 2)
		ry = 1 & (t ^ rx)
		rotate(s, &tx, &ty, rx, ry)
		tx += s * rx
		ty += s * ry
		t /= 4
	}
	return z, uint32(tx), uint32(ty)
}

// acc is the starting tile ID for zoom z: the count of tiles at all
// lower zoom levels, ((1<<2z)-1)/3.
func acc(z uint8) uint64 {
	var sum uint64
	var tz uint8
	for ; tz < z; tz++ {
		sum += (uint64(1) << tz) * (uint64(1) << tz)
	}
	return sum
}

// ZxyToID converts (z, x, y) tile coordinates to a Hilbert-curve tile ID.
// It returns ErrOutOfRange when z > 31 or x/y fall outside [0, 2^z).
func ZxyToID(z uint8, x uint32, y uint32) (uint64, error) {
	if z > maxZoom {
		return 0, ErrOutOfRange
	}
	dim := uint32(1) << z
	if x >= dim || y >= dim {
		return 0, ErrOutOfRange
	}

	var n uint64 = 1 << z
	var rx, ry, d uint64
	tx := uint64(x)
	ty := uint64(y)
	for s := n / 2; s > 0; s /= 2 {
		if tx&s > 0 {
			rx = 1
		} else {
			rx = 0
		}
		if ty&s > 0 {
			ry = 1
		} else {
			ry = 0
		}
		d += s * s * ((3 * rx) ^ ry)
		rotate(s, &tx, &ty, rx, ry)
	}
	return acc(z) + d, nil
}

// IDToZxy converts a Hilbert-curve tile ID back to (z, x, y) tile
// coordinates. It returns ErrOutOfRange when the ID implies z >= 32.
func IDToZxy(id uint64) (uint8, uint32, uint32, error) {
	var sum uint64
	var z uint8
	for {
		if z > maxZoom {
			return 0, 0, 0, ErrOutOfRange
		}
		numTiles := (uint64(1) << z) * (uint64(1) << z)
		if sum+numTiles > id {
			rz, rx, ry := tOnLevel(z, id-sum)
			return rz, rx, ry, nil
		}
		sum += numTiles
		z++
	}
}

// ParentID finds the tile ID of the parent tile (one zoom level up)
// without round-tripping through (z, x, y).
func ParentID(id uint64) uint64 {
	var sum uint64
	var lastSum uint64
	var z uint8
	for {
		numTiles := (uint64(1) << z) * (uint64(1) << z)
		if sum+numTiles > id {
			return lastSum + (id-sum)/4
		}
		lastSum = sum
		sum += numTiles
		z++
	}
}
