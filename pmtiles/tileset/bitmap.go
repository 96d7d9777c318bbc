// Package tileset provides Roaring-bitmap-backed tile ID / offset sets,
// used to verify an archive's header statistics against its actual
// directory contents without materializing every entry in memory at
// once.
package tileset

import (
	"context"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/tilekit-oss/pmtiles/pmtiles"
)

// Report summarizes a Verify run: the counted statistics plus any
// mismatches found against the header's own counters. Header counters
// are advisory; Verify is the only place they are ever cross-checked.
type Report struct {
	AddressedTiles uint64
	TileEntries    uint64
	TileContents   uint64
	MinZoom        uint8
	MaxZoom        uint8
	Clustered      bool
	Problems       []string
}

// Verify walks every directory page of the archive r reads from,
// recomputing addressed-tile/entry/content counts and zoom bounds from
// scratch, and reports any discrepancy against the header's own
// counters, zoom bounds or clustering claim, any entry pointing past the
// tile data section, and a CenterZoom outside [MinZoom, MaxZoom].
func Verify(ctx context.Context, r *pmtiles.Reader) (Report, error) {
	header, err := r.Header(ctx)
	if err != nil {
		return Report{}, err
	}

	offsets := roaring64.New()
	var minTileID uint64 = math.MaxUint64
	var maxTileID uint64
	var addressedTiles, tileEntries uint64
	var currentOffset uint64
	var problems []string

	var walk func(offset, length uint64) error
	walk = func(offset, length uint64) error {
		entries, err := r.FetchDirectory(ctx, offset, length)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsLeaf() {
				if err := walk(header.LeafDirectoryOffset+e.Offset, uint64(e.Length)); err != nil {
					return err
				}
				continue
			}

			offsets.Add(e.Offset)
			addressedTiles += uint64(e.RunLength)
			tileEntries++

			if e.TileID < minTileID {
				minTileID = e.TileID
			}
			if e.TileID > maxTileID {
				maxTileID = e.TileID
			}
			if e.Offset+uint64(e.Length) > header.TileDataLength {
				problems = append(problems, fmt.Sprintf("entry %+v points outside the tile data section", e))
			}
			if header.Clustered {
				if !offsets.Contains(e.Offset) {
					if e.Offset != currentOffset {
						problems = append(problems, fmt.Sprintf("out-of-order entry %+v in a clustered archive", e))
					}
					currentOffset += uint64(e.Length)
				}
			}
			offsets.Add(e.Offset)
		}
		return nil
	}

	if err := walk(header.RootOffset, header.RootLength); err != nil {
		return Report{}, err
	}

	if addressedTiles != header.AddressedTilesCount {
		problems = append(problems, fmt.Sprintf("header AddressedTilesCount=%d but %d tiles addressed", header.AddressedTilesCount, addressedTiles))
	}
	if tileEntries != header.TileEntriesCount {
		problems = append(problems, fmt.Sprintf("header TileEntriesCount=%d but %d tile entries", header.TileEntriesCount, tileEntries))
	}
	if offsets.GetCardinality() != header.TileContentsCount {
		problems = append(problems, fmt.Sprintf("header TileContentsCount=%d but %d distinct tile contents", header.TileContentsCount, offsets.GetCardinality()))
	}

	var minZoom, maxZoom uint8
	if addressedTiles > 0 {
		var err error
		minZoom, _, _, err = pmtiles.IDToZxy(minTileID)
		if err != nil {
			return Report{}, err
		}
		maxZoom, _, _, err = pmtiles.IDToZxy(maxTileID)
		if err != nil {
			return Report{}, err
		}
		if minZoom != header.MinZoom {
			problems = append(problems, fmt.Sprintf("header MinZoom=%d does not match observed min tile zoom %d", header.MinZoom, minZoom))
		}
		if maxZoom != header.MaxZoom {
			problems = append(problems, fmt.Sprintf("header MaxZoom=%d does not match observed max tile zoom %d", header.MaxZoom, maxZoom))
		}
	}
	if !(header.CenterZoom >= header.MinZoom && header.CenterZoom <= header.MaxZoom) {
		problems = append(problems, fmt.Sprintf("header CenterZoom=%d is not within [MinZoom, MaxZoom]", header.CenterZoom))
	}

	return Report{
		AddressedTiles: addressedTiles,
		TileEntries:    tileEntries,
		TileContents:   offsets.GetCardinality(),
		MinZoom:        minZoom,
		MaxZoom:        maxZoom,
		Clustered:      header.Clustered,
		Problems:       problems,
	}, nil
}

// Generalize adds, for every tile ID in r, its ancestor IDs up to
// minZoom, producing the smallest bitmap whose presence at every zoom
// level between minZoom and the set's max zoom implies presence at
// every zoom in between. Used to build a parent-covering tile set (e.g.
// to decide which lower-zoom tiles must be addressed for a given
// overzoomed leaf set), adapted from the teacher's non-geometric
// bitmap generalization helpers.
func Generalize(r *roaring64.Bitmap, minZoom uint8) error {
	if r.GetCardinality() == 0 {
		return nil
	}
	maxID := r.ReverseIterator().Next()
	maxZ, _, _, err := pmtiles.IDToZxy(maxID)
	if err != nil {
		return err
	}

	toIterate := r
	for z := int(maxZ); z > int(minZoom); z-- {
		next := roaring64.New()
		it := toIterate.Iterator()
		for it.HasNext() {
			next.Add(pmtiles.ParentID(it.Next()))
		}
		r.Or(next)
		toIterate = next
	}
	return nil
}
