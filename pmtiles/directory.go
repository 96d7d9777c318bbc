package pmtiles

import (
	"bufio"
	"bytes"
	"encoding/binary"
)

// Entry is a single directory record. RunLength == 0 marks a leaf
// pointer (Offset/Length address a leaf directory within the leaf
// directories region); RunLength >= 1 marks a tile entry covering
// RunLength consecutive tile IDs that share one byte range within the
// tile data region.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// IsLeaf reports whether e points at a leaf directory rather than tile data.
func (e Entry) IsLeaf() bool {
	return e.RunLength == 0
}

// SerializeEntries encodes a sorted entry run as the five-column layout
// from spec §4.3, then compresses the result with c.
func SerializeEntries(entries []Entry, c Compression) ([]byte, error) {
	var raw bytes.Buffer
	tmp := make([]byte, binary.MaxVarintLen64)

	if err := writeUvarint(&raw, tmp, uint64(len(entries))); err != nil {
		return nil, err
	}

	var lastID uint64
	for _, e := range entries {
		if err := writeUvarint(&raw, tmp, e.TileID-lastID); err != nil {
			return nil, err
		}
		lastID = e.TileID
	}
	for _, e := range entries {
		if err := writeUvarint(&raw, tmp, uint64(e.RunLength)); err != nil {
			return nil, err
		}
	}
	for _, e := range entries {
		if err := writeUvarint(&raw, tmp, uint64(e.Length)); err != nil {
			return nil, err
		}
	}
	for i, e := range entries {
		var v uint64
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			v = 0
		} else {
			v = e.Offset + 1
		}
		if err := writeUvarint(&raw, tmp, v); err != nil {
			return nil, err
		}
	}

	return compress(raw.Bytes(), c)
}

// DeserializeEntries reverses SerializeEntries, rebuilding contiguous
// offsets from the sentinel 0 value.
func DeserializeEntries(data []byte, c Compression) ([]Entry, error) {
	decompressed, err := decompressBytes(data, c)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(bytes.NewReader(decompressed))

	count, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, count)

	var lastID uint64
	for i := range entries {
		delta, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		lastID += delta
		entries[i].TileID = lastID
	}
	for i := range entries {
		v, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		entries[i].RunLength = uint32(v)
	}
	for i := range entries {
		v, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		entries[i].Length = uint32(v)
	}
	for i := range entries {
		v, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		if i > 0 && v == 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}

	return entries, nil
}

// FindTile binary searches entries (sorted ascending by TileID) for
// tileID, honoring run-length and leaf-pointer semantics per spec §4.4.
func FindTile(entries []Entry, tileID uint64) (Entry, bool) {
	lo, hi := 0, len(entries)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		switch {
		case entries[mid].TileID < tileID:
			lo = mid + 1
		case entries[mid].TileID > tileID:
			hi = mid - 1
		default:
			return entries[mid], true
		}
	}

	// lo > hi now; hi is the largest index with TileID <= tileID.
	if hi < 0 {
		return Entry{}, false
	}
	candidate := entries[hi]
	if candidate.IsLeaf() {
		return candidate, true
	}
	if tileID-candidate.TileID < uint64(candidate.RunLength) {
		return candidate, true
	}
	return Entry{}, false
}

// rootBudgetTargetBytes is the canonical root-directory size budget: a
// cold reader can then fetch header + root in one 16 KiB range request.
const rootBudgetTargetBytes = 16384 - HeaderLenBytes

// buildRootLeaves partitions entries into contiguous chunks of leafSize,
// serializes each chunk as a leaf directory, and returns the serialized
// root (whose entries point at those leaves) plus the concatenated leaf
// bytes.
func buildRootLeaves(entries []Entry, leafSize int, c Compression) ([]byte, []byte, int, error) {
	rootEntries := make([]Entry, 0, (len(entries)+leafSize-1)/leafSize)
	var leaves bytes.Buffer
	numLeaves := 0

	for i := 0; i < len(entries); i += leafSize {
		end := i + leafSize
		if end > len(entries) {
			end = len(entries)
		}
		serialized, err := SerializeEntries(entries[i:end], c)
		if err != nil {
			return nil, nil, 0, err
		}
		rootEntries = append(rootEntries, Entry{
			TileID: entries[i].TileID,
			Offset: uint64(leaves.Len()),
			Length: uint32(len(serialized)),
		})
		leaves.Write(serialized)
		numLeaves++
	}

	rootBytes, err := SerializeEntries(rootEntries, c)
	if err != nil {
		return nil, nil, 0, err
	}
	return rootBytes, leaves.Bytes(), numLeaves, nil
}

// OptimizeDirectories builds the directory pyramid for entries (sorted
// ascending by TileID), searching for the smallest leaf size such that
// the resulting root directory serializes under targetRootLen bytes.
// It returns (root, leaves, numLeaves).
func OptimizeDirectories(entries []Entry, targetRootLen int, c Compression) ([]byte, []byte, int, error) {
	if len(entries) < 16384 {
		root, err := SerializeEntries(entries, c)
		if err != nil {
			return nil, nil, 0, err
		}
		if len(root) < targetRootLen {
			return root, nil, 0, nil
		}
	}

	leafSize := float64(len(entries)) / 3500
	if leafSize < 4096 {
		leafSize = 4096
	}

	for {
		root, leaves, numLeaves, err := buildRootLeaves(entries, int(leafSize), c)
		if err != nil {
			return nil, nil, 0, err
		}
		if len(root) < targetRootLen {
			return root, leaves, numLeaves, nil
		}
		leafSize *= 1.2
	}
}
