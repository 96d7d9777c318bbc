package pmtiles

import "errors"

// Error kinds surfaced by the core codecs, Reader, and Writer.
//
// TileMiss is deliberately not in this list: a missing tile is an
// ordinary negative answer (FindTile's false result, or nil bytes from
// Get), never an error.
var (
	// ErrBadMagic is returned when the first 7 header bytes are not "PMTiles".
	ErrBadMagic = errors.New("pmtiles: bad magic number")

	// ErrUnsupportedVersion is returned when the header's spec version byte is not 3.
	ErrUnsupportedVersion = errors.New("pmtiles: unsupported spec version")

	// ErrTruncatedVarint is returned when a varint reader hits end-of-stream
	// before a continuation-terminated value is complete.
	ErrTruncatedVarint = errors.New("pmtiles: truncated varint")

	// ErrOutOfRange is returned by the TileID codec when z > 31, x or y fall
	// outside [0, 2^z), or a tile ID implies z >= 32.
	ErrOutOfRange = errors.New("pmtiles: z/x/y out of range")

	// ErrDepthExceeded is returned when the Reader descends more directory
	// levels than the hard cap without resolving a tile entry.
	ErrDepthExceeded = errors.New("pmtiles: directory depth exceeded")

	// ErrSourceError wraps a failure from the byte-range source: fewer bytes
	// than requested, or the source's own error.
	ErrSourceError = errors.New("pmtiles: byte range source error")

	// ErrUnsupportedCompression is returned when the directory or metadata
	// codec is asked to use a Compression value it cannot handle.
	ErrUnsupportedCompression = errors.New("pmtiles: unsupported compression")
)
