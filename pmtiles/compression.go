package pmtiles

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the algorithm applied to directory bytes,
// the metadata document, or (descriptively, for tile_compression) tile
// contents. The core never recompresses tile bytes on behalf of a
// caller; only internal_compression is ever invoked by this package.
type Compression uint8

const (
	UnknownCompression Compression = 0
	NoCompression       Compression = 1
	Gzip                Compression = 2
	Brotli              Compression = 3
	Zstd                Compression = 4
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// compress returns data compressed with the given algorithm.
func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case NoCompression:
		return data, nil
	case Gzip:
		var b bytes.Buffer
		w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case Brotli:
		var b bytes.Buffer
		w := brotli.NewWriterLevel(&b, brotli.BestCompression)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, ErrUnsupportedCompression
	}
}

// decompressReader wraps r so reads come out decompressed.
func decompressReader(r io.Reader, c Compression) (io.Reader, error) {
	switch c {
	case NoCompression:
		return r, nil
	case Gzip:
		return gzip.NewReader(r)
	case Brotli:
		return brotli.NewReader(r), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, ErrUnsupportedCompression
	}
}

func decompressBytes(data []byte, c Compression) ([]byte, error) {
	r, err := decompressReader(bytes.NewReader(data), c)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
