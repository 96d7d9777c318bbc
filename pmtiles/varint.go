package pmtiles

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// writeUvarint appends n to w in unsigned LEB128 form: 7 bits per byte,
// high bit set on every byte but the last.
func writeUvarint(w io.Writer, tmp []byte, n uint64) error {
	length := binary.PutUvarint(tmp, n)
	_, err := w.Write(tmp[:length])
	return err
}

// readUvarint reads one LEB128-encoded value from r. It returns
// ErrTruncatedVarint if the stream ends before a terminating byte.
func readUvarint(r *bufio.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrTruncatedVarint
		}
		return 0, err
	}
	return v, nil
}
