package source

import (
	"context"
	"fmt"
	"os"
)

// MappedFile is a pmtiles.ByteRangeSource backed by a read-only mmap of
// an on-disk archive. Get returns sub-slices of the mapping directly
// with no copy; callers must not retain them past Close.
type MappedFile struct {
	file *os.File
	data []byte
}

// OpenMappedFile mmaps path read-only for the lifetime of the returned
// MappedFile.
func OpenMappedFile(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pmtiles/source: opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pmtiles/source: stat %s: %w", path, err)
	}
	data, err := mmapFile(f.Fd(), int(info.Size()))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pmtiles/source: mmap %s: %w", path, err)
	}
	return &MappedFile{file: f, data: data}, nil
}

func (m *MappedFile) Get(_ context.Context, offset, length uint64) ([]byte, error) {
	if offset+length > uint64(len(m.data)) {
		return nil, fmt.Errorf("pmtiles/source: range [%d, %d) exceeds mapped size %d", offset, offset+length, len(m.data))
	}
	return m.data[offset : offset+length], nil
}

// Close unmaps the file and closes the underlying descriptor.
func (m *MappedFile) Close() error {
	if m.data == nil {
		return nil
	}
	err := munmapFile(m.data)
	m.data = nil
	if closeErr := m.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
