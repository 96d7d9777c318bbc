//go:build !unix

package source

import "fmt"

func mmapFile(fd uintptr, size int) ([]byte, error) {
	return nil, fmt.Errorf("pmtiles/source: memory mapping is not supported on this platform")
}

func munmapFile(data []byte) error {
	return nil
}
