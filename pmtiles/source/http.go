package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPRange is a pmtiles.ByteRangeSource that issues Range: GET requests
// against a single URL, for archives served over plain HTTP(S) without
// a cloud SDK in front of them.
type HTTPRange struct {
	url    string
	client *http.Client
}

// NewHTTPRange creates an HTTPRange source for url. If client is nil,
// http.DefaultClient is used.
func NewHTTPRange(url string, client *http.Client) *HTTPRange {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRange{url: url, client: client}
}

func (h *HTTPRange) Get(ctx context.Context, offset, length uint64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("pmtiles/source: building request: %w", err)
	}
	end := offset + length - 1
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, end))

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pmtiles/source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pmtiles/source: unexpected status %d for range request", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pmtiles/source: reading response body: %w", err)
	}
	if uint64(len(data)) != length {
		return nil, fmt.Errorf("pmtiles/source: expected %d bytes, got %d", length, len(data))
	}
	return data, nil
}
