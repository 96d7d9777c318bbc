package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var start, end int
		rangeHeader := r.Header.Get("Range")
		if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end); err != nil {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		if end >= len(body) {
			end = len(body) - 1
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body[start : end+1])
	}))
}

func TestHTTPRangeGet(t *testing.T) {
	body := []byte("0123456789abcdef")
	srv := rangeServer(t, body)
	defer srv.Close()

	h := NewHTTPRange(srv.URL, nil)
	data, err := h.Get(context.Background(), 4, 6)
	require.NoError(t, err)
	assert.Equal(t, "456789", string(data))
}

func TestHTTPRangeGetBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	h := NewHTTPRange(srv.URL, nil)
	_, err := h.Get(context.Background(), 0, 4)
	assert.Error(t, err)
}

func TestHTTPRangeGetShortBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("ab"))
	}))
	defer srv.Close()

	h := NewHTTPRange(srv.URL, nil)
	_, err := h.Get(context.Background(), 0, 10)
	assert.Error(t, err)
}
