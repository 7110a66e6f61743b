package search

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
)

// FileTransport answers every request with a saved Instant Answer response
// read from Path, for offline runs and fixtures.
type FileTransport struct {
	Path string
}

func (f *FileTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("file transport path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: int64(len(b)),
		Request:       req,
	}, nil
}
