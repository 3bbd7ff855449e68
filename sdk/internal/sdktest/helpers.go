package sdktest

import (
	"bytes"
	"io"
	"net/http"

	"github.com/klauspost/compress/gzip"
)

// GunzipBody decompresses a gzip body
func GunzipBody(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// DecodedBody reads r's body, decompressing it when Content-Encoding is gzip.
// The body is left readable for later handlers.
func DecodedBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	raw, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if r.Header.Get("Content-Encoding") != "gzip" {
		return raw
	}
	plain, err := GunzipBody(raw)
	if err != nil {
		return raw
	}
	return plain
}
