package sdk

import (
	"bytes"

	"github.com/klauspost/compress/gzip"
)

const contentEncodingGzip = "gzip"

// shouldCompress applies the configured threshold: bodies at or above it are
// compressed once compression is enabled.
func shouldCompress(cfg configSnapshot, body []byte) bool {
	return cfg.compressionEnabled && len(body) > 0 && len(body) >= cfg.compressionThreshold
}

func gzipBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
