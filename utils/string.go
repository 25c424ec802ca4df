package utils

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
	"strings"
)

// CompressString gzips the input and base64-encodes the result for safe
// storage in JSON/BoltDB values.
func CompressString(input string) (string, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := gz.Write([]byte(input)); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecompressString reverses CompressString.
func DecompressString(input string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return "", err
	}
	gz, err := gzip.NewReader(bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	defer gz.Close()
	result, err := io.ReadAll(gz)
	if err != nil {
		return "", err
	}
	return string(result), nil
}

// NormalizeKey builds a cache key component from free-form metadata:
// lower-cased, trimmed, inner whitespace collapsed. Keeps cache hits stable
// regardless of input casing and spacing.
func NormalizeKey(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(strings.ToLower(p)), " ")
		normalized = append(normalized, p)
	}
	return strings.Join(normalized, "|")
}
