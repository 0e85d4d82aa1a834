// Package encode converts image payloads between raw bytes, base64 strings
// and data URLs.
package encode

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

func DecodeBase64String(value string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(value)
}

func EncodeBase64String(value []byte) string {
	return base64.StdEncoding.EncodeToString(value)
}

// SplitDataURL separates "data:<mime>;base64,<payload>" into its parts. A
// value without the data: prefix is returned as the payload with an empty
// mime type.
func SplitDataURL(value string) (mime, payload string) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "data:") {
		return "", value
	}
	idx := strings.Index(value, ",")
	if idx < 0 {
		return "", value
	}
	header := strings.TrimPrefix(value[:idx], "data:")
	mime = strings.TrimSuffix(header, ";base64")
	return mime, value[idx+1:]
}

// DecodeUpload decodes a base64 payload or data URL and reports its media
// type. When the data URL names no type it is sniffed from the bytes.
func DecodeUpload(value string) ([]byte, string, error) {
	mime, payload := SplitDataURL(value)
	if payload == "" {
		return nil, "", fmt.Errorf("upload is empty")
	}
	data, err := DecodeBase64String(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode upload: %w", err)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// DataURL renders bytes as a data URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + EncodeBase64String(data)
}
