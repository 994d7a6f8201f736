package app

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// encodeDataURI wraps raw image bytes in a base64 data URI. The media type
// is sniffed from the content.
func encodeDataURI(data []byte) string {
	mime, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// decodeDataURI returns the bytes carried by a base64 data URI.
func decodeDataURI(uri string) ([]byte, error) {
	head, data, ok := strings.Cut(uri, ";base64,")
	if !ok || !strings.HasPrefix(head, "data:") {
		return nil, fmt.Errorf("stored payload is not a base64 data URI")
	}
	out, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return out, nil
}
