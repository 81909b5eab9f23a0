package book

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor is returned when a cursor cannot be decoded
var ErrInvalidCursor = errors.New("invalid cursor")

// cursorData represents the data encoded in a cursor
type cursorData struct {
	URL string `json:"u"`
}

// EncodeCursor wraps an upstream continuation URL into an opaque token
func EncodeCursor(continuation string) string {
	if continuation == "" {
		return ""
	}
	raw, err := json.Marshal(cursorData{URL: continuation})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor unwraps a token produced by EncodeCursor
func DecodeCursor(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidCursor
	}
	var data cursorData
	if err := json.Unmarshal(raw, &data); err != nil || data.URL == "" {
		return "", ErrInvalidCursor
	}
	return data.URL, nil
}
