package model

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const cursorPrefix = "v1:"

// Cursor marks everything a client has already been handed. It wraps the
// store's change sequence so that pagination never skips records written in
// the same instant; clients treat the encoded form as opaque.
type Cursor int64

// ZeroCursor is the cursor of a client that has never pulled.
const ZeroCursor Cursor = 0

// String encodes the cursor as an opaque token.
func (c Cursor) String() string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(int64(c), 10)))
}

// Seq is the change sequence the cursor stands for.
func (c Cursor) Seq() int64 {
	return int64(c)
}

// Max returns the later of two cursors.
func (c Cursor) Max(other Cursor) Cursor {
	if other > c {
		return other
	}
	return c
}

// ParseCursor decodes a token produced by Cursor.String. The empty string
// decodes to ZeroCursor.
func ParseCursor(token string) (Cursor, error) {
	if token == "" {
		return ZeroCursor, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("malformed cursor: %w", err)
	}
	s := string(raw)
	if !strings.HasPrefix(s, cursorPrefix) {
		return 0, fmt.Errorf("malformed cursor: unknown version")
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(s, cursorPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed cursor: %w", err)
	}
	if seq < 0 {
		return 0, fmt.Errorf("malformed cursor: negative position")
	}
	return Cursor(seq), nil
}

// ParseCursorPtr is ParseCursor for optional wire fields.
func ParseCursorPtr(token *string) (Cursor, error) {
	if token == nil {
		return ZeroCursor, nil
	}
	return ParseCursor(*token)
}
