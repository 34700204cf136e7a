package pagination

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params is the raw limit and cursor a list endpoint accepts.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of a page ordered by created_at DESC, id DESC.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalized limit plus one so the query can
// detect whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim cuts rows fetched with LimitWithBuffer down to limit and returns the
// cursor of the last kept row when more rows remain.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, nil
	}
	next := key(rows[limit-1])
	return rows[:limit], &next
}

const (
	cursorVersion = 1
	cursorLen     = 1 + 8 + 4 + 16
)

// EncodeCursor packs the cursor as version, unix seconds, nanoseconds and the
// raw id, then base64url encodes it without padding.
func EncodeCursor(cursor Cursor) string {
	buf := make([]byte, cursorLen)
	buf[0] = cursorVersion
	binary.BigEndian.PutUint64(buf[1:9], uint64(cursor.CreatedAt.Unix()))
	binary.BigEndian.PutUint32(buf[9:13], uint32(cursor.CreatedAt.Nanosecond()))
	copy(buf[13:], cursor.ID[:])
	return base64.RawURLEncoding.EncodeToString(buf)
}

// ParseCursor decodes a cursor produced by EncodeCursor. An empty value
// means the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimRight(strings.TrimSpace(value), "=")
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if len(raw) != cursorLen || raw[0] != cursorVersion {
		return nil, errors.New("invalid cursor format")
	}

	sec := int64(binary.BigEndian.Uint64(raw[1:9]))
	nsec := int64(binary.BigEndian.Uint32(raw[9:13]))
	if nsec >= int64(time.Second) {
		return nil, errors.New("invalid cursor timestamp")
	}
	id, err := uuid.FromBytes(raw[13:])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: time.Unix(sec, nsec).UTC(), ID: id}, nil
}
