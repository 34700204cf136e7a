package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringRing is a JSON array column that keeps only the most recent entries.
type StringRing []string

func (r *StringRing) Scan(src any) error {
	if src == nil {
		*r = StringRing{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringRing: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*r = StringRing{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringRing: decode: %w", err)
	}
	*r = StringRing(out)
	return nil
}

func (r StringRing) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(r))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Push appends value and drops the oldest entries beyond limit.
func (r StringRing) Push(value string, limit int) StringRing {
	out := append(StringRing{}, r...)
	out = append(out, value)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
