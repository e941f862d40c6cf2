package metadata

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Well-known record keys.
const (
	KeyVersion         = "version"
	KeyState           = "state"
	KeyComment         = "comment"
	KeyVersionFilePath = "versionFilePath"
	KeyPipeType        = "pipeType"
	KeyUpdatedAt       = "updatedAt"
)

// Record holds the metadata of one artifact.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key as a string.
func (r Record) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case nil:
		return "", false
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// Int returns the value of key as an int. Numbers decoded from YAML or JSON
// and numeric strings are accepted.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Time returns the value of key parsed as an RFC 3339 timestamp.
func (r Record) Time(key string) (time.Time, bool) {
	switch v := r[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return float64(v)
	default:
		return value
	}
}
