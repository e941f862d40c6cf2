package metadata

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecordIntAcceptsDecodedShapes(t *testing.T) {
	r := Record{
		"a": 3,
		"b": float64(4),
		"c": "5",
		"d": json.Number("6"),
		"e": 1.5,
		"f": true,
	}
	for key, want := range map[string]int{"a": 3, "b": 4, "c": 5, "d": 6} {
		if got, ok := r.Int(key); !ok || got != want {
			t.Fatalf("Int(%s) = %d %v", key, got, ok)
		}
	}
	for _, key := range []string{"e", "f", "missing"} {
		if _, ok := r.Int(key); ok {
			t.Fatalf("expected Int(%s) to fail", key)
		}
	}
}

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := normalizeValue(ts); got != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected time encoding %v", got)
	}
	if got := normalizeValue(int64(7)); got != 7 {
		t.Fatalf("unexpected int encoding %v", got)
	}
}
