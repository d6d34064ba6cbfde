package status

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestToEpochMillis(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"int64", int64(1748779200000), 1748779200000},
		{"int", int(1748779200000), 1748779200000},
		{"float64 from JSON", float64(1748779200000), 1748779200000},
		{"json.Number", json.Number("1748779200000"), 1748779200000},
		{"numeric string", "1748779200000", 1748779200000},
		{"rfc3339 string", ts.Format(time.RFC3339Nano), ts.UnixMilli()},
		{"time.Time", ts, ts.UnixMilli()},
		{"seconds object", map[string]any{"seconds": float64(1748779200), "nanoseconds": float64(500000000)}, 1748779200000 + 500},
		{"garbage string", "not a time", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toEpochMillis(tt.in); got != tt.want {
				t.Errorf("toEpochMillis(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeReactions(t *testing.T) {
	raw := map[string]any{
		"🔥": map[string]any{
			"reactors": []any{"u2", "u1", "u1"},
			"count":    float64(99), // stale count must be recomputed
		},
		"👍": map[string]any{
			"reactors": []any{},
			"count":    float64(0),
		},
		"❤️": []any{"u3"}, // legacy bare list shape
		"😀": map[string]any{
			"reactors": map[string]any{"u4": true, "u5": false},
		},
	}

	got := sanitizeReactions(raw)

	if _, ok := got["👍"]; ok {
		t.Error("emoji with no reactors should be dropped, not kept at zero")
	}
	fire := got["🔥"]
	if !reflect.DeepEqual(fire.Reactors, []string{"u1", "u2"}) {
		t.Errorf("reactors not deduplicated/sorted: %v", fire.Reactors)
	}
	if fire.Count != 2 {
		t.Errorf("count = %d, want 2 (recomputed from reactor set)", fire.Count)
	}
	if got["❤️"].Count != 1 || got["❤️"].Reactors[0] != "u3" {
		t.Errorf("legacy list shape not handled: %+v", got["❤️"])
	}
	if !reflect.DeepEqual(got["😀"].Reactors, []string{"u4"}) {
		t.Errorf("membership-map shape not handled: %+v", got["😀"])
	}

	for emoji, r := range got {
		if r.Count != len(r.Reactors) {
			t.Errorf("invariant violated for %s: count=%d reactors=%d", emoji, r.Count, len(r.Reactors))
		}
	}
}

func TestSanitizeReactionsNonMap(t *testing.T) {
	if got := sanitizeReactions(nil); len(got) != 0 {
		t.Errorf("nil input should yield empty map, got %v", got)
	}
	if got := sanitizeReactions("junk"); len(got) != 0 {
		t.Errorf("junk input should yield empty map, got %v", got)
	}
}

func TestSanitizeReports(t *testing.T) {
	raw := map[string]any{
		"u1": map[string]any{"reason": "spam", "reportedAt": float64(1000)},
		"u2": "offensive", // legacy bare reason
		"":   map[string]any{"reason": "anonymous"},
	}

	got := sanitizeReports(raw)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (empty uid dropped)", len(got))
	}
	if got["u1"].Reason != "spam" || got["u1"].ReportedAt != 1000 {
		t.Errorf("u1 = %+v", got["u1"])
	}
	if got["u2"].Reason != "offensive" {
		t.Errorf("legacy shape: %+v", got["u2"])
	}
}

func TestStatusFromDocRecomputesReportCount(t *testing.T) {
	s := statusFromDoc(docDocument(map[string]any{
		"message": "hi",
		"reports": map[string]any{
			"u1": map[string]any{"reason": "spam"},
			"u2": map[string]any{"reason": "spam"},
		},
		"reportCount": float64(7), // stale
	}))
	if s.ReportCount != 2 {
		t.Errorf("ReportCount = %d, want 2 (recomputed from reports)", s.ReportCount)
	}
}
