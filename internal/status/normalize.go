package status

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// toEpochMillis coerces the timestamp representations found in stored
// documents to integer epoch milliseconds. Older clients wrote RFC3339
// strings or {seconds, nanoseconds} objects; JSON decoding turns numbers
// into float64. Unrecognized values collapse to 0.
func toEpochMillis(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UnixMilli()
		}
	case time.Time:
		return t.UnixMilli()
	case map[string]any:
		sec := toEpochMillis(t["seconds"])
		if sec == 0 {
			return 0
		}
		var nanos int64
		switch n := t["nanoseconds"].(type) {
		case float64:
			nanos = int64(n)
		case int64:
			nanos = n
		case int:
			nanos = int64(n)
		}
		return sec*1000 + nanos/int64(time.Millisecond)
	}
	return 0
}

// sanitizeReactions converts a raw stored reaction map into the canonical
// {emoji: {reactors, count}} shape: reactors deduplicated and sorted, count
// recomputed from the set size, emoji keys with no reactors dropped.
func sanitizeReactions(v any) map[string]Reaction {
	raw, _ := v.(map[string]any)
	out := make(map[string]Reaction, len(raw))
	for emoji, entry := range raw {
		reactors := reactorSet(entry)
		if len(reactors) == 0 {
			continue
		}
		out[emoji] = Reaction{Reactors: reactors, Count: len(reactors)}
	}
	return out
}

// reactorSet extracts the reactor uids from one emoji entry. Tolerates the
// canonical {reactors: [...]} object, a bare uid list, and the legacy
// {uid: true} membership map.
func reactorSet(entry any) []string {
	var uids []string
	add := func(v any) {
		if s := asString(v); s != "" {
			uids = append(uids, s)
		}
	}
	switch t := entry.(type) {
	case map[string]any:
		switch r := t["reactors"].(type) {
		case []any:
			for _, v := range r {
				add(v)
			}
		case []string:
			for _, v := range r {
				add(v)
			}
		case map[string]any:
			for uid, on := range r {
				if asBool(on) {
					add(uid)
				}
			}
		}
	case []any:
		for _, v := range t {
			add(v)
		}
	}
	return dedupe(uids)
}

// sanitizeReports converts a raw stored report map into {uid: {reason,
// reportedAt}}, keeping at most one entry per reporter.
func sanitizeReports(v any) map[string]Report {
	raw, _ := v.(map[string]any)
	out := make(map[string]Report, len(raw))
	for uid, entry := range raw {
		if uid == "" {
			continue
		}
		switch t := entry.(type) {
		case map[string]any:
			out[uid] = Report{
				Reason:     asString(t["reason"]),
				ReportedAt: toEpochMillis(t["reportedAt"]),
			}
		case string:
			// Legacy shape stored the bare reason string.
			out[uid] = Report{Reason: t}
		}
	}
	return out
}

func reactionsToDoc(reactions map[string]Reaction) map[string]any {
	out := make(map[string]any, len(reactions))
	for emoji, r := range reactions {
		reactors := make([]any, len(r.Reactors))
		for i, uid := range r.Reactors {
			reactors[i] = uid
		}
		out[emoji] = map[string]any{"reactors": reactors, "count": len(r.Reactors)}
	}
	return out
}

func reportsToDoc(reports map[string]Report) map[string]any {
	out := make(map[string]any, len(reports))
	for uid, r := range reports {
		out[uid] = map[string]any{"reason": r.Reason, "reportedAt": r.ReportedAt}
	}
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}
