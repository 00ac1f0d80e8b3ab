package migrate

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// legacyTimeLayouts are accepted for timestamps written without a zone.
var legacyTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
}

func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func intValue(v any) (int, bool) {
	f, ok := floatValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// wholeNumber reports whether v is already a JSON integer.
func wholeNumber(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == math.Trunc(n) && !math.IsInf(n, 0)
	case int, int64:
		return true
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	case nil:
		return false
	}
	f, ok := floatValue(v)
	return ok && f != 0
}

// canonicalWeekKey maps "01", "1.0", " 1 " to "1". Keys that are not whole
// numbers are returned unchanged with ok=false.
func canonicalWeekKey(key string) (string, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return key, false
	}
	return strconv.Itoa(int(f)), true
}

// sortedKeys returns m's keys with canonical keys first, then lexical order,
// so that collisions resolve the same way on every run.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, _ := canonicalWeekKey(keys[i])
		cj, _ := canonicalWeekKey(keys[j])
		ai, aj := ci == keys[i], cj == keys[j]
		if ai != aj {
			return ai
		}
		return keys[i] < keys[j]
	})
	return keys
}

// parseTimestamp accepts RFC 3339, zone-less ISO 8601 (read as UTC) and unix seconds.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed.UTC(), true
		}
		for _, layout := range legacyTimeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	case nil, bool:
		return time.Time{}, false
	}
	f, ok := floatValue(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
