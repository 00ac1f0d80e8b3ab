// Package migrate upgrades a decoded roster document to the current schema.
//
// Migration runs on every load, on the raw JSON tree, before the document is
// decoded into typed structures. Every step is idempotent and fills only what
// is missing, so a current document passes through unchanged and a minimal
// legacy document is fully backfilled by the same code.
package migrate

import (
	"encoding/json"
	"fmt"

	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// MigrationError reports a document that cannot be repaired.
type MigrationError struct {
	Path    string
	Message string
	Cause   error
}

func (e *MigrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("migration failed at %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("migration failed at %s: %s", e.Path, e.Message)
}

func (e *MigrationError) Unwrap() error {
	return e.Cause
}

// Report counts what a migration pass changed.
type Report struct {
	Characters     int `json:"characters"`
	RenamedKeys    int `json:"renamed_keys"`
	Backfilled     int `json:"backfilled"`
	NormalizedKeys int `json:"normalized_keys"`
	Repaired       int `json:"repaired"`

	// Dropped lists unknown gear slots and crest types removed from characters.
	Dropped []string `json:"dropped,omitempty"`
}

// Changed reports whether the pass modified the tree.
func (r Report) Changed() bool {
	return r.RenamedKeys+r.Backfilled+r.NormalizedKeys+r.Repaired > 0
}

// Migrate upgrades raw in place and decodes it into a document whose characters
// are sorted by display order.
func Migrate(raw map[string]any) (*types.RosterDocument, Report, error) {
	m := &migrator{}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := m.document(raw); err != nil {
		return nil, m.report, err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, m.report, &MigrationError{Path: "$", Message: "failed to encode migrated document", Cause: err}
	}
	var doc types.RosterDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, m.report, &MigrationError{Path: "$", Message: "failed to decode migrated document", Cause: err}
	}
	doc.SortCharacters()
	return &doc, m.report, nil
}

type migrator struct {
	report      Report
	currentWeek int
}

// drop removes an unrecognized key from a character sub-object and records it.
func (m *migrator) drop(c, obj map[string]any, field, key string) {
	delete(obj, key)
	m.report.Repaired++
	m.report.Dropped = append(m.report.Dropped, fmt.Sprintf("character %v: %s.%s", c["id"], field, key))
}

// rename moves m[from] to m[to] unless to is already present, in which case the
// legacy key is discarded.
func (m *migrator) rename(obj map[string]any, from, to string) {
	v, ok := obj[from]
	if !ok {
		return
	}
	delete(obj, from)
	if _, exists := obj[to]; !exists {
		obj[to] = v
	}
	m.report.RenamedKeys++
}

// backfill sets obj[key] = value when the key is absent.
func (m *migrator) backfill(obj map[string]any, key string, value any) {
	if _, ok := obj[key]; ok {
		return
	}
	obj[key] = value
	m.report.Backfilled++
}

// ensureObject returns obj[key] as an object, replacing absent or malformed values.
func (m *migrator) ensureObject(obj map[string]any, key string) map[string]any {
	v, present := obj[key]
	if child, ok := object(v); ok {
		return child
	}
	child := map[string]any{}
	obj[key] = child
	if present {
		m.report.Repaired++
	} else {
		m.report.Backfilled++
	}
	return child
}

func (m *migrator) ensureList(obj map[string]any, key string) []any {
	v, present := obj[key]
	if list, ok := v.([]any); ok {
		return list
	}
	obj[key] = []any{}
	if present {
		m.report.Repaired++
	} else {
		m.report.Backfilled++
	}
	return []any{}
}

// ensureInt coerces obj[key] to an int, using def when absent or unreadable.
func (m *migrator) ensureInt(obj map[string]any, key string, def int) int {
	v, present := obj[key]
	if !present {
		obj[key] = def
		m.report.Backfilled++
		return def
	}
	n, ok := intValue(v)
	if ok && wholeNumber(v) {
		return n
	}
	if !ok {
		n = def
	}
	obj[key] = n
	m.report.Repaired++
	return n
}

// ensureNonNegative is ensureInt clamped at zero.
func (m *migrator) ensureNonNegative(obj map[string]any, key string) int {
	n := m.ensureInt(obj, key, 0)
	if n < 0 {
		obj[key] = 0
		m.report.Repaired++
		return 0
	}
	return n
}

func (m *migrator) ensureString(obj map[string]any, key, def string) string {
	v, present := obj[key]
	if s, ok := v.(string); ok {
		return s
	}
	if present && v != nil {
		if f, ok := floatValue(v); ok {
			s := fmt.Sprint(f)
			obj[key] = s
			m.report.Repaired++
			return s
		}
	}
	obj[key] = def
	if present {
		m.report.Repaired++
	} else {
		m.report.Backfilled++
	}
	return def
}

func (m *migrator) ensureBool(obj map[string]any, key string, def bool) bool {
	v, present := obj[key]
	if b, ok := v.(bool); ok {
		return b
	}
	b := def
	if present {
		b = truthy(v)
		m.report.Repaired++
	} else {
		m.report.Backfilled++
	}
	obj[key] = b
	return b
}

// ensureTimestamp normalizes obj[key] to an RFC 3339 string or null.
func (m *migrator) ensureTimestamp(obj map[string]any, key string) {
	v, present := obj[key]
	if !present {
		obj[key] = nil
		m.report.Backfilled++
		return
	}
	if v == nil {
		return
	}
	t, ok := parseTimestamp(v)
	if !ok {
		obj[key] = nil
		m.report.Repaired++
		return
	}
	if s, isString := v.(string); isString && s == formatTimestamp(t) {
		return
	}
	obj[key] = formatTimestamp(t)
	m.report.Repaired++
}
