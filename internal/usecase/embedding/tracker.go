package embedding

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// Tracker snapshots the source fields of a multi-field column so an edit can
// be checked for changes that require a new combined vector.
type Tracker struct {
	column   string
	snapshot map[string]string
}

// NewTracker snapshots the source fields of cfg in original.
func NewTracker(cfg vector.ColumnConfig, original map[string]any) *Tracker {
	t := &Tracker{column: cfg.Column, snapshot: make(map[string]string)}
	if !cfg.IsMultiField() {
		return t
	}
	for _, name := range cfg.CombinedFields.SourceFields {
		t.snapshot[name] = strings.TrimSpace(FieldText(original[name]))
	}
	return t
}

// Column is the vector column being tracked.
func (t *Tracker) Column() string { return t.column }

// Changed lists the tracked fields whose value in updated differs from the snapshot.
// Fields absent from updated are unchanged.
func (t *Tracker) Changed(updated map[string]any) []string {
	var changed []string
	for name, before := range t.snapshot {
		v, ok := updated[name]
		if !ok {
			continue
		}
		if strings.TrimSpace(FieldText(v)) != before {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// NeedsRegeneration reports whether any tracked field changed.
func (t *Tracker) NeedsRegeneration(updated map[string]any) bool {
	return len(t.Changed(updated)) > 0
}
