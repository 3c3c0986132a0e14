package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"stockroom/internal/core/id"
	"stockroom/internal/domain/audit"
)

// AuditLog keeps audit entries in memory.
type AuditLog struct {
	store   *Store
	entries *table[id.ID, audit.Entry]
}

// NewAuditLog creates the audit table.
func NewAuditLog(store *Store) *AuditLog {
	return &AuditLog{
		store: store,
		entries: newTable[id.ID](store, func(e audit.Entry) audit.Entry {
			e.Changes = append(json.RawMessage(nil), e.Changes...)
			return e
		}),
	}
}

// Record implements audit.Recorder.
func (a *AuditLog) Record(ctx context.Context, entry audit.Entry) error {
	return a.store.within(ctx, func() error {
		a.entries.put(entry.ID, entry)
		return nil
	})
}

// History implements audit.Recorder, newest first.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	var out []audit.Entry
	err := a.store.within(ctx, func() error {
		a.entries.each(func(_ id.ID, e audit.Entry) bool {
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, a.entries.clone(e))
			}
			return true
		})
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

var _ audit.Recorder = (*AuditLog)(nil)
