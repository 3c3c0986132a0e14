// Package audit records who changed ledger history and how.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appctx "stockroom/internal/core/context"
	"stockroom/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReceive Action = "receive"
)

// Entry is a single audit record. Changes holds {"before": ..., "after": ...}.
type Entry struct {
	ID         id.ID           `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   id.ID           `json:"entityId"`
	Action     Action          `json:"action"`
	UserID     string          `json:"userId,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Recorder persists audit entries. Record joins the transaction in ctx.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// NewChange builds an entry for a before/after pair, stamped with the actor
// from ctx. Either side may be nil.
func NewChange(ctx context.Context, entityType string, entityID id.ID, action Action, before, after any) (Entry, error) {
	changes, err := json.Marshal(map[string]any{"before": before, "after": after})
	if err != nil {
		return Entry{}, fmt.Errorf("marshal audit changes: %w", err)
	}
	return Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// History implements Recorder.
func (Nop) History(context.Context, string, id.ID, int) ([]Entry, error) { return nil, nil }
