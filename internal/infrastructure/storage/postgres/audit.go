package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"stockroom/internal/core/id"
	"stockroom/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for a payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which changes are
// stored compressed.
const DefaultCompressThreshold = 10 * 1024

// ChangeCodec compresses large audit payloads with zstd.
type ChangeCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewChangeCodec creates a codec compressing payloads larger than threshold.
func NewChangeCodec(threshold int) (*ChangeCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ChangeCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode returns either the plain payload or its compressed form.
func (c *ChangeCodec) Encode(changes json.RawMessage) (plain json.RawMessage, compressed []byte, algo CompressionAlgo) {
	if len(changes) <= c.threshold {
		return changes, nil, CompressionNone
	}
	return nil, c.encoder.EncodeAll(changes, nil), CompressionZstd
}

// Decode restores the payload written by Encode.
func (c *ChangeCodec) Decode(plain json.RawMessage, compressed []byte, algo CompressionAlgo) (json.RawMessage, error) {
	switch algo {
	case CompressionZstd:
		out, err := c.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress changes: %w", err)
		}
		return out, nil
	case CompressionNone, "":
		return plain, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", algo)
	}
}

// AuditLog implements audit.Recorder on the sys_audit table.
type AuditLog struct {
	txManager *TxManager
	codec     *ChangeCodec
}

// NewAuditLog creates an audit log using the default compression threshold.
func NewAuditLog(txManager *TxManager) (*AuditLog, error) {
	codec, err := NewChangeCodec(DefaultCompressThreshold)
	if err != nil {
		return nil, err
	}
	return &AuditLog{txManager: txManager, codec: codec}, nil
}

// Record implements audit.Recorder. It joins the transaction in ctx.
func (a *AuditLog) Record(ctx context.Context, entry audit.Entry) error {
	plain, compressed, algo := a.codec.Encode(entry.Changes)

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := a.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.EntityType, entry.EntityID, string(entry.Action), entry.UserID,
		plain, compressed, string(algo), entry.CreatedAt,
	)
	return MapError(err, "audit entry", "record")
}

// History implements audit.Recorder, newest first.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	sql := `
		SELECT id, entity_type, entity_id, action, user_id,
			   changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	rows, err := a.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, MapError(err, "audit entry", "history")
	}
	defer rows.Close()

	entries := []audit.Entry{}
	for rows.Next() {
		var (
			e          audit.Entry
			action     string
			plain      json.RawMessage
			compressed []byte
			algo       string
		)
		if err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &action, &e.UserID,
			&plain, &compressed, &algo, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		e.Action = audit.Action(action)
		if e.Changes, err = a.codec.Decode(plain, compressed, CompressionAlgo(algo)); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ audit.Recorder = (*AuditLog)(nil)
