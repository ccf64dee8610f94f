package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

// CompressionAlgo specifies how an entry's changes are stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the size above which changes are compressed.
const DefaultCompressThreshold = 10 * 1024

var _ ledger.AuditLog = (*AuditLog)(nil)

type auditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	RequestID         string          `db:"request_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

var auditColumns = ExtractDBColumns[auditRow]()

// AuditLog stores ledger audit entries in ledger_audit. Large change sets
// are zstd-compressed.
type AuditLog struct {
	txm       *TxManager
	builder   squirrel.StatementBuilderType
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewAuditLog creates an audit log writing through txm.
func NewAuditLog(txm *TxManager) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditLog{
		txm:       txm,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:   encoder,
		decoder:   decoder,
		threshold: DefaultCompressThreshold,
	}, nil
}

func (a *AuditLog) toRow(e ledger.AuditEntry) (auditRow, error) {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return auditRow{}, fmt.Errorf("marshal changes: %w", err)
	}
	r := auditRow{
		ID:              e.ID,
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Action:          string(e.Action),
		RequestID:       e.RequestID,
		Changes:         changes,
		CompressionAlgo: CompressionNone,
		CreatedAt:       e.CreatedAt,
	}
	if len(changes) > a.threshold {
		r.ChangesCompressed = a.encoder.EncodeAll(changes, nil)
		r.Changes = nil
		r.CompressionAlgo = CompressionZstd
	}
	return r, nil
}

func (a *AuditLog) fromRow(r auditRow) (ledger.AuditEntry, error) {
	raw := r.Changes
	if r.CompressionAlgo == CompressionZstd && len(r.ChangesCompressed) > 0 {
		var err error
		if raw, err = a.decoder.DecodeAll(r.ChangesCompressed, nil); err != nil {
			return ledger.AuditEntry{}, fmt.Errorf("decompress changes: %w", err)
		}
	}
	var changes map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &changes); err != nil {
			return ledger.AuditEntry{}, fmt.Errorf("unmarshal changes: %w", err)
		}
	}
	return ledger.AuditEntry{
		ID:         r.ID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Action:     ledger.AuditAction(r.Action),
		RequestID:  r.RequestID,
		Changes:    changes,
		CreatedAt:  r.CreatedAt,
	}, nil
}

func (a *AuditLog) insert(r auditRow) squirrel.InsertBuilder {
	return a.builder.Insert(AuditTable).SetMap(StructToMap(r))
}

func (a *AuditLog) selectHistory(entityID id.ID, limit int) squirrel.SelectBuilder {
	return a.builder.Select(auditColumns...).
		From(AuditTable).
		Where(squirrel.Eq{"entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))
}

// Record implements ledger.AuditLog.
func (a *AuditLog) Record(ctx context.Context, e ledger.AuditEntry) error {
	r, err := a.toRow(e)
	if err != nil {
		return err
	}
	sql, args, err := a.insert(r).ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := a.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase("record audit", err)
	}
	return nil
}

// History implements ledger.AuditLog.
func (a *AuditLog) History(ctx context.Context, entityID id.ID, limit int) ([]ledger.AuditEntry, error) {
	sql, args, err := a.selectHistory(entityID, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit history: %w", err)
	}
	var rows []auditRow
	if err := pgxscan.Select(ctx, a.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, apperror.NewDatabase("audit history", err)
	}
	out := make([]ledger.AuditEntry, 0, len(rows))
	for _, r := range rows {
		e, err := a.fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
