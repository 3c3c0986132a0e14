package ledger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockroom/internal/core/apperror"
	appctx "stockroom/internal/core/context"
	"stockroom/internal/core/id"
	"stockroom/internal/core/tx"
	"stockroom/internal/domain"
	"stockroom/internal/domain/audit"
	"stockroom/pkg/logger"
)

var tracer = otel.Tracer("stockroom/ledger")

const (
	entityTransaction = "transaction"
	recentLimit       = 10
)

// Exister checks that a referenced catalog record exists.
type Exister interface {
	Exists(ctx context.Context, id id.ID) (bool, error)
}

// Service records stock movements and keeps stock levels in step with them.
// Every mutation runs in one transaction and locks the stock level rows it
// touches, so concurrent writers against the same (product, location)
// serialize instead of losing updates.
type Service struct {
	stock     StockLevelRepository
	txs       TransactionRepository
	products  Exister
	locations Exister
	txManager tx.Manager
	audit     audit.Recorder
}

// Config wires the ledger service.
type Config struct {
	Stock        StockLevelRepository
	Transactions TransactionRepository
	Products     Exister
	Locations    Exister
	TxManager    tx.Manager
	Audit        audit.Recorder
}

// NewService creates a new ledger service.
func NewService(cfg Config) *Service {
	recorder := cfg.Audit
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		stock:     cfg.Stock,
		txs:       cfg.Transactions,
		products:  cfg.Products,
		locations: cfg.Locations,
		txManager: cfg.TxManager,
		audit:     recorder,
	}
}

func startSpan(ctx context.Context, name string, in *TransactionInput) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	if in != nil {
		span.SetAttributes(
			attribute.String("ledger.type", string(in.Type)),
			attribute.String("ledger.product_id", in.ProductID.String()),
			attribute.String("ledger.location_id", in.LocationID.String()),
			attribute.Int64("ledger.quantity", in.Quantity),
		)
	}
	return ctx, span
}

// Apply validates and records a movement and applies its effect to the
// stock level of (product, location), creating the level on first use.
func (s *Service) Apply(ctx context.Context, in TransactionInput) (*Transaction, *StockLevel, error) {
	ctx, span := startSpan(ctx, "ledger.Apply", &in)
	defer span.End()

	if err := in.Validate(ctx); err != nil {
		return nil, nil, err
	}

	var (
		created *Transaction
		level   *StockLevel
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkRefs(ctx, in); err != nil {
			return err
		}

		t := NewTransaction(in)
		if t.UserID == "" {
			t.UserID = appctx.GetUserID(ctx)
		}

		var err error
		level, err = s.lockAndApply(ctx, t)
		if err != nil {
			return err
		}
		if err := s.txs.Create(ctx, t); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if err := s.stock.Save(ctx, level); err != nil {
			return fmt.Errorf("save stock level: %w", err)
		}
		created = t
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	logger.Info(ctx, "ledger transaction applied",
		"transaction_id", created.ID,
		"type", created.Type,
		"quantity", created.Quantity,
		"stock_quantity", level.Quantity,
	)
	return created, level, nil
}

// Reverse undoes the effect of t on the stock level it was applied to.
// A missing stock level is tolerated: the reversal becomes a no-op and nil
// is returned.
func (s *Service) Reverse(ctx context.Context, t *Transaction) (*StockLevel, error) {
	ctx, span := startSpan(ctx, "ledger.Reverse", nil)
	defer span.End()

	var level *StockLevel
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		level, err = s.reverseLocked(ctx, t)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return level, nil
}

// Edit replaces a recorded movement. The old effect is reversed on the
// old (product, location) and the new effect applied on the new one, which
// may be a different stock level row.
func (s *Service) Edit(ctx context.Context, txID id.ID, in TransactionInput) (*Transaction, error) {
	ctx, span := startSpan(ctx, "ledger.Edit", &in)
	defer span.End()

	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	var updated *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.getForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if err := s.checkRefs(ctx, in); err != nil {
			return err
		}
		before := *existing

		if _, err := s.reverseLocked(ctx, existing); err != nil {
			return err
		}

		in.fill(existing, time.Now().UTC())
		level, err := s.lockAndApply(ctx, existing)
		if err != nil {
			return err
		}
		if err := s.txs.Update(ctx, existing); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if err := s.stock.Save(ctx, level); err != nil {
			return fmt.Errorf("save stock level: %w", err)
		}

		if err := s.recordAudit(ctx, existing.ID, audit.ActionUpdate, &before, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "ledger transaction edited", "transaction_id", updated.ID)
	return updated, nil
}

// Delete reverses a recorded movement and removes it.
func (s *Service) Delete(ctx context.Context, txID id.ID) error {
	ctx, span := startSpan(ctx, "ledger.Delete", nil)
	defer span.End()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.getForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if _, err := s.reverseLocked(ctx, existing); err != nil {
			return err
		}
		if err := s.txs.Delete(ctx, existing.ID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return s.recordAudit(ctx, existing.ID, audit.ActionDelete, existing, nil)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	logger.Info(ctx, "ledger transaction deleted", "transaction_id", txID)
	return nil
}

// lockAndApply locks (or lazily creates) the level for t and applies t to it.
// The caller persists both rows.
func (s *Service) lockAndApply(ctx context.Context, t *Transaction) (*StockLevel, error) {
	level, err := s.stock.LockOrCreate(ctx, t.Key())
	if err != nil {
		return nil, fmt.Errorf("lock stock level: %w", err)
	}
	applyEffect(level, t)
	return level, nil
}

func (s *Service) reverseLocked(ctx context.Context, t *Transaction) (*StockLevel, error) {
	level, err := s.stock.GetForUpdate(ctx, t.Key())
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Warn(ctx, "reversal skipped: no stock level",
				"transaction_id", t.ID,
				"product_id", t.ProductID,
				"location_id", t.LocationID,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("lock stock level: %w", err)
	}

	reverseEffect(level, t)
	if err := s.stock.Save(ctx, level); err != nil {
		return nil, fmt.Errorf("save stock level: %w", err)
	}
	logger.Debug(ctx, "ledger transaction reversed", "transaction_id", t.ID, "stock_quantity", level.Quantity)
	return level, nil
}

func (s *Service) getForUpdate(ctx context.Context, txID id.ID) (*Transaction, error) {
	t, err := s.txs.GetForUpdate(ctx, txID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound(entityTransaction, txID.String())
		}
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	return t, nil
}

func (s *Service) checkRefs(ctx context.Context, in TransactionInput) error {
	refs := []struct {
		name string
		repo Exister
		id   id.ID
	}{
		{"product", s.products, in.ProductID},
		{"location", s.locations, in.LocationID},
	}
	for _, r := range refs {
		ok, err := r.repo.Exists(ctx, r.id)
		if err != nil {
			return fmt.Errorf("check %s: %w", r.name, err)
		}
		if !ok {
			return apperror.NewNotFound(r.name, r.id.String())
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, txID id.ID, action audit.Action, before, after *Transaction) error {
	var b, a any
	if before != nil {
		b = before
	}
	if after != nil {
		a = after
	}
	entry, err := audit.NewChange(ctx, entityTransaction, txID, action, b, a)
	if err != nil {
		return err
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// --- Queries ---

// Get returns a movement by id.
func (s *Service) Get(ctx context.Context, txID id.ID) (*Transaction, error) {
	t, err := s.txs.GetByID(ctx, txID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound(entityTransaction, txID.String())
		}
		return nil, err
	}
	return t, nil
}

// List returns movements newest first.
func (s *Service) List(ctx context.Context, filter TransactionFilter) (domain.ListResult[*Transaction], error) {
	filter.Normalize()
	return s.txs.List(ctx, filter)
}

// ProductHistory returns the latest movements of a product.
func (s *Service) ProductHistory(ctx context.Context, productID id.ID, limit int) ([]*Transaction, error) {
	res, err := s.List(ctx, TransactionFilter{ProductID: &productID, Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// LocationHistory returns the latest movements at a location.
func (s *Service) LocationHistory(ctx context.Context, locationID id.ID, limit int) ([]*Transaction, error) {
	res, err := s.List(ctx, TransactionFilter{LocationID: &locationID, Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Summary aggregates the movements matching filter and lists the most
// recent ones.
func (s *Service) Summary(ctx context.Context, filter TransactionFilter) (*Summary, error) {
	totals, err := s.txs.Totals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("transaction totals: %w", err)
	}
	filter.Limit, filter.Offset = recentLimit, 0
	recent, err := s.txs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return &Summary{Totals: totals, Recent: recent.Items}, nil
}

// History returns the audit trail of a movement.
func (s *Service) History(ctx context.Context, txID id.ID, limit int) ([]audit.Entry, error) {
	return s.audit.History(ctx, entityTransaction, txID, limit)
}

// StockLevel returns the level of product at location.
func (s *Service) StockLevel(ctx context.Context, key StockKey) (*StockLevel, error) {
	level, err := s.stock.Get(ctx, key)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("stock level", map[string]string{
				"productId":  key.ProductID.String(),
				"locationId": key.LocationID.String(),
			})
		}
		return nil, err
	}
	return level, nil
}

// StockLevels lists levels matching filter.
func (s *Service) StockLevels(ctx context.Context, filter StockFilter) ([]*StockLevel, error) {
	return s.stock.List(ctx, filter)
}

// ProductStock sums a product's stock over all locations.
func (s *Service) ProductStock(ctx context.Context, productID id.ID) (*ProductStock, error) {
	levels, err := s.stock.List(ctx, StockFilter{ProductID: &productID})
	if err != nil {
		return nil, err
	}
	out := &ProductStock{ProductID: productID, Levels: levels}
	for _, l := range levels {
		out.Quantity += l.Quantity
	}
	return out, nil
}

// --- Usage probes for catalog deletes ---

// ProductHasStock reports stock level rows for a product.
func (s *Service) ProductHasStock(ctx context.Context, productID id.ID) (bool, error) {
	return s.stock.ExistsForProduct(ctx, productID)
}

// ProductHasTransactions reports movements of a product.
func (s *Service) ProductHasTransactions(ctx context.Context, productID id.ID) (bool, error) {
	return s.txs.ExistsForProduct(ctx, productID)
}

// LocationHasStock reports stock level rows at a location.
func (s *Service) LocationHasStock(ctx context.Context, locationID id.ID) (bool, error) {
	return s.stock.ExistsForLocation(ctx, locationID)
}

// LocationHasTransactions reports movements at a location.
func (s *Service) LocationHasTransactions(ctx context.Context, locationID id.ID) (bool, error) {
	return s.txs.ExistsForLocation(ctx, locationID)
}

// Referenced returns a probe reporting movements that point at a document
// of refType.
func (s *Service) Referenced(refType ReferenceType) domain.UsageProbe {
	return func(ctx context.Context, refID id.ID) (bool, error) {
		return s.txs.ExistsForReference(ctx, refType, refID)
	}
}
