package purchase_order

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"stockroom/internal/core/apperror"
	appctx "stockroom/internal/core/context"
	"stockroom/internal/core/id"
	"stockroom/internal/core/numerator"
	"stockroom/internal/core/tx"
	"stockroom/internal/domain"
	"stockroom/internal/domain/audit"
	"stockroom/internal/domain/ledger"
	"stockroom/pkg/logger"
)

var tracer = otel.Tracer("stockroom/purchase_order")

const entityName = "purchase order"

// LedgerWriter records a stock movement. Implemented by ledger.Service.
type LedgerWriter interface {
	Apply(ctx context.Context, in ledger.TransactionInput) (*ledger.Transaction, *ledger.StockLevel, error)
}

// LocationResolver picks the location received goods are booked into.
type LocationResolver interface {
	ReceivingLocation(ctx context.Context) (id.ID, error)
}

// Exister checks that a referenced catalog record exists.
type Exister interface {
	Exists(ctx context.Context, id id.ID) (bool, error)
}

// Config wires the purchase order service.
type Config struct {
	Repo      Repository
	Ledger    LedgerWriter
	Locations LocationResolver
	Suppliers Exister
	Products  Exister
	// Referenced reports ledger movements pointing at an order
	Referenced domain.UsageProbe
	Numerator  numerator.Generator
	TxManager  tx.Manager
	Audit      audit.Recorder
}

// Service provides business operations for purchase orders.
type Service struct {
	repo       Repository
	ledger     LedgerWriter
	locations  LocationResolver
	suppliers  Exister
	products   Exister
	referenced domain.UsageProbe
	numerator  numerator.Generator
	txManager  tx.Manager
	audit      audit.Recorder
}

// NewService creates a new purchase order service.
func NewService(cfg Config) *Service {
	recorder := cfg.Audit
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:       cfg.Repo,
		ledger:     cfg.Ledger,
		locations:  cfg.Locations,
		suppliers:  cfg.Suppliers,
		products:   cfg.Products,
		referenced: cfg.Referenced,
		numerator:  cfg.Numerator,
		txManager:  cfg.TxManager,
		audit:      recorder,
	}
}

// Create stores a new order with its items.
func (s *Service) Create(ctx context.Context, po *PurchaseOrder) error {
	if id.IsNil(po.ID) {
		po.ID = id.New()
	}
	if po.Status == "" {
		po.Status = StatusDraft
	}
	if po.Status == StatusReceived {
		return apperror.NewInvalidState("a purchase order cannot be created as received")
	}
	po.RecalculateTotals()
	if err := po.Validate(ctx); err != nil {
		return err
	}
	if po.CreatedBy == "" {
		po.CreatedBy = appctx.GetUserID(ctx)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkRefs(ctx, po); err != nil {
			return err
		}
		if err := s.assignNumber(ctx, po, nil); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, po); err != nil {
			return fmt.Errorf("create purchase order: %w", err)
		}
		if err := s.repo.SaveItems(ctx, po.ID, po.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "purchase order created", "id", po.ID, "number", po.Number)
	return nil
}

// GetByID retrieves an order with items.
func (s *Service) GetByID(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	po, err := s.repo.GetByID(ctx, poID)
	if err != nil {
		return nil, s.notFound(err, poID)
	}
	items, err := s.repo.GetItems(ctx, poID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	po.Items = items
	return po, nil
}

// Update replaces header fields and items of an order that is not received.
// A status change through Update follows the same graph as ChangeStatus.
func (s *Service) Update(ctx context.Context, po *PurchaseOrder) error {
	po.RecalculateTotals()
	if err := po.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetForUpdate(ctx, po.ID)
		if err != nil {
			return s.notFound(err, po.ID)
		}
		if err := existing.CanModify(); err != nil {
			return err
		}
		if po.Status != existing.Status {
			if err := CanTransition(existing.Status, po.Status); err != nil {
				return err
			}
		}
		if err := s.checkRefs(ctx, po); err != nil {
			return err
		}
		if err := s.assignNumber(ctx, po, &po.ID); err != nil {
			return err
		}

		po.CreatedAt = existing.CreatedAt
		po.CreatedBy = existing.CreatedBy
		po.DeliveryDate = existing.DeliveryDate
		if err := s.repo.Update(ctx, po); err != nil {
			return fmt.Errorf("update purchase order: %w", err)
		}
		if err := s.repo.SaveItems(ctx, po.ID, po.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return nil
	})
}

// Delete removes an order that is neither received nor referenced by
// ledger movements.
func (s *Service) Delete(ctx context.Context, poID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetForUpdate(ctx, poID)
		if err != nil {
			return s.notFound(err, poID)
		}
		if existing.Status == StatusReceived {
			return apperror.NewInvalidState("a received purchase order cannot be deleted").
				WithDetail("status", string(existing.Status))
		}
		if s.referenced != nil {
			inUse, err := s.referenced(ctx, poID)
			if err != nil {
				return fmt.Errorf("check transactions: %w", err)
			}
			if inUse {
				return apperror.NewConstraint(entityName, "transactions").WithDetail("id", poID.String())
			}
		}
		if err := s.repo.Delete(ctx, poID); err != nil {
			return fmt.Errorf("delete purchase order: %w", err)
		}
		return nil
	})
}

// List retrieves orders with filtering, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// ChangeStatus moves an order along the manual part of its lifecycle.
func (s *Service) ChangeStatus(ctx context.Context, poID id.ID, to Status) (*PurchaseOrder, error) {
	var po *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		po, err = s.repo.GetForUpdate(ctx, poID)
		if err != nil {
			return s.notFound(err, poID)
		}
		if err := CanTransition(po.Status, to); err != nil {
			return err
		}
		from := po.Status
		po.Status = to
		po.Touch()
		if err := s.repo.Update(ctx, po); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if po.Items, err = s.repo.GetItems(ctx, poID); err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		logger.Info(ctx, "purchase order status changed", "id", po.ID, "from", from, "to", to)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// Receive books every line of an ordered purchase order into the receiving
// location as an inbound movement and marks the order received. It runs as
// a single transaction: if any line fails, no movement and no status change
// is kept. An order is received at most once.
func (s *Service) Receive(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	ctx, span := tracer.Start(ctx, "purchase_order.Receive")
	defer span.End()
	span.SetAttributes(attribute.String("purchase_order.id", poID.String()))

	var po *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		po, err = s.repo.GetForUpdate(ctx, poID)
		if err != nil {
			return s.notFound(err, poID)
		}
		if po.Status != StatusOrdered {
			return apperror.NewInvalidState("only ordered purchase orders can be received").
				WithDetail("status", string(po.Status))
		}

		po.Items, err = s.repo.GetItems(ctx, poID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		if len(po.Items) == 0 {
			return apperror.NewValidation("purchase order has no items")
		}

		locationID, err := s.locations.ReceivingLocation(ctx)
		if err != nil {
			return err
		}

		before := *po
		now := time.Now().UTC()
		notes := "Received from PO: " + po.Number
		for _, item := range po.Items {
			totalCost := item.TotalCost
			_, _, err := s.ledger.Apply(ctx, ledger.TransactionInput{
				ProductID:  item.ProductID,
				LocationID: locationID,
				Type:       ledger.TypeIn,
				Quantity:   item.Quantity,
				UnitCost:   item.UnitCost,
				TotalCost:  &totalCost,
				Reference: &ledger.Reference{
					Type:   ledger.RefPurchaseOrder,
					ID:     &po.ID,
					Number: &po.Number,
				},
				Notes:           &notes,
				TransactionDate: now,
				UserID:          appctx.GetUserID(ctx),
			})
			if err != nil {
				return fmt.Errorf("receive line %d: %w", item.LineNo, err)
			}
		}

		po.Status = StatusReceived
		po.DeliveryDate = &now
		po.Touch()
		if err := s.repo.Update(ctx, po); err != nil {
			return fmt.Errorf("mark received: %w", err)
		}

		entry, err := audit.NewChange(ctx, "purchase_order", po.ID, audit.ActionReceive,
			map[string]any{"status": before.Status},
			map[string]any{"status": po.Status, "deliveryDate": now, "locationId": locationID})
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "purchase order received",
		"id", po.ID,
		"number", po.Number,
		"lines", len(po.Items),
		"quantity", po.TotalQuantity(),
	)
	return po, nil
}

// assignNumber generates a number when empty and resolves collisions with
// a "-N" suffix.
func (s *Service) assignNumber(ctx context.Context, po *PurchaseOrder, excludeID *id.ID) error {
	if po.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.PurchaseOrderConfig(), po.OrderDate)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		po.Number = number
	}
	number, err := domain.ResolveUnique(ctx, po.Number, excludeID, s.repo.ExistsByNumber)
	if err != nil {
		return fmt.Errorf("resolve number: %w", err)
	}
	po.Number = number
	return nil
}

func (s *Service) checkRefs(ctx context.Context, po *PurchaseOrder) error {
	ok, err := s.suppliers.Exists(ctx, po.SupplierID)
	if err != nil {
		return fmt.Errorf("check supplier: %w", err)
	}
	if !ok {
		return apperror.NewValidation("supplier does not exist").
			WithDetail("field", "supplierId").
			WithDetail("value", po.SupplierID.String())
	}

	seen := map[id.ID]bool{}
	for _, item := range po.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ok, err := s.products.Exists(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("check product: %w", err)
		}
		if !ok {
			return apperror.NewValidation("product does not exist").
				WithDetail("field", "items.productId").
				WithDetail("value", item.ProductID.String())
		}
	}
	return nil
}

func (s *Service) notFound(err error, poID id.ID) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entityName, poID.String())
	}
	return err
}

// SupplierHasOrders is a UsageProbe for supplier deletion.
func (s *Service) SupplierHasOrders(ctx context.Context, supplierID id.ID) (bool, error) {
	return s.repo.ExistsForSupplier(ctx, supplierID)
}

// ProductHasOrders reports whether any order line references productID.
func (s *Service) ProductHasOrders(ctx context.Context, productID id.ID) (bool, error) {
	return s.repo.ExistsForProduct(ctx, productID)
}
