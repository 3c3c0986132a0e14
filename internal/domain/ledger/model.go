// Package ledger keeps per (product, location) stock levels consistent with
// the log of stock movements, including edits and deletes of past movements.
package ledger

import (
	"context"
	"time"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
)

// TransactionType is the kind of stock movement.
type TransactionType string

const (
	TypeIn         TransactionType = "in"
	TypeOut        TransactionType = "out"
	TypeTransfer   TransactionType = "transfer"
	TypeAdjustment TransactionType = "adjustment"
	TypeReturn     TransactionType = "return"
	TypeDamage     TransactionType = "damage"
	TypeExpiry     TransactionType = "expiry"
)

// AllTypes lists every movement kind.
var AllTypes = []TransactionType{
	TypeIn, TypeOut, TypeTransfer, TypeAdjustment, TypeReturn, TypeDamage, TypeExpiry,
}

// IsValid reports whether t is a known movement kind.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeIn, TypeOut, TypeTransfer, TypeAdjustment, TypeReturn, TypeDamage, TypeExpiry:
		return true
	}
	return false
}

// IsInbound reports whether t adds stock and refreshes the unit cost.
func (t TransactionType) IsInbound() bool {
	return t == TypeIn || t == TypeReturn
}

// IsOutbound reports whether t removes stock.
func (t TransactionType) IsOutbound() bool {
	return t == TypeOut || t == TypeDamage || t == TypeExpiry
}

// ReferenceType is the kind of business document a movement points at.
type ReferenceType string

const (
	RefPurchaseOrder ReferenceType = "purchase_order"
	RefSalesOrder    ReferenceType = "sales_order"
	RefManual        ReferenceType = "manual"
	RefTransfer      ReferenceType = "transfer"
	RefAdjustment    ReferenceType = "adjustment"
	RefReturn        ReferenceType = "return"
)

// IsValid reports whether r is a known reference kind.
func (r ReferenceType) IsValid() bool {
	switch r {
	case RefPurchaseOrder, RefSalesOrder, RefManual, RefTransfer, RefAdjustment, RefReturn:
		return true
	}
	return false
}

// Reference links a movement to its originating document.
type Reference struct {
	Type   ReferenceType `json:"type"`
	ID     *id.ID        `json:"id,omitempty"`
	Number *string       `json:"number,omitempty"`
}

// StockKey identifies a stock level row.
type StockKey struct {
	ProductID  id.ID
	LocationID id.ID
}

// StockLevel is the derived quantity on hand of a product at a location.
// It is only ever written by the ledger.
type StockLevel struct {
	ProductID  id.ID       `db:"product_id" json:"productId"`
	LocationID id.ID       `db:"location_id" json:"locationId"`
	Quantity   int64       `db:"quantity" json:"quantity"`
	UnitCost   types.Money `db:"unit_cost" json:"unitCost"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// Key returns the row key.
func (s *StockLevel) Key() StockKey {
	return StockKey{ProductID: s.ProductID, LocationID: s.LocationID}
}

// NewStockLevel creates an empty stock level for key.
func NewStockLevel(key StockKey) *StockLevel {
	now := time.Now().UTC()
	return &StockLevel{
		ProductID:  key.ProductID,
		LocationID: key.LocationID,
		UnitCost:   types.Zero(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Transaction is one recorded stock movement.
type Transaction struct {
	ID         id.ID           `db:"id" json:"id"`
	ProductID  id.ID           `db:"product_id" json:"productId"`
	LocationID id.ID           `db:"location_id" json:"locationId"`
	Type       TransactionType `db:"type" json:"type"`
	Quantity   int64           `db:"quantity" json:"quantity"`
	UnitCost   types.Money     `db:"unit_cost" json:"unitCost"`
	TotalCost  types.Money     `db:"total_cost" json:"totalCost"`

	ReferenceType   *ReferenceType `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID     *id.ID         `db:"reference_id" json:"referenceId,omitempty"`
	ReferenceNumber *string        `db:"reference_number" json:"referenceNumber,omitempty"`

	Notes           *string   `db:"notes" json:"notes,omitempty"`
	TransactionDate time.Time `db:"transaction_date" json:"transactionDate"`
	UserID          string    `db:"user_id" json:"userId,omitempty"`

	// PreviousQuantity is the stock quantity an adjustment replaced.
	// Set only on adjustments.
	PreviousQuantity *int64 `db:"previous_quantity" json:"previousQuantity,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Key returns the stock level row the movement applies to.
func (t *Transaction) Key() StockKey {
	return StockKey{ProductID: t.ProductID, LocationID: t.LocationID}
}

// TransactionInput is the validated request to record or edit a movement.
type TransactionInput struct {
	ProductID       id.ID
	LocationID      id.ID
	Type            TransactionType
	Quantity        int64
	UnitCost        types.Money
	TotalCost       *types.Money
	Reference       *Reference
	Notes           *string
	TransactionDate time.Time
	UserID          string
}

// Validate checks the input before any storage access.
func (in *TransactionInput) Validate(_ context.Context) error {
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(in.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if !in.Type.IsValid() {
		return apperror.NewValidation("unknown transaction type").
			WithDetail("field", "type").
			WithDetail("value", string(in.Type))
	}
	if in.Quantity < 1 {
		return apperror.NewValidation("quantity must be at least 1").
			WithDetail("field", "quantity").
			WithDetail("value", in.Quantity)
	}
	if types.IsNegative(in.UnitCost) {
		return apperror.NewValidation("unit cost must not be negative").WithDetail("field", "unitCost")
	}
	if in.TotalCost != nil && types.IsNegative(*in.TotalCost) {
		return apperror.NewValidation("total cost must not be negative").WithDetail("field", "totalCost")
	}
	if ref := in.Reference; ref != nil {
		if ref.Type == "" {
			if ref.ID != nil || ref.Number != nil {
				return apperror.NewValidation("reference type is required with a reference id or number").
					WithDetail("field", "referenceType")
			}
		} else if !ref.Type.IsValid() {
			return apperror.NewValidation("unknown reference type").
				WithDetail("field", "referenceType").
				WithDetail("value", string(ref.Type))
		}
	}
	return nil
}

// fill copies the input onto t, computing defaults.
func (in *TransactionInput) fill(t *Transaction, now time.Time) {
	t.ProductID = in.ProductID
	t.LocationID = in.LocationID
	t.Type = in.Type
	t.Quantity = in.Quantity
	t.UnitCost = in.UnitCost
	if in.TotalCost != nil {
		t.TotalCost = *in.TotalCost
	} else {
		t.TotalCost = types.LineTotal(in.Quantity, in.UnitCost)
	}

	t.ReferenceType, t.ReferenceID, t.ReferenceNumber = nil, nil, nil
	if ref := in.Reference; ref != nil && ref.Type != "" {
		refType := ref.Type
		t.ReferenceType = &refType
		t.ReferenceID = ref.ID
		t.ReferenceNumber = ref.Number
	}

	t.Notes = in.Notes
	t.TransactionDate = in.TransactionDate
	if t.TransactionDate.IsZero() {
		t.TransactionDate = now
	}
	if in.UserID != "" {
		t.UserID = in.UserID
	}
	t.PreviousQuantity = nil
	t.UpdatedAt = now
}

// NewTransaction builds an unsaved movement from in.
func NewTransaction(in TransactionInput) *Transaction {
	now := time.Now().UTC()
	t := &Transaction{ID: id.New(), CreatedAt: now}
	in.fill(t, now)
	return t
}
