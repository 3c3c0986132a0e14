package dto

import (
	"time"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
	"stockroom/internal/domain/ledger"
)

// TransactionRequest records or replaces a stock movement.
type TransactionRequest struct {
	ProductID       id.ID                  `json:"productId"`
	LocationID      id.ID                  `json:"locationId"`
	Type            ledger.TransactionType `json:"type"`
	Quantity        int64                  `json:"quantity"`
	UnitCost        *types.Money           `json:"unitCost"`
	TotalCost       *types.Money           `json:"totalCost"`
	ReferenceType   *ledger.ReferenceType  `json:"referenceType"`
	ReferenceID     *id.ID                 `json:"referenceId"`
	ReferenceNumber *string                `json:"referenceNumber"`
	Notes           *string                `json:"notes"`
	TransactionDate *time.Time             `json:"transactionDate"`
}

// ToInput converts the request into a ledger input attributed to userID.
func (r TransactionRequest) ToInput(userID string) ledger.TransactionInput {
	in := ledger.TransactionInput{
		ProductID:  r.ProductID,
		LocationID: r.LocationID,
		Type:       r.Type,
		Quantity:   r.Quantity,
		UnitCost:   types.Zero(),
		TotalCost:  r.TotalCost,
		Notes:      r.Notes,
		UserID:     userID,
	}
	pick(&in.UnitCost, r.UnitCost)
	if r.TransactionDate != nil {
		in.TransactionDate = r.TransactionDate.UTC()
	}
	if r.ReferenceType != nil || r.ReferenceID != nil || r.ReferenceNumber != nil {
		ref := &ledger.Reference{ID: r.ReferenceID, Number: r.ReferenceNumber}
		pick(&ref.Type, r.ReferenceType)
		in.Reference = ref
	}
	return in
}

// ApplyResponse is the recorded movement with the stock level it produced.
type ApplyResponse struct {
	Transaction *ledger.Transaction `json:"transaction"`
	StockLevel  *ledger.StockLevel  `json:"stockLevel"`
}

// TransactionQuery is the query string of the transaction list.
type TransactionQuery struct {
	ProductID     string     `form:"productId"`
	LocationID    string     `form:"locationId"`
	Types         []string   `form:"type"`
	ReferenceType string     `form:"referenceType"`
	ReferenceID   string     `form:"referenceId"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit         int        `form:"limit" binding:"omitempty,min=0"`
	Offset        int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a ledger filter.
func (q TransactionQuery) ToFilter() (ledger.TransactionFilter, error) {
	f := ledger.TransactionFilter{From: q.From, To: q.To, Limit: q.Limit, Offset: q.Offset}

	var err error
	if f.ProductID, err = parseID("productId", q.ProductID); err != nil {
		return f, err
	}
	if f.LocationID, err = parseID("locationId", q.LocationID); err != nil {
		return f, err
	}
	if f.ReferenceID, err = parseID("referenceId", q.ReferenceID); err != nil {
		return f, err
	}
	for _, raw := range q.Types {
		t := ledger.TransactionType(raw)
		if !t.IsValid() {
			return f, apperror.NewValidation("unknown transaction type").
				WithDetail("field", "type").
				WithDetail("value", raw)
		}
		f.Types = append(f.Types, t)
	}
	if q.ReferenceType != "" {
		rt := ledger.ReferenceType(q.ReferenceType)
		if !rt.IsValid() {
			return f, apperror.NewValidation("unknown reference type").
				WithDetail("field", "referenceType").
				WithDetail("value", q.ReferenceType)
		}
		f.ReferenceType = &rt
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, apperror.NewValidation("to must not be before from").WithDetail("field", "to")
	}
	return f, nil
}

// StockQuery is the query string of the stock endpoint.
type StockQuery struct {
	ProductID  string `form:"productId"`
	LocationID string `form:"locationId"`
	NonZero    bool   `form:"nonZero"`
}

// ToFilter converts the query into a stock filter.
func (q StockQuery) ToFilter() (ledger.StockFilter, error) {
	f := ledger.StockFilter{NonZero: q.NonZero}
	var err error
	if f.ProductID, err = parseID("productId", q.ProductID); err != nil {
		return f, err
	}
	if f.LocationID, err = parseID("locationId", q.LocationID); err != nil {
		return f, err
	}
	return f, nil
}

func parseID(field, raw string) (*id.ID, error) {
	v, err := id.ParseOptional(raw)
	if err != nil {
		return nil, apperror.NewValidation("invalid id format").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return v, nil
}
