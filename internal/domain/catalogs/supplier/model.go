// Package supplier provides the supplier catalog.
package supplier

import (
	"context"

	"github.com/go-playground/validator/v10"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/entity"
	"stockroom/internal/core/types"
)

var validate = validator.New()

// PaymentTerms defines when a supplier expects payment.
type PaymentTerms string

const (
	TermsImmediate PaymentTerms = "immediate"
	TermsNet30     PaymentTerms = "net_30"
	TermsNet60     PaymentTerms = "net_60"
	TermsNet90     PaymentTerms = "net_90"
	TermsCustom    PaymentTerms = "custom"
)

// CodeWidth is the length of a generated supplier code.
const CodeWidth = 6

// Supplier is a vendor purchase orders are placed with.
type Supplier struct {
	entity.Catalog

	// Code is unique across all suppliers
	Code string `db:"code" json:"code"`

	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty"`
	Email         *string `db:"email" json:"email,omitempty"`
	Phone         *string `db:"phone" json:"phone,omitempty"`
	Address       *string `db:"address" json:"address,omitempty"`
	City          *string `db:"city" json:"city,omitempty"`
	Country       *string `db:"country" json:"country,omitempty"`
	Website       *string `db:"website" json:"website,omitempty"`

	PaymentTerms PaymentTerms `db:"payment_terms" json:"paymentTerms"`
	CreditLimit  types.Money  `db:"credit_limit" json:"creditLimit"`
}

// NewSupplier creates a new active Supplier.
func NewSupplier(name string) *Supplier {
	return &Supplier{
		Catalog:      entity.NewCatalog(name),
		PaymentTerms: TermsNet30,
		CreditLimit:  types.Zero(),
	}
}

// UniqueKey implements domain.CatalogEntity.
func (s *Supplier) UniqueKey() string { return s.Code }

// SetUniqueKey implements domain.CatalogEntity.
func (s *Supplier) SetUniqueKey(key string) { s.Code = key }

// Validate implements entity.Validatable interface.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}

	switch s.PaymentTerms {
	case TermsImmediate, TermsNet30, TermsNet60, TermsNet90, TermsCustom:
	default:
		return apperror.NewValidation("invalid payment terms").
			WithDetail("field", "paymentTerms").
			WithDetail("value", string(s.PaymentTerms))
	}

	if types.IsNegative(s.CreditLimit) {
		return apperror.NewValidation("credit limit must not be negative").
			WithDetail("field", "creditLimit")
	}

	if s.Email != nil && *s.Email != "" {
		if err := validate.Var(*s.Email, "email"); err != nil {
			return apperror.NewValidation("invalid email").
				WithDetail("field", "email")
		}
	}

	return nil
}
