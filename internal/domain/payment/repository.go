package payment

import (
	"context"
	"time"

	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain"
)

// Repository defines persistence operations for payments. Implementations
// scope every query to the company in context.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID id.ID) (*Payment, error)
	Delete(ctx context.Context, paymentID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error)
	ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*Payment, error)

	// SumForInvoice returns the amount sum over all payments linked to the
	// invoice. Reconciliation always recomputes from this, never increments.
	SumForInvoice(ctx context.Context, invoiceID id.ID) (types.Money, error)
}

// ListFilter for filtering payments.
type ListFilter struct {
	domain.ListFilter

	InvoiceID *id.ID
	AccountID *id.ID
	DateFrom  *time.Time
	DateTo    *time.Time
}
