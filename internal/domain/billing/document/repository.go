package document

import (
	"context"
	"time"

	"facturio/internal/core/id"
	"facturio/internal/domain"
	"facturio/internal/domain/billing/kind"
)

// Repository defines persistence operations for commercial documents.
// Implementations scope every query to the company in context; a document
// belonging to another company is reported as not found.
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, docID id.ID) (*Document, error)
	GetByNumber(ctx context.Context, k kind.DocumentKind, number string) (*Document, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Document], error)

	// GetForUpdate loads a document with a row lock; used by payment
	// reconciliation so concurrent payments serialize on the invoice.
	GetForUpdate(ctx context.Context, docID id.ID) (*Document, error)
}

// ListFilter for filtering documents.
type ListFilter struct {
	domain.ListFilter

	Kind       *kind.DocumentKind
	Status     *kind.DocumentStatus
	ClientID   *id.ID
	SupplierID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}
