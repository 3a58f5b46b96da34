// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in the infrastructure layer.
package numerator

import (
	"context"
	"time"

	"facturio/internal/core/id"
)

// Generator generates sequential document numbers. Sequences are scoped
// per company: two companies issuing the same kind in the same year each
// get their own counter.
type Generator interface {
	// GetNextNumber generates the next document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g. FAC-2026-00001)
	GetNextNumber(ctx context.Context, companyID id.ID, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the next counter value (for migrations and
	// imports from another system).
	SetNextNumber(ctx context.Context, companyID id.ID, cfg Config, period time.Time, value int64) error
}
