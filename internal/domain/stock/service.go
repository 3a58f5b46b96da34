// Package stock exposes the accounting-relevant slice of stock keeping:
// an availability guard and balance movements driven by stock-affecting
// documents. Warehouse mechanics (transfers, locations) live elsewhere.
package stock

import (
	"context"
	"fmt"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain/billing/kind"
	"facturio/pkg/logger"
)

// Movement is one product quantity change caused by a document.
type Movement struct {
	ProductID id.ID
	Quantity  types.Money // always positive; Direction carries the sign
	Direction kind.StockDirection
}

// Repository defines balance storage operations.
// Implementations lock balances pessimistically so concurrent exits
// cannot drive stock negative.
type Repository interface {
	// GetBalanceForUpdate returns the product balance with a row lock,
	// zero when the product has no balance row yet.
	GetBalanceForUpdate(ctx context.Context, productID id.ID) (types.Money, error)

	// ApplyMovements adjusts balances by the given deltas.
	ApplyMovements(ctx context.Context, recorderID id.ID, movements []Movement) error
}

// Service guards the stock-never-negative invariant for exit movements
// and records balance changes. Called within the document transaction.
type Service struct {
	repo Repository
}

// NewService creates a stock service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureAvailable verifies every exit movement is covered by current stock.
// Must run inside the caller's transaction: the row locks taken here hold
// until commit.
func (s *Service) EnsureAvailable(ctx context.Context, movements []Movement) error {
	for _, mv := range movements {
		if mv.Direction != kind.StockExit {
			continue
		}
		balance, err := s.repo.GetBalanceForUpdate(ctx, mv.ProductID)
		if err != nil {
			return fmt.Errorf("get balance for %s: %w", mv.ProductID, err)
		}
		if balance.LessThan(mv.Quantity) {
			return apperror.NewInsufficientStock(
				mv.ProductID.String(),
				mv.Quantity.String(),
				balance.String(),
			)
		}
	}
	return nil
}

// RecordMovements applies balance deltas for a document's lines.
func (s *Service) RecordMovements(ctx context.Context, recorderID id.ID, movements []Movement) error {
	if len(movements) == 0 {
		return nil
	}

	for i, mv := range movements {
		if !mv.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity must be positive", i))
		}
		if id.IsNil(mv.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: product is required", i))
		}
	}

	if err := s.repo.ApplyMovements(ctx, recorderID, movements); err != nil {
		return fmt.Errorf("apply movements: %w", err)
	}

	logger.Info(ctx, "recorded stock movements",
		"count", len(movements),
		"recorder_id", recorderID,
	)
	return nil
}
