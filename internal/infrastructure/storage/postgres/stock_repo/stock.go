// Package stock_repo provides the PostgreSQL repository for stock
// balances and their movement history.
package stock_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"facturio/internal/core/company"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain/billing/kind"
	"facturio/internal/domain/stock"
	"facturio/internal/infrastructure/storage/postgres"
)

// StockRepo implements stock.Repository on the stock_balances and
// stock_movements tables. Balance rows are keyed (company_id, product_id).
type StockRepo struct {
	txManager *postgres.TxManager
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a stock repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{txManager: txManager}
}

// GetBalanceForUpdate returns the product balance with a row lock, zero
// when the product has no balance row yet. The lock holds until the
// surrounding transaction commits.
func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, productID id.ID) (types.Money, error) {
	var balance types.Money
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT quantity FROM stock_balances
		WHERE company_id = $1 AND product_id = $2
		FOR UPDATE
	`, company.CompanyID(ctx), productID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Zero(), nil
	}
	if err != nil {
		return types.Zero(), fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// ApplyMovements adjusts balances by the given deltas and appends one
// movement row per delta. Must run inside a transaction.
func (r *StockRepo) ApplyMovements(ctx context.Context, recorderID id.ID, movements []stock.Movement) error {
	companyID := company.CompanyID(ctx)
	querier := r.txManager.GetQuerier(ctx)
	now := time.Now().UTC()

	for _, mv := range movements {
		delta := mv.Quantity
		if mv.Direction == kind.StockExit {
			delta = delta.Neg()
		}

		_, err := querier.Exec(ctx, `
			INSERT INTO stock_balances (company_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (company_id, product_id) DO UPDATE SET quantity = stock_balances.quantity + $3
		`, companyID, mv.ProductID, delta)
		if err != nil {
			return fmt.Errorf("apply movement for %s: %w", mv.ProductID, err)
		}

		_, err = querier.Exec(ctx, `
			INSERT INTO stock_movements (id, company_id, recorder_id, product_id, quantity, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id.New(), companyID, recorderID, mv.ProductID, delta, now)
		if err != nil {
			return fmt.Errorf("record movement for %s: %w", mv.ProductID, err)
		}
	}
	return nil
}
