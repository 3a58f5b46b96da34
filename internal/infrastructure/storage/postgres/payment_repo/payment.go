// Package payment_repo provides the PostgreSQL repository for payments.
package payment_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain"
	"facturio/internal/domain/payment"
	"facturio/internal/infrastructure/storage/postgres"
)

// PaymentRepo implements payment.Repository on the payments table.
// Deleted payments keep their row (soft delete) but drop out of every
// sum and listing.
type PaymentRepo struct {
	*postgres.BaseRepo[*payment.Payment]
}

var _ payment.Repository = (*PaymentRepo)(nil)

// NewPaymentRepo creates a payment repository.
func NewPaymentRepo(txManager *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		BaseRepo: postgres.NewBaseRepo(txManager, "payments", func() *payment.Payment {
			return &payment.Payment{}
		}),
	}
}

// List retrieves payments with domain filtering.
func (r *PaymentRepo) List(ctx context.Context, filter payment.ListFilter) (domain.ListResult[*payment.Payment], error) {
	q := r.BaseSelect(ctx)

	if filter.InvoiceID != nil {
		q = q.Where(squirrel.Eq{"invoice_id": *filter.InvoiceID})
	}
	if filter.AccountID != nil {
		q = q.Where(squirrel.Eq{"account_id": *filter.AccountID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"payment_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"payment_date": *filter.DateTo})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"reference": "%" + filter.Search + "%"})
	}

	return r.BaseRepo.List(ctx, q, filter.ListFilter)
}

// ListByInvoice retrieves the live payments linked to an invoice.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*payment.Payment, error) {
	sql, args, err := r.BaseSelect(ctx).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("payment_date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var payments []*payment.Payment
	if err := pgxscan.Select(ctx, r.Querier(ctx), &payments, sql, args...); err != nil {
		return nil, fmt.Errorf("list by invoice: %w", err)
	}
	return payments, nil
}

// SumForInvoice returns the amount sum over the invoice's live payments.
func (r *PaymentRepo) SumForInvoice(ctx context.Context, invoiceID id.ID) (types.Money, error) {
	q := r.BaseSelect(ctx)
	sql, args, err := r.Builder().
		Select("COALESCE(SUM(amount), 0)").
		FromSelect(
			q.Where(squirrel.Eq{"invoice_id": invoiceID}).
				Where(squirrel.Eq{"deletion_mark": false}),
			"p",
		).
		ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build sum query: %w", err)
	}

	var sum types.Money
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return types.Zero(), fmt.Errorf("sum for invoice: %w", err)
	}
	return sum, nil
}
