// Package ledger_repo provides PostgreSQL repositories for ledger
// accounts and journal entries.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturio/internal/core/id"
	"facturio/internal/domain"
	"facturio/internal/domain/ledger"
	"facturio/internal/infrastructure/storage/postgres"
)

// AccountRepo implements ledger.AccountRepository on the ledger_accounts
// table.
type AccountRepo struct {
	*postgres.BaseRepo[*ledger.Account]
}

var _ ledger.AccountRepository = (*AccountRepo)(nil)

// NewAccountRepo creates an account repository.
func NewAccountRepo(txManager *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		BaseRepo: postgres.NewBaseRepo(txManager, "ledger_accounts", func() *ledger.Account {
			return &ledger.Account{}
		}),
	}
}

// GetByCode retrieves an account by its per-company code.
func (r *AccountRepo) GetByCode(ctx context.Context, code string) (*ledger.Account, error) {
	q := r.BaseSelect(ctx).
		Where(squirrel.Eq{"code": code}).
		Where(squirrel.Eq{"deletion_mark": false})
	return r.GetOne(ctx, q, code)
}

// List retrieves accounts with domain filtering.
func (r *AccountRepo) List(ctx context.Context, filter ledger.AccountFilter) (domain.ListResult[*ledger.Account], error) {
	q := r.BaseSelect(ctx)

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": "%" + filter.Search + "%"},
			squirrel.ILike{"name": "%" + filter.Search + "%"},
		})
	}

	return r.BaseRepo.List(ctx, q, filter.ListFilter)
}

// MissingIDs returns the subset of ids not resolvable within the company
// scope. Soft-deleted and cross-company accounts count as missing.
func (r *AccountRepo) MissingIDs(ctx context.Context, ids []id.ID) ([]id.ID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sql, args, err := r.BaseSelect(ctx).
		Where(squirrel.Eq{"id": ids}).
		Where(squirrel.Eq{"deletion_mark": false}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var found []*ledger.Account
	if err := pgxscan.Select(ctx, r.Querier(ctx), &found, sql, args...); err != nil {
		return nil, fmt.Errorf("resolve accounts: %w", err)
	}

	known := make(map[id.ID]struct{}, len(found))
	for _, a := range found {
		known[a.ID] = struct{}{}
	}

	var missing []id.ID
	for _, accountID := range ids {
		if _, ok := known[accountID]; !ok {
			missing = append(missing, accountID)
		}
	}
	return missing, nil
}
