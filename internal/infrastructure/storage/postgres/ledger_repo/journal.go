package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturio/internal/core/company"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain"
	"facturio/internal/domain/ledger"
	"facturio/internal/infrastructure/storage/postgres"
)

var journalLineColumns = []string{
	"line_id", "entry_id", "line_no", "account_id", "debit", "credit",
}

// JournalRepo implements ledger.JournalRepository on the journal_entries
// and journal_lines tables.
type JournalRepo struct {
	*postgres.BaseRepo[*ledger.JournalEntry]
	inserter *postgres.BatchInserter
}

var _ ledger.JournalRepository = (*JournalRepo)(nil)

// NewJournalRepo creates a journal repository.
func NewJournalRepo(txManager *postgres.TxManager) *JournalRepo {
	return &JournalRepo{
		BaseRepo: postgres.NewBaseRepo(txManager, "journal_entries", func() *ledger.JournalEntry {
			return &ledger.JournalEntry{}
		}),
		inserter: postgres.NewBatchInserter(txManager),
	}
}

// CreateEntry inserts a journal entry header.
func (r *JournalRepo) CreateEntry(ctx context.Context, entry *ledger.JournalEntry) error {
	return r.Create(ctx, entry)
}

// GetEntry retrieves a journal entry header.
func (r *JournalRepo) GetEntry(ctx context.Context, entryID id.ID) (*ledger.JournalEntry, error) {
	return r.GetByID(ctx, entryID)
}

// UpdateEntry updates a journal entry header.
func (r *JournalRepo) UpdateEntry(ctx context.Context, entry *ledger.JournalEntry) error {
	return r.Update(ctx, entry)
}

// GetLines retrieves an entry's legs ordered by line number.
func (r *JournalRepo) GetLines(ctx context.Context, entryID id.ID) ([]ledger.JournalLine, error) {
	cols := append([]string{"line_id"}, journalLineColumns[2:]...)
	sql, args, err := r.Builder().
		Select(cols...).
		From("journal_lines").
		Where(squirrel.Eq{"entry_id": entryID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []ledger.JournalLine
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces an entry's legs. Must run inside a transaction.
func (r *JournalRepo) SaveLines(ctx context.Context, entryID id.ID, lines []ledger.JournalLine) error {
	delSQL, delArgs, err := r.Builder().
		Delete("journal_lines").
		Where(squirrel.Eq{"entry_id": entryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lines delete: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{
			l.LineID, entryID, l.LineNo, l.AccountID, l.Debit, l.Credit,
		})
	}

	if _, err := r.inserter.CopyFromSlice(ctx, "journal_lines", journalLineColumns, rows); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// ListEntries retrieves journal entries with domain filtering.
func (r *JournalRepo) ListEntries(ctx context.Context, filter ledger.EntryFilter) (domain.ListResult[*ledger.JournalEntry], error) {
	q := r.BaseSelect(ctx)

	if filter.AccountID != nil {
		q = q.Where(squirrel.Expr(
			"id IN (SELECT entry_id FROM journal_lines WHERE account_id = ?)",
			*filter.AccountID,
		))
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"entry_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"entry_date": *filter.DateTo})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"reference": "%" + filter.Search + "%"},
			squirrel.ILike{"description": "%" + filter.Search + "%"},
		})
	}

	return r.BaseRepo.List(ctx, q, filter.ListFilter)
}

// AccountBalance computes the derived balance Σdebit − Σcredit over the
// account's legs, bounded by entry date when a range is given. Lines of
// soft-deleted entries do not count.
func (r *JournalRepo) AccountBalance(ctx context.Context, accountID id.ID, dateRange *ledger.DateRange) (types.Money, error) {
	q := r.Builder().
		Select("COALESCE(SUM(l.debit - l.credit), 0)").
		From("journal_lines l").
		Join("journal_entries e ON e.id = l.entry_id").
		Where(squirrel.Eq{"l.account_id": accountID}).
		Where(squirrel.Eq{"e.company_id": company.CompanyID(ctx)}).
		Where(squirrel.Eq{"e.deletion_mark": false})

	if dateRange != nil {
		if dateRange.From != nil {
			q = q.Where(squirrel.GtOrEq{"e.entry_date": *dateRange.From})
		}
		if dateRange.To != nil {
			q = q.Where(squirrel.LtOrEq{"e.entry_date": *dateRange.To})
		}
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build balance query: %w", err)
	}

	var balance types.Money
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&balance); err != nil {
		return types.Zero(), fmt.Errorf("account balance: %w", err)
	}
	return balance, nil
}
