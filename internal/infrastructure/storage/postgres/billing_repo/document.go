// Package billing_repo provides PostgreSQL repositories for commercial
// documents and their lines.
package billing_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturio/internal/core/id"
	"facturio/internal/domain"
	"facturio/internal/domain/billing/document"
	"facturio/internal/domain/billing/kind"
	"facturio/internal/infrastructure/storage/postgres"
)

var lineColumns = []string{
	"line_id", "document_id", "line_no", "product_id", "description",
	"quantity", "unit_price", "vat_rate", "fodec_applicable", "fodec_rate",
	"ht", "fodec_amount", "vat_amount", "total_ttc",
}

// DocumentRepo implements document.Repository on the documents and
// doc_lines tables.
type DocumentRepo struct {
	*postgres.BaseRepo[*document.Document]
	inserter *postgres.BatchInserter
}

var _ document.Repository = (*DocumentRepo)(nil)

// NewDocumentRepo creates a document repository.
func NewDocumentRepo(txManager *postgres.TxManager) *DocumentRepo {
	return &DocumentRepo{
		BaseRepo: postgres.NewBaseRepo(txManager, "documents", func() *document.Document {
			return &document.Document{}
		}),
		inserter: postgres.NewBatchInserter(txManager),
	}
}

// GetByNumber retrieves a document by kind and number.
func (r *DocumentRepo) GetByNumber(ctx context.Context, k kind.DocumentKind, number string) (*document.Document, error) {
	q := r.BaseSelect(ctx).
		Where(squirrel.Eq{"kind": k}).
		Where(squirrel.Eq{"number": number})
	return r.GetOne(ctx, q, number)
}

// List retrieves documents with domain filtering.
func (r *DocumentRepo) List(ctx context.Context, filter document.ListFilter) (domain.ListResult[*document.Document], error) {
	q := r.BaseSelect(ctx)

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"issue_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"issue_date": *filter.DateTo})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": "%" + filter.Search + "%"},
			squirrel.ILike{"reference": "%" + filter.Search + "%"},
		})
	}

	return r.BaseRepo.List(ctx, q, filter.ListFilter)
}

// GetLines retrieves a document's lines ordered by line number.
func (r *DocumentRepo) GetLines(ctx context.Context, docID id.ID) ([]document.Line, error) {
	// document_id stays out of the select: the Line struct does not carry it.
	cols := append([]string{"line_id"}, lineColumns[2:]...)
	sql, args, err := r.Builder().
		Select(cols...).
		From("doc_lines").
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []document.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces a document's lines. Must run inside a transaction;
// the rewrite uses the COPY protocol for the insert leg.
func (r *DocumentRepo) SaveLines(ctx context.Context, docID id.ID, lines []document.Line) error {
	delSQL, delArgs, err := r.Builder().
		Delete("doc_lines").
		Where(squirrel.Eq{"document_id": docID}).
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
			l.LineID, docID, l.LineNo, l.ProductID, l.Description,
			l.Quantity, l.UnitPrice, l.VATRatePercent, l.FodecApplicable, l.FodecRate,
			l.HT, l.FodecAmount, l.VATAmount, l.TotalTTC,
		})
	}

	if _, err := r.inserter.CopyFromSlice(ctx, "doc_lines", lineColumns, rows); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}
