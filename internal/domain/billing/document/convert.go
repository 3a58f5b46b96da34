package document

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"facturio/internal/core/apperror"
	"facturio/internal/core/entity"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain/billing/kind"
	"facturio/internal/domain/billing/tax"
	"facturio/pkg/logger"
)

// Convert produces a new document of targetKind from an existing source
// document, honoring the kind registry's transition graph.
//
// Credit-note targets get every monetary field negated to -abs(x) so they
// always reduce balances; stamp is forced off and the discount cleared.
// Forward targets get fresh totals recomputed from the copied lines plus
// the source's discount config — stored source totals are never copied.
//
// The whole operation runs in one transaction: a failure after number
// generation leaves no orphaned document (the consumed number is an
// accepted gap).
func (s *Service) Convert(ctx context.Context, sourceID id.ID, targetKind kind.DocumentKind) (*Document, error) {
	targetCfg, err := kind.GetConfig(targetKind)
	if err != nil {
		return nil, err
	}

	source, err := s.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	if !kind.CanConvert(source.Kind, targetKind) {
		return nil, apperror.NewConversionNotAllowed(string(source.Kind), string(targetKind))
	}

	issueDate := time.Now().UTC()
	number, err := s.numbers.NextDocumentNumber(ctx, source.CompanyID, targetCfg.Prefix, issueDate)
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}

	doc := &Document{
		BaseDocument: entity.NewBaseDocument(source.CompanyID),
		Kind:         targetKind,
		Number:       number,
		Status:       targetCfg.DefaultStatus,
		ClientID:     source.ClientID,
		SupplierID:   source.SupplierID,
		IssueDate:    issueDate,
		DueDate:      source.DueDate,
		Currency:     source.Currency,
		Comment:      source.Comment,
	}

	if kind.IsCreditNote(targetKind) {
		s.buildCreditNote(doc, source)
	} else {
		if err := s.buildForward(doc, source); err != nil {
			return nil, err
		}
	}

	// A target requiring a due date may come from a source without one
	// (delivery note → invoice); default to 30 days from issue.
	if targetCfg.RequiresDueDate && doc.DueDate == nil {
		due := issueDate.AddDate(0, 0, 30)
		doc.DueDate = &due
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return s.applyStock(ctx, doc, targetCfg)
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, "document", doc.ID, "convert", map[string]any{
			"source_id":     source.ID,
			"source_kind":   source.Kind,
			"source_number": source.Number,
			"target_kind":   targetKind,
			"number":        doc.Number,
		}); err != nil {
			logger.Warn(ctx, "audit record failed", "document_id", doc.ID, "error", err)
		}
	}

	logger.Info(ctx, "document converted",
		"source_id", source.ID, "source_kind", source.Kind,
		"id", doc.ID, "kind", doc.Kind, "number", doc.Number)
	return doc, nil
}

// buildCreditNote copies lines and totals with every monetary field
// normalized to a strictly non-positive magnitude, regardless of the
// source's own sign. The back-reference to the origin is kept for the
// audit trail.
func (s *Service) buildCreditNote(doc *Document, source *Document) {
	sourceID := source.ID
	doc.SourceDocumentID = &sourceID

	doc.Lines = make([]Line, len(source.Lines))
	for i, l := range source.Lines {
		nl := l
		nl.LineID = id.New()
		nl.UnitPrice = types.NegAbs(l.UnitPrice)
		nl.HT = types.NegAbs(l.HT)
		nl.FodecAmount = types.NegAbs(l.FodecAmount)
		nl.VATAmount = types.NegAbs(l.VATAmount)
		nl.TotalTTC = types.NegAbs(l.TotalTTC)
		doc.Lines[i] = nl
	}

	doc.ClearDiscount()
	doc.StampIncluded = false
	doc.StampAmount = decimal.Zero

	doc.Subtotal = types.NegAbs(source.Subtotal)
	doc.TotalFodec = types.NegAbs(source.TotalFodec)
	doc.BaseTVA = types.NegAbs(source.BaseTVA)
	doc.TaxAmount = types.NegAbs(source.TaxAmount)
	doc.Stamp = decimal.Zero
	// Re-derived from the negated components so the snapshot stays
	// internally consistent (no stamp, no discount on an avoir).
	doc.Total = doc.BaseTVA.Add(doc.TaxAmount)
	doc.RemainingAmount = doc.Total
}

// buildForward copies lines and re-runs the calculator with the source's
// discount config, so intermediate edits and discount changes are
// reflected in the new document's totals.
func (s *Service) buildForward(doc *Document, source *Document) error {
	doc.Reference = source.Number

	doc.DiscountType = source.DiscountType
	doc.DiscountValue = source.DiscountValue
	doc.StampIncluded = source.StampIncluded
	doc.StampAmount = source.StampAmount

	doc.Lines = make([]Line, len(source.Lines))
	for i, l := range source.Lines {
		nl := l
		nl.LineID = id.New()
		doc.Lines[i] = nl
	}

	inputs := make([]tax.LineInput, len(doc.Lines))
	for i, l := range doc.Lines {
		inputs[i] = l.TaxInput()
	}
	results, err := tax.ComputeLines(inputs)
	if err != nil {
		return err
	}
	for i := range doc.Lines {
		doc.Lines[i].LineNo = i + 1
		doc.Lines[i].HT = results[i].HT
		doc.Lines[i].FodecAmount = results[i].FodecAmount
		doc.Lines[i].VATAmount = results[i].VATAmount
		doc.Lines[i].TotalTTC = results[i].TotalTTC
	}

	totals, err := tax.ComputeTotals(results, doc.StampIncluded, doc.StampAmount, doc.Discount())
	if err != nil {
		return err
	}
	doc.ApplyTotals(totals)
	return nil
}
