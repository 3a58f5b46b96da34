package document

import (
	"context"
	"fmt"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/tx"
	"facturio/internal/domain"
	"facturio/internal/domain/billing/kind"
	"facturio/internal/domain/billing/tax"
	"facturio/internal/domain/stock"
	"facturio/pkg/logger"
)

// NumberGenerator produces sequential document numbers scoped to
// (company, kind, period). Assumed atomic at the data layer; concurrent
// callers never receive the same number.
type NumberGenerator interface {
	NextDocumentNumber(ctx context.Context, companyID id.ID, prefix string, issueDate time.Time) (string, error)
}

// AuditRecorder records an audit trail event. Best-effort collaborator;
// a nil recorder disables auditing.
type AuditRecorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action string, changes any) error
}

// Service provides business operations for commercial documents.
type Service struct {
	repo      Repository
	numbers   NumberGenerator
	stock     *stock.Service // optional; nil skips stock guarding
	audit     AuditRecorder  // optional
	txManager tx.Manager
}

// NewService creates a document service.
func NewService(repo Repository, numbers NumberGenerator, stockSvc *stock.Service, audit AuditRecorder, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		numbers:   numbers,
		stock:     stockSvc,
		audit:     audit,
		txManager: txManager,
	}
}

// recompute re-derives every line's monetary fields and the totals
// snapshot from the line inputs + discount + stamp. Stored totals are
// never trusted as independent truth.
func (s *Service) recompute(doc *Document) error {
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
		if id.IsNil(doc.Lines[i].LineID) {
			doc.Lines[i].LineID = id.New()
		}
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

// Create computes totals, assigns a number and persists the document with
// its lines in one transaction. Stock-affecting kinds are guarded against
// negative stock within the same transaction.
func (s *Service) Create(ctx context.Context, doc *Document) error {
	if err := s.recompute(doc); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	cfg, err := kind.GetConfig(doc.Kind)
	if err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := s.numbers.NextDocumentNumber(ctx, doc.CompanyID, cfg.Prefix, doc.IssueDate)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return s.applyStock(ctx, doc, cfg)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, "document", doc.ID, "create", doc); err != nil {
			logger.Warn(ctx, "audit record failed", "document_id", doc.ID, "error", err)
		}
	}

	logger.Info(ctx, "document created",
		"id", doc.ID, "kind", doc.Kind, "number", doc.Number)
	return nil
}

// GetByID retrieves a document with its lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// Update recomputes totals from the edited lines and persists the document.
func (s *Service) Update(ctx context.Context, doc *Document) error {
	if err := doc.CanModify(); err != nil {
		return err
	}
	if err := s.recompute(doc); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// SetStatus moves a document to a status allowed by its kind.
func (s *Service) SetStatus(ctx context.Context, docID id.ID, status kind.DocumentStatus) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := doc.CanModify(); err != nil {
		return err
	}
	if !kind.ValidStatus(doc.Kind, status) {
		return apperror.NewValidation(fmt.Sprintf("status %q is not valid for kind %q", status, doc.Kind)).
			WithDetail("field", "status")
	}

	doc.Status = status
	return s.repo.Update(ctx, doc)
}

// Cancel moves a document to the terminal cancelled status.
// The record is retained.
func (s *Service) Cancel(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.IsCancelled() {
		return nil
	}

	doc.Status = kind.StatusCancelled
	if err := s.repo.Update(ctx, doc); err != nil {
		return err
	}

	logger.Info(ctx, "document cancelled", "id", doc.ID, "number", doc.Number)
	return nil
}

// Delete soft-deletes a document.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	return s.repo.Delete(ctx, docID)
}

// List retrieves documents with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Document], error) {
	return s.repo.List(ctx, filter)
}

// applyStock guards and records stock movements for stock-affecting kinds.
func (s *Service) applyStock(ctx context.Context, doc *Document, cfg kind.Config) error {
	if s.stock == nil || !cfg.AffectsStock {
		return nil
	}

	movements := make([]stock.Movement, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		if l.ProductID == nil || id.IsNil(*l.ProductID) {
			continue
		}
		if !l.Quantity.IsPositive() {
			continue
		}
		movements = append(movements, stock.Movement{
			ProductID: *l.ProductID,
			Quantity:  l.Quantity,
			Direction: cfg.StockDirection,
		})
	}
	if len(movements) == 0 {
		return nil
	}

	if err := s.stock.EnsureAvailable(ctx, movements); err != nil {
		return err
	}
	return s.stock.RecordMovements(ctx, doc.ID, movements)
}
