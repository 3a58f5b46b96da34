package payment

import (
	"context"
	"fmt"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/tx"
	"facturio/internal/core/types"
	"facturio/internal/domain"
	"facturio/internal/domain/billing/document"
	"facturio/internal/domain/billing/kind"
	"facturio/pkg/logger"
)

// InvoiceStore is the slice of the document repository reconciliation
// needs: a locked read plus a write-back. Satisfied by document.Repository.
type InvoiceStore interface {
	GetForUpdate(ctx context.Context, docID id.ID) (*document.Document, error)
	Update(ctx context.Context, doc *document.Document) error
}

// Service provides business operations for payments.
type Service struct {
	repo      Repository
	invoices  InvoiceStore
	txManager tx.Manager
}

// NewService creates a payment service.
func NewService(repo Repository, invoices InvoiceStore, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		invoices:  invoices,
		txManager: txManager,
	}
}

// RecordPayment validates and persists a payment. When the payment is
// linked to an invoice, the insert and the invoice reconciliation happen
// in one transaction; the invoice row is locked first so two concurrent
// payments cannot both read a stale total_paid.
func (s *Service) RecordPayment(ctx context.Context, p *Payment) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if p.InvoiceID != nil && !id.IsNil(*p.InvoiceID) {
			// Lock before the insert: serializes concurrent payments on
			// the same invoice.
			invoice, err := s.invoices.GetForUpdate(ctx, *p.InvoiceID)
			if err != nil {
				return err
			}
			if err := payableInvoice(invoice); err != nil {
				return err
			}
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if p.InvoiceID != nil && !id.IsNil(*p.InvoiceID) {
			if err := s.reconcile(ctx, *p.InvoiceID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment recorded",
		"id", p.ID, "amount", p.Amount.StringFixed(2), "invoice_id", p.InvoiceID)
	return nil
}

// GetByID retrieves a payment.
func (s *Service) GetByID(ctx context.Context, paymentID id.ID) (*Payment, error) {
	return s.repo.GetByID(ctx, paymentID)
}

// List retrieves payments with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error) {
	return s.repo.List(ctx, filter)
}

// DeletePayment removes a payment and, when it was linked to an invoice,
// re-derives the invoice's paid/remaining amounts and status in the same
// transaction. A paid invoice whose payments are deleted goes back to
// partially paid or to its issued state.
func (s *Service) DeletePayment(ctx context.Context, paymentID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		reconcilable := false
		if p.InvoiceID != nil && !id.IsNil(*p.InvoiceID) {
			invoice, err := s.invoices.GetForUpdate(ctx, *p.InvoiceID)
			if err != nil {
				return err
			}
			// A payment stranded on a non-payable document can still be
			// removed; there is just nothing to reconcile.
			reconcilable = payableInvoice(invoice) == nil
		}
		if err := s.repo.Delete(ctx, paymentID); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		if reconcilable {
			if err := s.reconcile(ctx, *p.InvoiceID); err != nil {
				return err
			}
		}
		logger.Info(ctx, "payment deleted", "id", paymentID, "invoice_id", p.InvoiceID)
		return nil
	})
}

// RefreshPaymentStatus recomputes an invoice's paid/remaining amounts and
// status from its full payment history. It exists as a named operation so
// callers that treat the recompute as a best-effort secondary effect can
// log its failure without failing the primary operation.
func (s *Service) RefreshPaymentStatus(ctx context.Context, invoiceID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		invoice, err := s.invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := payableInvoice(invoice); err != nil {
			return err
		}
		return s.reconcile(ctx, invoiceID)
	})
}

// reconcile re-derives total_paid, remaining_amount and status from the
// payment sum. Must run inside a transaction holding the invoice row lock.
func (s *Service) reconcile(ctx context.Context, invoiceID id.ID) error {
	invoice, err := s.invoices.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return err
	}

	paid, err := s.repo.SumForInvoice(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("sum payments: %w", err)
	}

	invoice.TotalPaid = paid
	invoice.RemainingAmount = types.Round2(invoice.Total.Sub(paid))

	// A cancelled invoice keeps its amounts current but never changes status.
	if !invoice.IsCancelled() {
		invoice.Status = derivedStatus(invoice, paid)
	}

	if err := s.invoices.Update(ctx, invoice); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}

	logger.Debug(ctx, "invoice reconciled",
		"invoice_id", invoiceID,
		"total_paid", paid.StringFixed(2),
		"remaining", invoice.RemainingAmount.StringFixed(2),
		"status", invoice.Status)
	return nil
}

// payableInvoice rejects documents whose kind has no payment lifecycle
// states. Quotes, orders, delivery notes and credit notes never carry a
// paid or partially paid status, so a payment cannot link to them.
func payableInvoice(invoice *document.Document) error {
	if !kind.ValidStatus(invoice.Kind, kind.StatusPaid) {
		return apperror.NewValidation(fmt.Sprintf("documents of kind %q cannot receive payments", invoice.Kind)).
			WithDetail("field", "invoiceId").
			WithDetail("kind", string(invoice.Kind))
	}
	return nil
}

// derivedStatus maps the payment sum to a status. With no payments left,
// a previously paid invoice reverts to its issued state.
func derivedStatus(invoice *document.Document, paid types.Money) kind.DocumentStatus {
	switch {
	case paid.GreaterThanOrEqual(invoice.Total):
		return kind.StatusPaid
	case paid.IsPositive():
		return kind.StatusPartiallyPaid
	case invoice.Status == kind.StatusPaid || invoice.Status == kind.StatusPartiallyPaid:
		return issuedStatus(invoice.Kind)
	default:
		return invoice.Status
	}
}

// issuedStatus is the pre-payment lifecycle state for a payable kind:
// sent for sales invoices, received for supplier invoices.
func issuedStatus(k kind.DocumentKind) kind.DocumentStatus {
	for _, candidate := range []kind.DocumentStatus{kind.StatusSent, kind.StatusReceived} {
		if kind.ValidStatus(k, candidate) {
			return candidate
		}
	}
	cfg, err := kind.GetConfig(k)
	if err != nil {
		return kind.StatusDraft
	}
	return cfg.DefaultStatus
}
