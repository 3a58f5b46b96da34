// Package payment provides payment recording and invoice reconciliation:
// each linked payment re-derives the invoice's paid/remaining amounts and
// status inside the same transaction.
package payment

import (
	"context"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/entity"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
)

// Method is the payment instrument. Free-form values are accepted; these
// are the ones the UI offers.
type Method string

const (
	MethodCash     Method = "especes"
	MethodCheque   Method = "cheque"
	MethodTransfer Method = "virement"
	MethodDraft    Method = "traite"
	MethodCard     Method = "carte"
)

// Payment is a received or emitted payment, optionally linked to an
// invoice. Unlinked payments are allowed (deposits, account loads).
type Payment struct {
	entity.BaseDocument

	InvoiceID *id.ID      `db:"invoice_id" json:"invoiceId,omitempty"`
	AccountID id.ID       `db:"account_id" json:"accountId"`
	Amount    types.Money `db:"amount" json:"amount"`

	PaymentDate time.Time `db:"payment_date" json:"paymentDate"`
	Method      Method    `db:"method" json:"method"`
	Reference   string    `db:"reference" json:"reference,omitempty"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
}

// New creates a payment dated now.
func New(companyID id.ID, accountID id.ID, amount types.Money) *Payment {
	return &Payment{
		BaseDocument: entity.NewBaseDocument(companyID),
		AccountID:    accountID,
		Amount:       amount,
		PaymentDate:  time.Now().UTC(),
	}
}

// Validate implements entity.Validatable.
func (p *Payment) Validate(ctx context.Context) error {
	if err := p.BaseDocument.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(p.AccountID) {
		return apperror.NewValidation("account is required").WithDetail("field", "accountId")
	}
	if !p.Amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount").
			WithDetail("value", p.Amount.String())
	}
	if p.PaymentDate.IsZero() {
		return apperror.NewValidation("payment date is required").WithDetail("field", "paymentDate")
	}
	return nil
}
