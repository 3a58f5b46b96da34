package dto

import (
	"context"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/company"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain/payment"
)

// RecordPaymentRequest for recording payments. InvoiceID is optional;
// an unlinked payment only touches the ledger-side account.
type RecordPaymentRequest struct {
	InvoiceID   string      `json:"invoiceId"`
	AccountID   string      `json:"accountId" binding:"required"`
	Amount      types.Money `json:"amount"`
	PaymentDate *time.Time  `json:"paymentDate"`
	Method      string      `json:"method"`
	Reference   string      `json:"reference"`
	Notes       string      `json:"notes"`
}

// ToEntity builds a Payment for the company in context.
func (r RecordPaymentRequest) ToEntity(ctx context.Context) (*payment.Payment, error) {
	accountID, err := id.Parse(r.AccountID)
	if err != nil {
		return nil, apperror.NewValidation("invalid account id").WithDetail("field", "accountId")
	}

	p := payment.New(company.CompanyID(ctx), accountID, r.Amount)

	if p.InvoiceID, err = ParseOptionalID("invoiceId", r.InvoiceID); err != nil {
		return nil, err
	}
	if r.PaymentDate != nil {
		p.PaymentDate = *r.PaymentDate
	}
	p.Method = payment.Method(r.Method)
	p.Reference = r.Reference
	p.Notes = r.Notes
	return p, nil
}
