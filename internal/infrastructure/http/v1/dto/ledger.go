package dto

import (
	"context"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/company"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain/ledger"
)

// CreateAccountRequest for creating ledger accounts.
type CreateAccountRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required"`
}

// ToEntity builds an Account for the company in context.
func (r CreateAccountRequest) ToEntity(ctx context.Context) *ledger.Account {
	return ledger.NewAccount(company.CompanyID(ctx), r.Code, r.Name, ledger.AccountType(r.Type))
}

// JournalLineRequest is one leg of a journal entry request.
type JournalLineRequest struct {
	AccountID string      `json:"accountId" binding:"required"`
	Debit     types.Money `json:"debit"`
	Credit    types.Money `json:"credit"`
}

// CreateEntryRequest for posting journal entries.
type CreateEntryRequest struct {
	EntryDate   time.Time            `json:"entryDate" binding:"required"`
	Reference   string               `json:"reference"`
	Description string               `json:"description"`
	Lines       []JournalLineRequest `json:"lines" binding:"required,min=2"`
}

// ToEntity builds a JournalEntry for the company in context.
func (r CreateEntryRequest) ToEntity(ctx context.Context) (*ledger.JournalEntry, error) {
	entry := ledger.NewEntry(company.CompanyID(ctx), r.EntryDate, r.Reference, r.Description)
	for i, lr := range r.Lines {
		accountID, err := id.Parse(lr.AccountID)
		if err != nil {
			return nil, apperror.NewValidation("invalid account id").
				WithDetail("field", "lines.accountId").
				WithDetail("lineNo", i+1)
		}
		entry.AddLine(accountID, lr.Debit, lr.Credit)
	}
	return entry, nil
}

// AdjustBalanceRequest declares the balance an account should have.
// The counterpart account is optional; when absent the per-company
// suspense account is used.
type AdjustBalanceRequest struct {
	DesiredBalance       types.Money `json:"desiredBalance"`
	CounterpartAccountID string      `json:"counterpartAccountId"`
}

// BalanceResponse reports a derived account balance.
type BalanceResponse struct {
	AccountID string      `json:"accountId"`
	Balance   types.Money `json:"balance"`
	From      *time.Time  `json:"from,omitempty"`
	To        *time.Time  `json:"to,omitempty"`
}

// AdjustBalanceResponse reports the outcome of a balance adjustment.
// Entry is null when the account already sat at the desired balance.
type AdjustBalanceResponse struct {
	AccountID string               `json:"accountId"`
	Balance   types.Money          `json:"balance"`
	Entry     *ledger.JournalEntry `json:"entry"`
}
