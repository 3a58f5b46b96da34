// Package ledger provides the double-entry journal engine: balanced
// entries, derived account balances and the balance-adjustment protocol.
package ledger

import (
	"context"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/entity"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
)

// AccountType classifies a ledger account.
type AccountType string

const (
	AccountActif   AccountType = "actif"
	AccountPassif  AccountType = "passif"
	AccountCharge  AccountType = "charge"
	AccountProduit AccountType = "produit"
)

// AdjustmentAccountCode is the reserved code of the per-company suspense
// account used as the automatic counterparty in balance adjustments.
const AdjustmentAccountCode = "AJUST"

// Account is a ledger account. Its balance is never stored; it is always
// derived as Σdebit − Σcredit over the journal lines referencing it.
type Account struct {
	entity.BaseEntity

	Code string      `db:"code" json:"code"` // unique per company
	Name string      `db:"name" json:"name"`
	Type AccountType `db:"type" json:"type"`
}

// NewAccount creates an account.
func NewAccount(companyID id.ID, code, name string, accType AccountType) *Account {
	return &Account{
		BaseEntity: entity.NewBaseEntity(companyID),
		Code:       code,
		Name:       name,
		Type:       accType,
	}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(ctx context.Context) error {
	if id.IsNil(a.CompanyID) {
		return apperror.NewValidation("company is required").WithDetail("field", "companyId")
	}
	if a.Code == "" {
		return apperror.NewValidation("account code is required").WithDetail("field", "code")
	}
	if a.Name == "" {
		return apperror.NewValidation("account name is required").WithDetail("field", "name")
	}
	switch a.Type {
	case AccountActif, AccountPassif, AccountCharge, AccountProduit:
	default:
		return apperror.NewValidation("unknown account type").
			WithDetail("field", "type").
			WithDetail("value", string(a.Type))
	}
	return nil
}

// JournalEntry is one balanced financial event with at least two legs.
type JournalEntry struct {
	entity.BaseDocument

	EntryDate   time.Time `db:"entry_date" json:"entryDate"`
	Reference   string    `db:"reference" json:"reference,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`

	Lines []JournalLine `db:"-" json:"lines"`
}

// JournalLine is one leg of a journal entry. Typically exactly one of
// debit/credit is nonzero, though only the entry-level balance is enforced.
type JournalLine struct {
	LineID    id.ID       `db:"line_id" json:"lineId"`
	LineNo    int         `db:"line_no" json:"lineNo"`
	AccountID id.ID       `db:"account_id" json:"accountId"`
	Debit     types.Money `db:"debit" json:"debit"`
	Credit    types.Money `db:"credit" json:"credit"`
}

// NewEntry creates a journal entry.
func NewEntry(companyID id.ID, entryDate time.Time, reference, description string) *JournalEntry {
	return &JournalEntry{
		BaseDocument: entity.NewBaseDocument(companyID),
		EntryDate:    entryDate,
		Reference:    reference,
		Description:  description,
		Lines:        make([]JournalLine, 0),
	}
}

// AddLine appends a leg to the entry.
func (e *JournalEntry) AddLine(accountID id.ID, debit, credit types.Money) {
	e.Lines = append(e.Lines, JournalLine{
		LineID:    id.New(),
		LineNo:    len(e.Lines) + 1,
		AccountID: accountID,
		Debit:     debit,
		Credit:    credit,
	})
}

// Totals returns the debit and credit sums over all legs.
func (e *JournalEntry) Totals() (debit, credit types.Money) {
	debit = types.Zero()
	credit = types.Zero()
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Validate enforces the pre-commit invariants: at least two legs,
// non-negative amounts on every leg, and Σdebit == Σcredit within the
// rounding tolerance. Nothing is persisted if this fails.
func (e *JournalEntry) Validate(ctx context.Context) error {
	if err := e.BaseDocument.Validate(ctx); err != nil {
		return err
	}
	if e.EntryDate.IsZero() {
		return apperror.NewValidation("entry date is required").WithDetail("field", "entryDate")
	}

	if len(e.Lines) < 2 {
		return apperror.NewValidation("a journal entry must have at least two lines").
			WithDetail("field", "lines").
			WithDetail("count", len(e.Lines))
	}

	for i, l := range e.Lines {
		if id.IsNil(l.AccountID) {
			return apperror.NewValidation("account is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return apperror.NewValidation("debit and credit must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	debit, credit := e.Totals()
	if !types.WithinTolerance(debit, credit) {
		return apperror.NewUnbalancedEntry(debit.String(), credit.String())
	}

	return nil
}

// DateRange optionally bounds a balance computation by entry date.
type DateRange struct {
	From *time.Time
	To   *time.Time
}
