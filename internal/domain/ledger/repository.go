package ledger

import (
	"context"
	"time"

	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain"
)

// AccountRepository defines persistence operations for ledger accounts.
// Implementations scope every query to the company in context.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, accountID id.ID) (*Account, error)
	GetByCode(ctx context.Context, code string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	List(ctx context.Context, filter AccountFilter) (domain.ListResult[*Account], error)

	// MissingIDs returns the subset of ids that do not resolve within the
	// company scope. Cross-company references come back as missing.
	MissingIDs(ctx context.Context, ids []id.ID) ([]id.ID, error)
}

// AccountFilter for filtering accounts.
type AccountFilter struct {
	domain.ListFilter

	Type *AccountType
}

// JournalRepository defines persistence operations for journal entries.
type JournalRepository interface {
	CreateEntry(ctx context.Context, entry *JournalEntry) error
	GetEntry(ctx context.Context, entryID id.ID) (*JournalEntry, error)
	UpdateEntry(ctx context.Context, entry *JournalEntry) error

	GetLines(ctx context.Context, entryID id.ID) ([]JournalLine, error)
	SaveLines(ctx context.Context, entryID id.ID, lines []JournalLine) error

	ListEntries(ctx context.Context, filter EntryFilter) (domain.ListResult[*JournalEntry], error)

	// AccountBalance computes Σdebit − Σcredit over the account's lines,
	// optionally bounded by entry date. Always computed on read.
	AccountBalance(ctx context.Context, accountID id.ID, dateRange *DateRange) (types.Money, error)
}

// EntryFilter for filtering journal entries.
type EntryFilter struct {
	domain.ListFilter

	AccountID *id.ID
	DateFrom  *time.Time
	DateTo    *time.Time
}
