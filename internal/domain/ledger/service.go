package ledger

import (
	"context"
	"fmt"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/company"
	"facturio/internal/core/id"
	"facturio/internal/core/tx"
	"facturio/internal/core/types"
	"facturio/internal/domain"
	"facturio/pkg/logger"
)

// Service provides business operations for the journal and accounts.
type Service struct {
	accounts  AccountRepository
	journal   JournalRepository
	txManager tx.Manager
}

// NewService creates a ledger service.
func NewService(accounts AccountRepository, journal JournalRepository, txManager tx.Manager) *Service {
	return &Service{
		accounts:  accounts,
		journal:   journal,
		txManager: txManager,
	}
}

// CreateEntry validates and persists a journal entry with its lines.
// The balance check runs before anything touches the store.
func (s *Service) CreateEntry(ctx context.Context, entry *JournalEntry) error {
	if err := s.validateEntry(ctx, entry); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.journal.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
		if err := s.journal.SaveLines(ctx, entry.ID, entry.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "journal entry created",
		"id", entry.ID, "reference", entry.Reference, "lines", len(entry.Lines))
	return nil
}

// GetEntry retrieves a journal entry with its lines.
func (s *Service) GetEntry(ctx context.Context, entryID id.ID) (*JournalEntry, error) {
	entry, err := s.journal.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	lines, err := s.journal.GetLines(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	entry.Lines = lines
	return entry, nil
}

// UpdateEntry validates and replaces an existing entry and its lines.
func (s *Service) UpdateEntry(ctx context.Context, entry *JournalEntry) error {
	if err := s.validateEntry(ctx, entry); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.journal.UpdateEntry(ctx, entry); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if err := s.journal.SaveLines(ctx, entry.ID, entry.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// ListEntries retrieves journal entries with filtering.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) (domain.ListResult[*JournalEntry], error) {
	return s.journal.ListEntries(ctx, filter)
}

// GetAccountBalance returns the derived balance Σdebit − Σcredit for the
// account, optionally restricted to a date range. Never cached.
func (s *Service) GetAccountBalance(ctx context.Context, accountID id.ID, dateRange *DateRange) (types.Money, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return types.Zero(), err
	}
	return s.journal.AccountBalance(ctx, accountID, dateRange)
}

// CreateAccount validates and persists an account.
func (s *Service) CreateAccount(ctx context.Context, account *Account) error {
	if err := account.Validate(ctx); err != nil {
		return err
	}
	return s.accounts.Create(ctx, account)
}

// GetAccount retrieves an account by id.
func (s *Service) GetAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// ListAccounts retrieves accounts with filtering.
func (s *Service) ListAccounts(ctx context.Context, filter AccountFilter) (domain.ListResult[*Account], error) {
	return s.accounts.List(ctx, filter)
}

// AdjustBalance forces an account's derived balance to desiredBalance by
// synthesizing one balanced 2-line entry against a counterpart account.
// This is the only sanctioned way to "set" a balance; no balance field is
// ever written directly.
//
// Returns the created entry, or nil when the delta is below tolerance
// (idempotent: re-targeting the same balance creates nothing).
func (s *Service) AdjustBalance(ctx context.Context, accountID id.ID, desiredBalance types.Money, counterpartID *id.ID) (*JournalEntry, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	var entry *JournalEntry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.journal.AccountBalance(ctx, accountID, nil)
		if err != nil {
			return fmt.Errorf("current balance: %w", err)
		}

		delta := types.Round2(desiredBalance.Sub(current))
		if delta.Abs().LessThan(types.Tolerance) {
			return nil // already at the desired balance
		}

		counterpart, err := s.resolveCounterpart(ctx, counterpartID)
		if err != nil {
			return err
		}
		if counterpart.ID == accountID {
			return apperror.NewValidation("counterpart must differ from the adjusted account").
				WithDetail("field", "counterpartAccountId")
		}

		e := NewEntry(counterpart.CompanyID, time.Now().UTC(), "AJUST",
			fmt.Sprintf("Ajustement de solde vers %s", desiredBalance.StringFixed(2)))

		amount := delta.Abs()
		if delta.IsPositive() {
			// Raising the derived balance: debit the target, credit the counterpart.
			e.AddLine(accountID, amount, types.Zero())
			e.AddLine(counterpart.ID, types.Zero(), amount)
		} else {
			e.AddLine(accountID, types.Zero(), amount)
			e.AddLine(counterpart.ID, amount, types.Zero())
		}

		if err := e.Validate(ctx); err != nil {
			return err
		}
		if err := s.journal.CreateEntry(ctx, e); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
		if err := s.journal.SaveLines(ctx, e.ID, e.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		entry = e

		logger.Info(ctx, "balance adjusted",
			"account_id", accountID,
			"desired", desiredBalance.StringFixed(2),
			"delta", delta.StringFixed(2),
			"counterpart_id", counterpart.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// resolveCounterpart returns the explicit counterpart account, or the
// company's reserved suspense account, creating it on first use.
func (s *Service) resolveCounterpart(ctx context.Context, counterpartID *id.ID) (*Account, error) {
	if counterpartID != nil && !id.IsNil(*counterpartID) {
		return s.accounts.GetByID(ctx, *counterpartID)
	}

	account, err := s.accounts.GetByCode(ctx, AdjustmentAccountCode)
	if err == nil {
		return account, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	scope, err := company.GetScope(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	account = NewAccount(scope.CompanyID, AdjustmentAccountCode, "Ajustements", AccountPassif)
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create adjustment account: %w", err)
	}

	logger.Info(ctx, "adjustment account created", "account_id", account.ID)
	return account, nil
}

// validateEntry runs entry invariants plus the tenant-isolation check:
// every referenced account must resolve within the company scope.
func (s *Service) validateEntry(ctx context.Context, entry *JournalEntry) error {
	if err := entry.Validate(ctx); err != nil {
		return err
	}

	ids := make([]id.ID, 0, len(entry.Lines))
	seen := make(map[id.ID]struct{}, len(entry.Lines))
	for _, l := range entry.Lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}

	missing, err := s.accounts.MissingIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve accounts: %w", err)
	}
	if len(missing) > 0 {
		return apperror.NewNotFound("account", missing[0].String())
	}
	return nil
}
