package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturio/internal/core/apperror"
	"facturio/internal/core/company"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain"
)

func m(s string) types.Money {
	return types.MustMoney(s)
}

// --- fakes ---

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[id.ID]*Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[id.ID]*Account)}
}

func (r *fakeAccounts) Create(ctx context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *fakeAccounts) GetByID(ctx context.Context, accountID id.ID) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok || a.CompanyID != company.CompanyID(ctx) {
		return nil, apperror.NewNotFound("account", accountID.String())
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccounts) GetByCode(ctx context.Context, code string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Code == code && a.CompanyID == company.CompanyID(ctx) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("account", code)
}

func (r *fakeAccounts) Update(ctx context.Context, a *Account) error {
	return r.Create(ctx, a)
}

func (r *fakeAccounts) List(ctx context.Context, filter AccountFilter) (domain.ListResult[*Account], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result domain.ListResult[*Account]
	for _, a := range r.accounts {
		if a.CompanyID != company.CompanyID(ctx) {
			continue
		}
		cp := *a
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeAccounts) MissingIDs(ctx context.Context, ids []id.ID) ([]id.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var missing []id.ID
	for _, accountID := range ids {
		a, ok := r.accounts[accountID]
		if !ok || a.CompanyID != company.CompanyID(ctx) {
			missing = append(missing, accountID)
		}
	}
	return missing, nil
}

type fakeJournal struct {
	mu      sync.Mutex
	entries map[id.ID]*JournalEntry
	lines   map[id.ID][]JournalLine
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{
		entries: make(map[id.ID]*JournalEntry),
		lines:   make(map[id.ID][]JournalLine),
	}
}

func (r *fakeJournal) CreateEntry(ctx context.Context, e *JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *fakeJournal) GetEntry(ctx context.Context, entryID id.ID) (*JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok {
		return nil, apperror.NewNotFound("journal entry", entryID.String())
	}
	cp := *e
	return &cp, nil
}

func (r *fakeJournal) UpdateEntry(ctx context.Context, e *JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.ID]; !ok {
		return apperror.NewNotFound("journal entry", e.ID.String())
	}
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *fakeJournal) GetLines(ctx context.Context, entryID id.ID) ([]JournalLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]JournalLine(nil), r.lines[entryID]...), nil
}

func (r *fakeJournal) SaveLines(ctx context.Context, entryID id.ID, lines []JournalLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[entryID] = append([]JournalLine(nil), lines...)
	return nil
}

func (r *fakeJournal) ListEntries(ctx context.Context, filter EntryFilter) (domain.ListResult[*JournalEntry], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result domain.ListResult[*JournalEntry]
	for _, e := range r.entries {
		cp := *e
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeJournal) AccountBalance(ctx context.Context, accountID id.ID, dateRange *DateRange) (types.Money, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance := types.Zero()
	for entryID, lines := range r.lines {
		e := r.entries[entryID]
		if e == nil {
			continue
		}
		if dateRange != nil {
			if dateRange.From != nil && e.EntryDate.Before(*dateRange.From) {
				continue
			}
			if dateRange.To != nil && e.EntryDate.After(*dateRange.To) {
				continue
			}
		}
		for _, l := range lines {
			if l.AccountID != accountID {
				continue
			}
			balance = balance.Add(l.Debit).Sub(l.Credit)
		}
	}
	return balance, nil
}

type passTxManager struct{}

func (passTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestLedger(t *testing.T) (*Service, *fakeAccounts, *fakeJournal, context.Context, id.ID) {
	t.Helper()
	accounts := newFakeAccounts()
	journal := newFakeJournal()
	svc := NewService(accounts, journal, passTxManager{})

	companyID := id.New()
	ctx := company.WithScope(context.Background(), company.Scope{
		CompanyID: companyID,
		UserID:    id.New(),
	})
	return svc, accounts, journal, ctx, companyID
}

func mustAccount(t *testing.T, svc *Service, ctx context.Context, companyID id.ID, code string) *Account {
	t.Helper()
	a := NewAccount(companyID, code, "Compte "+code, AccountActif)
	require.NoError(t, svc.CreateAccount(ctx, a))
	return a
}

// --- tests ---

func TestCreateEntry_BalancedEntryPersists(t *testing.T) {
	svc, _, journal, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")
	sales := mustAccount(t, svc, ctx, companyID, "707")

	e := NewEntry(companyID, time.Now().UTC(), "FAC-2026-00001", "Vente")
	e.AddLine(bank.ID, m("119"), types.Zero())
	e.AddLine(sales.ID, types.Zero(), m("119"))

	require.NoError(t, svc.CreateEntry(ctx, e))

	stored, err := svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)

	debit, credit := stored.Totals()
	assert.True(t, debit.Equal(credit))
	_ = journal
}

func TestCreateEntry_UnbalancedIsRejected(t *testing.T) {
	svc, _, journal, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")
	sales := mustAccount(t, svc, ctx, companyID, "707")

	e := NewEntry(companyID, time.Now().UTC(), "", "")
	e.AddLine(bank.ID, m("100"), types.Zero())
	e.AddLine(sales.ID, types.Zero(), m("99"))

	err := svc.CreateEntry(ctx, e)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnbalancedEntry))

	// Nothing persisted.
	assert.Empty(t, journal.entries)
}

func TestCreateEntry_WithinToleranceIsAccepted(t *testing.T) {
	svc, _, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")
	sales := mustAccount(t, svc, ctx, companyID, "707")

	// 0.005 divergence is under the 0.01 rounding tolerance.
	e := NewEntry(companyID, time.Now().UTC(), "", "")
	e.AddLine(bank.ID, m("100.005"), types.Zero())
	e.AddLine(sales.ID, types.Zero(), m("100"))

	require.NoError(t, svc.CreateEntry(ctx, e))
}

func TestCreateEntry_RejectsSingleLeg(t *testing.T) {
	svc, _, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")

	e := NewEntry(companyID, time.Now().UTC(), "", "")
	e.AddLine(bank.ID, types.Zero(), types.Zero())

	err := svc.CreateEntry(ctx, e)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCreateEntry_RejectsNegativeAmounts(t *testing.T) {
	svc, _, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")
	sales := mustAccount(t, svc, ctx, companyID, "707")

	e := NewEntry(companyID, time.Now().UTC(), "", "")
	e.AddLine(bank.ID, m("-50"), types.Zero())
	e.AddLine(sales.ID, types.Zero(), m("-50"))

	err := svc.CreateEntry(ctx, e)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCreateEntry_CrossCompanyAccountIsNotFound(t *testing.T) {
	svc, accounts, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")

	// Account of another company: resolvable globally, invisible in scope.
	foreign := NewAccount(id.New(), "707", "Ventes", AccountProduit)
	require.NoError(t, accounts.Create(context.Background(), foreign))

	e := NewEntry(companyID, time.Now().UTC(), "", "")
	e.AddLine(bank.ID, m("10"), types.Zero())
	e.AddLine(foreign.ID, types.Zero(), m("10"))

	err := svc.CreateEntry(ctx, e)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetAccountBalance_DerivedWithDateRange(t *testing.T) {
	svc, _, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")
	sales := mustAccount(t, svc, ctx, companyID, "707")

	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	e1 := NewEntry(companyID, jan, "", "")
	e1.AddLine(bank.ID, m("100"), types.Zero())
	e1.AddLine(sales.ID, types.Zero(), m("100"))
	require.NoError(t, svc.CreateEntry(ctx, e1))

	e2 := NewEntry(companyID, jun, "", "")
	e2.AddLine(bank.ID, m("40"), types.Zero())
	e2.AddLine(sales.ID, types.Zero(), m("40"))
	require.NoError(t, svc.CreateEntry(ctx, e2))

	balance, err := svc.GetAccountBalance(ctx, bank.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(m("140")), "balance = %s", balance)

	// Credit side is derived as negative.
	balance, err = svc.GetAccountBalance(ctx, sales.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(m("-140")))

	// Date-bounded: only January.
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	balance, err = svc.GetAccountBalance(ctx, bank.ID, &DateRange{To: &feb})
	require.NoError(t, err)
	assert.True(t, balance.Equal(m("100")), "balance = %s", balance)
}

func TestAdjustBalance_ReachesDesiredBalance(t *testing.T) {
	svc, _, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")

	entry, err := svc.AdjustBalance(ctx, bank.ID, m("250"), nil)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Len(t, entry.Lines, 2)

	balance, err := svc.GetAccountBalance(ctx, bank.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(m("250")), "balance = %s", balance)

	// The synthesized entry is balanced.
	debit, credit := entry.Totals()
	assert.True(t, debit.Equal(credit))
}

func TestAdjustBalance_SecondIdenticalTargetIsNoOp(t *testing.T) {
	svc, _, journal, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")

	first, err := svc.AdjustBalance(ctx, bank.ID, m("250"), nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	countAfterFirst := len(journal.entries)

	second, err := svc.AdjustBalance(ctx, bank.ID, m("250"), nil)
	require.NoError(t, err)
	assert.Nil(t, second, "second adjustment to same target must create nothing")
	assert.Equal(t, countAfterFirst, len(journal.entries))
}

func TestAdjustBalance_NegativeDeltaCreditsTarget(t *testing.T) {
	svc, _, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")

	_, err := svc.AdjustBalance(ctx, bank.ID, m("100"), nil)
	require.NoError(t, err)

	entry, err := svc.AdjustBalance(ctx, bank.ID, m("60"), nil)
	require.NoError(t, err)
	require.NotNil(t, entry)

	// delta < 0: target is credited.
	assert.True(t, entry.Lines[0].Credit.Equal(m("40")))
	assert.True(t, entry.Lines[0].Debit.IsZero())

	balance, err := svc.GetAccountBalance(ctx, bank.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(m("60")))
}

func TestAdjustBalance_CreatesSuspenseAccountOnce(t *testing.T) {
	svc, _, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")

	_, err := svc.AdjustBalance(ctx, bank.ID, m("10"), nil)
	require.NoError(t, err)
	_, err = svc.AdjustBalance(ctx, bank.ID, m("20"), nil)
	require.NoError(t, err)

	suspense, err := svc.accounts.GetByCode(ctx, AdjustmentAccountCode)
	require.NoError(t, err)
	assert.Equal(t, "Ajustements", suspense.Name)

	// The suspense account absorbs the mirrored amounts.
	balance, err := svc.GetAccountBalance(ctx, suspense.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(m("-20")), "balance = %s", balance)
}

func TestAdjustBalance_ExplicitCounterpart(t *testing.T) {
	svc, _, _, ctx, companyID := newTestLedger(t)
	bank := mustAccount(t, svc, ctx, companyID, "532")
	capital := mustAccount(t, svc, ctx, companyID, "101")

	entry, err := svc.AdjustBalance(ctx, bank.ID, m("500"), &capital.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)

	balance, err := svc.GetAccountBalance(ctx, capital.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(m("-500")))
}
