package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain"
	"facturio/internal/domain/billing/document"
	"facturio/internal/domain/billing/kind"
)

func m(s string) types.Money {
	return types.MustMoney(s)
}

// --- fakes ---

type fakeRepo struct {
	mu       sync.Mutex
	payments map[id.ID]*Payment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{payments: make(map[id.ID]*Payment)}
}

func (r *fakeRepo) Create(ctx context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, paymentID id.ID) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("payment", paymentID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) Delete(ctx context.Context, paymentID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[paymentID]; !ok {
		return apperror.NewNotFound("payment", paymentID.String())
	}
	delete(r.payments, paymentID)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result domain.ListResult[*Payment]
	for _, p := range r.payments {
		cp := *p
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Payment
	for _, p := range r.payments {
		if p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) SumForInvoice(ctx context.Context, invoiceID id.ID) (types.Money, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := types.Zero()
	for _, p := range r.payments {
		if p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

type fakeInvoices struct {
	mu   sync.Mutex
	docs map[id.ID]*document.Document
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{docs: make(map[id.ID]*document.Document)}
}

func (r *fakeInvoices) put(doc *document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
}

func (r *fakeInvoices) GetForUpdate(ctx context.Context, docID id.ID) (*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeInvoices) Update(ctx context.Context, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("document", doc.ID.String())
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

type passTxManager struct{}

func (passTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *fakeRepo, *fakeInvoices) {
	repo := newFakeRepo()
	invoices := newFakeInvoices()
	return NewService(repo, invoices, passTxManager{}), repo, invoices
}

func newTestInvoice(t *testing.T, invoices *fakeInvoices, total string) *document.Document {
	t.Helper()
	doc, err := document.New(id.New(), kind.Invoice)
	require.NoError(t, err)
	doc.Status = kind.StatusSent
	doc.Total = m(total)
	doc.RemainingAmount = m(total)
	invoices.put(doc)
	return doc
}

func pay(t *testing.T, svc *Service, invoiceID id.ID, amount string) *Payment {
	t.Helper()
	p := New(id.New(), id.New(), m(amount))
	p.InvoiceID = &invoiceID
	p.Method = MethodTransfer
	require.NoError(t, svc.RecordPayment(context.Background(), p))
	return p
}

// --- tests ---

func TestRecordPayment_FlipsToPaidOnSecondPayment(t *testing.T) {
	svc, _, invoices := newTestService()
	ctx := context.Background()
	invoice := newTestInvoice(t, invoices, "500")

	pay(t, svc, invoice.ID, "200")

	after, err := invoices.GetForUpdate(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, kind.StatusPartiallyPaid, after.Status)
	assert.True(t, after.TotalPaid.Equal(m("200")))
	assert.True(t, after.RemainingAmount.Equal(m("300")), "remaining = %s", after.RemainingAmount)

	pay(t, svc, invoice.ID, "300")

	after, err = invoices.GetForUpdate(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, kind.StatusPaid, after.Status)
	assert.True(t, after.TotalPaid.Equal(m("500")))
	assert.True(t, after.RemainingAmount.IsZero(), "remaining = %s", after.RemainingAmount)
}

func TestRecordPayment_PartialPaymentLeavesRemaining(t *testing.T) {
	svc, _, invoices := newTestService()
	invoice := newTestInvoice(t, invoices, "500")

	pay(t, svc, invoice.ID, "300")

	after, err := invoices.GetForUpdate(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, kind.StatusPaid, after.Status)
	assert.True(t, after.RemainingAmount.Equal(m("200")), "remaining = %s", after.RemainingAmount)
}

func TestRecordPayment_OverpaymentStillFlipsToPaid(t *testing.T) {
	svc, _, invoices := newTestService()
	invoice := newTestInvoice(t, invoices, "500")

	// No upper bound is enforced; remaining goes negative.
	pay(t, svc, invoice.ID, "600")

	after, err := invoices.GetForUpdate(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, kind.StatusPaid, after.Status)
	assert.True(t, after.RemainingAmount.Equal(m("-100")), "remaining = %s", after.RemainingAmount)
}

func TestRecordPayment_ValidationFailuresPersistNothing(t *testing.T) {
	svc, repo, invoices := newTestService()
	ctx := context.Background()
	invoice := newTestInvoice(t, invoices, "500")

	cases := []struct {
		name  string
		setup func(p *Payment)
	}{
		{"zero amount", func(p *Payment) { p.Amount = m("0") }},
		{"negative amount", func(p *Payment) { p.Amount = m("-50") }},
		{"missing account", func(p *Payment) { p.AccountID = id.Nil() }},
		{"zero date", func(p *Payment) { p.PaymentDate = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(id.New(), id.New(), m("100"))
			p.InvoiceID = &invoice.ID
			tc.setup(p)

			err := svc.RecordPayment(ctx, p)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)
		})
	}

	assert.Empty(t, repo.payments)
	after, err := invoices.GetForUpdate(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, kind.StatusSent, after.Status)
}

func TestRecordPayment_UnknownInvoiceIsNotFound(t *testing.T) {
	svc, repo, _ := newTestService()

	missing := id.New()
	p := New(id.New(), id.New(), m("100"))
	p.InvoiceID = &missing

	err := svc.RecordPayment(context.Background(), p)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, repo.payments, "payment persisted despite missing invoice")
}

func TestRecordPayment_UnlinkedPaymentTouchesNoInvoice(t *testing.T) {
	svc, repo, invoices := newTestService()
	invoice := newTestInvoice(t, invoices, "500")

	p := New(id.New(), id.New(), m("100"))
	require.NoError(t, svc.RecordPayment(context.Background(), p))

	assert.Len(t, repo.payments, 1)
	after, err := invoices.GetForUpdate(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.True(t, after.TotalPaid.IsZero())
	assert.Equal(t, kind.StatusSent, after.Status)
}

func TestRecordPayment_RejectsNonPayableKinds(t *testing.T) {
	svc, repo, invoices := newTestService()
	ctx := context.Background()

	// None of these kinds carry paid/partially_paid in their lifecycle,
	// so linking a payment must fail instead of pushing the document
	// into a status its own validation rejects.
	for _, k := range []kind.DocumentKind{kind.Quote, kind.Order, kind.DeliveryNote, kind.CreditNote} {
		t.Run(string(k), func(t *testing.T) {
			doc, err := document.New(id.New(), k)
			require.NoError(t, err)
			doc.Total = m("500")
			invoices.put(doc)

			p := New(id.New(), id.New(), m("100"))
			p.InvoiceID = &doc.ID
			p.Method = MethodTransfer

			err = svc.RecordPayment(ctx, p)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)

			after, err := invoices.GetForUpdate(ctx, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, doc.Status, after.Status)
			assert.True(t, after.TotalPaid.IsZero())
		})
	}
	assert.Empty(t, repo.payments)
}

func TestRefreshPaymentStatus_RejectsNonPayableKind(t *testing.T) {
	svc, _, invoices := newTestService()
	ctx := context.Background()

	quote, err := document.New(id.New(), kind.Quote)
	require.NoError(t, err)
	quote.Total = m("500")
	invoices.put(quote)

	err = svc.RefreshPaymentStatus(ctx, quote.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)

	after, err := invoices.GetForUpdate(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.Status, after.Status)
}

func TestRecordPayment_CancelledInvoiceKeepsStatus(t *testing.T) {
	svc, _, invoices := newTestService()
	invoice := newTestInvoice(t, invoices, "500")
	invoice.Status = kind.StatusCancelled
	invoices.put(invoice)

	pay(t, svc, invoice.ID, "500")

	after, err := invoices.GetForUpdate(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, kind.StatusCancelled, after.Status)
	// Amounts still track reality.
	assert.True(t, after.TotalPaid.Equal(m("500")))
	assert.True(t, after.RemainingAmount.IsZero())
}

func TestDeletePayment_RevertsInvoiceStatus(t *testing.T) {
	svc, _, invoices := newTestService()
	ctx := context.Background()
	invoice := newTestInvoice(t, invoices, "500")

	p1 := pay(t, svc, invoice.ID, "200")
	pay(t, svc, invoice.ID, "300")

	after, err := invoices.GetForUpdate(ctx, invoice.ID)
	require.NoError(t, err)
	require.Equal(t, kind.StatusPaid, after.Status)

	require.NoError(t, svc.DeletePayment(ctx, p1.ID))

	after, err = invoices.GetForUpdate(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, kind.StatusPartiallyPaid, after.Status)
	assert.True(t, after.TotalPaid.Equal(m("300")))
	assert.True(t, after.RemainingAmount.Equal(m("200")))
}

func TestDeletePayment_LastPaymentRevertsToIssuedState(t *testing.T) {
	svc, _, invoices := newTestService()
	ctx := context.Background()
	invoice := newTestInvoice(t, invoices, "500")

	p := pay(t, svc, invoice.ID, "500")
	require.NoError(t, svc.DeletePayment(ctx, p.ID))

	after, err := invoices.GetForUpdate(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, kind.StatusSent, after.Status)
	assert.True(t, after.TotalPaid.IsZero())
	assert.True(t, after.RemainingAmount.Equal(m("500")))
}

func TestRefreshPaymentStatus_RepairsStaleSnapshot(t *testing.T) {
	svc, _, invoices := newTestService()
	ctx := context.Background()
	invoice := newTestInvoice(t, invoices, "500")

	pay(t, svc, invoice.ID, "500")

	// Corrupt the snapshot to simulate a missed recompute.
	stale, err := invoices.GetForUpdate(ctx, invoice.ID)
	require.NoError(t, err)
	stale.Status = kind.StatusSent
	stale.TotalPaid = m("0")
	stale.RemainingAmount = m("500")
	require.NoError(t, invoices.Update(ctx, stale))

	require.NoError(t, svc.RefreshPaymentStatus(ctx, invoice.ID))

	after, err := invoices.GetForUpdate(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, kind.StatusPaid, after.Status)
	assert.True(t, after.TotalPaid.Equal(m("500")))
	assert.True(t, after.RemainingAmount.IsZero())
}
