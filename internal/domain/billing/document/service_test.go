package document

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain/billing/kind"
	"facturio/internal/domain/billing/tax"
)

func m(s string) types.Money {
	return types.MustMoney(s)
}

func newTestInvoice(t *testing.T, companyID id.ID) *Document {
	t.Helper()
	doc, err := New(companyID, kind.Invoice)
	require.NoError(t, err)

	clientID := id.New()
	due := time.Now().UTC().AddDate(0, 1, 0)
	doc.ClientID = &clientID
	doc.DueDate = &due
	doc.Currency = "TND"
	doc.StampIncluded = true
	doc.StampAmount = m("1")
	doc.Lines = []Line{
		{Quantity: m("2"), UnitPrice: m("100"), VATRatePercent: m("19"), FodecApplicable: true, FodecRate: m("0.01")},
		{Quantity: m("3"), UnitPrice: m("50"), VATRatePercent: m("13")},
	}
	return doc
}

func TestCreate_ComputesTotalsAndAssignsNumber(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := newTestInvoice(t, id.New())
	require.NoError(t, svc.Create(ctx, doc))

	assert.Equal(t, "FAC-"+time.Now().UTC().Format("2006")+"-00001", doc.Number)
	assert.True(t, doc.Subtotal.Equal(m("350")))
	assert.True(t, doc.TotalFodec.Equal(m("2")))
	assert.True(t, doc.BaseTVA.Equal(m("352")))
	assert.True(t, doc.TaxAmount.Equal(m("57.88")))
	assert.True(t, doc.Total.Equal(m("410.88")), "total = %s", doc.Total)
	assert.True(t, doc.RemainingAmount.Equal(doc.Total))

	// Each line's ttc must equal ht+fodec+vat.
	for _, l := range doc.Lines {
		assert.True(t, l.TotalTTC.Equal(l.HT.Add(l.FodecAmount).Add(l.VATAmount)))
	}

	stored, err := svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)
}

func TestCreate_RejectsInvoiceWithoutClient(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	doc := newTestInvoice(t, id.New())
	doc.ClientID = nil

	err := svc.Create(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCreate_RejectsClientAndSupplierTogether(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	doc := newTestInvoice(t, id.New())
	supplierID := id.New()
	doc.SupplierID = &supplierID

	err := svc.Create(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestUpdate_RecomputesTotals(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := newTestInvoice(t, id.New())
	require.NoError(t, svc.Create(ctx, doc))

	doc.Lines = doc.Lines[:1] // drop the second line
	require.NoError(t, svc.Update(ctx, doc))

	assert.True(t, doc.Subtotal.Equal(m("200")))
	assert.True(t, doc.Total.Equal(m("241.38")), "total = %s", doc.Total) // 202 + 38.38 + 1
}

func TestUpdate_CancelledDocumentIsFrozen(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := newTestInvoice(t, id.New())
	require.NoError(t, svc.Create(ctx, doc))
	require.NoError(t, svc.Cancel(ctx, doc.ID))

	doc.Status = kind.StatusCancelled
	err := svc.Update(ctx, doc)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDocumentCancelled))
}

func TestCreate_DiscountedInvoice(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := newTestInvoice(t, id.New())
	doc.DiscountType = tax.DiscountPercent
	doc.DiscountValue = m("10")

	require.NoError(t, svc.Create(ctx, doc))

	assert.True(t, doc.DiscountAmount.Equal(m("35.2")), "discount = %s", doc.DiscountAmount)
	// 352 + 57.88 - 35.2 + 1
	assert.True(t, doc.Total.Equal(m("375.68")), "total = %s", doc.Total)
}
