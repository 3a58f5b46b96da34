package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturio/internal/core/apperror"
	"facturio/internal/core/types"
)

func m(s string) types.Money {
	return types.MustMoney(s)
}

func TestComputeLine_FodecCascade(t *testing.T) {
	// VAT must be charged on HT+FODEC, not on HT alone.
	res, err := ComputeLine(LineInput{
		Quantity:        m("2"),
		UnitPrice:       m("100"),
		VATRatePercent:  m("19"),
		FodecApplicable: true,
		FodecRate:       m("0.01"),
	})
	require.NoError(t, err)

	assert.True(t, res.HT.Equal(m("200")), "ht = %s", res.HT)
	assert.True(t, res.FodecAmount.Equal(m("2")), "fodec = %s", res.FodecAmount)
	assert.True(t, res.VATAmount.Equal(m("38.38")), "vat = %s", res.VATAmount)
	assert.True(t, res.TotalTTC.Equal(m("240.38")), "ttc = %s", res.TotalTTC)
}

func TestComputeLine_NoFodec(t *testing.T) {
	res, err := ComputeLine(LineInput{
		Quantity:        m("3"),
		UnitPrice:       m("50"),
		VATRatePercent:  m("13"),
		FodecApplicable: false,
		FodecRate:       m("0.01"),
	})
	require.NoError(t, err)

	assert.True(t, res.HT.Equal(m("150")))
	assert.True(t, res.FodecAmount.IsZero())
	assert.True(t, res.VATAmount.Equal(m("19.5")))
	assert.True(t, res.TotalTTC.Equal(m("169.5")))
}

func TestComputeLine_RoundTripInvariant(t *testing.T) {
	// total_line_ttc == ht + fodec + vat must hold exactly for any valid line.
	inputs := []LineInput{
		{Quantity: m("1"), UnitPrice: m("0.07"), VATRatePercent: m("19"), FodecApplicable: true, FodecRate: m("0.01")},
		{Quantity: m("7.5"), UnitPrice: m("13.333"), VATRatePercent: m("7"), FodecApplicable: true, FodecRate: m("0.01")},
		{Quantity: m("100"), UnitPrice: m("-42.42"), VATRatePercent: m("19"), FodecApplicable: false},
		{Quantity: m("0"), UnitPrice: m("99"), VATRatePercent: m("13"), FodecApplicable: true, FodecRate: m("1")},
	}

	for _, in := range inputs {
		res, err := ComputeLine(in)
		require.NoError(t, err)
		sum := res.HT.Add(res.FodecAmount).Add(res.VATAmount)
		assert.True(t, res.TotalTTC.Equal(sum),
			"ttc %s != ht+fodec+vat %s", res.TotalTTC, sum)
	}
}

func TestComputeLine_NegativeUnitPriceAllowed(t *testing.T) {
	// Negative unit prices model credit notes and returns.
	res, err := ComputeLine(LineInput{
		Quantity:       m("2"),
		UnitPrice:      m("-100"),
		VATRatePercent: m("19"),
	})
	require.NoError(t, err)
	assert.True(t, res.HT.Equal(m("-200")))
	assert.True(t, res.TotalTTC.Equal(m("-238")))
}

func TestComputeLine_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		input LineInput
	}{
		{"negative quantity", LineInput{Quantity: m("-1"), UnitPrice: m("10"), VATRatePercent: m("19")}},
		{"negative vat rate", LineInput{Quantity: m("1"), UnitPrice: m("10"), VATRatePercent: m("-19")}},
		{"fodec rate above 1", LineInput{Quantity: m("1"), UnitPrice: m("10"), VATRatePercent: m("19"), FodecApplicable: true, FodecRate: m("1.5")}},
		{"negative fodec rate", LineInput{Quantity: m("1"), UnitPrice: m("10"), VATRatePercent: m("19"), FodecRate: m("-0.01")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeLine(tc.input)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}
}

func TestComputeTotals_MixedInvoiceWithStamp(t *testing.T) {
	lines, err := ComputeLines([]LineInput{
		{Quantity: m("2"), UnitPrice: m("100"), VATRatePercent: m("19"), FodecApplicable: true, FodecRate: m("0.01")},
		{Quantity: m("3"), UnitPrice: m("50"), VATRatePercent: m("13"), FodecApplicable: false, FodecRate: m("0.01")},
	})
	require.NoError(t, err)

	totals, err := ComputeTotals(lines, true, m("1"), nil)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(m("350")), "subtotal = %s", totals.Subtotal)
	assert.True(t, totals.TotalFodec.Equal(m("2")), "fodec = %s", totals.TotalFodec)
	assert.True(t, totals.BaseTVA.Equal(m("352")), "baseTVA = %s", totals.BaseTVA)
	assert.True(t, totals.TaxAmount.Equal(m("57.88")), "tax = %s", totals.TaxAmount)
	assert.True(t, totals.Stamp.Equal(m("1")))
	// total = baseTVA + taxAmount + stamp (no discount)
	assert.True(t, totals.Total.Equal(m("410.88")), "total = %s", totals.Total)
}

func TestComputeTotals_PercentDiscount(t *testing.T) {
	// Discount is a flat subtraction from the pre-VAT base; VAT is not
	// recomputed on the discounted base.
	lines, err := ComputeLines([]LineInput{
		{Quantity: m("2"), UnitPrice: m("100"), VATRatePercent: m("19"), FodecApplicable: true, FodecRate: m("0.01")},
		{Quantity: m("3"), UnitPrice: m("50"), VATRatePercent: m("13"), FodecApplicable: false, FodecRate: m("0.01")},
	})
	require.NoError(t, err)

	totals, err := ComputeTotals(lines, true, m("1"), &Discount{Type: DiscountPercent, Value: m("10")})
	require.NoError(t, err)

	// 10% of baseTVA 352 = 35.2
	assert.True(t, totals.DiscountAmount.Equal(m("35.2")), "discount = %s", totals.DiscountAmount)
	// 352 + 57.88 - 35.2 + 1
	assert.True(t, totals.Total.Equal(m("375.68")), "total = %s", totals.Total)
}

func TestComputeTotals_FixedDiscount(t *testing.T) {
	lines, err := ComputeLines([]LineInput{
		{Quantity: m("1"), UnitPrice: m("100"), VATRatePercent: m("19")},
	})
	require.NoError(t, err)

	totals, err := ComputeTotals(lines, false, types.Zero(), &Discount{Type: DiscountFixed, Value: m("25")})
	require.NoError(t, err)

	assert.True(t, totals.DiscountAmount.Equal(m("25")))
	// 100 + 19 - 25
	assert.True(t, totals.Total.Equal(m("94")))
}

func TestComputeTotals_DiscountClampedAtBase(t *testing.T) {
	lines, err := ComputeLines([]LineInput{
		{Quantity: m("1"), UnitPrice: m("100"), VATRatePercent: m("19")},
	})
	require.NoError(t, err)

	totals, err := ComputeTotals(lines, false, types.Zero(), &Discount{Type: DiscountFixed, Value: m("500")})
	require.NoError(t, err)

	// Discount exceeding the base is clamped to the base.
	assert.True(t, totals.DiscountAmount.Equal(m("100")), "discount = %s", totals.DiscountAmount)
	assert.True(t, totals.Total.Equal(m("19")), "total = %s", totals.Total)
}

func TestComputeTotals_RejectsNegativeDiscount(t *testing.T) {
	_, err := ComputeTotals(nil, false, types.Zero(), &Discount{Type: DiscountFixed, Value: m("-5")})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestComputeTotals_SnapshotRederivable(t *testing.T) {
	// The persisted snapshot must be re-derivable from lines + discount + stamp.
	inputs := []LineInput{
		{Quantity: m("4"), UnitPrice: m("12.5"), VATRatePercent: m("19"), FodecApplicable: true, FodecRate: m("0.01")},
		{Quantity: m("2"), UnitPrice: m("7.25"), VATRatePercent: m("7")},
	}
	discount := &Discount{Type: DiscountPercent, Value: m("5")}

	lines1, err := ComputeLines(inputs)
	require.NoError(t, err)
	first, err := ComputeTotals(lines1, true, m("0.6"), discount)
	require.NoError(t, err)

	lines2, err := ComputeLines(inputs)
	require.NoError(t, err)
	second, err := ComputeTotals(lines2, true, m("0.6"), discount)
	require.NoError(t, err)

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
	assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
}
