// Package tax computes line and document totals under the FODEC+VAT model.
//
// FODEC is a surcharge on the pre-tax base that is itself part of the VAT
// base: VAT is charged on HT+FODEC, not on HT alone. The cascading order is
// a legal requirement (Tunisian FODEC) and must not be altered.
//
// All math is decimal; results are exact, not rounded. Rounding happens
// where amounts leave this package (persistence, ledger lines).
package tax

import (
	"github.com/shopspring/decimal"

	"facturio/internal/core/apperror"
	"facturio/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// LineInput describes one commercial document line before computation.
type LineInput struct {
	Quantity        types.Money `json:"quantity"`
	UnitPrice       types.Money `json:"unitPrice"` // may be negative (credit notes, returns)
	VATRatePercent  types.Money `json:"vatRatePercent"`
	FodecApplicable bool        `json:"fodecApplicable"`
	FodecRate       types.Money `json:"fodecRate"` // decimal fraction, [0,1]
}

// LineResult is a computed line. TotalTTC == HT + FodecAmount + VATAmount
// holds by construction.
type LineResult struct {
	LineInput

	HT          types.Money `json:"ht"`
	FodecAmount types.Money `json:"fodecAmount"`
	VATAmount   types.Money `json:"vatAmount"`
	TotalTTC    types.Money `json:"totalTtc"`
}

// DiscountType selects how a document-level discount is applied.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Discount is the document-level discount configuration.
// Applied once, against the pre-VAT base (subtotal + FODEC).
type Discount struct {
	Type  DiscountType `json:"type"`
	Value types.Money  `json:"value"`
}

// DocumentTotals is the totals snapshot persisted on a document.
// It must always be re-derivable from lines + discount + stamp.
type DocumentTotals struct {
	Subtotal       types.Money `json:"subtotal"`   // Σ ht
	TotalFodec     types.Money `json:"totalFodec"` // Σ fodec
	BaseTVA        types.Money `json:"baseTva"`    // subtotal + totalFodec
	TaxAmount      types.Money `json:"taxAmount"`  // Σ vat
	DiscountAmount types.Money `json:"discountAmount"`
	Stamp          types.Money `json:"stamp"`
	Total          types.Money `json:"total"`
}

// ComputeLine derives the monetary fields of a single line:
//
//	ht    = quantity × unit_price
//	fodec = fodec_applicable ? ht × fodec_rate : 0
//	vat   = (ht + fodec) × vat_rate / 100
//	ttc   = ht + fodec + vat
func ComputeLine(in LineInput) (LineResult, error) {
	if in.Quantity.IsNegative() {
		return LineResult{}, apperror.NewValidation("quantity must not be negative").
			WithDetail("field", "quantity").
			WithDetail("value", in.Quantity.String())
	}
	if in.VATRatePercent.IsNegative() {
		return LineResult{}, apperror.NewValidation("vat rate must not be negative").
			WithDetail("field", "vatRatePercent").
			WithDetail("value", in.VATRatePercent.String())
	}
	if in.FodecRate.IsNegative() || in.FodecRate.GreaterThan(decimal.NewFromInt(1)) {
		return LineResult{}, apperror.NewValidation("fodec rate must be within [0, 1]").
			WithDetail("field", "fodecRate").
			WithDetail("value", in.FodecRate.String())
	}

	ht := in.Quantity.Mul(in.UnitPrice)

	fodec := decimal.Zero
	if in.FodecApplicable {
		fodec = ht.Mul(in.FodecRate)
	}

	vat := ht.Add(fodec).Mul(in.VATRatePercent.Div(hundred))

	return LineResult{
		LineInput:   in,
		HT:          ht,
		FodecAmount: fodec,
		VATAmount:   vat,
		TotalTTC:    ht.Add(fodec).Add(vat),
	}, nil
}

// ComputeLines computes every line in order.
func ComputeLines(inputs []LineInput) ([]LineResult, error) {
	results := make([]LineResult, 0, len(inputs))
	for i, in := range inputs {
		res, err := ComputeLine(in)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return nil, appErr.WithDetail("lineNo", i+1)
			}
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ComputeTotals aggregates computed lines into a document totals snapshot.
//
// The discount is applied against the pre-VAT base (subtotal + FODEC) and
// netted into the total as a flat subtraction; VAT is not recomputed on the
// discounted base. A discount larger than the base is clamped to the base.
//
//	total = baseTVA + taxAmount − discountAmount + stamp
func ComputeTotals(lines []LineResult, stampIncluded bool, stampAmount types.Money, discount *Discount) (DocumentTotals, error) {
	if stampAmount.IsNegative() {
		return DocumentTotals{}, apperror.NewValidation("stamp amount must not be negative").
			WithDetail("field", "stampAmount")
	}

	var t DocumentTotals
	t.Subtotal = decimal.Zero
	t.TotalFodec = decimal.Zero
	t.TaxAmount = decimal.Zero

	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.HT)
		t.TotalFodec = t.TotalFodec.Add(l.FodecAmount)
		t.TaxAmount = t.TaxAmount.Add(l.VATAmount)
	}

	t.BaseTVA = t.Subtotal.Add(t.TotalFodec)

	discountAmount, err := discountOn(t.BaseTVA, discount)
	if err != nil {
		return DocumentTotals{}, err
	}
	t.DiscountAmount = discountAmount

	t.Stamp = decimal.Zero
	if stampIncluded {
		t.Stamp = stampAmount
	}

	t.Total = t.BaseTVA.Add(t.TaxAmount).Sub(t.DiscountAmount).Add(t.Stamp)
	return t, nil
}

// discountOn resolves the discount amount against the pre-VAT base.
func discountOn(base types.Money, discount *Discount) (types.Money, error) {
	if discount == nil {
		return decimal.Zero, nil
	}
	if discount.Value.IsNegative() {
		return decimal.Zero, apperror.NewValidation("discount value must not be negative").
			WithDetail("field", "discount.value")
	}

	var amount types.Money
	switch discount.Type {
	case DiscountPercent:
		amount = base.Mul(discount.Value.Div(hundred))
	case DiscountFixed:
		amount = discount.Value
	default:
		return decimal.Zero, apperror.NewValidation("unknown discount type").
			WithDetail("field", "discount.type").
			WithDetail("value", string(discount.Type))
	}

	// Clamp: a discount can never exceed the base it applies to.
	if amount.GreaterThan(base) {
		amount = base
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount, nil
}
