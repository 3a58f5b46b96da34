// Package document provides the commercial document aggregate (quotes,
// orders, delivery notes, invoices, credit notes) and its lifecycle:
// direct creation, edit with totals recomputation, and conversion into
// other kinds per the kind registry.
package document

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"facturio/internal/core/apperror"
	"facturio/internal/core/entity"
	"facturio/internal/core/id"
	"facturio/internal/core/types"
	"facturio/internal/domain/billing/kind"
	"facturio/internal/domain/billing/tax"
)

// Document is a commercial document of any registered kind.
// Monetary totals are a denormalized snapshot of the tax calculator's
// output; they are always re-derivable from the lines + discount + stamp.
type Document struct {
	entity.BaseDocument

	Kind   kind.DocumentKind   `db:"kind" json:"kind"`
	Number string              `db:"number" json:"number"`
	Status kind.DocumentStatus `db:"status" json:"status"`

	// Exactly one of client/supplier is set, depending on the kind's module.
	ClientID   *id.ID `db:"client_id" json:"clientId,omitempty"`
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	IssueDate time.Time  `db:"issue_date" json:"issueDate"`
	DueDate   *time.Time `db:"due_date" json:"dueDate,omitempty"`
	Currency  string     `db:"currency" json:"currency"`

	// Document-level discount; empty type means no discount.
	DiscountType  tax.DiscountType `db:"discount_type" json:"discountType,omitempty"`
	DiscountValue types.Money      `db:"discount_value" json:"discountValue"`

	StampIncluded bool        `db:"stamp_included" json:"stampIncluded"`
	StampAmount   types.Money `db:"stamp_amount" json:"stampAmount"`

	// Totals snapshot (tax.DocumentTotals persisted for display/PDF)
	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	TotalFodec     types.Money `db:"total_fodec" json:"totalFodec"`
	BaseTVA        types.Money `db:"base_tva" json:"baseTva"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	Stamp          types.Money `db:"stamp" json:"stamp"`
	Total          types.Money `db:"total" json:"total"`

	// Payment tracking (invoice kinds); kept consistent by payment reconciliation.
	TotalPaid       types.Money `db:"total_paid" json:"totalPaid"`
	RemainingAmount types.Money `db:"remaining_amount" json:"remainingAmount"`

	// SourceDocumentID links a credit note back to its origin (audit trail).
	SourceDocumentID *id.ID `db:"source_document_id" json:"sourceDocumentId,omitempty"`

	// Reference carries the source number on forward conversions.
	// Advisory lineage, not a foreign key.
	Reference string `db:"reference" json:"reference,omitempty"`

	Comment string `db:"comment" json:"comment,omitempty"`

	// Table part
	Lines []Line `db:"-" json:"lines"`
}

// Line is one document line with its computed monetary fields.
// TotalTTC == HT + FodecAmount + VATAmount holds by construction.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID   *id.ID `db:"product_id" json:"productId,omitempty"`
	Description string `db:"description" json:"description,omitempty"`

	Quantity        types.Money `db:"quantity" json:"quantity"`
	UnitPrice       types.Money `db:"unit_price" json:"unitPrice"`
	VATRatePercent  types.Money `db:"vat_rate" json:"vatRatePercent"`
	FodecApplicable bool        `db:"fodec_applicable" json:"fodecApplicable"`
	FodecRate       types.Money `db:"fodec_rate" json:"fodecRate"`

	HT          types.Money `db:"ht" json:"ht"`
	FodecAmount types.Money `db:"fodec_amount" json:"fodecAmount"`
	VATAmount   types.Money `db:"vat_amount" json:"vatAmount"`
	TotalTTC    types.Money `db:"total_ttc" json:"totalTtc"`
}

// TaxInput returns the line's calculator input.
func (l Line) TaxInput() tax.LineInput {
	return tax.LineInput{
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		VATRatePercent:  l.VATRatePercent,
		FodecApplicable: l.FodecApplicable,
		FodecRate:       l.FodecRate,
	}
}

// New creates a document of the given kind with the kind's default status.
func New(companyID id.ID, k kind.DocumentKind) (*Document, error) {
	cfg, err := kind.GetConfig(k)
	if err != nil {
		return nil, err
	}
	return &Document{
		BaseDocument: entity.NewBaseDocument(companyID),
		Kind:         k,
		Status:       cfg.DefaultStatus,
		IssueDate:    time.Now().UTC(),
		Lines:        make([]Line, 0),
	}, nil
}

// Discount returns the document-level discount config, or nil when unset.
func (d *Document) Discount() *tax.Discount {
	if d.DiscountType == "" {
		return nil
	}
	return &tax.Discount{Type: d.DiscountType, Value: d.DiscountValue}
}

// ClearDiscount removes the discount config and its computed amount.
// Credit notes carry no independent discount semantics.
func (d *Document) ClearDiscount() {
	d.DiscountType = ""
	d.DiscountValue = decimal.Zero
	d.DiscountAmount = decimal.Zero
}

// ApplyTotals stores a totals snapshot on the document.
func (d *Document) ApplyTotals(t tax.DocumentTotals) {
	d.Subtotal = t.Subtotal
	d.TotalFodec = t.TotalFodec
	d.BaseTVA = t.BaseTVA
	d.TaxAmount = t.TaxAmount
	d.DiscountAmount = t.DiscountAmount
	d.Stamp = t.Stamp
	d.Total = t.Total
	d.RemainingAmount = t.Total.Sub(d.TotalPaid)
}

// IsCancelled reports whether the document reached its terminal status.
func (d *Document) IsCancelled() bool {
	return d.Status == kind.StatusCancelled
}

// CanModify checks if the document can still be edited.
// Cancelled is terminal; the record is retained but frozen.
func (d *Document) CanModify() error {
	if d.IsCancelled() {
		return apperror.NewBusinessRule(
			apperror.CodeDocumentCancelled,
			"Cannot modify a cancelled document",
		).WithDetail("document_id", d.ID.String())
	}
	return nil
}

// Validate implements entity.Validatable.
func (d *Document) Validate(ctx context.Context) error {
	if err := d.BaseDocument.Validate(ctx); err != nil {
		return err
	}

	cfg, err := kind.GetConfig(d.Kind)
	if err != nil {
		return err
	}

	if !kind.ValidStatus(d.Kind, d.Status) {
		return apperror.NewValidation("status not allowed for this document kind").
			WithDetail("field", "status").
			WithDetail("kind", string(d.Kind)).
			WithDetail("status", string(d.Status))
	}

	hasClient := d.ClientID != nil && !id.IsNil(*d.ClientID)
	hasSupplier := d.SupplierID != nil && !id.IsNil(*d.SupplierID)

	if cfg.RequiresClient && !hasClient {
		return apperror.NewValidation("client is required").
			WithDetail("field", "clientId")
	}
	if cfg.RequiresSupplier && !hasSupplier {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if hasClient && hasSupplier {
		return apperror.NewValidation("client and supplier are mutually exclusive").
			WithDetail("field", "clientId")
	}

	if cfg.RequiresDueDate && d.DueDate == nil {
		return apperror.NewValidation("due date is required").
			WithDetail("field", "dueDate")
	}

	if d.IssueDate.IsZero() {
		return apperror.NewValidation("issue date is required").
			WithDetail("field", "issueDate")
	}

	if len(d.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	return nil
}
