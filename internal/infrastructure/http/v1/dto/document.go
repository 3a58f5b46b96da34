package dto

import (
	"context"
	"time"

	"facturio/internal/core/company"
	"facturio/internal/core/types"
	"facturio/internal/domain/billing/document"
	"facturio/internal/domain/billing/kind"
	"facturio/internal/domain/billing/tax"
)

// DocumentLineRequest is one line of a create/update request. Monetary
// fields bind straight into decimals; computed amounts (HT, VAT, TTC)
// are never accepted from the client.
type DocumentLineRequest struct {
	ProductID       string      `json:"productId"`
	Description     string      `json:"description"`
	Quantity        types.Money `json:"quantity"`
	UnitPrice       types.Money `json:"unitPrice"`
	VATRatePercent  types.Money `json:"vatRatePercent"`
	FodecApplicable bool        `json:"fodecApplicable"`
	FodecRate       types.Money `json:"fodecRate"`
}

func (r DocumentLineRequest) toLine() (document.Line, error) {
	productID, err := ParseOptionalID("lines.productId", r.ProductID)
	if err != nil {
		return document.Line{}, err
	}
	return document.Line{
		ProductID:       productID,
		Description:     r.Description,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		VATRatePercent:  r.VATRatePercent,
		FodecApplicable: r.FodecApplicable,
		FodecRate:       r.FodecRate,
	}, nil
}

// CreateDocumentRequest for creating commercial documents.
type CreateDocumentRequest struct {
	Kind          string                `json:"kind" binding:"required"`
	ClientID      string                `json:"clientId"`
	SupplierID    string                `json:"supplierId"`
	IssueDate     *time.Time            `json:"issueDate"`
	DueDate       *time.Time            `json:"dueDate"`
	Currency      string                `json:"currency"`
	DiscountType  string                `json:"discountType"`
	DiscountValue types.Money           `json:"discountValue"`
	StampIncluded bool                  `json:"stampIncluded"`
	StampAmount   types.Money           `json:"stampAmount"`
	Reference     string                `json:"reference"`
	Comment       string                `json:"comment"`
	Lines         []DocumentLineRequest `json:"lines" binding:"required,min=1"`
}

// ToEntity builds a Document for the company in context. Totals are not
// populated here; the service recomputes them from the lines.
func (r CreateDocumentRequest) ToEntity(ctx context.Context) (*document.Document, error) {
	doc, err := document.New(company.CompanyID(ctx), kind.DocumentKind(r.Kind))
	if err != nil {
		return nil, err
	}

	if doc.ClientID, err = ParseOptionalID("clientId", r.ClientID); err != nil {
		return nil, err
	}
	if doc.SupplierID, err = ParseOptionalID("supplierId", r.SupplierID); err != nil {
		return nil, err
	}

	if r.IssueDate != nil {
		doc.IssueDate = *r.IssueDate
	}
	doc.DueDate = r.DueDate
	doc.Currency = r.Currency
	doc.DiscountType = tax.DiscountType(r.DiscountType)
	doc.DiscountValue = r.DiscountValue
	doc.StampIncluded = r.StampIncluded
	doc.StampAmount = r.StampAmount
	doc.Reference = r.Reference
	doc.Comment = r.Comment

	doc.Lines = make([]document.Line, len(r.Lines))
	for i, lr := range r.Lines {
		line, err := lr.toLine()
		if err != nil {
			return nil, err
		}
		line.LineNo = i + 1
		doc.Lines[i] = line
	}
	return doc, nil
}

// UpdateDocumentRequest for editing documents. The full line set replaces
// the stored one; totals are recomputed server-side.
type UpdateDocumentRequest struct {
	ClientID      *string               `json:"clientId"`
	SupplierID    *string               `json:"supplierId"`
	IssueDate     *time.Time            `json:"issueDate"`
	DueDate       *time.Time            `json:"dueDate"`
	Currency      *string               `json:"currency"`
	DiscountType  *string               `json:"discountType"`
	DiscountValue *types.Money          `json:"discountValue"`
	StampIncluded *bool                 `json:"stampIncluded"`
	StampAmount   *types.Money          `json:"stampAmount"`
	Reference     *string               `json:"reference"`
	Comment       *string               `json:"comment"`
	Lines         []DocumentLineRequest `json:"lines"`
	Version       int                   `json:"version" binding:"required,min=1"`
}

// ApplyTo overlays the request onto an existing document.
func (r UpdateDocumentRequest) ApplyTo(doc *document.Document) error {
	if r.ClientID != nil {
		parsed, err := ParseOptionalID("clientId", *r.ClientID)
		if err != nil {
			return err
		}
		doc.ClientID = parsed
	}
	if r.SupplierID != nil {
		parsed, err := ParseOptionalID("supplierId", *r.SupplierID)
		if err != nil {
			return err
		}
		doc.SupplierID = parsed
	}
	if r.IssueDate != nil {
		doc.IssueDate = *r.IssueDate
	}
	if r.DueDate != nil {
		doc.DueDate = r.DueDate
	}
	if r.Currency != nil {
		doc.Currency = *r.Currency
	}
	if r.DiscountType != nil {
		doc.DiscountType = tax.DiscountType(*r.DiscountType)
	}
	if r.DiscountValue != nil {
		doc.DiscountValue = *r.DiscountValue
	}
	if r.StampIncluded != nil {
		doc.StampIncluded = *r.StampIncluded
	}
	if r.StampAmount != nil {
		doc.StampAmount = *r.StampAmount
	}
	if r.Reference != nil {
		doc.Reference = *r.Reference
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}
	if r.Lines != nil {
		lines := make([]document.Line, len(r.Lines))
		for i, lr := range r.Lines {
			line, err := lr.toLine()
			if err != nil {
				return err
			}
			line.LineNo = i + 1
			lines[i] = line
		}
		doc.Lines = lines
	}
	doc.Version = r.Version
	return nil
}

// ConvertDocumentRequest for the conversion endpoint.
type ConvertDocumentRequest struct {
	TargetKind string `json:"targetKind" binding:"required"`
}

// SetStatusRequest for lifecycle transitions.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
