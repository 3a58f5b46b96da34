// Package kind is the static registry of commercial document kinds.
//
// The registry is closed: kinds, their status sets and their legal
// conversion targets are fixed at compile time and validated at the
// boundary instead of scattered string comparisons.
package kind

import (
	"facturio/internal/core/apperror"
)

// DocumentKind identifies a commercial document kind.
type DocumentKind string

const (
	Quote        DocumentKind = "quote"
	Order        DocumentKind = "order"
	DeliveryNote DocumentKind = "delivery_note"
	Invoice      DocumentKind = "invoice"
	CreditNote   DocumentKind = "credit_note"

	PurchaseOrder      DocumentKind = "purchase_order"
	PurchaseDelivery   DocumentKind = "purchase_delivery"
	PurchaseInvoice    DocumentKind = "purchase_invoice"
	PurchaseCreditNote DocumentKind = "purchase_credit_note"
)

// Module groups kinds by business flow.
type Module string

const (
	ModuleSales    Module = "sales"
	ModulePurchase Module = "purchase"
)

// StockDirection describes how posting a document moves stock.
type StockDirection string

const (
	StockEntry StockDirection = "entry"
	StockExit  StockDirection = "exit"
)

// DocumentStatus is a closed status value; each kind restricts which
// statuses apply via its Config.StatusOptions.
type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "draft"
	StatusSent          DocumentStatus = "sent"
	StatusAccepted      DocumentStatus = "accepted"
	StatusRejected      DocumentStatus = "rejected"
	StatusConfirmed     DocumentStatus = "confirmed"
	StatusDelivered     DocumentStatus = "delivered"
	StatusReceived      DocumentStatus = "received"
	StatusPartiallyPaid DocumentStatus = "partially_paid"
	StatusPaid          DocumentStatus = "paid"
	StatusIssued        DocumentStatus = "issued"
	StatusCancelled     DocumentStatus = "cancelled" // terminal, record retained
)

// Config describes the static behaviour of one document kind.
type Config struct {
	Label            string
	Prefix           string
	Module           Module
	AffectsStock     bool
	StockDirection   StockDirection
	RequiresClient   bool
	RequiresSupplier bool
	RequiresDueDate  bool
	CanConvertTo     []DocumentKind
	DefaultStatus    DocumentStatus
	StatusOptions    []DocumentStatus
}

// registry holds the closed kind → config map. Not extensible at runtime.
var registry = map[DocumentKind]Config{
	Quote: {
		Label:          "Devis",
		Prefix:         "DEV",
		Module:         ModuleSales,
		RequiresClient: true,
		CanConvertTo:   []DocumentKind{Order, Invoice},
		DefaultStatus:  StatusDraft,
		StatusOptions:  []DocumentStatus{StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusCancelled},
	},
	Order: {
		Label:          "Bon de commande",
		Prefix:         "BC",
		Module:         ModuleSales,
		RequiresClient: true,
		CanConvertTo:   []DocumentKind{DeliveryNote, Invoice},
		DefaultStatus:  StatusDraft,
		StatusOptions:  []DocumentStatus{StatusDraft, StatusConfirmed, StatusCancelled},
	},
	DeliveryNote: {
		Label:          "Bon de livraison",
		Prefix:         "BL",
		Module:         ModuleSales,
		AffectsStock:   true,
		StockDirection: StockExit,
		RequiresClient: true,
		CanConvertTo:   []DocumentKind{Invoice},
		DefaultStatus:  StatusDraft,
		StatusOptions:  []DocumentStatus{StatusDraft, StatusDelivered, StatusCancelled},
	},
	Invoice: {
		Label:           "Facture",
		Prefix:          "FAC",
		Module:          ModuleSales,
		RequiresClient:  true,
		RequiresDueDate: true,
		CanConvertTo:    []DocumentKind{CreditNote},
		DefaultStatus:   StatusDraft,
		StatusOptions:   []DocumentStatus{StatusDraft, StatusSent, StatusPartiallyPaid, StatusPaid, StatusCancelled},
	},
	CreditNote: {
		Label:          "Avoir",
		Prefix:         "AV",
		Module:         ModuleSales,
		AffectsStock:   true,
		StockDirection: StockEntry,
		RequiresClient: true,
		CanConvertTo:   nil, // terminal
		DefaultStatus:  StatusDraft,
		StatusOptions:  []DocumentStatus{StatusDraft, StatusIssued, StatusCancelled},
	},

	PurchaseOrder: {
		Label:            "Commande fournisseur",
		Prefix:           "CF",
		Module:           ModulePurchase,
		RequiresSupplier: true,
		CanConvertTo:     []DocumentKind{PurchaseDelivery, PurchaseInvoice},
		DefaultStatus:    StatusDraft,
		StatusOptions:    []DocumentStatus{StatusDraft, StatusConfirmed, StatusCancelled},
	},
	PurchaseDelivery: {
		Label:            "Bon de réception",
		Prefix:           "BR",
		Module:           ModulePurchase,
		AffectsStock:     true,
		StockDirection:   StockEntry,
		RequiresSupplier: true,
		CanConvertTo:     []DocumentKind{PurchaseInvoice},
		DefaultStatus:    StatusDraft,
		StatusOptions:    []DocumentStatus{StatusDraft, StatusReceived, StatusCancelled},
	},
	PurchaseInvoice: {
		Label:            "Facture fournisseur",
		Prefix:           "FF",
		Module:           ModulePurchase,
		RequiresSupplier: true,
		RequiresDueDate:  true,
		CanConvertTo:     []DocumentKind{PurchaseCreditNote},
		DefaultStatus:    StatusDraft,
		StatusOptions:    []DocumentStatus{StatusDraft, StatusReceived, StatusPartiallyPaid, StatusPaid, StatusCancelled},
	},
	PurchaseCreditNote: {
		Label:            "Avoir fournisseur",
		Prefix:           "AVF",
		Module:           ModulePurchase,
		AffectsStock:     true,
		StockDirection:   StockExit,
		RequiresSupplier: true,
		CanConvertTo:     nil, // terminal
		DefaultStatus:    StatusDraft,
		StatusOptions:    []DocumentStatus{StatusDraft, StatusIssued, StatusCancelled},
	},
}

// GetConfig returns the config for a kind, failing fast on unknown kinds.
func GetConfig(k DocumentKind) (Config, error) {
	cfg, ok := registry[k]
	if !ok {
		return Config{}, apperror.NewValidation("unknown document kind").
			WithDetail("kind", string(k))
	}
	return cfg, nil
}

// MustConfig returns the config for a kind, panicking on unknown kinds.
// Use only where the kind was already validated at the boundary.
func MustConfig(k DocumentKind) Config {
	cfg, err := GetConfig(k)
	if err != nil {
		panic(err)
	}
	return cfg
}

// IsCreditNote reports whether the kind carries negated monetary fields.
func IsCreditNote(k DocumentKind) bool {
	return k == CreditNote || k == PurchaseCreditNote
}

// CanConvert reports whether source kind may be converted into target kind.
func CanConvert(source, target DocumentKind) bool {
	cfg, err := GetConfig(source)
	if err != nil {
		return false
	}
	for _, t := range cfg.CanConvertTo {
		if t == target {
			return true
		}
	}
	return false
}

// ValidStatus reports whether status is allowed for the given kind.
func ValidStatus(k DocumentKind, status DocumentStatus) bool {
	cfg, err := GetConfig(k)
	if err != nil {
		return false
	}
	for _, s := range cfg.StatusOptions {
		if s == status {
			return true
		}
	}
	return false
}

// AllKinds returns every registered kind.
func AllKinds() []DocumentKind {
	kinds := make([]DocumentKind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}
