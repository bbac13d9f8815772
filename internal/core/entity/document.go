package entity

import (
	"context"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
)

// Document is the base type for business transactions.
// Examples: StockOpname, Transfer orders, production stage completions.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+period)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Posted indicates if document movements are recorded in the ledger.
	// Posting is one-way: a posted document is corrected with compensating
	// entries, never unposted.
	Posted bool `db:"posted" json:"posted"`

	// CompanyID is the owning company (ledger partitions are keyed by company)
	CompanyID id.ID `db:"company_id" json:"companyId"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument(companyID id.ID) Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		CompanyID:    companyID,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.CompanyID) {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}

// CanModify checks if document can be modified.
// Posted documents are immutable; corrections go through compensating entries.
func (d *Document) CanModify() error {
	if d.Posted {
		return apperror.NewAlreadyPosted("document", d.ID.String())
	}
	return nil
}

// MarkPosted sets the posted flag.
func (d *Document) MarkPosted() {
	d.Posted = true
	d.Touch()
}

// --- Postable interface default implementations ---
// Document-specific types only need to implement GetDocumentType() and
// GenerateEntries().

// GetID returns the document ID (Postable interface).
func (d *Document) GetID() id.ID {
	return d.ID
}

// GetCompanyID returns the owning company (Postable interface).
func (d *Document) GetCompanyID() id.ID {
	return d.CompanyID
}

// IsPosted returns true if document is currently posted (Postable interface).
func (d *Document) IsPosted() bool {
	return d.Posted
}

// CanPost validates if document can be posted (Postable interface default).
// Override in specific document types if additional validation is needed.
func (d *Document) CanPost(ctx context.Context) error {
	return d.Validate(ctx)
}
