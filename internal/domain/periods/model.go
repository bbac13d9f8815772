// Package periods provides accounting periods and the posting gate.
// Every ledger entry posts into a period; closed periods accept nothing.
package periods

import (
	"context"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
)

// PeriodStatus represents the lifecycle state of an accounting period.
type PeriodStatus string

const (
	StatusOpen   PeriodStatus = "open"
	StatusClosed PeriodStatus = "closed"
)

// Period is one accounting period (typically a calendar month).
type Period struct {
	entity.BaseCatalog

	CompanyID id.ID `db:"company_id" json:"companyId"`

	// Code is the period identifier, e.g. "2026-08"
	Code string `db:"code" json:"code"`

	StartDate time.Time    `db:"start_date" json:"startDate"`
	EndDate   time.Time    `db:"end_date" json:"endDate"`
	Status    PeriodStatus `db:"status" json:"status"`

	ClosedAt *time.Time `db:"closed_at" json:"closedAt,omitempty"`
	ClosedBy string     `db:"closed_by" json:"closedBy,omitempty"`
}

// NewPeriod creates an open period covering [start, end).
func NewPeriod(companyID id.ID, code string, start, end time.Time) *Period {
	return &Period{
		BaseCatalog: entity.NewBaseCatalog(),
		CompanyID:   companyID,
		Code:        code,
		StartDate:   start,
		EndDate:     end,
		Status:      StatusOpen,
	}
}

// IsOpen reports whether the period accepts postings.
func (p *Period) IsOpen() bool {
	return p.Status == StatusOpen
}

// Contains reports whether the date falls inside the period.
func (p *Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && date.Before(p.EndDate)
}

// Validate implements entity.Validatable.
func (p *Period) Validate(ctx context.Context) error {
	if id.IsNil(p.CompanyID) {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if p.Code == "" {
		return apperror.NewValidation("period code is required").
			WithDetail("field", "code")
	}
	if !p.EndDate.After(p.StartDate) {
		return apperror.NewValidation("period end must be after start").
			WithDetail("code", p.Code)
	}
	if p.Status != StatusOpen && p.Status != StatusClosed {
		return apperror.NewValidation("unknown period status").
			WithDetail("status", string(p.Status))
	}
	return nil
}
