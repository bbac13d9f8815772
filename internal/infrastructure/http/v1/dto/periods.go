package dto

import (
	"time"

	"kardex/internal/core/id"
	"kardex/internal/domain/periods"
)

// CreatePeriodRequest is the request body for opening an accounting period.
type CreatePeriodRequest struct {
	Code      string    `json:"code" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// ToEntity converts DTO to domain entity.
func (r *CreatePeriodRequest) ToEntity(companyID id.ID) *periods.Period {
	return periods.NewPeriod(companyID, r.Code, r.StartDate, r.EndDate)
}

// PeriodResponse is the response body for a period.
type PeriodResponse struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"companyId"`
	Code      string     `json:"code"`
	StartDate time.Time  `json:"startDate"`
	EndDate   time.Time  `json:"endDate"`
	Status    string     `json:"status"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	ClosedBy  string     `json:"closedBy,omitempty"`
	Version   int        `json:"version"`
}

// FromPeriod creates response DTO from domain entity.
func FromPeriod(p *periods.Period) *PeriodResponse {
	return &PeriodResponse{
		ID:        p.ID.String(),
		CompanyID: p.CompanyID.String(),
		Code:      p.Code,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    string(p.Status),
		ClosedAt:  p.ClosedAt,
		ClosedBy:  p.ClosedBy,
		Version:   p.Version,
	}
}

// PeriodListResponse wraps period collections.
type PeriodListResponse struct {
	Items []*PeriodResponse `json:"items"`
}

// FromPeriods maps a slice of periods.
func FromPeriods(items []*periods.Period) PeriodListResponse {
	resp := PeriodListResponse{Items: make([]*PeriodResponse, len(items))}
	for i, p := range items {
		resp.Items[i] = FromPeriod(p)
	}
	return resp
}
