package periods

import (
	"context"
	"sync"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
)

// MemoryRepository is an in-memory Repository implementation.
// Use in unit tests to avoid database dependencies.
type MemoryRepository struct {
	mu      sync.Mutex
	periods map[id.ID]*Period

	// PendingDocuments controls CountUnpostedDocuments per period.
	PendingDocuments map[id.ID]int64
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		periods:          make(map[id.ID]*Period),
		PendingDocuments: make(map[id.ID]int64),
	}
}

// Create implements Repository.
func (r *MemoryRepository) Create(ctx context.Context, period *Period) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *period
	r.periods[period.ID] = &cp
	return nil
}

// GetByID implements Repository.
func (r *MemoryRepository) GetByID(ctx context.Context, periodID id.ID) (*Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.periods[periodID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperror.NewNotFound("period", periodID)
}

// GetByCode implements Repository.
func (r *MemoryRepository) GetByCode(ctx context.Context, companyID id.ID, code string) (*Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if p.CompanyID == companyID && p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("period", code)
}

// GetByDate implements Repository.
func (r *MemoryRepository) GetByDate(ctx context.Context, companyID id.ID, date time.Time) (*Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if p.CompanyID == companyID && p.Contains(date) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("period", date.Format("2006-01-02"))
}

// Update implements Repository.
func (r *MemoryRepository) Update(ctx context.Context, period *Period) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.periods[period.ID]; !ok {
		return apperror.NewNotFound("period", period.ID)
	}
	cp := *period
	r.periods[period.ID] = &cp
	return nil
}

// List implements Repository.
func (r *MemoryRepository) List(ctx context.Context, companyID id.ID) ([]*Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Period
	for _, p := range r.periods {
		if p.CompanyID == companyID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// CountUnpostedDocuments implements Repository.
func (r *MemoryRepository) CountUnpostedDocuments(ctx context.Context, periodID id.ID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.PendingDocuments[periodID], nil
}

// Ensure compile-time interface compliance.
var _ Repository = (*MemoryRepository)(nil)
