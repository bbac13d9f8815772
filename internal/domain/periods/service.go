package periods

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/apperror"
	appctx "kardex/internal/core/context"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/pkg/logger"
)

// Service manages accounting periods and gates ledger postings.
// Posters call EnsureOpen / Resolve inside the same transaction as the
// write they gate, so a concurrent Close cannot slip a posting into a
// period that is already closed.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a period service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Create opens a new accounting period.
func (s *Service) Create(ctx context.Context, period *Period) error {
	if err := period.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.GetByCode(ctx, period.CompanyID, period.Code); err == nil && existing != nil {
		return apperror.NewDuplicate("period", "code", period.Code)
	} else if err != nil && !apperror.IsNotFound(err) {
		return fmt.Errorf("check period code: %w", err)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, period)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "period created", "code", period.Code, "id", period.ID)
	return nil
}

// GetByID retrieves a period.
func (s *Service) GetByID(ctx context.Context, periodID id.ID) (*Period, error) {
	period, err := s.repo.GetByID(ctx, periodID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewPeriodNotFound(periodID.String())
		}
		return nil, err
	}
	return period, nil
}

// List returns all periods for a company.
func (s *Service) List(ctx context.Context, companyID id.ID) ([]*Period, error) {
	return s.repo.List(ctx, companyID)
}

// EnsureOpen verifies the period exists and accepts postings.
// Must be called inside the posting transaction.
func (s *Service) EnsureOpen(ctx context.Context, periodID id.ID) error {
	period, err := s.GetByID(ctx, periodID)
	if err != nil {
		return err
	}
	if !period.IsOpen() {
		return apperror.NewPeriodClosed(period.Code)
	}
	return nil
}

// Resolve finds the open period containing the transaction date.
// Returns PeriodNotFound when no period covers the date, PeriodClosed
// when the covering period is closed.
func (s *Service) Resolve(ctx context.Context, companyID id.ID, date time.Time) (*Period, error) {
	period, err := s.repo.GetByDate(ctx, companyID, date)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewPeriodNotFound(date.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("resolve period: %w", err)
	}
	if !period.IsOpen() {
		return nil, apperror.NewPeriodClosed(period.Code)
	}
	return period, nil
}

// Close closes a period. Rejected when completed-but-unposted documents
// still reference it: they would become unpostable forever.
func (s *Service) Close(ctx context.Context, periodID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		period, err := s.GetByID(ctx, periodID)
		if err != nil {
			return err
		}
		if !period.IsOpen() {
			return apperror.NewPeriodClosed(period.Code)
		}

		pending, err := s.repo.CountUnpostedDocuments(ctx, periodID)
		if err != nil {
			return fmt.Errorf("count pending documents: %w", err)
		}
		if pending > 0 {
			return apperror.NewBusinessRule(
				"PERIOD_HAS_PENDING_DOCUMENTS",
				"Period has completed documents awaiting posting",
			).WithDetail("count", pending)
		}

		now := time.Now().UTC()
		period.Status = StatusClosed
		period.ClosedAt = &now
		period.ClosedBy = appctx.Actor(ctx)
		period.Touch()

		if err := s.repo.Update(ctx, period); err != nil {
			return fmt.Errorf("close period: %w", err)
		}

		logger.Info(ctx, "period closed", "code", period.Code, "by", period.ClosedBy)
		return nil
	})
}

// Reopen reopens a closed period for corrections.
func (s *Service) Reopen(ctx context.Context, periodID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		period, err := s.GetByID(ctx, periodID)
		if err != nil {
			return err
		}
		if period.IsOpen() {
			return nil
		}

		period.Status = StatusOpen
		period.ClosedAt = nil
		period.ClosedBy = ""
		period.Touch()

		if err := s.repo.Update(ctx, period); err != nil {
			return fmt.Errorf("reopen period: %w", err)
		}

		logger.Info(ctx, "period reopened", "code", period.Code)
		return nil
	})
}
