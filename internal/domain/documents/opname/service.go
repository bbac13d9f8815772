package opname

import (
	"context"
	"fmt"
	"time"

	appctx "kardex/internal/core/context"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/numerator"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/internal/domain"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/posting"
	"kardex/pkg/logger"
)

// NumeratorStrategy for opname numbers: strict, counts are auditable
// documents and must not have gaps.
const NumeratorStrategy = numerator.StrategyStrict

// Service provides business operations for opname documents.
type Service struct {
	repo          Repository
	postingEngine *posting.Engine
	projector     *ledger.Projector
	numerator     numerator.Generator
	txManager     tx.Manager
	hooks         *domain.HookRegistry[*Opname]
}

// NewService creates a new opname service.
func NewService(
	repo Repository,
	postingEngine *posting.Engine,
	projector *ledger.Projector,
	gen numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:          repo,
		postingEngine: postingEngine,
		projector:     projector,
		numerator:     gen,
		txManager:     txManager,
		hooks:         domain.NewHookRegistry[*Opname](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Opname] {
	return s.hooks
}

// Create creates a new opname document.
func (s *Service) Create(ctx context.Context, doc *Opname) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		cfg := numerator.DefaultConfig("OPN")
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}
	doc.CreatedBy = appctx.Actor(ctx)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "opname created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves an opname with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Opname, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// Update updates an opname document.
func (s *Service) Update(ctx context.Context, doc *Opname) error {
	if err := s.hooks.RunBeforeUpdate(ctx, doc); err != nil {
		return err
	}

	if err := doc.CanModify(); err != nil {
		return err
	}

	if err := doc.Validate(ctx); err != nil {
		return err
	}
	doc.UpdatedBy = appctx.Actor(ctx)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// Delete soft-deletes an unposted opname.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if err := doc.CanModify(); err != nil {
		return err
	}

	return s.repo.Delete(ctx, docID)
}

// PrepareSheet fills the count sheet with one line per non-zero balance
// in the warehouse, snapshotting system quantity and unit cost.
func (s *Service) PrepareSheet(ctx context.Context, docID id.ID) (*Opname, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	if doc.Status != StatusDraft {
		return nil, fmt.Errorf("can only prepare sheet in draft status")
	}

	balances, err := s.projector.GetWarehouseBalances(ctx, doc.CompanyID, doc.WarehouseID, ledger.BalanceFilter{
		ExcludeZero: true,
	})
	if err != nil {
		return nil, fmt.Errorf("get warehouse balances: %w", err)
	}

	doc.Lines = make([]Line, 0, len(balances))
	for _, balance := range balances {
		if err := doc.AddLine(balance.ItemRef, balance.BinID, balance.CurrentQty, balance.AvgCost); err != nil {
			return nil, err
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "opname sheet prepared", "id", doc.ID, "lines", len(doc.Lines))
	return doc, nil
}

// AddLine adds an item to the count sheet, snapshotting its balance.
func (s *Service) AddLine(ctx context.Context, docID id.ID, item LineInput) (*Opname, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	balance, err := s.projector.GetBalance(ctx, ledger.BalanceKey{
		CompanyID:   doc.CompanyID,
		Item:        item.Item,
		WarehouseID: doc.WarehouseID,
		BinID:       item.BinID,
	})
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	if err := doc.AddLine(item.Item, item.BinID, balance.CurrentQty, balance.AvgCost); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// StartCounting transitions the opname to counting.
func (s *Service) StartCounting(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if err := doc.StartCounting(); err != nil {
		return err
	}

	return s.repo.Update(ctx, doc)
}

// UpdatePhysicalCount records a counted quantity for a line.
func (s *Service) UpdatePhysicalCount(ctx context.Context, docID id.ID, lineNo int, physicalQty types.Quantity, reasonCode string) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if err := doc.SetPhysicalCount(lineNo, physicalQty, reasonCode, appctx.Actor(ctx)); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
}

// Complete freezes the count.
func (s *Service) Complete(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if err := doc.Complete(); err != nil {
		return err
	}

	return s.repo.Update(ctx, doc)
}

// Cancel abandons an uncompleted opname.
func (s *Service) Cancel(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if err := doc.Cancel(); err != nil {
		return err
	}

	return s.repo.Update(ctx, doc)
}

// Post reconciles the count against the ledger: one adjustment entry per
// non-zero-variance line, all in one transaction. A posted opname cannot
// be posted again.
func (s *Service) Post(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	updateDoc := func(ctx context.Context) error {
		return s.repo.Update(ctx, doc)
	}

	return s.postingEngine.Post(ctx, doc, updateDoc)
}

// List retrieves opnames with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Opname], error) {
	return s.repo.List(ctx, filter)
}

// GetComparison returns system vs physical quantities per line.
func (s *Service) GetComparison(ctx context.Context, docID id.ID) (*ComparisonResult, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	result := &ComparisonResult{
		OpnameID:    docID,
		WarehouseID: doc.WarehouseID,
		Status:      doc.Status,
		Posted:      doc.Posted,
		Items:       make([]ComparisonItem, 0, len(doc.Lines)),
	}

	for _, line := range doc.Lines {
		item := ComparisonItem{
			LineNo:         line.LineNo,
			Item:           line.Item,
			BinID:          line.BinID,
			SystemQty:      line.SystemQty,
			SystemUnitCost: line.SystemUnitCost,
			Counted:        line.Counted,
			ReasonCode:     line.ReasonCode,
		}

		if line.PhysicalQty != nil {
			item.PhysicalQty = *line.PhysicalQty
			item.VarianceQty = line.VarianceQty
			item.VarianceValue = types.RoundCost(line.VarianceQty.Decimal().Mul(line.SystemUnitCost))
		}

		result.Items = append(result.Items, item)
	}

	result.TotalSystemQty = doc.TotalSystemQty
	result.TotalPhysicalQty = doc.TotalPhysicalQty
	result.TotalSurplusQty = doc.TotalSurplusQty
	result.TotalShortageQty = doc.TotalShortageQty

	return result, nil
}

// LineInput identifies an item+bin for AddLine.
type LineInput struct {
	Item  entity.ItemRef
	BinID id.ID
}

// ComparisonResult contains opname comparison data.
type ComparisonResult struct {
	OpnameID         id.ID            `json:"opnameId"`
	WarehouseID      id.ID            `json:"warehouseId"`
	Status           Status           `json:"status"`
	Posted           bool             `json:"posted"`
	Items            []ComparisonItem `json:"items"`
	TotalSystemQty   types.Quantity   `json:"totalSystemQty"`
	TotalPhysicalQty types.Quantity   `json:"totalPhysicalQty"`
	TotalSurplusQty  types.Quantity   `json:"totalSurplusQty"`
	TotalShortageQty types.Quantity   `json:"totalShortageQty"`
}

// ComparisonItem represents a single comparison line.
type ComparisonItem struct {
	LineNo         int            `json:"lineNo"`
	Item           entity.ItemRef `json:"item"`
	BinID          id.ID          `json:"binId"`
	SystemQty      types.Quantity `json:"systemQty"`
	SystemUnitCost types.Money    `json:"systemUnitCost"`
	PhysicalQty    types.Quantity `json:"physicalQty"`
	VarianceQty    types.Quantity `json:"varianceQty"`
	VarianceValue  types.Money    `json:"varianceValue"`
	ReasonCode     string         `json:"reasonCode,omitempty"`
	Counted        bool           `json:"counted"`
}
