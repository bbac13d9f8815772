// Package main provides a CLI tool for seeding the database with demo data:
// a company scope, warehouses with bins, materials, an open period, and
// opening stock posted through the ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"kardex/internal/core/apperror"
	appctx "kardex/internal/core/context"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/catalogs/material"
	"kardex/internal/domain/catalogs/warehouse"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/periods"
	"kardex/internal/infrastructure/config"
	"kardex/internal/infrastructure/numerator"
	"kardex/internal/infrastructure/storage/postgres"
	"kardex/internal/infrastructure/storage/postgres/catalog_repo"
	"kardex/internal/infrastructure/storage/postgres/ledger_repo"
	"kardex/internal/infrastructure/storage/postgres/period_repo"
	"kardex/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.ConnectionString()))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	companyID := resolveCompanyID(log)

	// All writes carry the seed actor so audit columns are populated.
	ctx = appctx.WithUser(ctx, &appctx.UserContext{
		UserID:    id.New(),
		Username:  "seed",
		CompanyID: companyID,
	})

	txManager := postgres.NewTxManager(pool)
	gen := numerator.NewTransactional(txManager)

	warehouseSvc := warehouse.NewService(catalog_repo.NewWarehouseRepo(txManager), gen, txManager)
	materialSvc := material.NewService(catalog_repo.NewMaterialRepo(txManager), gen, txManager)
	periodSvc := periods.NewService(period_repo.NewPeriodRepo(txManager), txManager)
	poster := ledger.NewPoster(ledger_repo.NewLedgerRepo(txManager), periodSvc, txManager)

	s := &seeder{
		companyID: companyID,
		warehouse: warehouseSvc,
		material:  materialSvc,
		periods:   periodSvc,
		poster:    poster,
		log:       log,
	}

	if err := s.Run(ctx); err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Infow("seeding completed successfully", "company_id", companyID)
}

// resolveCompanyID takes SEED_COMPANY_ID when set so the seed can be
// pointed at an existing company scope; otherwise a fresh one is minted.
func resolveCompanyID(log *logger.Logger) id.ID {
	if raw := os.Getenv("SEED_COMPANY_ID"); raw != "" {
		companyID, err := id.Parse(raw)
		if err != nil {
			log.Fatalw("invalid SEED_COMPANY_ID", "value", raw, "error", err)
		}
		return companyID
	}

	companyID := id.New()
	log.Infow("generated new company scope", "company_id", companyID)
	return companyID
}

type seeder struct {
	companyID id.ID
	warehouse *warehouse.Service
	material  *material.Service
	periods   *periods.Service
	poster    *ledger.Poster
	log       *logger.Logger
}

func (s *seeder) Run(ctx context.Context) error {
	mainWH, err := s.ensureWarehouse(ctx, "WH-MAIN", "Main warehouse", warehouse.TypeMain, true)
	if err != nil {
		return fmt.Errorf("seed main warehouse: %w", err)
	}
	if _, err := s.ensureWarehouse(ctx, "WH-PROD", "Production floor", warehouse.TypeProduction, false); err != nil {
		return fmt.Errorf("seed production warehouse: %w", err)
	}

	for _, bin := range []struct{ code, name string }{
		{"A1", "Rack A, shelf 1"},
		{"A2", "Rack A, shelf 2"},
	} {
		if err := s.ensureBin(ctx, mainWH, bin.code, bin.name); err != nil {
			return fmt.Errorf("seed bin %s: %w", bin.code, err)
		}
	}

	materials := []struct {
		code, name string
		kind       material.MaterialKind
		uom        string
		cost       string
	}{
		{"RM-FLOUR", "Wheat flour", material.KindRaw, "kg", "12.50"},
		{"RM-SUGAR", "Granulated sugar", material.KindRaw, "kg", "18.00"},
		{"RM-BOX", "Cardboard box", material.KindRaw, "pcs", "3.25"},
		{"FG-COOKIE", "Cookie box 500g", material.KindFinished, "pcs", "0"},
		{"SV-SHIP", "Shipping service", material.KindService, "pcs", "0"},
	}

	seeded := make(map[string]*material.Material, len(materials))
	for _, m := range materials {
		item, err := s.ensureMaterial(ctx, m.code, m.name, m.kind, m.uom, m.cost)
		if err != nil {
			return fmt.Errorf("seed material %s: %w", m.code, err)
		}
		seeded[m.code] = item
	}

	now := time.Now().UTC()
	periodCreated, err := s.ensurePeriod(ctx, now)
	if err != nil {
		return fmt.Errorf("seed period: %w", err)
	}

	// Opening stock goes in only on the first run; re-running the seed
	// against a populated company must not inflate balances.
	if !periodCreated {
		s.log.Info("period already exists, skipping opening stock")
		return nil
	}

	openings := []struct {
		code string
		qty  float64
	}{
		{"RM-FLOUR", 500},
		{"RM-SUGAR", 200},
		{"RM-BOX", 1000},
	}

	for _, o := range openings {
		item := seeded[o.code]
		_, err := s.poster.Receive(ctx, s.companyID, ledger.EntryRequest{
			Item:            item.Ref(),
			WarehouseID:     mainWH.ID,
			Date:            now,
			Qty:             types.NewQuantityFromFloat64(o.qty),
			UnitCost:        item.DefaultUnitCost,
			ReferenceType:   entity.RefManual,
			ReferenceNumber: "OPENING",
		})
		if err != nil {
			return fmt.Errorf("post opening stock for %s: %w", o.code, err)
		}
		s.log.Infow("posted opening stock", "material", o.code, "qty", o.qty)
	}

	return nil
}

func (s *seeder) ensureWarehouse(ctx context.Context, code, name string, whType warehouse.WarehouseType, isDefault bool) (*warehouse.Warehouse, error) {
	existing, err := s.warehouse.GetByCode(ctx, code)
	if err == nil {
		s.log.Infow("warehouse already exists", "code", code)
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	wh := warehouse.NewWarehouse(s.companyID, code, name, whType)
	wh.IsDefault = isDefault
	if err := s.warehouse.Create(ctx, wh); err != nil {
		return nil, err
	}

	s.log.Infow("warehouse created", "code", code)
	return wh, nil
}

func (s *seeder) ensureBin(ctx context.Context, wh *warehouse.Warehouse, code, name string) error {
	for _, b := range wh.Bins {
		if b.Code == code {
			return nil
		}
	}

	if _, err := s.warehouse.AddBin(ctx, wh.ID, code, name); err != nil {
		return err
	}

	s.log.Infow("bin created", "warehouse", wh.Code, "bin", code)
	return nil
}

func (s *seeder) ensureMaterial(ctx context.Context, code, name string, kind material.MaterialKind, uom, cost string) (*material.Material, error) {
	existing, err := s.material.GetByCode(ctx, code)
	if err == nil {
		s.log.Infow("material already exists", "code", code)
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	m := material.NewMaterial(s.companyID, code, name, kind)
	m.UoM = uom
	if cost != "" && cost != "0" {
		unitCost, err := types.NewMoneyFromString(cost)
		if err != nil {
			return nil, err
		}
		m.DefaultUnitCost = unitCost
	}

	if err := s.material.Create(ctx, m); err != nil {
		return nil, err
	}

	s.log.Infow("material created", "code", code, "kind", kind)
	return m, nil
}

// ensurePeriod opens the current month. Returns true when the period was
// created by this run.
func (s *seeder) ensurePeriod(ctx context.Context, now time.Time) (bool, error) {
	code := now.Format("2006-01")
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	period := periods.NewPeriod(s.companyID, code, start, end)
	err := s.periods.Create(ctx, period)
	if err == nil {
		s.log.Infow("period created", "code", code)
		return true, nil
	}

	if apperror.IsCode(err, apperror.CodeDuplicate) {
		return false, nil
	}

	return false, err
}
