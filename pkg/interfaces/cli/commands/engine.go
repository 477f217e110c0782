package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/cascade-mrp/pkg/application/services/bom"
	"github.com/vsinha/cascade-mrp/pkg/application/services/netting"
	"github.com/vsinha/cascade-mrp/pkg/application/services/propagation"
	"github.com/vsinha/cascade-mrp/pkg/application/services/scheduling"
	"github.com/vsinha/cascade-mrp/pkg/application/services/stock"
	"github.com/vsinha/cascade-mrp/pkg/domain/repositories"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/config"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/database"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/events"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/locking"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/repositories/postgres"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/scenario"
)

// stores groups the repositories the engine reads and writes
type stores struct {
	bom        repositories.BOMRepository
	stock      repositories.StockRepository
	intervals  repositories.ProcessIntervalRepository
	capacities repositories.CapacityRepository
	schedules  repositories.ScheduleRepository
	replenish  repositories.ReplenishmentRepository
}

// engine is a fully wired propagation engine plus the resources it holds
type engine struct {
	orchestrator *propagation.Orchestrator
	eventStore   *events.InMemoryEventStore
	closers      []func()
}

func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// buildEngine opens the configured store, seeds it with the scenario and wires the services
func buildEngine(ctx context.Context, cfg *config.Config, sc *scenario.Scenario, logger *zap.Logger) (*engine, error) {
	e := &engine{}

	var s *stores
	var err error
	switch cfg.Store {
	case config.StorePostgres:
		s, err = openPostgres(ctx, cfg, sc, logger, e)
	default:
		s = openMemory(cfg, sc)
	}
	if err != nil {
		e.Close()
		return nil, err
	}

	locker, err := openLocker(ctx, cfg, logger, e)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.eventStore = events.NewInMemoryEventStore(logger)

	scheduler := scheduling.NewScheduler(
		s.schedules,
		s.capacities,
		scheduling.NewIntervalTable(s.intervals),
		locker,
		scheduling.Config{MaxCarryOverDays: cfg.Engine.MaxCarryOverDays},
		logger,
	)

	e.orchestrator = propagation.NewOrchestrator(
		netting.NewEngine(stock.NewLedger(s.stock)),
		bom.NewResolver(s.bom),
		scheduler,
		s.replenish,
		e.eventStore,
		propagation.Config{MaxParallelBranches: cfg.Engine.MaxParallelBranches},
		logger,
	)

	return e, nil
}

func openMemory(cfg *config.Config, sc *scenario.Scenario) *stores {
	bomRepo := memory.NewBOMRepository(len(sc.Materials), len(sc.BOMLines))
	stockRepo := memory.NewStockRepository()
	processRepo := memory.NewProcessRepository()
	scheduleRepo := memory.NewScheduleRepository(cfg.Engine.PlanNoPrefix)

	sc.SeedMemory(bomRepo, stockRepo, processRepo)

	return &stores{
		bom:        bomRepo,
		stock:      stockRepo,
		intervals:  processRepo,
		capacities: processRepo,
		schedules:  scheduleRepo,
		replenish:  scheduleRepo,
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, sc *scenario.Scenario, logger *zap.Logger, e *engine) (*stores, error) {
	url := cfg.Database.URL()

	sqlDB, err := database.OpenSQL(url)
	if err != nil {
		return nil, err
	}
	err = database.RunMigrations(sqlDB, logger)
	_ = sqlDB.Close()
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            url,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, db.Close)

	bomRepo := postgres.NewBOMRepository(db.Pool)
	stockRepo := postgres.NewStockRepository(db.Pool)
	processRepo := postgres.NewProcessRepository(db.Pool)
	scheduleRepo := postgres.NewScheduleRepository(db.Pool, cfg.Engine.PlanNoPrefix)

	if err := sc.SeedPostgres(ctx, bomRepo, stockRepo, processRepo); err != nil {
		return nil, fmt.Errorf("failed to seed scenario: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	return &stores{
		bom:        bomRepo,
		stock:      stockRepo,
		intervals:  processRepo,
		capacities: processRepo,
		schedules:  scheduleRepo,
		replenish:  scheduleRepo,
	}, nil
}

// openLocker uses Redis bucket locks when Redis is configured and in-process locks otherwise
func openLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger, e *engine) (locking.Locker, error) {
	client, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return locking.NewKeyedMutex(), nil
	}
	e.closers = append(e.closers, func() { _ = client.Close() })

	logger.Info("Using Redis bucket locks", zap.String("host", cfg.Redis.Host))
	ttl := time.Duration(cfg.Redis.LockTTLMillis) * time.Millisecond
	return locking.NewRedisLocker(client, ttl, logger), nil
}
