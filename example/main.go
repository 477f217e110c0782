package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/cascade-mrp/pkg/application/services/bom"
	"github.com/vsinha/cascade-mrp/pkg/application/services/netting"
	"github.com/vsinha/cascade-mrp/pkg/application/services/propagation"
	"github.com/vsinha/cascade-mrp/pkg/application/services/scheduling"
	"github.com/vsinha/cascade-mrp/pkg/application/services/stock"
	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/events"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/locking"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	// Create repositories
	bomRepo := memory.NewBOMRepository(2, 1)
	stockRepo := memory.NewStockRepository()
	processRepo := memory.NewProcessRepository()
	scheduleRepo := memory.NewScheduleRepository("PP")

	planStart := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	setupFrameBOM(bomRepo, stockRepo, processRepo, planStart)

	// Wire the engine
	eventStore := events.NewInMemoryEventStore(logger)
	scheduler := scheduling.NewScheduler(
		scheduleRepo,
		processRepo,
		scheduling.NewIntervalTable(processRepo),
		locking.NewKeyedMutex(),
		scheduling.Config{MaxCarryOverDays: 30},
		logger,
	)
	orchestrator := propagation.NewOrchestrator(
		netting.NewEngine(stock.NewLedger(stockRepo)),
		bom.NewResolver(bomRepo),
		scheduler,
		scheduleRepo,
		eventStore,
		propagation.Config{MaxParallelBranches: 4},
		logger,
	)

	trigger := entities.ProductionTrigger{
		SourceDocNo:   "PS-001",
		MaterialCode:  "FRAME",
		Quantity:      decimal.NewFromInt(100),
		NeedByDate:    planStart.AddDate(0, 0, 14),
		ProcessName:   "Welding",
		PlanStartDate: &planStart,
	}

	fmt.Println("Propagating production schedule PS-001...")
	fmt.Printf("Demand: %s frames needed by %s\n", trigger.Quantity, trigger.NeedByDate.Format("2006-01-02"))
	fmt.Println()

	result, err := orchestrator.Propagate(ctx, trigger)
	if err != nil {
		fmt.Printf("Propagation failed: %v\n", err)
		return
	}

	fmt.Println("Results:")
	fmt.Printf("  Schedule Entries: %d\n", result.CreatedCount())
	fmt.Printf("  Replenishments: %d\n", len(result.Replenishments))
	fmt.Printf("  Skipped Lines: %d\n", result.SkippedCount())
	fmt.Println()

	for _, entry := range result.Created {
		fmt.Printf("  %s %-6s %-8s %s qty=%s hours=%s unscheduled=%s\n",
			entry.PlanNo,
			entry.MaterialCode,
			entry.ProcessName,
			entry.ScheduleDate.Format("2006-01-02"),
			entry.PlannedQty,
			entry.DailyScheduledHours,
			entry.UnscheduledQty)
	}
	for _, line := range result.Replenishments {
		fmt.Printf("  buy %s x %s by %s\n", line.MaterialCode, line.ShortfallQty, line.NeedByDate.Format("2006-01-02"))
	}
}

// setupFrameBOM builds FRAME (welded) <- TUBE (cut) <- STEEL (bought), with 20 frames in stock
func setupFrameBOM(bomRepo *memory.BOMRepository, stockRepo *memory.StockRepository, processRepo *memory.ProcessRepository, asOf time.Time) {
	tube, _ := entities.NewBOMLine("FRAME", "TUBE", "Cut tube", decimal.NewFromInt(3), entities.Make, "Cutting", 1)
	steel, _ := entities.NewBOMLine("TUBE", "STEEL", "Steel bar", decimal.NewFromFloat(1.5), entities.Buy, "", 2)
	bomRepo.AddBOMLine(*tube)
	bomRepo.AddBOMLine(*steel)

	frames, _ := entities.NewStockSnapshot("FRAME", decimal.NewFromInt(20), decimal.Zero, decimal.Zero, decimal.Zero, asOf)
	stockRepo.AddSnapshot(*frames)

	processRepo.AddCapacity(entities.ProcessCapacity{
		Workshop:            "W-ASM",
		Process:             "Welding",
		DailyAvailableHours: decimal.NewFromInt(8),
		StandardWorkQuota:   decimal.NewFromInt(4),
	})
	processRepo.AddCapacity(entities.ProcessCapacity{
		Workshop:            "W-CUT",
		Process:             "Cutting",
		DailyAvailableHours: decimal.NewFromInt(8),
		StandardWorkQuota:   decimal.NewFromInt(20),
	})

	interval, _ := entities.NewProcessIntervalRule("Cutting", "Welding", decimal.NewFromInt(1), entities.IntervalDays)
	processRepo.AddInterval(*interval)
}
