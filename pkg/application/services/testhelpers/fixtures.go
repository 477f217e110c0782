package testhelpers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/repositories/memory"
)

// Day is the fixed "today" used by service tests
var Day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// Clock returns a clock frozen at Day plus nine hours
func Clock() func() time.Time {
	return func() time.Time { return Day.Add(9 * time.Hour) }
}

// Stores bundles the in-memory repositories a propagation run reads and writes
type Stores struct {
	BOM       *memory.BOMRepository
	Stock     *memory.StockRepository
	Process   *memory.ProcessRepository
	Schedules *memory.ScheduleRepository
}

// NewStores creates empty in-memory stores
func NewStores() *Stores {
	return &Stores{
		BOM:       memory.NewBOMRepository(16, 16),
		Stock:     memory.NewStockRepository(),
		Process:   memory.NewProcessRepository(),
		Schedules: memory.NewScheduleRepository("PP"),
	}
}

// Qty is shorthand for an integer decimal
func Qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// MustBOMLine is a helper for tests - panics on validation error
func MustBOMLine(parent, child string, usage decimal.Decimal, sourceType entities.SourceType, outputProcess string) entities.BOMLine {
	line, err := entities.NewBOMLine(
		entities.MaterialCode(parent),
		entities.MaterialCode(child),
		child,
		usage,
		sourceType,
		outputProcess,
		0,
	)
	if err != nil {
		panic(err)
	}
	return *line
}

// AddLine registers a BOM line
func (s *Stores) AddLine(parent, child string, usage int64, sourceType entities.SourceType, outputProcess string) *Stores {
	s.BOM.AddBOMLine(MustBOMLine(parent, child, Qty(usage), sourceType, outputProcess))
	return s
}

// AddRoutedLine registers a Make line routed to one workshop
func (s *Stores) AddRoutedLine(parent, child string, usage int64, outputProcess, workshop string) *Stores {
	line := MustBOMLine(parent, child, Qty(usage), entities.Make, outputProcess)
	line.Workshop = workshop
	s.BOM.AddBOMLine(line)
	return s
}

// AddMaterial registers a material with no BOM of its own
func (s *Stores) AddMaterial(code string) *Stores {
	s.BOM.AddMaterial(entities.Material{Code: entities.MaterialCode(code), Name: code, Unit: "pcs"})
	return s
}

// AddStock records on-hand stock as of a date well before Day
func (s *Stores) AddStock(code string, onHand int64) *Stores {
	s.Stock.AddSnapshot(entities.StockSnapshot{
		MaterialCode: entities.MaterialCode(code),
		OnHand:       Qty(onHand),
		AsOfDate:     Day.AddDate(0, -1, 0),
	})
	return s
}

// AddCapacity configures a process in one workshop
func (s *Stores) AddCapacity(workshop, process string, dailyHours, quota int64) *Stores {
	s.Process.AddCapacity(entities.ProcessCapacity{
		Workshop:            workshop,
		Process:             process,
		DailyAvailableHours: Qty(dailyHours),
		StandardWorkQuota:   Qty(quota),
	})
	return s
}

// AddInterval configures a process interval rule
func (s *Stores) AddInterval(from, to string, value int64, unit entities.IntervalUnit) *Stores {
	s.Process.AddInterval(entities.ProcessIntervalRule{
		FromProcess:   from,
		ToProcess:     to,
		IntervalValue: Qty(value),
		IntervalUnit:  unit,
	})
	return s
}

// Trigger builds a production trigger planned to start on Day
func Trigger(docNo, material string, qty int64, process string, needBy time.Time) entities.ProductionTrigger {
	start := Day
	return entities.ProductionTrigger{
		SourceDocNo:   docNo,
		MaterialCode:  entities.MaterialCode(material),
		Quantity:      Qty(qty),
		NeedByDate:    needBy,
		ProcessName:   process,
		PlanStartDate: &start,
	}
}
