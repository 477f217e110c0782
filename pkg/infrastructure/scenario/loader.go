package scenario

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/repositories/postgres"
)

const dateLayout = "2006-01-02"

type fileMaterial struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Unit string `yaml:"unit"`
}

type fileBOMLine struct {
	Parent        string `yaml:"parent"`
	Child         string `yaml:"child"`
	ChildName     string `yaml:"child_name"`
	Usage         string `yaml:"usage"`
	SourceType    string `yaml:"source_type"`
	OutputProcess string `yaml:"output_process"`
	Workshop      string `yaml:"workshop"`
	Level         int    `yaml:"level"`
}

type fileStock struct {
	Material  string `yaml:"material"`
	OnHand    string `yaml:"on_hand"`
	InTransit string `yaml:"in_transit"`
	Reserved  string `yaml:"reserved"`
	Projected string `yaml:"projected"`
	AsOf      string `yaml:"as_of"`
}

type fileInterval struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Value string `yaml:"value"`
	Unit  string `yaml:"unit"`
}

type fileCapacity struct {
	Workshop            string `yaml:"workshop"`
	Process             string `yaml:"process"`
	DailyAvailableHours string `yaml:"daily_available_hours"`
	StandardWorkQuota   string `yaml:"standard_work_quota"`
}

type fileTrigger struct {
	SourceDocNo      string `yaml:"source_doc_no"`
	Material         string `yaml:"material"`
	Quantity         string `yaml:"quantity"`
	NeedBy           string `yaml:"need_by"`
	Process          string `yaml:"process"`
	Workshop         string `yaml:"workshop"`
	SuccessorProcess string `yaml:"successor_process"`
	PlanStart        string `yaml:"plan_start"`
}

type file struct {
	Materials  []fileMaterial `yaml:"materials"`
	BOM        []fileBOMLine  `yaml:"bom"`
	Stock      []fileStock    `yaml:"stock"`
	Intervals  []fileInterval `yaml:"intervals"`
	Capacities []fileCapacity `yaml:"capacities"`
	Triggers   []fileTrigger  `yaml:"triggers"`
}

// Scenario is a validated set of master data plus the production triggers to propagate
type Scenario struct {
	Materials  []entities.Material
	BOMLines   []entities.BOMLine
	Snapshots  []entities.StockSnapshot
	Intervals  []entities.ProcessIntervalRule
	Capacities []entities.ProcessCapacity
	Triggers   []entities.ProductionTrigger
}

// LoadFile reads and validates a YAML scenario
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates a YAML scenario document
func Parse(data []byte) (*Scenario, error) {
	var raw file
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return raw.build()
}

func (raw *file) build() (*Scenario, error) {
	s := &Scenario{}

	for i, m := range raw.Materials {
		material, err := entities.NewMaterial(entities.MaterialCode(m.Code), m.Name, m.Unit)
		if err != nil {
			return nil, fmt.Errorf("materials[%d]: %w", i, err)
		}
		s.Materials = append(s.Materials, *material)
	}

	for i, b := range raw.BOM {
		line, err := parseBOMLine(b)
		if err != nil {
			return nil, fmt.Errorf("bom[%d]: %w", i, err)
		}
		s.BOMLines = append(s.BOMLines, *line)
	}

	for i, st := range raw.Stock {
		snap, err := parseStock(st)
		if err != nil {
			return nil, fmt.Errorf("stock[%d]: %w", i, err)
		}
		s.Snapshots = append(s.Snapshots, *snap)
	}

	for i, iv := range raw.Intervals {
		rule, err := parseInterval(iv)
		if err != nil {
			return nil, fmt.Errorf("intervals[%d]: %w", i, err)
		}
		s.Intervals = append(s.Intervals, *rule)
	}

	for i, c := range raw.Capacities {
		capacity, err := parseCapacity(c)
		if err != nil {
			return nil, fmt.Errorf("capacities[%d]: %w", i, err)
		}
		s.Capacities = append(s.Capacities, *capacity)
	}

	for i, tr := range raw.Triggers {
		trigger, err := parseTrigger(tr)
		if err != nil {
			return nil, fmt.Errorf("triggers[%d]: %w", i, err)
		}
		s.Triggers = append(s.Triggers, *trigger)
	}

	return s, nil
}

// SeedMemory loads the master data into in-memory stores
func (s *Scenario) SeedMemory(bomRepo *memory.BOMRepository, stockRepo *memory.StockRepository, processRepo *memory.ProcessRepository) {
	for _, material := range s.Materials {
		bomRepo.AddMaterial(material)
	}
	for _, line := range s.BOMLines {
		bomRepo.AddBOMLine(line)
	}
	for _, snap := range s.Snapshots {
		stockRepo.AddSnapshot(snap)
	}
	for _, rule := range s.Intervals {
		processRepo.AddInterval(rule)
	}
	for _, capacity := range s.Capacities {
		processRepo.AddCapacity(capacity)
	}
}

// SeedPostgres upserts the master data into PostgreSQL
func (s *Scenario) SeedPostgres(
	ctx context.Context,
	bomRepo *postgres.BOMRepository,
	stockRepo *postgres.StockRepository,
	processRepo *postgres.ProcessRepository,
) error {
	for _, material := range s.Materials {
		if err := bomRepo.UpsertMaterial(ctx, material); err != nil {
			return err
		}
	}
	for _, line := range s.BOMLines {
		if err := bomRepo.UpsertBOMLine(ctx, line); err != nil {
			return err
		}
	}
	for _, snap := range s.Snapshots {
		if err := stockRepo.UpsertSnapshot(ctx, snap); err != nil {
			return err
		}
	}
	for _, rule := range s.Intervals {
		if err := processRepo.UpsertInterval(ctx, rule); err != nil {
			return err
		}
	}
	for _, capacity := range s.Capacities {
		if err := processRepo.UpsertCapacity(ctx, capacity); err != nil {
			return err
		}
	}
	return nil
}

func parseBOMLine(b fileBOMLine) (*entities.BOMLine, error) {
	usage, err := parseDecimal("usage", b.Usage, false)
	if err != nil {
		return nil, err
	}
	sourceType, err := entities.ParseSourceType(b.SourceType)
	if err != nil {
		return nil, err
	}
	line, err := entities.NewBOMLine(
		entities.MaterialCode(b.Parent),
		entities.MaterialCode(b.Child),
		b.ChildName,
		usage,
		sourceType,
		b.OutputProcess,
		b.Level,
	)
	if err != nil {
		return nil, err
	}
	line.Workshop = b.Workshop
	return line, nil
}

func parseStock(st fileStock) (*entities.StockSnapshot, error) {
	var values [4]decimal.Decimal
	for i, field := range []struct{ name, raw string }{
		{"on_hand", st.OnHand},
		{"in_transit", st.InTransit},
		{"reserved", st.Reserved},
		{"projected", st.Projected},
	} {
		v, err := parseDecimal(field.name, field.raw, true)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	asOf, err := parseDate("as_of", st.AsOf)
	if err != nil {
		return nil, err
	}
	return entities.NewStockSnapshot(entities.MaterialCode(st.Material), values[0], values[1], values[2], values[3], asOf)
}

func parseInterval(iv fileInterval) (*entities.ProcessIntervalRule, error) {
	value, err := parseDecimal("value", iv.Value, false)
	if err != nil {
		return nil, err
	}
	unit, err := entities.ParseIntervalUnit(iv.Unit)
	if err != nil {
		return nil, err
	}
	return entities.NewProcessIntervalRule(iv.From, iv.To, value, unit)
}

func parseCapacity(c fileCapacity) (*entities.ProcessCapacity, error) {
	if c.Process == "" {
		return nil, fmt.Errorf("process cannot be empty")
	}
	if c.Workshop == "" {
		return nil, fmt.Errorf("workshop for process %s cannot be empty", c.Process)
	}
	hours, err := parseDecimal("daily_available_hours", c.DailyAvailableHours, true)
	if err != nil {
		return nil, err
	}
	quota, err := parseDecimal("standard_work_quota", c.StandardWorkQuota, true)
	if err != nil {
		return nil, err
	}
	return &entities.ProcessCapacity{
		Workshop:            c.Workshop,
		Process:             c.Process,
		DailyAvailableHours: hours,
		StandardWorkQuota:   quota,
	}, nil
}

func parseTrigger(tr fileTrigger) (*entities.ProductionTrigger, error) {
	qty, err := parseDecimal("quantity", tr.Quantity, false)
	if err != nil {
		return nil, err
	}
	needBy, err := parseDate("need_by", tr.NeedBy)
	if err != nil {
		return nil, err
	}
	trigger := &entities.ProductionTrigger{
		SourceDocNo:      tr.SourceDocNo,
		MaterialCode:     entities.MaterialCode(tr.Material),
		Quantity:         qty,
		NeedByDate:       needBy,
		ProcessName:      tr.Process,
		Workshop:         tr.Workshop,
		SuccessorProcess: tr.SuccessorProcess,
	}
	if tr.PlanStart != "" {
		start, err := parseDate("plan_start", tr.PlanStart)
		if err != nil {
			return nil, err
		}
		trigger.PlanStartDate = &start
	}
	if err := trigger.Validate(); err != nil {
		return nil, err
	}
	return trigger, nil
}

func parseDecimal(field, raw string, optional bool) (decimal.Decimal, error) {
	if raw == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}
