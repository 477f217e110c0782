package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/cascade-mrp/pkg/application/dto"
	"github.com/vsinha/cascade-mrp/pkg/application/services/propagation"
	"github.com/vsinha/cascade-mrp/pkg/domain/services"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/config"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/events"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/logging"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/scenario"
	"github.com/vsinha/cascade-mrp/pkg/interfaces/cli/output"
)

const (
	ModeBatch  = "batch"
	ModeEvents = "events"
)

// Config holds configuration for the MRP command
type Config struct {
	ConfigFile   string
	ScenarioFile string
	OutputDir    string
	Format       string
	Mode         string
	ValidateOnly bool
	Verbose      bool
	Help         bool
}

// MRPCommand loads a scenario, propagates its production triggers and renders the result
type MRPCommand struct {
	config Config
	out    io.Writer

	// logger overrides the logger built from configuration
	logger *zap.Logger
}

// NewMRPCommand creates a new MRP command with the given configuration
func NewMRPCommand(config Config) *MRPCommand {
	return &MRPCommand{
		config: config,
		out:    os.Stdout,
	}
}

// Execute runs the MRP command
func (c *MRPCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	cfg, err := config.Load(c.config.ConfigFile)
	if err != nil {
		return err
	}

	logger := c.logger
	if logger == nil {
		logger, err = logging.New(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	sc, err := scenario.LoadFile(c.config.ScenarioFile)
	if err != nil {
		return err
	}

	if c.config.Verbose {
		c.printHeader(cfg, sc)
	}

	validation := services.NewBOMValidator().ValidateBOM(sc.BOMLines)
	if c.config.ValidateOnly {
		return c.reportValidation(validation)
	}
	for _, problem := range validation.Errors {
		logger.Warn("BOM validation", zap.String("problem", problem))
	}

	eng, err := buildEngine(ctx, cfg, sc, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	startTime := time.Now()
	var batch *dto.BatchResult
	switch c.config.Mode {
	case ModeEvents:
		batch, err = c.runEvents(ctx, eng, sc)
		if err != nil {
			return err
		}
	default:
		batch = eng.orchestrator.PropagateBatch(ctx, sc.Triggers)
	}
	elapsed := time.Since(startTime)

	if c.config.Verbose {
		all, _ := eng.eventStore.ReadAllEvents(0)
		fmt.Fprintf(c.out, "Published %d events\n\n", len(all))
	}

	err = output.Generate(c.out, batch, output.Config{
		Format:      c.config.Format,
		OutputDir:   c.config.OutputDir,
		Verbose:     c.config.Verbose,
		ElapsedTime: elapsed,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	return batch.Err()
}

// runEvents publishes one production-schedule change per trigger and lets the
// subscribed trigger handler run each propagation
func (c *MRPCommand) runEvents(ctx context.Context, eng *engine, sc *scenario.Scenario) (*dto.BatchResult, error) {
	handler := propagation.NewTriggerHandler(eng.orchestrator)
	if err := handler.Register(eng.eventStore); err != nil {
		return nil, fmt.Errorf("failed to register trigger handler: %w", err)
	}
	defer func() { _ = eng.eventStore.Unsubscribe(handler) }()

	batch := &dto.BatchResult{Failures: make([]dto.TriggerFailure, 0)}
	for _, trigger := range sc.Triggers {
		stream := "schedule-" + trigger.SourceDocNo
		event := events.NewEvent(events.ProductionScheduleChangedEvent, stream, events.ProductionScheduleChanged{Trigger: trigger})
		if err := eng.eventStore.AppendEvent(ctx, stream, event); err != nil {
			batch.Failures = append(batch.Failures, dto.TriggerFailure{
				SourceDocNo: trigger.SourceDocNo,
				Reason:      err.Error(),
				Err:         err,
			})
		}
	}
	batch.Results = handler.Results()
	return batch, nil
}

func (c *MRPCommand) reportValidation(validation *services.ValidationResult) error {
	if validation.Valid() {
		fmt.Fprintln(c.out, "BOM validation passed")
		return nil
	}
	fmt.Fprintln(c.out, "BOM validation failed:")
	for _, problem := range validation.Errors {
		fmt.Fprintf(c.out, "  %s\n", problem)
	}
	return errors.New(strings.Join(validation.Errors, "; "))
}

// validateInputs validates the command configuration
func (c *MRPCommand) validateInputs() error {
	if c.config.ScenarioFile == "" {
		return fmt.Errorf("must specify -scenario file")
	}
	switch c.config.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
	if c.config.Mode != "" && c.config.Mode != ModeBatch && c.config.Mode != ModeEvents {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeBatch, ModeEvents, c.config.Mode)
	}
	return nil
}

// printHeader prints the command header information
func (c *MRPCommand) printHeader(cfg *config.Config, sc *scenario.Scenario) {
	fmt.Fprintf(c.out, "Cascade MRP CLI\n")
	fmt.Fprintf(c.out, "Scenario: %s\n", c.config.ScenarioFile)
	fmt.Fprintf(c.out, "  Materials: %d\n", len(sc.Materials))
	fmt.Fprintf(c.out, "  BOM Lines: %d\n", len(sc.BOMLines))
	fmt.Fprintf(c.out, "  Stock Snapshots: %d\n", len(sc.Snapshots))
	fmt.Fprintf(c.out, "  Process Intervals: %d\n", len(sc.Intervals))
	fmt.Fprintf(c.out, "  Process Capacities: %d\n", len(sc.Capacities))
	fmt.Fprintf(c.out, "  Triggers: %d\n", len(sc.Triggers))
	fmt.Fprintf(c.out, "Store: %s\n", cfg.Store)
	fmt.Fprintf(c.out, "Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Fprintf(c.out, "Output directory: %s\n", c.config.OutputDir)
	}
	fmt.Fprintln(c.out)
}

// showHelp displays the help message
func (c *MRPCommand) showHelp() {
	fmt.Fprintf(c.out, `Cascade MRP CLI - Requirements propagation from production schedules

USAGE:
    mrp -scenario <file> [-config <file>]

OPTIONS:
    -scenario <file>    Path to scenario YAML (master data and production triggers)
    -config <file>      Path to config YAML; environment variables override it
    -output <dir>       Output directory for results (optional)
    -format <fmt>       Output format: text, json (default: text)
    -mode <mode>        batch runs triggers concurrently; events publishes a
                        production schedule change per trigger (default: batch)
    -validate           Validate the BOM and exit
    -verbose            Enable verbose output
    -help               Show this help message

ENVIRONMENT:
    MRP_ENV, MRP_LOG_LEVEL, MRP_STORE (memory|postgres)
    MRP_MAX_PARALLEL_BRANCHES, MRP_MAX_CARRY_OVER_DAYS, MRP_PLAN_NO_PREFIX
    PGHOST, PGPORT, PGUSER, PGPASSWORD, PGDATABASE, PGSSLMODE
    REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB, REDIS_LOCK_TTL_MS

SCENARIO FILE:
    materials:  [{code, name, unit}]
    bom:        [{parent, child, child_name, usage, source_type, output_process,
                  workshop, level}]
    stock:      [{material, on_hand, in_transit, reserved, projected, as_of}]
    intervals:  [{from, to, value, unit}]
    capacities: [{workshop, process, daily_available_hours, standard_work_quota}]
    triggers:   [{source_doc_no, material, quantity, need_by, process, workshop,
                  successor_process, plan_start}]

EXAMPLES:
    # Run the sample scenario in memory
    mrp -scenario example/scenario.yaml -verbose

    # Persist plans in PostgreSQL with Redis bucket locks
    MRP_STORE=postgres REDIS_HOST=localhost mrp -config example/config.yaml -scenario example/scenario.yaml

    # Save the JSON result
    mrp -scenario example/scenario.yaml -format json -output results/
`)
}
