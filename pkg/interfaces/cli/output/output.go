package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vsinha/cascade-mrp/pkg/application/dto"
)

const dateLayout = "2006-01-02"

// Config holds configuration for output generation
type Config struct {
	Format      string
	OutputDir   string
	Verbose     bool
	ElapsedTime time.Duration
}

// Generate renders a batch result in the configured format
func Generate(w io.Writer, batch *dto.BatchResult, config Config) error {
	switch config.Format {
	case "text":
		return generateTextOutput(w, batch, config)
	case "json":
		return generateJSONOutput(w, batch, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(w io.Writer, batch *dto.BatchResult, config Config) error {
	fmt.Fprintf(w, "Propagation Results Summary\n")
	fmt.Fprintf(w, "===========================\n\n")

	fmt.Fprintf(w, "Triggers: %d\n", len(batch.Results))
	fmt.Fprintf(w, "Schedule Entries: %d\n", batch.TotalCreated())
	fmt.Fprintf(w, "Failed Triggers: %d\n", len(batch.Failures))
	fmt.Fprintf(w, "Elapsed Time: %v\n\n", config.ElapsedTime)

	for _, result := range batch.Results {
		if result == nil {
			continue
		}
		writeRun(w, result, config.Verbose)
	}

	if len(batch.Failures) > 0 {
		fmt.Fprintf(w, "Aborted Triggers:\n")
		for _, failure := range batch.Failures {
			fmt.Fprintf(w, "  %-12s %s\n", failure.SourceDocNo, failure.Reason)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func writeRun(w io.Writer, result *dto.PropagationResult, verbose bool) {
	fmt.Fprintf(w, "Trigger %s (%s) run %s\n", result.TriggerNo, result.MaterialCode, result.RunID)
	fmt.Fprintf(w, "  created=%d skipped=%d failed=%d duration=%v\n\n",
		result.CreatedCount(), result.SkippedCount(), result.ErrorCount(), result.Duration())

	if len(result.Created) > 0 {
		fmt.Fprintf(w, "%-10s %-10s %-12s %-12s %-10s %-12s %-10s %-10s %-10s %-12s %-6s\n",
			"Plan No", "Source", "Material", "Process", "Workshop", "Date", "Planned", "Hours", "Unsched", "Complete", "Level")
		fmt.Fprintf(w, "%-10s %-10s %-12s %-12s %-10s %-12s %-10s %-10s %-10s %-12s %-6s\n",
			"----------", "----------", "------------", "------------", "----------",
			"------------", "----------", "----------", "----------", "------------", "------")
		for _, entry := range result.Created {
			fmt.Fprintf(w, "%-10s %-10s %-12s %-12s %-10s %-12s %-10s %-10s %-10s %-12s %-6d\n",
				entry.PlanNo,
				entry.SourceNo,
				entry.MaterialCode,
				entry.ProcessName,
				entry.Workshop,
				entry.ScheduleDate.Format(dateLayout),
				entry.PlannedQty.String(),
				entry.DailyScheduledHours.String(),
				entry.UnscheduledQty.String(),
				entry.CompletionDate.Format(dateLayout),
				entry.Level)
		}
		fmt.Fprintln(w)
	}

	if len(result.Replenishments) > 0 {
		fmt.Fprintf(w, "Replenishments:\n")
		for _, line := range result.Replenishments {
			fmt.Fprintf(w, "  %-10s %-12s %-10s qty=%s need-by=%s\n",
				line.SourceDocNo, line.MaterialCode, line.SourceType, line.ShortfallQty, line.NeedByDate.Format(dateLayout))
		}
		fmt.Fprintln(w)
	}

	if verbose && len(result.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped:\n")
		for _, skipped := range result.Skipped {
			fmt.Fprintf(w, "  %-10s %-12s level=%d %s %s\n",
				skipped.SourceDocNo, skipped.MaterialCode, skipped.Level, skipped.Reason, skipped.PlanNo)
		}
		fmt.Fprintln(w)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "Failed Branches:\n")
		for _, branchErr := range result.Errors {
			fmt.Fprintf(w, "  %s\n", branchErr.Error())
		}
		fmt.Fprintln(w)
	}
}

// generateJSONOutput writes the batch as JSON to w, or to results.json under OutputDir
func generateJSONOutput(w io.Writer, batch *dto.BatchResult, config Config) error {
	jsonData, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(w, string(jsonData))
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "results.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(w, "JSON results saved to: %s\n", filename)
	}
	return nil
}
