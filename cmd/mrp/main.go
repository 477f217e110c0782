package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/cascade-mrp/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags
	var (
		configFile   = flag.String("config", "", "Path to config YAML (optional)")
		scenarioFile = flag.String("scenario", "", "Path to scenario YAML")
		outputDir    = flag.String("output", "", "Output directory for results (optional)")
		format       = flag.String("format", "text", "Output format: text, json")
		mode         = flag.String("mode", commands.ModeBatch, "Run mode: batch, events")
		validate     = flag.Bool("validate", false, "Validate the BOM and exit")
		verbose      = flag.Bool("verbose", false, "Enable verbose output")
		help         = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	config := commands.Config{
		ConfigFile:   *configFile,
		ScenarioFile: *scenarioFile,
		OutputDir:    *outputDir,
		Format:       *format,
		Mode:         *mode,
		ValidateOnly: *validate,
		Verbose:      *verbose,
		Help:         *help,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := commands.NewMRPCommand(config)
	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
