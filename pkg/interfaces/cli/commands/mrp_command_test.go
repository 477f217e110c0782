package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testScenario = `
materials:
  - {code: F, name: Frame, unit: pcs}
  - {code: C, name: Bolt, unit: pcs}
bom:
  - {parent: F, child: C, usage: 2, source_type: buy, level: 1}
capacities:
  - {workshop: WS1, process: Assembly, daily_available_hours: 8, standard_work_quota: 10}
triggers:
  - {source_doc_no: PS-1, material: F, quantity: 80, need_by: "2025-06-20", process: Assembly, plan_start: "2025-06-02"}
`

const cyclicScenario = `
bom:
  - {parent: A, child: B, usage: 1, source_type: make, output_process: Cutting}
  - {parent: B, child: A, usage: 1, source_type: make, output_process: Cutting}
`

func writeScenario(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func newTestCommand(t *testing.T, config Config) (*MRPCommand, *bytes.Buffer) {
	t.Helper()
	t.Setenv("MRP_STORE", "memory")
	t.Setenv("REDIS_HOST", "")

	var buf bytes.Buffer
	cmd := NewMRPCommand(config)
	cmd.out = &buf
	cmd.logger = zap.NewNop()
	return cmd, &buf
}

func TestMRPCommand_Batch(t *testing.T) {
	cmd, out := newTestCommand(t, Config{
		ScenarioFile: writeScenario(t, testScenario),
		Format:       "text",
	})

	require.NoError(t, cmd.Execute(context.Background()))

	assert.Contains(t, out.String(), "Schedule Entries: 1")
	assert.Contains(t, out.String(), "PP000001")
	assert.Contains(t, out.String(), "Replenishments:")
}

func TestMRPCommand_EventsMode(t *testing.T) {
	cmd, out := newTestCommand(t, Config{
		ScenarioFile: writeScenario(t, testScenario),
		Format:       "json",
		Mode:         ModeEvents,
	})

	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, out.String(), `"trigger_no": "PS-1"`)
	assert.Contains(t, out.String(), `"plan_no": "PP000001"`)
}

func TestMRPCommand_ValidateOnly(t *testing.T) {
	cmd, out := newTestCommand(t, Config{
		ScenarioFile: writeScenario(t, testScenario),
		Format:       "text",
		ValidateOnly: true,
	})
	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, out.String(), "BOM validation passed")

	cmd, out = newTestCommand(t, Config{
		ScenarioFile: writeScenario(t, cyclicScenario),
		Format:       "text",
		ValidateOnly: true,
	})
	assert.Error(t, cmd.Execute(context.Background()))
	assert.Contains(t, out.String(), "BOM cycle detected")
}

func TestMRPCommand_InvalidInputs(t *testing.T) {
	tests := map[string]Config{
		"missing scenario": {Format: "text"},
		"unknown format":   {ScenarioFile: "s.yaml", Format: "xml"},
		"csv format":       {ScenarioFile: "s.yaml", Format: "csv"},
		"unknown mode":     {ScenarioFile: "s.yaml", Format: "text", Mode: "stream"},
	}

	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			cmd, _ := newTestCommand(t, config)
			assert.Error(t, cmd.Execute(context.Background()))
		})
	}
}

func TestMRPCommand_Help(t *testing.T) {
	cmd, out := newTestCommand(t, Config{Help: true})
	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, out.String(), "USAGE:")
}
