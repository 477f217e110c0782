package events

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/cascade-mrp/pkg/domain/entities"
)

const (
	// ProductionScheduleChangedEvent is published when a production schedule is created or
	// updated; subscribers start a propagation run for it
	ProductionScheduleChangedEvent = "production.schedule.changed"

	ScheduleEntryCreatedEvent = "schedule.entry.created"
	ScheduleEntrySkippedEvent = "schedule.entry.skipped"
	ReplenishmentRaisedEvent  = "replenishment.raised"
	BranchFailedEvent         = "propagation.branch.failed"
	PropagationCompletedEvent = "propagation.completed"
	PropagationAbortedEvent   = "propagation.aborted"
)

// StreamForRun names the stream holding all events of one propagation run
func StreamForRun(runID string) string {
	return "run-" + runID
}

type ProductionScheduleChanged struct {
	Trigger entities.ProductionTrigger `json:"trigger"`
}

type ScheduleEntryCreated struct {
	Entry entities.ScheduleEntry `json:"entry"`
}

type ScheduleEntrySkipped struct {
	SourceDocNo  string                `json:"source_doc_no"`
	MaterialCode entities.MaterialCode `json:"material_code"`
	Reason       string                `json:"reason"`
}

type ReplenishmentRaised struct {
	Line entities.ReplenishmentLine `json:"line"`
}

type BranchFailed struct {
	SourceDocNo  string                `json:"source_doc_no"`
	MaterialCode entities.MaterialCode `json:"material_code"`
	Level        int                   `json:"level"`
	Reason       string                `json:"reason"`
}

type PropagationCompleted struct {
	TriggerNo  string          `json:"trigger_no"`
	Created    int             `json:"created"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	TotalHours decimal.Decimal `json:"total_hours"`
}

type PropagationAborted struct {
	TriggerNo string `json:"trigger_no"`
	Reason    string `json:"reason"`
}
