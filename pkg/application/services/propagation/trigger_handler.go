package propagation

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/cascade-mrp/pkg/application/dto"
	"github.com/vsinha/cascade-mrp/pkg/infrastructure/events"
)

// TriggerHandler starts a propagation run whenever a production schedule is created or updated
type TriggerHandler struct {
	orchestrator *Orchestrator

	mu      sync.Mutex
	results []*dto.PropagationResult
}

func NewTriggerHandler(orchestrator *Orchestrator) *TriggerHandler {
	return &TriggerHandler{orchestrator: orchestrator}
}

// Register subscribes the handler to production schedule changes
func (h *TriggerHandler) Register(store events.EventStore) error {
	return store.Subscribe([]string{events.ProductionScheduleChangedEvent}, h)
}

func (h *TriggerHandler) CanHandle(eventType string) bool {
	return eventType == events.ProductionScheduleChangedEvent
}

func (h *TriggerHandler) Handle(ctx context.Context, event events.Event) error {
	var changed events.ProductionScheduleChanged
	switch data := event.Data().(type) {
	case events.ProductionScheduleChanged:
		changed = data
	case *events.ProductionScheduleChanged:
		changed = *data
	default:
		return fmt.Errorf("unexpected payload %T for %s", event.Data(), event.Type())
	}

	result, err := h.orchestrator.Propagate(ctx, changed.Trigger)
	if result != nil {
		h.mu.Lock()
		h.results = append(h.results, result)
		h.mu.Unlock()
	}
	return err
}

// Results returns the results of every run started by the handler
func (h *TriggerHandler) Results() []*dto.PropagationResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*dto.PropagationResult, len(h.results))
	copy(out, h.results)
	return out
}
