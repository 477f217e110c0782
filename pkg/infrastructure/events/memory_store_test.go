package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	types    map[string]bool
	received []Event
	err      error
}

func (h *recordingHandler) Handle(_ context.Context, event Event) error {
	h.received = append(h.received, event)
	return h.err
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	return h.types[eventType]
}

func TestInMemoryEventStore_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore(zap.NewNop())

	require.NoError(t, store.AppendEvent(ctx, "run-1", NewEvent(ScheduleEntryCreatedEvent, "run-1", nil)))
	require.NoError(t, store.AppendEvent(ctx, "run-1", NewEvent(PropagationCompletedEvent, "run-1", nil)))
	require.NoError(t, store.AppendEvent(ctx, "run-2", NewEvent(ScheduleEntryCreatedEvent, "run-2", nil)))

	stream, err := store.ReadEvents("run-1", 0)
	require.NoError(t, err)
	require.Len(t, stream, 2)
	assert.Equal(t, 1, stream[0].Version())
	assert.Equal(t, 2, stream[1].Version())

	fromSecond, err := store.ReadEvents("run-1", 2)
	require.NoError(t, err)
	require.Len(t, fromSecond, 1)
	assert.Equal(t, PropagationCompletedEvent, fromSecond[0].Type())

	all, err := store.ReadAllEvents(1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := store.ReadEvents("run-9", 1)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestInMemoryEventStore_SynchronousSubscribers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore(zap.NewNop())

	handler := &recordingHandler{types: map[string]bool{ProductionScheduleChangedEvent: true}}
	require.NoError(t, store.Subscribe([]string{ProductionScheduleChangedEvent}, handler))

	require.NoError(t, store.AppendEvent(ctx, "ps", NewEvent(ProductionScheduleChangedEvent, "ps", nil)))
	require.NoError(t, store.AppendEvent(ctx, "ps", NewEvent(ScheduleEntryCreatedEvent, "ps", nil)))

	// Delivery happens before AppendEvent returns
	require.Len(t, handler.received, 1)
	assert.Equal(t, ProductionScheduleChangedEvent, handler.received[0].Type())

	require.NoError(t, store.Unsubscribe(handler))
	require.NoError(t, store.AppendEvent(ctx, "ps", NewEvent(ProductionScheduleChangedEvent, "ps", nil)))
	assert.Len(t, handler.received, 1)
}

func TestInMemoryEventStore_HandlerErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore(zap.NewNop())

	boom := errors.New("boom")
	handler := &recordingHandler{types: map[string]bool{BranchFailedEvent: true}, err: boom}
	require.NoError(t, store.Subscribe([]string{BranchFailedEvent}, handler))

	err := store.AppendEvent(ctx, "run-1", NewEvent(BranchFailedEvent, "run-1", nil))
	assert.ErrorIs(t, err, boom)

	stream, err := store.ReadEvents("run-1", 1)
	require.NoError(t, err)
	assert.Len(t, stream, 1)
}
