package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(inventory.EventTypeBatchReceived)
	bus.Subscribe(handler)

	event := newTestEvent(inventory.EventTypeBatchReceived)
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleEventsAndHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	h1 := newTestHandler()
	h2 := newTestHandler()
	bus.Subscribe(h1, "StockConsumed")
	bus.Subscribe(h2, "StockConsumed")

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("StockConsumed"),
		nil,
		newTestEvent("StockConsumed"),
	))

	assert.Len(t, h1.getHandled(), 2)
	assert.Len(t, h2.getHandled(), 2)

	delivered, failed := bus.Stats()
	assert.Equal(t, int64(4), delivered)
	assert.Zero(t, failed)
}

func TestInMemoryEventBus_Publish_Wildcard(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	all := newTestHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("PayoutPaid")))
	assert.Len(t, all.getHandled(), 1)
}

func TestInMemoryEventBus_HandlerFailuresAreSwallowed(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler("BatchExpired")
	failing.err = errors.New("audit table unavailable")
	panicking := newTestHandler("BatchExpired")
	panicking.panicWith = "boom"
	healthy := newTestHandler("BatchExpired")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("BatchExpired"))

	require.NoError(t, err)
	assert.Len(t, healthy.getHandled(), 1, "later handlers still run")
	assert.Equal(t, 2, logs.FilterMessage("Event handler failed").Len())

	delivered, failed := bus.Stats()
	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(2), failed)
}

func TestInMemoryEventBus_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("PayoutApproved")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("PayoutPaid")))
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("BatchApproved")
	bus.Subscribe(handler)

	_ = bus.Publish(context.Background(), newTestEvent("BatchApproved"))
	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent("BatchApproved"))

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))

	handler := newTestHandler("BatchReceived")
	bus.Subscribe(handler)
	require.NoError(t, bus.Publish(ctx, newTestEvent("BatchReceived")))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))

	require.NoError(t, bus.Publish(ctx, newTestEvent("BatchReceived")))
	assert.Len(t, handler.getHandled(), 1, "events after stop are dropped")

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("BatchReceived")))
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_StopWaitsForDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})
	bus.Subscribe(blockingHandler{started: started, release: release}, "Slow")

	go func() { _ = bus.Publish(context.Background(), newTestEvent("Slow")) }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Stop(ctx), context.DeadlineExceeded)

	close(release)
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	assert.NoError(t, bus.Stop(ctx2))
}

type blockingHandler struct {
	started chan struct{}
	release chan struct{}
}

func (h blockingHandler) Handle(context.Context, shared.DomainEvent) error {
	close(h.started)
	<-h.release
	return nil
}

func (h blockingHandler) EventTypes() []string { return nil }
