package events

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// TestEventPublishingAndSubscribing creates EventEmitter objects, subscribes EventHandler callbacks to them, and
// ensures that the events are received as intended.
func TestEventPublishingAndSubscribing(t *testing.T) {
	// Define some event types
	type TrialStartedTestEvent struct{}
	type ActionExecutedTestEvent struct{}

	// Create event emitters for both events.
	eventAEmitter1 := EventEmitter[TrialStartedTestEvent]{}
	eventAEmitter2 := EventEmitter[TrialStartedTestEvent]{}
	eventBEmitter1 := EventEmitter[ActionExecutedTestEvent]{}
	eventBEmitter2 := EventEmitter[ActionExecutedTestEvent]{}

	// Create a dictionary to track event callback
	var eventAEmitter1PublishCount,
		eventAEmitter2PublishCount,
		eventBEmitter1PublishCount,
		eventBEmitter2PublishCount,
		eventAEmitterGlobalPublishCount,
		eventBEmitterGlobalPublishCount int

	// Create our callback methods for each event, where we update our count of published events.
	eventAEmitter1.Subscribe(func(event TrialStartedTestEvent) error {
		eventAEmitter1PublishCount++
		return nil
	})
	eventAEmitter2.Subscribe(func(event TrialStartedTestEvent) error {
		eventAEmitter2PublishCount++
		return nil
	})
	eventBEmitter1.Subscribe(func(event ActionExecutedTestEvent) error {
		eventBEmitter1PublishCount++
		return nil
	})
	eventBEmitter2.Subscribe(func(event ActionExecutedTestEvent) error {
		eventBEmitter2PublishCount++
		return nil
	})
	SubscribeAny(func(event TrialStartedTestEvent) error {
		eventAEmitterGlobalPublishCount++
		return nil
	})
	SubscribeAny(func(event ActionExecutedTestEvent) error {
		eventBEmitterGlobalPublishCount++
		return nil
	})

	// Publish events a given amount of times.
	const (
		expectedEventAEmitter1PublishCount = 2
		expectedEventAEmitter2PublishCount = 5
		expectedEventBEmitter1PublishCount = 9
		expectedEventBEmitter2PublishCount = 13
	)
	for i := 0; i < expectedEventAEmitter1PublishCount; i++ {
		err := eventAEmitter1.Publish(TrialStartedTestEvent{})
		assert.NoError(t, err)
	}
	for i := 0; i < expectedEventAEmitter2PublishCount; i++ {
		err := eventAEmitter2.Publish(TrialStartedTestEvent{})
		assert.NoError(t, err)
	}
	for i := 0; i < expectedEventBEmitter1PublishCount; i++ {
		err := eventBEmitter1.Publish(ActionExecutedTestEvent{})
		assert.NoError(t, err)
	}
	for i := 0; i < expectedEventBEmitter2PublishCount; i++ {
		err := eventBEmitter2.Publish(ActionExecutedTestEvent{})
		assert.NoError(t, err)
	}

	// Assert we received the expected amount of callbacks.
	assert.EqualValues(t, expectedEventAEmitter1PublishCount, eventAEmitter1PublishCount)
	assert.EqualValues(t, expectedEventAEmitter2PublishCount, eventAEmitter2PublishCount)
	assert.EqualValues(t, expectedEventBEmitter1PublishCount, eventBEmitter1PublishCount)
	assert.EqualValues(t, expectedEventBEmitter2PublishCount, eventBEmitter2PublishCount)
	assert.EqualValues(t, expectedEventAEmitter1PublishCount+expectedEventAEmitter2PublishCount, eventAEmitterGlobalPublishCount)
	assert.EqualValues(t, expectedEventBEmitter1PublishCount+expectedEventBEmitter2PublishCount, eventBEmitterGlobalPublishCount)
}

// TestEventPublishingStopsOnError ensures that a handler error is returned to the publisher and that handlers
// subscribed after the failing one are not invoked.
func TestEventPublishingStopsOnError(t *testing.T) {
	type RelayFailedTestEvent struct {
		CommandID int
	}
	expectedErr := errors.New("handler failed")

	// Subscribe a failing handler followed by a counting one
	emitter := EventEmitter[RelayFailedTestEvent]{}
	received := 0
	emitter.Subscribe(func(event RelayFailedTestEvent) error {
		assert.EqualValues(t, 7, event.CommandID)
		return expectedErr
	})
	emitter.Subscribe(func(event RelayFailedTestEvent) error {
		received++
		return nil
	})

	// The error should surface and the second handler should not run
	err := emitter.Publish(RelayFailedTestEvent{CommandID: 7})
	assert.ErrorIs(t, err, expectedErr)
	assert.Zero(t, received)
}
