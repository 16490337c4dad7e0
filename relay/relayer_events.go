package relay

import "github.com/crytic/relayfuzz/events"

// RelayerEvents defines event emitters for a Relayer.
type RelayerEvents struct {
	// MessageRelayed emits events when a cross-chain message was approved and executed on its destination chain.
	MessageRelayed events.EventEmitter[MessageRelayedEvent]
}

// MessageRelayedEvent describes an event where a Relayer delivered a cross-chain message.
type MessageRelayedEvent struct {
	// Relayer represents the relayer which delivered the message.
	Relayer *Relayer

	// Delivery describes the delivered message.
	Delivery Delivery
}
