package relay

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/relayfuzz/contracts"
	"github.com/pkg/errors"
)

// ErrMalformedEvent is returned when a log carries the topic of a relayable gateway event but cannot be decoded.
var ErrMalformedEvent = errors.New("malformed relay event")

// EventKind describes the kind of cross-chain message a log represents.
type EventKind int

const (
	// EventKindIgnored describes a log which does not carry a cross-chain message.
	EventKindIgnored EventKind = iota
	// EventKindContractCall describes a gateway ContractCall event.
	EventKindContractCall
	// EventKindContractCallWithToken describes a gateway ContractCallWithToken event.
	EventKindContractCallWithToken
)

// String returns the name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventKindContractCall:
		return "ContractCall"
	case EventKindContractCallWithToken:
		return "ContractCallWithToken"
	default:
		return "ignored"
	}
}

var (
	// contractCallEventID is the topic of the gateway ContractCall event.
	contractCallEventID = contracts.GatewayABI.Events["ContractCall"].ID

	// contractCallWithTokenEventID is the topic of the gateway ContractCallWithToken event.
	contractCallWithTokenEventID = contracts.GatewayABI.Events["ContractCallWithToken"].ID
)

// Event describes a cross-chain message decoded from a gateway event.
type Event struct {
	// Kind describes the kind of message.
	Kind EventKind

	// Sender describes the contract which sent the message through the gateway.
	Sender common.Address

	// DestinationChain describes the name of the chain the message is sent to.
	DestinationChain string

	// DestinationAddress describes the string form of the contract address the message is sent to.
	DestinationAddress string

	// Payload describes the message payload.
	Payload []byte

	// PayloadHash describes the hash of the payload, as emitted in the event topics.
	PayloadHash common.Hash

	// Symbol describes the symbol of the tokens sent along with the message, for EventKindContractCallWithToken.
	Symbol string

	// Amount describes the amount of tokens sent along with the message, for EventKindContractCallWithToken.
	Amount *big.Int

	// TxHash describes the hash of the transaction which emitted the event.
	TxHash common.Hash

	// LogIndex describes the index of the event in the logs of its transaction.
	LogIndex uint
}

// contractCallEventData describes the non-indexed arguments of a ContractCall event.
type contractCallEventData struct {
	DestinationChain           string
	DestinationContractAddress string
	Payload                    []byte
}

// contractCallWithTokenEventData describes the non-indexed arguments of a ContractCallWithToken event.
type contractCallWithTokenEventData struct {
	DestinationChain           string
	DestinationContractAddress string
	Payload                    []byte
	Symbol                     string
	Amount                     *big.Int
}

// ClassifyLog returns the kind of cross-chain message a log carries, based on its first topic.
func ClassifyLog(log *gethTypes.Log) EventKind {
	if len(log.Topics) == 0 {
		return EventKindIgnored
	}
	switch log.Topics[0] {
	case contractCallEventID:
		return EventKindContractCall
	case contractCallWithTokenEventID:
		return EventKindContractCallWithToken
	default:
		return EventKindIgnored
	}
}

// DecodeEvent decodes the cross-chain message carried by a log. Logs which do not carry one produce an Event of kind
// EventKindIgnored. Returns an error wrapping ErrMalformedEvent if the log has the topic of a relayable event but
// cannot be decoded.
func DecodeEvent(log *gethTypes.Log) (*Event, error) {
	event := &Event{
		Kind:     ClassifyLog(log),
		TxHash:   log.TxHash,
		LogIndex: log.Index,
	}

	switch event.Kind {
	case EventKindContractCall:
		if len(log.Topics) != 3 {
			return nil, errors.Wrapf(ErrMalformedEvent, "%v event has %d topics", event.Kind, len(log.Topics))
		}
		var data contractCallEventData
		if err := contracts.GatewayABI.UnpackIntoInterface(&data, "ContractCall", log.Data); err != nil {
			return nil, errors.Wrapf(ErrMalformedEvent, "could not decode %v event data: %v", event.Kind, err)
		}
		event.DestinationChain = data.DestinationChain
		event.DestinationAddress = data.DestinationContractAddress
		event.Payload = data.Payload

	case EventKindContractCallWithToken:
		if len(log.Topics) != 3 {
			return nil, errors.Wrapf(ErrMalformedEvent, "%v event has %d topics", event.Kind, len(log.Topics))
		}
		var data contractCallWithTokenEventData
		if err := contracts.GatewayABI.UnpackIntoInterface(&data, "ContractCallWithToken", log.Data); err != nil {
			return nil, errors.Wrapf(ErrMalformedEvent, "could not decode %v event data: %v", event.Kind, err)
		}
		event.DestinationChain = data.DestinationChain
		event.DestinationAddress = data.DestinationContractAddress
		event.Payload = data.Payload
		event.Symbol = data.Symbol
		event.Amount = data.Amount

	default:
		return event, nil
	}

	event.Sender = common.BytesToAddress(log.Topics[1].Bytes())
	event.PayloadHash = log.Topics[2]
	return event, nil
}
