package relay

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/chain"
	"github.com/crytic/relayfuzz/chain/types"
	"github.com/crytic/relayfuzz/contracts"
	"github.com/crytic/relayfuzz/logging"
	"github.com/crytic/relayfuzz/logging/colors"
	"github.com/crytic/relayfuzz/utils"
	"github.com/pkg/errors"
)

// ErrNestedRelay is returned when a delivered message itself emits cross-chain messages. Chains of relays are not
// supported.
var ErrNestedRelay = errors.New("delivered message emitted further cross-chain messages")

// Endpoint describes one of the two chains a Relayer delivers messages between.
type Endpoint struct {
	// Chain describes the chain.
	Chain *chain.TestChain

	// Gateway describes the address of the gateway deployed on the chain.
	Gateway common.Address
}

// Delivery describes a cross-chain message relayed to its destination chain.
type Delivery struct {
	// CommandID describes the command id assigned to the message.
	CommandID common.Hash

	// Event describes the relayed message.
	Event *Event

	// OriginChain describes the name of the chain the message was emitted on.
	OriginChain string

	// SourceChain describes the source chain name claimed when delivering the message.
	SourceChain string

	// DestinationChain describes the name of the chain the message was delivered to.
	DestinationChain string

	// Approval describes the results of the gateway approval transaction.
	Approval *types.MessageResults

	// Execution describes the results of the execution transaction.
	Execution *types.MessageResults
}

// CommandID returns the command id for a command counter value: its big-endian 32 byte encoding.
func CommandID(counter uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(counter))
}

// Relayer synchronously delivers the cross-chain messages emitted on one of two chains to the other. It is attached
// to both chains as their post-commit step, so a transaction emitting messages returns only once every message was
// approved and executed on its destination chain. A Relayer owns the command counter of a single trial and is not
// thread safe.
type Relayer struct {
	// endpoints describes the two chains messages are relayed between.
	endpoints [2]Endpoint

	// commandCounter describes the command counter, the value of the next command id.
	commandCounter uint64

	// deliveries describes every message relayed so far, in order.
	deliveries []Delivery

	// lastRelayResult describes the results of the last transaction sent by the relayer.
	lastRelayResult *types.MessageResults

	// relaying indicates whether a delivery is in progress.
	relaying bool

	// Events defines the event system for the Relayer.
	Events RelayerEvents

	// logger describes the logger used by the relayer.
	logger *logging.Logger
}

// NewRelayer creates a Relayer between two chains with distinct names. The command counter starts at zero.
func NewRelayer(a Endpoint, b Endpoint) (*Relayer, error) {
	if a.Chain == nil || b.Chain == nil {
		return nil, errors.New("relayer endpoints must have a chain")
	}
	if a.Chain.Name() == b.Chain.Name() {
		return nil, errors.Errorf("relayer endpoints must have distinct chain names, both are named '%s'", a.Chain.Name())
	}
	return &Relayer{
		endpoints:  [2]Endpoint{a, b},
		deliveries: make([]Delivery, 0),
		logger:     logging.GlobalLogger.NewSubLogger("module", logging.RELAY_SERVICE),
	}, nil
}

// Attach installs the relayer as the post-commit step of both of its chains.
func (r *Relayer) Attach() {
	for _, endpoint := range r.endpoints {
		endpoint.Chain.SetPostCommitFunc(r.Relay)
	}
}

// Detach removes the post-commit step of both chains.
func (r *Relayer) Detach() {
	for _, endpoint := range r.endpoints {
		endpoint.Chain.SetPostCommitFunc(nil)
	}
}

// CommandCounter returns the current command counter value, which is the number of messages relayed.
func (r *Relayer) CommandCounter() uint64 {
	return r.commandCounter
}

// Deliveries returns every message relayed so far, in order.
func (r *Relayer) Deliveries() []Delivery {
	return append([]Delivery(nil), r.deliveries...)
}

// LastRelayResult returns the results of the last transaction the relayer sent, or nil if it sent none.
func (r *Relayer) LastRelayResult() *types.MessageResults {
	return r.lastRelayResult
}

// Relay delivers every cross-chain message emitted by a committed transaction of origin to its destination chain,
// in log order. For each message, the destination gateway approves the call under the next command id, then the
// destination contract executes it. Returns an error if a message could not be decoded or delivered, in which case
// remaining messages are not relayed.
func (r *Relayer) Relay(origin *chain.TestChain, results *types.MessageResults) error {
	// Transactions sent by the relayer itself trigger this step on the destination chain.
	if r.relaying {
		for _, log := range results.Logs() {
			if ClassifyLog(log) != EventKindIgnored {
				return errors.WithStack(ErrNestedRelay)
			}
		}
		return nil
	}

	for _, log := range results.Logs() {
		if len(log.Topics) == 0 {
			continue
		}
		event, err := DecodeEvent(log)
		if err != nil {
			return err
		}
		if event.Kind == EventKindIgnored {
			continue
		}
		if err = r.deliver(origin, event); err != nil {
			return err
		}
	}
	return nil
}

// deliver approves and executes a single message on its destination chain.
func (r *Relayer) deliver(origin *chain.TestChain, event *Event) error {
	destination, source, err := r.resolveEndpoints(event.DestinationChain)
	if err != nil {
		return err
	}
	destinationAddress, err := utils.HexStringToAddress(event.DestinationAddress)
	if err != nil {
		return errors.Wrapf(ErrMalformedEvent, "invalid destination address '%s': %v", event.DestinationAddress, err)
	}

	// In a two chain topology the source chain is the chain which is not the destination
	sourceChain := source.Chain.Name()
	sourceAddress := event.Sender.Hex()
	commandID := CommandID(r.commandCounter)
	operator := destination.Chain.Operator()

	var approvalInput, executionInput []byte
	switch event.Kind {
	case EventKindContractCall:
		params, err := contracts.ContractCallApprovalParams{
			SourceChain:      sourceChain,
			SourceAddress:    sourceAddress,
			ContractAddress:  destinationAddress,
			PayloadHash:      event.PayloadHash,
			SourceTxHash:     event.TxHash,
			SourceEventIndex: new(big.Int).SetUint64(uint64(event.LogIndex)),
		}.Pack()
		if err != nil {
			return errors.WithStack(err)
		}
		if approvalInput, err = contracts.GatewayABI.Pack("approveContractCall", params, commandID); err != nil {
			return errors.WithStack(err)
		}
		if executionInput, err = contracts.ExecutableABI.Pack("execute", commandID, sourceChain, sourceAddress, event.Payload); err != nil {
			return errors.WithStack(err)
		}

	case EventKindContractCallWithToken:
		params, err := contracts.ContractCallWithMintApprovalParams{
			SourceChain:      sourceChain,
			SourceAddress:    sourceAddress,
			ContractAddress:  destinationAddress,
			PayloadHash:      event.PayloadHash,
			Symbol:           event.Symbol,
			Amount:           event.Amount,
			SourceTxHash:     event.TxHash,
			SourceEventIndex: new(big.Int).SetUint64(uint64(event.LogIndex)),
		}.Pack()
		if err != nil {
			return errors.WithStack(err)
		}
		if approvalInput, err = contracts.GatewayABI.Pack("approveContractCallWithMint", params, commandID); err != nil {
			return errors.WithStack(err)
		}
		if executionInput, err = contracts.ExecutableABI.Pack("executeWithToken", commandID, sourceChain, sourceAddress, event.Payload, event.Symbol, event.Amount); err != nil {
			return errors.WithStack(err)
		}

	default:
		return errors.Errorf("cannot relay an event of kind %v", event.Kind)
	}

	r.relaying = true
	defer func() { r.relaying = false }()

	approval, err := destination.Chain.SendTransaction(types.NewCallMessage(operator, &destination.Gateway, nil, approvalInput))
	r.lastRelayResult = approval
	if err != nil {
		return errors.Wrapf(err, "failed to approve command %d on chain '%s'", r.commandCounter, destination.Chain.Name())
	}
	execution, err := destination.Chain.SendTransaction(types.NewCallMessage(operator, &destinationAddress, nil, executionInput))
	r.lastRelayResult = execution
	if err != nil {
		return errors.Wrapf(err, "failed to execute command %d on chain '%s'", r.commandCounter, destination.Chain.Name())
	}

	delivery := Delivery{
		CommandID:        commandID,
		Event:            event,
		OriginChain:      origin.Name(),
		SourceChain:      sourceChain,
		DestinationChain: destination.Chain.Name(),
		Approval:         approval,
		Execution:        execution,
	}
	r.deliveries = append(r.deliveries, delivery)
	r.commandCounter++

	r.logger.Debug("Relayed ", event.Kind.String(), " from ", colors.Bold, sourceChain, colors.Reset, " to ", colors.Bold, delivery.DestinationChain, colors.Reset,
		logging.StructuredLogInfo{"commandId": r.commandCounter - 1, "destination": destinationAddress.Hex()})
	return r.Events.MessageRelayed.Publish(MessageRelayedEvent{Relayer: r, Delivery: delivery})
}

// resolveEndpoints returns the endpoint with the given chain name and the other endpoint.
func (r *Relayer) resolveEndpoints(chainName string) (Endpoint, Endpoint, error) {
	for i, endpoint := range r.endpoints {
		if endpoint.Chain.Name() == chainName {
			return endpoint, r.endpoints[1-i], nil
		}
	}
	return Endpoint{}, Endpoint{}, errors.Wrapf(ErrMalformedEvent, "unknown destination chain '%s'", chainName)
}
