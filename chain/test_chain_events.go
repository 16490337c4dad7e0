package chain

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/chain/types"
	"github.com/crytic/relayfuzz/events"
)

// TestChainEvents defines event emitters for a TestChain.
type TestChainEvents struct {
	// BlockAdded emits events when a new block is committed to the TestChain, before the post-commit step runs.
	BlockAdded events.EventEmitter[BlockAddedEvent]

	// ContractDeployed emits events when a NativeContract is deployed to the TestChain.
	ContractDeployed events.EventEmitter[ContractDeployedEvent]
}

// BlockAddedEvent describes an event where a new block is committed to the TestChain.
type BlockAddedEvent struct {
	// Chain refers to the TestChain the block was committed to.
	Chain *TestChain

	// Block refers to the committed block.
	Block *types.Block
}

// ContractDeployedEvent describes an event where a NativeContract is deployed to the TestChain.
type ContractDeployedEvent struct {
	// Chain refers to the TestChain the contract was deployed to.
	Chain *TestChain

	// Address describes the address of the deployed contract.
	Address common.Address

	// Contract refers to the deployed contract implementation.
	Contract NativeContract
}
