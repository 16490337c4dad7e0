package types

import (
	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
)

// Block represents a block committed to a chain.TestChain. Every committed transaction is mined in its own block.
type Block struct {
	// Hash represents the hash of the block header.
	Hash common.Hash

	// Header represents the block header.
	Header *gethTypes.Header

	// Messages represents the transactions included in the block.
	Messages []*CallMessage

	// MessageResults represents the results of each message in Messages, at the same index.
	MessageResults []*MessageResults
}

// NewBlock returns a Block over the provided header, computing its hash.
func NewBlock(header *gethTypes.Header, messages []*CallMessage, messageResults []*MessageResults) *Block {
	return &Block{
		Hash:           header.Hash(),
		Header:         header,
		Messages:       messages,
		MessageResults: messageResults,
	}
}
