package state

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	gethState "github.com/crytic/medusa-geth/core/state"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/holiman/uint256"
)

// SlotIndex returns the storage key of a statically allocated variable at the given position.
func SlotIndex(position uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(position))
}

// MappingSlot returns the storage key of a mapping entry, following Solidity's layout:
// keccak256(encodedKey . slot). Callers provide the key already encoded (left padded for value types, raw bytes for
// string and bytes keys).
func MappingSlot(encodedKey []byte, slot common.Hash) common.Hash {
	return crypto.Keccak256Hash(encodedKey, slot.Bytes())
}

// AddressMappingSlot returns the storage key of a mapping entry keyed by an address.
func AddressMappingSlot(key common.Address, slot common.Hash) common.Hash {
	return MappingSlot(common.LeftPadBytes(key.Bytes(), 32), slot)
}

// StringMappingSlot returns the storage key of a mapping entry keyed by a string.
func StringMappingSlot(key string, slot common.Hash) common.Hash {
	return MappingSlot([]byte(key), slot)
}

// ContractStorage provides typed access to the storage of a single contract in a state object.
type ContractStorage struct {
	state   *gethState.StateDB
	address common.Address
}

// NewContractStorage returns a ContractStorage view over the storage of the given address.
func NewContractStorage(state *gethState.StateDB, address common.Address) *ContractStorage {
	return &ContractStorage{state: state, address: address}
}

// Address returns the contract address this storage belongs to.
func (c *ContractStorage) Address() common.Address {
	return c.address
}

// Get returns the raw value of a storage slot.
func (c *ContractStorage) Get(slot common.Hash) common.Hash {
	return c.state.GetState(c.address, slot)
}

// Set sets the raw value of a storage slot.
func (c *ContractStorage) Set(slot common.Hash, value common.Hash) {
	c.state.SetState(c.address, slot, value)
}

// GetBool reads a boolean from a storage slot.
func (c *ContractStorage) GetBool(slot common.Hash) bool {
	return c.Get(slot) != (common.Hash{})
}

// SetBool writes a boolean to a storage slot.
func (c *ContractStorage) SetBool(slot common.Hash, value bool) {
	var word common.Hash
	if value {
		word[31] = 1
	}
	c.Set(slot, word)
}

// GetAddress reads an address from a storage slot.
func (c *ContractStorage) GetAddress(slot common.Hash) common.Address {
	return common.BytesToAddress(c.Get(slot).Bytes())
}

// SetAddress writes an address to a storage slot.
func (c *ContractStorage) SetAddress(slot common.Hash, value common.Address) {
	c.Set(slot, common.BytesToHash(value.Bytes()))
}

// GetUint256 reads an unsigned integer from a storage slot.
func (c *ContractStorage) GetUint256(slot common.Hash) *uint256.Int {
	word := c.Get(slot)
	return new(uint256.Int).SetBytes32(word[:])
}

// SetUint256 writes an unsigned integer to a storage slot.
func (c *ContractStorage) SetUint256(slot common.Hash, value *uint256.Int) {
	c.Set(slot, value.Bytes32())
}

// GetBytes reads a dynamically sized byte array stored with Solidity's layout: values shorter than 32 bytes live in
// the slot itself with length*2 in the lowest byte, longer values store length*2+1 in the slot and their data in
// consecutive slots starting at keccak256(slot).
func (c *ContractStorage) GetBytes(slot common.Hash) []byte {
	word := c.Get(slot)
	if word[31]&1 == 0 {
		length := int(word[31] / 2)
		return common.CopyBytes(word[:length])
	}

	length := new(big.Int).SetBytes(word[:])
	length.Rsh(length, 1)
	size := int(length.Uint64())

	data := make([]byte, 0, size)
	base := new(big.Int).SetBytes(crypto.Keccak256(slot.Bytes()))
	for i := 0; len(data) < size; i++ {
		chunk := c.Get(common.BigToHash(new(big.Int).Add(base, big.NewInt(int64(i)))))
		remaining := size - len(data)
		if remaining > common.HashLength {
			remaining = common.HashLength
		}
		data = append(data, chunk[:remaining]...)
	}
	return data
}

// SetBytes writes a dynamically sized byte array using the layout described by GetBytes.
func (c *ContractStorage) SetBytes(slot common.Hash, value []byte) {
	if len(value) < common.HashLength {
		var word common.Hash
		copy(word[:], value)
		word[31] = byte(len(value) * 2)
		c.Set(slot, word)
		return
	}

	c.Set(slot, common.BigToHash(big.NewInt(int64(len(value)*2+1))))
	base := new(big.Int).SetBytes(crypto.Keccak256(slot.Bytes()))
	for i := 0; i*common.HashLength < len(value); i++ {
		var chunk common.Hash
		copy(chunk[:], value[i*common.HashLength:])
		c.Set(common.BigToHash(new(big.Int).Add(base, big.NewInt(int64(i)))), chunk)
	}
}
