package tracker

import (
	"bytes"
	"math/big"
	"sort"
	"sync"

	"github.com/crytic/medusa-geth/common"
)

// Key identifies a receiver contract: an address paired with the name of the chain it is deployed on. The same
// address may exist on both chains.
type Key struct {
	Chain   string
	Address common.Address
}

// Expectation describes the last call a receiver is expected to have recorded.
type Expectation struct {
	Payload []byte
	Value   *big.Int
}

// emptyExpectation returns the expectation of a receiver that never received a call.
func emptyExpectation() Expectation {
	return Expectation{Payload: []byte{}, Value: new(big.Int)}
}

// copy returns a deep copy of the expectation.
func (e Expectation) copy() Expectation {
	value := new(big.Int)
	if e.Value != nil {
		value.Set(e.Value)
	}
	return Expectation{Payload: append([]byte{}, e.Payload...), Value: value}
}

// Tracker records the expected state of receiver contracts. Recording to a key overwrites the previous expectation,
// as a receiver only remembers the last call it received.
type Tracker struct {
	expectations map[Key]Expectation
	lock         sync.Mutex
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		expectations: make(map[Key]Expectation),
	}
}

// Record sets the expected last call of the receiver at address on the given chain.
func (t *Tracker) Record(chain string, address common.Address, payload []byte, value *big.Int) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.expectations[Key{Chain: chain, Address: address}] = Expectation{Payload: payload, Value: value}.copy()
}

// Expected returns the expected last call of the receiver at address on the given chain. A receiver without a
// recorded call is expected to hold an empty payload and a zero value.
func (t *Tracker) Expected(chain string, address common.Address) Expectation {
	t.lock.Lock()
	defer t.lock.Unlock()
	if expectation, ok := t.expectations[Key{Chain: chain, Address: address}]; ok {
		return expectation.copy()
	}
	return emptyExpectation()
}

// Keys returns every key with a recorded expectation, sorted by chain name then address.
func (t *Tracker) Keys() []Key {
	t.lock.Lock()
	defer t.lock.Unlock()
	keys := make([]Key, 0, len(t.expectations))
	for key := range t.expectations {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Chain != keys[j].Chain {
			return keys[i].Chain < keys[j].Chain
		}
		return bytes.Compare(keys[i].Address[:], keys[j].Address[:]) < 0
	})
	return keys
}

// Len returns the amount of keys with a recorded expectation.
func (t *Tracker) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.expectations)
}

// Reset clears every recorded expectation.
func (t *Tracker) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.expectations = make(map[Key]Expectation)
}
