package tracker

import (
	"math/big"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTrackerDefaults ensures receivers without a recorded call are expected to be empty.
func TestTrackerDefaults(t *testing.T) {
	tracker := NewTracker()
	expectation := tracker.Expected("chain1", common.HexToAddress("0x01"))
	assert.NotNil(t, expectation.Payload)
	assert.Empty(t, expectation.Payload)
	assert.EqualValues(t, 0, expectation.Value.Sign())
	assert.Zero(t, tracker.Len())
}

// TestTrackerOverwrites ensures only the last recorded call of a key is remembered, and that keys are scoped to
// their chain.
func TestTrackerOverwrites(t *testing.T) {
	tracker := NewTracker()
	address := common.HexToAddress("0x01")
	tracker.Record("chain2", address, []byte{0x01}, big.NewInt(1))
	tracker.Record("chain2", address, []byte{0x02, 0x03}, big.NewInt(2))

	expectation := tracker.Expected("chain2", address)
	assert.EqualValues(t, []byte{0x02, 0x03}, expectation.Payload)
	assert.EqualValues(t, 2, expectation.Value.Int64())

	// The same address on the other chain is unaffected
	assert.Empty(t, tracker.Expected("chain1", address).Payload)
	assert.EqualValues(t, 1, tracker.Len())
}

// TestTrackerCopies ensures recorded expectations cannot be mutated through arguments or results.
func TestTrackerCopies(t *testing.T) {
	tracker := NewTracker()
	address := common.HexToAddress("0x01")
	payload := []byte{0x01}
	value := big.NewInt(5)
	tracker.Record("chain1", address, payload, value)
	payload[0] = 0xff
	value.SetInt64(6)

	expectation := tracker.Expected("chain1", address)
	expectation.Payload[0] = 0xee
	expectation.Value.SetInt64(7)

	expectation = tracker.Expected("chain1", address)
	assert.EqualValues(t, []byte{0x01}, expectation.Payload)
	assert.EqualValues(t, 5, expectation.Value.Int64())
}

// TestTrackerKeysAndReset ensures keys are sorted and that a reset clears every expectation.
func TestTrackerKeysAndReset(t *testing.T) {
	tracker := NewTracker()
	tracker.Record("chain2", common.HexToAddress("0x02"), nil, nil)
	tracker.Record("chain1", common.HexToAddress("0x03"), nil, nil)
	tracker.Record("chain2", common.HexToAddress("0x01"), nil, nil)

	keys := tracker.Keys()
	require.Len(t, keys, 3)
	assert.EqualValues(t, Key{Chain: "chain1", Address: common.HexToAddress("0x03")}, keys[0])
	assert.EqualValues(t, Key{Chain: "chain2", Address: common.HexToAddress("0x01")}, keys[1])
	assert.EqualValues(t, Key{Chain: "chain2", Address: common.HexToAddress("0x02")}, keys[2])

	// A nil value is recorded as zero
	assert.EqualValues(t, 0, tracker.Expected("chain1", common.HexToAddress("0x03")).Value.Sign())

	tracker.Reset()
	assert.Zero(t, tracker.Len())
	assert.Empty(t, tracker.Keys())
}
