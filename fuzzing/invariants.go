package fuzzing

import (
	"math/big"

	"github.com/crytic/relayfuzz/contracts"
	"github.com/google/go-cmp/cmp"
)

// InvariantCheckFunc checks an invariant against the current state of a trial. Returns an error if the invariant is
// violated or could not be checked.
type InvariantCheckFunc func(runner *TrialRunner) error

// receiverCall describes the last call recorded by a receiver, as compared by CheckReceiverState.
type receiverCall struct {
	Payload []byte
	Value   *big.Int
}

// receiverCallComparer compares receiver calls by payload bytes and numeric value.
var receiverCallComparer = cmp.Comparer(func(x, y *big.Int) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.Cmp(y) == 0
})

// CheckReceiverState verifies that every receiver of both chains recorded exactly the last call the trial's tracker
// expects it to, or no call at all if the tracker has no entry for it.
// Returns an InvariantViolationError describing every diverging receiver.
func CheckReceiverState(runner *TrialRunner) error {
	var mismatches []ReceiverMismatch
	for i, testChain := range runner.chains {
		for _, receiver := range runner.receivers[i] {
			payload, value, err := contracts.ReadReceiver(testChain, receiver)
			if err != nil {
				return err
			}

			expectation := runner.tracker.Expected(testChain.Name(), receiver)
			expected := receiverCall{Payload: expectation.Payload, Value: expectation.Value}
			observed := receiverCall{Payload: payload, Value: value}
			if observed.Payload == nil {
				observed.Payload = []byte{}
			}
			if diff := cmp.Diff(expected, observed, receiverCallComparer); diff != "" {
				mismatches = append(mismatches, ReceiverMismatch{
					Chain:           testChain.Name(),
					Receiver:        receiver,
					ExpectedPayload: expected.Payload,
					ExpectedValue:   expected.Value,
					ObservedPayload: observed.Payload,
					ObservedValue:   observed.Value,
					Diff:            diff,
				})
			}
		}
	}

	if len(mismatches) > 0 {
		return &InvariantViolationError{Mismatches: mismatches}
	}
	return nil
}
