package state

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/rawdb"
	gethState "github.com/crytic/medusa-geth/core/state"
	"github.com/crytic/medusa-geth/core/tracing"
	"github.com/crytic/medusa-geth/triedb"
	"github.com/crytic/medusa-geth/triedb/hashdb"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ErrInsufficientBalance is returned when an account is debited more than it holds.
var ErrInsufficientBalance = errors.New("insufficient balance for transfer")

// NewDatabase creates an in-memory, hash-based state database which state objects can be opened over with
// OpenState.
func NewDatabase() gethState.Database {
	db := rawdb.NewMemoryDatabase()
	trieDB := triedb.NewDatabase(db, &triedb.Config{
		HashDB: hashdb.Defaults,
	})
	return gethState.NewDatabase(trieDB, nil)
}

// OpenState opens the state with the given root over the provided database. An empty root hash opens an empty state.
func OpenState(root common.Hash, stateDatabase gethState.Database) (*gethState.StateDB, error) {
	stateDB, err := gethState.New(root, stateDatabase)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open state at root %v", root)
	}
	return stateDB, nil
}

// Transfer moves native value between two accounts, returning ErrInsufficientBalance without modifying state if
// the sender holds less than amount.
func Transfer(stateDB *gethState.StateDB, from common.Address, to common.Address, amount *uint256.Int) error {
	if stateDB.GetBalance(from).Lt(amount) {
		return errors.WithStack(ErrInsufficientBalance)
	}
	stateDB.SubBalance(from, amount, tracing.BalanceChangeTransfer)
	stateDB.AddBalance(to, amount, tracing.BalanceChangeTransfer)
	return nil
}
