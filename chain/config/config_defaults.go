package config

import "math/big"

// DefaultAccountCount describes the default amount of accounts created on a chain.
const DefaultAccountCount = 10

// DefaultTestChainConfig obtains a default configuration for a chain.TestChain with the given id and name. Accounts
// are funded with 1e24 (one million ether, in wei).
func DefaultTestChainConfig(chainID uint64, name string) *TestChainConfig {
	initialBalance := new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
	return &TestChainConfig{
		ChainID:        chainID,
		Name:           name,
		AccountCount:   DefaultAccountCount,
		InitialBalance: NewBalance(initialBalance),
	}
}
