package config

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TestChainConfig represents the configuration of a single simulated chain.
type TestChainConfig struct {
	// ChainID describes the numeric identifier of the chain.
	ChainID uint64 `json:"chainId"`

	// Name describes the symbolic name of the chain, used as the destination chain name in cross-chain messages.
	Name string `json:"name"`

	// AccountCount describes the amount of deterministic accounts created on the chain. The first account is the
	// privileged deployer/operator, the rest are non-privileged.
	AccountCount int `json:"accountCount"`

	// InitialBalance describes the native balance every account is funded with at genesis.
	InitialBalance Balance `json:"initialBalance"`
}

// Validate validates that the TestChainConfig meets certain requirements.
// Returns an error if one occurs.
func (t *TestChainConfig) Validate() error {
	if t.Name == "" {
		return errors.New("chain config must specify a name")
	}
	if t.AccountCount < 1 {
		return errors.Errorf("chain config for '%s' must specify at least one account", t.Name)
	}
	if t.InitialBalance.Sign() < 0 {
		return errors.Errorf("chain config for '%s' must not specify a negative initial balance", t.Name)
	}
	return nil
}

// Balance wraps big.Int to allow native balances to be specified in a configuration file as decimal strings,
// scientific notation (e.g. "1e24") or hex strings (e.g. "0x1337").
type Balance struct {
	big.Int
}

// NewBalance returns a Balance holding the provided value.
func NewBalance(value *big.Int) Balance {
	var b Balance
	b.Set(value)
	return b
}

// BigInt returns a copy of the balance as a big.Int.
func (b *Balance) BigInt() *big.Int {
	return new(big.Int).Set(&b.Int)
}

// MarshalJSON marshals the balance as a decimal string.
func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON unmarshals a balance from a decimal, scientific notation or hex string. The empty string decodes
// to zero. Fractional decimal values are truncated.
func (b *Balance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		b.SetInt64(0)
		return nil
	}

	// Hex strings are parsed directly
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if _, ok := b.SetString(s[2:], 16); !ok {
			return errors.Errorf("invalid hex balance '%s'", s)
		}
		return nil
	}

	// Everything else goes through decimal to support scientific notation
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrapf(err, "invalid balance '%s'", s)
	}
	b.Set(d.BigInt())
	return nil
}
