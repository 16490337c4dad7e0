package proposals

import (
	"math/big"
	"math/rand"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/relayfuzz/utils/randomutils"
)

// GeneratorConfig bounds the proposals produced by a RandomGenerator.
type GeneratorConfig struct {
	// MaxCalls describes the maximum amount of calls in a proposal. Proposals may contain zero calls.
	MaxCalls int

	// MaxCallValue describes the maximum native value of a single call, inclusive.
	MaxCallValue int64

	// MaxPayloadSize describes the maximum length of the call data of a single call, inclusive.
	MaxPayloadSize int
}

// DefaultGeneratorConfig returns the bounds used when none are configured: up to 20 calls, each with a value up to
// 1000 and up to 1000 bytes of call data.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MaxCalls:       20,
		MaxCallValue:   1000,
		MaxPayloadSize: 1000,
	}
}

// RandomGenerator produces random proposals bounded by a GeneratorConfig. It is not thread safe and is expected to be
// owned by a single trial.
type RandomGenerator struct {
	// config describes the bounds of generated proposals.
	config GeneratorConfig

	// randomProvider offers a source of random data.
	randomProvider *rand.Rand
}

// NewRandomGenerator returns a RandomGenerator drawing from the provided random provider.
func NewRandomGenerator(config GeneratorConfig, randomProvider *rand.Rand) *RandomGenerator {
	return &RandomGenerator{
		config:         config,
		randomProvider: randomProvider,
	}
}

// Config returns the bounds of generated proposals.
func (g *RandomGenerator) Config() GeneratorConfig {
	return g.config
}

// Generate produces a single proposal executed by executor on the destination chain. Every call targets a uniformly
// random member of receiverPool. If receiverPool is empty, the proposal carries no calls.
func (g *RandomGenerator) Generate(destinationChain string, executor common.Address, receiverPool []common.Address) *Proposal {
	callCount := 0
	if len(receiverPool) > 0 && g.config.MaxCalls > 0 {
		callCount = g.randomProvider.Intn(g.config.MaxCalls + 1)
	}

	calls := make([]Call, callCount)
	for i := 0; i < callCount; i++ {
		calls[i] = g.generateCall(receiverPool)
	}
	return NewProposal(destinationChain, executor, calls)
}

// generateCall produces a single call to a random member of receiverPool.
func (g *RandomGenerator) generateCall(receiverPool []common.Address) Call {
	target := randomutils.Choose(g.randomProvider, receiverPool)

	value := new(big.Int)
	if g.config.MaxCallValue > 0 {
		value.SetInt64(g.randomProvider.Int63n(g.config.MaxCallValue + 1))
	}

	callData := randomutils.RandomBytes(g.randomProvider, 0, g.config.MaxPayloadSize)
	return NewCall(target, value, callData)
}
