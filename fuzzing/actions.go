package fuzzing

import (
	"math/big"
	"math/rand"
	"sort"
	"sync"

	"github.com/crytic/relayfuzz/utils/randomutils"
	"github.com/pkg/errors"
)

// SendProposalsActionName is the name of the SendProposalsAction.
const SendProposalsActionName = "send_proposals"

// Action describes a randomized step of a trial. Actions fill the provided record before doing anything which may
// fail, so failing actions can be reported.
type Action interface {
	// Name returns the name of the action, used to configure its weight.
	Name() string

	// Execute runs the action against the trial.
	Execute(runner *TrialRunner, record *ActionRecord) error
}

// SendProposalsAction submits a random proposal from a random authorized caller of a random chain, targeting the
// receivers of the other chain, then records the expected receiver state.
type SendProposalsAction struct{}

// Name returns SendProposalsActionName.
func (a *SendProposalsAction) Name() string {
	return SendProposalsActionName
}

// Execute runs the action against the trial.
func (a *SendProposalsAction) Execute(runner *TrialRunner, record *ActionRecord) error {
	source := runner.randomProvider.Intn(2)
	destination := 1 - source
	proposal := runner.generator.Generate(runner.chains[destination].Name(), runner.deployments[destination].Executor, runner.receivers[destination])
	caller := randomutils.Choose(runner.randomProvider, runner.callers[source])
	return runner.SendProposal(record, source, caller, proposal)
}

// ActionStrategy selects the next action of a trial.
type ActionStrategy interface {
	// NextAction returns the next action to execute.
	NextAction() (Action, error)
}

// DefaultActions returns every action a trial can execute.
func DefaultActions() []Action {
	return []Action{&SendProposalsAction{}}
}

// WeightedActionStrategy is an ActionStrategy selecting actions at random according to their weights.
type WeightedActionStrategy struct {
	chooser *randomutils.WeightedRandomChooser[Action]
}

// NewWeightedActionStrategy returns a WeightedActionStrategy over actions. Actions without a configured weight have
// a weight of one, actions with a zero weight are never selected. Returns an error if a weight names an unknown
// action or if no action can be selected.
func NewWeightedActionStrategy(actions []Action, weights map[string]uint64, randomProvider *rand.Rand) (*WeightedActionStrategy, error) {
	known := make(map[string]bool, len(actions))
	for _, action := range actions {
		known[action.Name()] = true
	}
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !known[name] {
			return nil, errors.Errorf("action weights reference unknown action '%s'", name)
		}
	}

	chooser := randomutils.NewWeightedRandomChooserWithRand[Action](randomProvider, &sync.Mutex{})
	for _, action := range actions {
		weight := uint64(1)
		if configured, ok := weights[action.Name()]; ok {
			weight = configured
		}
		if weight == 0 {
			continue
		}
		chooser.AddChoices(randomutils.NewWeightedRandomChoice(action, new(big.Int).SetUint64(weight)))
	}
	if chooser.ChoiceCount() == 0 {
		return nil, errors.New("no action can be selected with the configured action weights")
	}
	return &WeightedActionStrategy{chooser: chooser}, nil
}

// NextAction returns a random action.
func (s *WeightedActionStrategy) NextAction() (Action, error) {
	action, err := s.chooser.Choose()
	if err != nil {
		return nil, err
	}
	return *action, nil
}
