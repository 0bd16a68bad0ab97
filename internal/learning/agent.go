// Package learning holds the tabular Q-learning agent: state encoding,
// action enumeration, the value table, ε-greedy selection and the update rule.
package learning

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// DefaultHistorySize bounds the transition ring when no size is configured.
const DefaultHistorySize = 10000

// Params are the agent's hyperparameters. Epsilon is the only field that
// changes during training, and only through decay at episode end.
type Params struct {
	LearningRate   float64 `json:"learning_rate"`
	DiscountFactor float64 `json:"discount_factor"`
	Epsilon        float64 `json:"epsilon"`
	EpsilonDecay   float64 `json:"epsilon_decay"`
	EpsilonMin     float64 `json:"epsilon_min"`
}

// DefaultParams returns conservative hyperparameters.
func DefaultParams() Params {
	return Params{
		LearningRate:   0.1,
		DiscountFactor: 0.95,
		Epsilon:        0.3,
		EpsilonDecay:   0.995,
		EpsilonMin:     0.01,
	}
}

// Validate checks every parameter is in range.
func (p Params) Validate() error {
	switch {
	case !(p.LearningRate > 0 && p.LearningRate <= 1):
		return fmt.Errorf("learning rate %v not in (0, 1]", p.LearningRate)
	case !(p.DiscountFactor >= 0 && p.DiscountFactor <= 1):
		return fmt.Errorf("discount factor %v not in [0, 1]", p.DiscountFactor)
	case !(p.Epsilon >= 0 && p.Epsilon <= 1):
		return fmt.Errorf("epsilon %v not in [0, 1]", p.Epsilon)
	case !(p.EpsilonDecay > 0 && p.EpsilonDecay <= 1):
		return fmt.Errorf("epsilon decay %v not in (0, 1]", p.EpsilonDecay)
	case !(p.EpsilonMin >= 0 && p.EpsilonMin <= 1):
		return fmt.Errorf("epsilon floor %v not in [0, 1]", p.EpsilonMin)
	}
	return nil
}

// Agent owns all long-lived learning state. Nothing outside the agent can
// write to its value table.
type Agent struct {
	params       Params
	values       *ValueStore
	encoder      *Encoder
	enumerator   *Enumerator
	policy       *EpsilonGreedy
	history      *History
	stats        Statistics
	actionCounts map[string]int
	logger       *zap.Logger
}

// Option configures an Agent.
type Option func(*agentOptions)

type agentOptions struct {
	rng         *rand.Rand
	enumerator  *Enumerator
	historySize int
	logger      *zap.Logger
}

// WithRand fixes the random source used for exploration.
func WithRand(rng *rand.Rand) Option {
	return func(o *agentOptions) { o.rng = rng }
}

// WithSeed seeds the exploration source. Zero keeps the clock-based default.
func WithSeed(seed int64) Option {
	return func(o *agentOptions) {
		if seed != 0 {
			o.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// WithEnumeratorOptions configures the action enumerator.
func WithEnumeratorOptions(opts ...EnumeratorOption) Option {
	return func(o *agentOptions) { o.enumerator = NewEnumerator(opts...) }
}

// WithHistorySize sets the transition ring capacity.
func WithHistorySize(n int) Option {
	return func(o *agentOptions) { o.historySize = n }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *agentOptions) { o.logger = l }
}

// NewAgent creates an agent with an empty value table.
func NewAgent(params Params, opts ...Option) (*Agent, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent parameters: %w", err)
	}
	o := agentOptions{historySize: DefaultHistorySize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.enumerator == nil {
		o.enumerator = NewEnumerator()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return &Agent{
		params:       params,
		values:       NewValueStore(),
		encoder:      NewEncoder(),
		enumerator:   o.enumerator,
		policy:       NewEpsilonGreedy(o.rng),
		history:      NewHistory(o.historySize),
		actionCounts: make(map[string]int),
		logger:       o.logger.Named("agent"),
	}, nil
}

// Observe encodes s and enumerates its legal actions.
func (a *Agent) Observe(s schemas.Snapshot) (string, []schemas.Action) {
	return a.encoder.Encode(s), a.enumerator.Enumerate(s)
}

// Encode returns the state key for s and counts the visit.
func (a *Agent) Encode(s schemas.Snapshot) string {
	return a.encoder.Encode(s)
}

// Enumerate lists the legal actions in s without counting a visit.
func (a *Agent) Enumerate(s schemas.Snapshot) []schemas.Action {
	return a.enumerator.Enumerate(s)
}

// Greedy picks the best legal action for state without exploring or
// counting the choice.
func (a *Agent) Greedy(state string, legal []schemas.Action) schemas.Action {
	return Greedy(state, legal, a.values)
}

// Act selects an action for state under the current exploration rate.
func (a *Agent) Act(state string, legal []schemas.Action) schemas.Action {
	choice := a.policy.Select(state, legal, a.values, a.params.Epsilon)
	a.actionCounts[choice.ID()]++
	return choice
}

// Learn applies one update and records the transition.
func (a *Agent) Learn(t Transition) float64 {
	q := QLearner{Alpha: a.params.LearningRate, Gamma: a.params.DiscountFactor}.Update(a.values, t)
	a.history.Push(t)
	return q
}

// EndEpisode appends rec to the statistics, then decays epsilon. The stored
// record carries its episode number and the epsilon it ran with.
func (a *Agent) EndEpisode(rec EpisodeRecord) EpisodeRecord {
	rec.Episode = a.stats.Episodes + 1
	rec.Epsilon = a.params.Epsilon
	a.stats.append(rec)
	prev := a.params.Epsilon
	a.decayEpsilon()
	a.logger.Debug("Episode recorded.",
		zap.Int("episode", rec.Episode),
		zap.Float64("epsilon_before", prev),
		zap.Float64("epsilon_after", a.params.Epsilon))
	return rec
}

func (a *Agent) decayEpsilon() {
	a.params.Epsilon = math.Max(a.params.EpsilonMin, a.params.Epsilon*a.params.EpsilonDecay)
}

// Epsilon is the current exploration rate.
func (a *Agent) Epsilon() float64 { return a.params.Epsilon }

// SetEpsilon overrides the exploration rate, clamped to [0, 1]. Evaluation
// runs use it to act greedily.
func (a *Agent) SetEpsilon(e float64) {
	a.params.Epsilon = math.Min(1, math.Max(0, e))
}

// Params returns a copy of the current hyperparameters.
func (a *Agent) Params() Params { return a.params }

// Q is the learned value of a pair.
func (a *Agent) Q(state string, action schemas.Action) float64 {
	return a.values.Value(state, action)
}

// BestAction is the best known action for state.
func (a *Agent) BestAction(state string) (schemas.Action, float64, bool) {
	return a.values.Best(state)
}

// KnownActions lists the actions with learned values in state.
func (a *Agent) KnownActions(state string) []schemas.Action {
	return a.values.Actions(state)
}

// States lists every state with a learned value.
func (a *Agent) States() []string { return a.values.States() }

// KnownPairs is the size of the value table.
func (a *Agent) KnownPairs() int { return a.values.Len() }

// Visits returns how often each state key was encoded.
func (a *Agent) Visits() map[string]int { return a.encoder.Visits() }

// Stats returns a copy of the cumulative statistics.
func (a *Agent) Stats() Statistics { return a.stats.clone() }

// Recent returns up to n of the latest transitions, oldest first.
func (a *Agent) Recent(n int) []Transition { return a.history.Recent(n) }
