package learning

import (
	"math/rand"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// EpsilonGreedy explores with probability epsilon and otherwise exploits.
type EpsilonGreedy struct {
	rng *rand.Rand
}

// NewEpsilonGreedy wraps rng. The policy is the only consumer of rng.
func NewEpsilonGreedy(rng *rand.Rand) *EpsilonGreedy {
	return &EpsilonGreedy{rng: rng}
}

// Select picks an action from legal, which must not be empty.
func (p *EpsilonGreedy) Select(state string, legal []schemas.Action, values *ValueStore, epsilon float64) schemas.Action {
	if len(legal) == 0 {
		panic("learning: Select called with no legal actions")
	}
	if epsilon > 0 && p.rng.Float64() < epsilon {
		return legal[p.rng.Intn(len(legal))]
	}
	return Greedy(state, legal, values)
}

// Greedy returns the highest valued legal action. Ties, including the case
// where nothing has been learned yet, go to the earliest action in legal.
func Greedy(state string, legal []schemas.Action, values *ValueStore) schemas.Action {
	best := legal[0]
	bestQ := values.Value(state, best)
	for _, a := range legal[1:] {
		if q := values.Value(state, a); q > bestQ {
			best, bestQ = a, q
		}
	}
	return best
}
