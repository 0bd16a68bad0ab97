package learning

import "github.com/xkilldash9x/formrl/api/schemas"

// Transition is one observed step.
type Transition struct {
	State    string         `json:"state"`
	Action   schemas.Action `json:"action"`
	Reward   float64        `json:"reward"`
	Next     string         `json:"next"`
	Terminal bool           `json:"terminal"`
	// NextLegal are the actions available in Next. Those never updated
	// bootstrap at DefaultValue.
	NextLegal []schemas.Action `json:"next_legal,omitempty"`
}

// QLearner applies the one-step tabular Q-learning update.
type QLearner struct {
	Alpha float64
	Gamma float64
}

// Target is r for terminal transitions and r + γ·max Q(s', ·) otherwise.
// The max runs over the actions recorded for s' and the legal actions in
// t.NextLegal. A next state with neither bootstraps from zero.
func (l QLearner) Target(values *ValueStore, t Transition) float64 {
	if t.Terminal {
		return t.Reward
	}
	return t.Reward + l.Gamma*nextMax(values, t)
}

func nextMax(values *ValueStore, t Transition) float64 {
	m, seen := values.Max(t.Next)
	for _, a := range t.NextLegal {
		if q := values.Value(t.Next, a); !seen || q > m {
			m, seen = q, true
		}
	}
	return m
}

// Update moves Q(s, a) toward the target by α and returns the new value.
func (l QLearner) Update(values *ValueStore, t Transition) float64 {
	q := values.Value(t.State, t.Action)
	updated := q + l.Alpha*(l.Target(values, t)-q)
	values.Update(t.State, t.Action, updated)
	return updated
}
