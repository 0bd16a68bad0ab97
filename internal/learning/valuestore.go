package learning

import (
	"fmt"
	"sort"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// DefaultValue is the value of every (state, action) pair that has never
// been updated.
const DefaultValue = 0.0

// ValueStore is a sparse table of action values. Pairs that were never
// written are not stored; Value reports DefaultValue for them. Entries are
// never removed.
type ValueStore struct {
	values map[string]map[schemas.Action]float64
	pairs  int
}

// NewValueStore returns an empty store.
func NewValueStore() *ValueStore {
	return &ValueStore{values: make(map[string]map[schemas.Action]float64)}
}

// Value returns the stored value for the pair, or DefaultValue.
func (v *ValueStore) Value(state string, a schemas.Action) float64 {
	if row, ok := v.values[state]; ok {
		if q, ok := row[a]; ok {
			return q
		}
	}
	return DefaultValue
}

// Update overwrites the value of the pair.
func (v *ValueStore) Update(state string, a schemas.Action, q float64) {
	row, ok := v.values[state]
	if !ok {
		row = make(map[schemas.Action]float64)
		v.values[state] = row
	}
	if _, seen := row[a]; !seen {
		v.pairs++
	}
	row[a] = q
}

// Max returns the largest value recorded for any action in state. The
// boolean is false, and the value DefaultValue, when nothing was ever
// recorded for state.
func (v *ValueStore) Max(state string) (float64, bool) {
	row, ok := v.values[state]
	if !ok || len(row) == 0 {
		return DefaultValue, false
	}
	first := true
	best := DefaultValue
	for _, q := range row {
		if first || q > best {
			best, first = q, false
		}
	}
	return best, true
}

// Best returns the highest valued action recorded for state. Ties go to the
// lexically smallest action ID so the answer is stable.
func (v *ValueStore) Best(state string) (schemas.Action, float64, bool) {
	row, ok := v.values[state]
	if !ok || len(row) == 0 {
		return schemas.Action{}, DefaultValue, false
	}
	var (
		best   schemas.Action
		bestQ  float64
		bestID string
		found  bool
	)
	for a, q := range row {
		id := a.ID()
		if !found || q > bestQ || (q == bestQ && id < bestID) {
			best, bestQ, bestID, found = a, q, id, true
		}
	}
	return best, bestQ, true
}

// Actions lists the actions recorded for state, ordered by ID.
func (v *ValueStore) Actions(state string) []schemas.Action {
	row := v.values[state]
	out := make([]schemas.Action, 0, len(row))
	for a := range row {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// States lists every state with at least one recorded action, sorted.
func (v *ValueStore) States() []string {
	out := make([]string, 0, len(v.values))
	for s := range v.values {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Len is the number of recorded (state, action) pairs.
func (v *ValueStore) Len() int { return v.pairs }

// Export returns a deep copy keyed by serialized action IDs.
func (v *ValueStore) Export() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(v.values))
	for state, row := range v.values {
		r := make(map[string]float64, len(row))
		for a, q := range row {
			r[a.ID()] = q
		}
		out[state] = r
	}
	return out
}

// ImportValues builds a store from the Export form. Any malformed action ID
// fails the whole import.
func ImportValues(in map[string]map[string]float64) (*ValueStore, error) {
	vs := NewValueStore()
	for state, row := range in {
		for id, q := range row {
			a, err := schemas.ParseAction(id)
			if err != nil {
				return nil, fmt.Errorf("state %q: %w", state, err)
			}
			vs.Update(state, a, q)
		}
	}
	return vs, nil
}
