package learning

import (
	"fmt"
	"time"
)

// Knowledge is the persisted form of an agent. Values absent from the table
// keep the DefaultValue semantics after a restore.
type Knowledge struct {
	RunID        string                        `json:"run_id,omitempty"`
	SavedAt      time.Time                     `json:"saved_at"`
	Params       Params                        `json:"params"`
	Values       map[string]map[string]float64 `json:"values"`
	Visits       map[string]int                `json:"state_visits"`
	ActionCounts map[string]int                `json:"action_counts"`
	Stats        Statistics                    `json:"stats"`
}

// Snapshot captures everything the agent has learned.
func (a *Agent) Snapshot() Knowledge {
	counts := make(map[string]int, len(a.actionCounts))
	for k, v := range a.actionCounts {
		counts[k] = v
	}
	return Knowledge{
		SavedAt:      time.Now().UTC(),
		Params:       a.params,
		Values:       a.values.Export(),
		Visits:       a.encoder.Visits(),
		ActionCounts: counts,
		Stats:        a.stats.clone(),
	}
}

// Restore replaces the agent's learned state with k. Epsilon is taken from k
// as saved. On error the agent is left untouched.
func (a *Agent) Restore(k Knowledge) error {
	if err := k.Params.Validate(); err != nil {
		return fmt.Errorf("restoring parameters: %w", err)
	}
	values, err := ImportValues(k.Values)
	if err != nil {
		return fmt.Errorf("restoring value table: %w", err)
	}

	a.params = k.Params
	a.values = values
	a.encoder.Restore(k.Visits)
	a.actionCounts = make(map[string]int, len(k.ActionCounts))
	for id, n := range k.ActionCounts {
		a.actionCounts[id] = n
	}
	a.stats = k.Stats.clone()
	return nil
}
