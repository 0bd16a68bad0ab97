package observability

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// Common field constructors so every component logs training events under
// the same keys.

func RunID(id string) zap.Field    { return zap.String("run_id", id) }
func Episode(n int) zap.Field      { return zap.Int("episode", n) }
func Step(n int) zap.Field         { return zap.Int("step", n) }
func State(key string) zap.Field   { return zap.String("state", key) }
func Epsilon(e float64) zap.Field  { return zap.Float64("epsilon", e) }
func Reward(r float64) zap.Field   { return zap.Float64("reward", r) }
func Progress(p float64) zap.Field { return zap.Float64("progress", p) }
func Action(a schemas.Action) zap.Field {
	return zap.String("action", a.ID())
}

// Outcome logs the classification and base reward of an actuation.
func Outcome(o schemas.Outcome) zap.Field {
	return zap.Dict("outcome",
		zap.String("class", string(o.Classification)),
		zap.Float64("reward", o.Reward),
		zap.Bool("changed", o.Changed),
	)
}
