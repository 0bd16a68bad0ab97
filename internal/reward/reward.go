// Package reward turns actuation outcomes and progress movement into the
// scalar signal the learner consumes.
package reward

import (
	"github.com/xkilldash9x/formrl/api/schemas"
)

// maxProgress is the top of the completion scale reported by a ProgressSignal.
const maxProgress = 100.0

// Shaper combines an atomic outcome reward with progress movement and the
// terminal bonus.
type Shaper struct {
	TerminalBonus     float64
	RegressionPenalty float64
	ProgressScale     float64
}

// NewShaper builds a Shaper.
func NewShaper(terminalBonus, regressionPenalty, progressScale float64) Shaper {
	return Shaper{
		TerminalBonus:     terminalBonus,
		RegressionPenalty: regressionPenalty,
		ProgressScale:     progressScale,
	}
}

// Shape returns the reward for one step. Success short-circuits everything
// else; otherwise the progress term and the atomic reward are added.
func (s Shaper) Shape(atomic, previousProgress, currentProgress float64, success bool) float64 {
	switch {
	case success:
		return s.TerminalBonus
	case currentProgress > previousProgress:
		return (currentProgress-previousProgress)/s.ProgressScale + atomic
	case currentProgress < previousProgress:
		return s.RegressionPenalty + atomic
	default:
		return atomic
	}
}

// MaxStepReward is the largest reward a single non-terminal step can earn:
// the best atomic outcome plus a jump from 0 to 100 percent completion.
func (s Shaper) MaxStepReward(t Table) float64 {
	return t.MaxAtomic() + maxProgress/s.ProgressScale
}

// Dominates reports whether the terminal bonus beats every non-terminal
// episode of at most maxSteps steps.
func (s Shaper) Dominates(t Table, maxSteps int) bool {
	return s.TerminalBonus > float64(maxSteps)*s.MaxStepReward(t)
}

// Table prices actuation outcomes. Rewards for successful actions are higher
// on required elements.
type Table struct {
	InvalidAction   float64
	ElementMissing  float64
	NotInteractable float64
	Timeout         float64
	Failure         float64
	Satisfied       float64

	EnterTextRequired float64
	EnterTextOptional float64
	ChooseOption      float64
	ToggleRequired    float64
	ToggleOptional    float64
	Reset             float64
	ActivateSubmit    float64
	ActivateButton    float64
	ActivateOther     float64
}

// DefaultTable returns the standard prices.
func DefaultTable() Table {
	return Table{
		InvalidAction:   -0.5,
		ElementMissing:  -0.2,
		NotInteractable: -0.1,
		Timeout:         -0.1,
		Failure:         -0.3,
		Satisfied:       0,

		EnterTextRequired: 2.0,
		EnterTextOptional: 1.0,
		ChooseOption:      1.5,
		ToggleRequired:    2.0,
		ToggleOptional:    1.0,
		Reset:             0.5,
		ActivateSubmit:    0.5,
		ActivateButton:    0.3,
		ActivateOther:     0.1,
	}
}

// MaxAtomic is the largest value in the table.
func (t Table) MaxAtomic() float64 {
	best := t.InvalidAction
	for _, v := range []float64{
		t.ElementMissing, t.NotInteractable, t.Timeout, t.Failure, t.Satisfied,
		t.EnterTextRequired, t.EnterTextOptional, t.ChooseOption, t.ToggleRequired,
		t.ToggleOptional, t.Reset, t.ActivateSubmit, t.ActivateButton, t.ActivateOther,
	} {
		if v > best {
			best = v
		}
	}
	return best
}

// Outcome builds a priced Outcome. el is the target element when one was
// found; it only matters for a successful classification.
func (t Table) Outcome(c schemas.Classification, action schemas.Action, el schemas.Element, detail string) schemas.Outcome {
	out := schemas.Outcome{Classification: c, Detail: detail}
	switch c {
	case schemas.ClassSuccess:
		out.Reward = t.success(action.Verb, el)
		out.Changed = true
	case schemas.ClassAlreadySatisfied:
		out.Reward = t.Satisfied
	case schemas.ClassElementMissing:
		out.Reward = t.ElementMissing
	case schemas.ClassNotInteractable:
		out.Reward = t.NotInteractable
	case schemas.ClassTimeout:
		out.Reward = t.Timeout
	case schemas.ClassInvalidAction:
		out.Reward = t.InvalidAction
	default:
		out.Reward = t.Failure
	}
	return out
}

func (t Table) success(v schemas.Verb, el schemas.Element) float64 {
	switch v {
	case schemas.VerbEnterText:
		if el.Required {
			return t.EnterTextRequired
		}
		return t.EnterTextOptional
	case schemas.VerbChooseOption:
		return t.ChooseOption
	case schemas.VerbEnable, schemas.VerbDisable:
		if el.Required {
			return t.ToggleRequired
		}
		return t.ToggleOptional
	case schemas.VerbReset:
		return t.Reset
	case schemas.VerbActivate:
		switch {
		case el.Submit:
			return t.ActivateSubmit
		case el.Category == schemas.CategoryClickable:
			return t.ActivateButton
		default:
			return t.ActivateOther
		}
	}
	return 0
}
