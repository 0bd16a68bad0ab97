package schemas

import "errors"

// Classification is the structured result of one actuation.
type Classification string

const (
	ClassSuccess          Classification = "success"
	ClassFailure          Classification = "failure"
	ClassElementMissing   Classification = "element_missing"
	ClassNotInteractable  Classification = "not_interactable"
	ClassTimeout          Classification = "timeout"
	ClassAlreadySatisfied Classification = "already_satisfied"
	ClassInvalidAction    Classification = "invalid_action"
)

// Fatal reports whether the classification ends the episode.
// Only a generic failure does; the rest are expected per-step outcomes.
func (c Classification) Fatal() bool {
	return c == ClassFailure
}

var (
	ErrElementMissing  = errors.New("element missing")
	ErrNotInteractable = errors.New("element not interactable")
	ErrActionTimeout   = errors.New("action timed out")
	ErrInvalidAction   = errors.New("invalid action encoding")
	// ErrEnvironmentInit means the surface could not be started or loaded.
	// It aborts a training run before any episode begins.
	ErrEnvironmentInit = errors.New("environment initialization failed")
)

// Outcome is what an Actuator reports after performing an action.
type Outcome struct {
	Classification Classification `json:"classification"`
	Reward         float64        `json:"reward"`
	Changed        bool           `json:"changed"`
	Detail         string         `json:"detail,omitempty"`
}

// ClassifyError maps a sentinel error onto its classification.
func ClassifyError(err error) Classification {
	switch {
	case err == nil:
		return ClassSuccess
	case errors.Is(err, ErrElementMissing):
		return ClassElementMissing
	case errors.Is(err, ErrNotInteractable):
		return ClassNotInteractable
	case errors.Is(err, ErrActionTimeout):
		return ClassTimeout
	case errors.Is(err, ErrInvalidAction):
		return ClassInvalidAction
	default:
		return ClassFailure
	}
}
