package learning

import (
	"strings"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// CandidatePool supplies the text payloads tried on a text-capable element.
type CandidatePool func(el schemas.Element) []string

// DefaultCandidates picks samples by what the field looks like.
func DefaultCandidates(el schemas.Element) []string {
	switch {
	case el.Category == schemas.CategoryEmailText:
		return []string{"test@example.com", "user@demo.com"}
	case strings.Contains(strings.ToLower(el.ID), "name"):
		return []string{"John_Doe", "Jane_Smith"}
	case el.Category == schemas.CategoryLongText:
		return []string{"AI_learning_demo", "Test_description"}
	default:
		return []string{"sample_text", "test_input"}
	}
}

// Enumerator derives the legal actions for a snapshot.
type Enumerator struct {
	candidates CandidatePool
}

// EnumeratorOption configures an Enumerator.
type EnumeratorOption func(*Enumerator)

// WithCandidates replaces the text candidate pool.
func WithCandidates(p CandidatePool) EnumeratorOption {
	return func(e *Enumerator) { e.candidates = p }
}

// NewEnumerator builds an Enumerator using DefaultCandidates unless told otherwise.
func NewEnumerator(opts ...EnumeratorOption) *Enumerator {
	e := &Enumerator{candidates: DefaultCandidates}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enumerate returns the legal actions for s in the order the elements and
// their capabilities were reported. Disabled elements contribute nothing.
// The result is empty when no element is enabled.
func (e *Enumerator) Enumerate(s schemas.Snapshot) []schemas.Action {
	var out []schemas.Action
	seen := make(map[schemas.Action]struct{})
	add := func(a schemas.Action) {
		if _, dup := seen[a]; dup {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}

	for _, el := range s.Elements {
		if !el.Enabled || el.ID == "" {
			continue
		}
		for _, verb := range el.Capabilities {
			switch verb {
			case schemas.VerbEnterText:
				for _, text := range e.candidates(el) {
					add(schemas.Action{Verb: verb, Target: el.ID, Payload: text})
				}
			case schemas.VerbActivate, schemas.VerbChooseOption, schemas.VerbEnable,
				schemas.VerbDisable, schemas.VerbReset:
				// choose-option carries no payload; the actuator resolves it.
				add(schemas.Action{Verb: verb, Target: el.ID})
			}
		}
	}
	return out
}
