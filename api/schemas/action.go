package schemas

import (
	"fmt"
	"net/url"
	"strings"
)

// Verb is the kind of interaction an action performs.
type Verb string

const (
	VerbActivate     Verb = "activate"
	VerbEnterText    Verb = "enter-text"
	VerbChooseOption Verb = "choose-option"
	VerbEnable       Verb = "enable"
	VerbDisable      Verb = "disable"
	VerbReset        Verb = "reset"
)

// Valid reports whether v is one of the known verbs.
func (v Verb) Valid() bool {
	switch v {
	case VerbActivate, VerbEnterText, VerbChooseOption, VerbEnable, VerbDisable, VerbReset:
		return true
	}
	return false
}

// Action is a concrete interaction: what to do, to which element, with what data.
// It only becomes a string at the persistence boundary, via ID.
type Action struct {
	Verb    Verb   `json:"verb"`
	Target  string `json:"target"`
	Payload string `json:"payload,omitempty"`
}

// ID serializes the action as "verb:target" or "verb:target=payload".
// Target and payload are query-escaped so neither separator can leak.
func (a Action) ID() string {
	var b strings.Builder
	b.WriteString(string(a.Verb))
	b.WriteByte(':')
	b.WriteString(url.QueryEscape(a.Target))
	if a.Payload != "" {
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(a.Payload))
	}
	return b.String()
}

func (a Action) String() string { return a.ID() }

// Validate checks the action is well formed.
func (a Action) Validate() error {
	if !a.Verb.Valid() {
		return fmt.Errorf("%w: unknown verb %q", ErrInvalidAction, a.Verb)
	}
	if a.Target == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidAction)
	}
	return nil
}

// ParseAction is the inverse of Action.ID.
func ParseAction(id string) (Action, error) {
	verb, rest, ok := strings.Cut(id, ":")
	if !ok {
		return Action{}, fmt.Errorf("%w: missing verb separator in %q", ErrInvalidAction, id)
	}
	rawTarget, rawPayload, _ := strings.Cut(rest, "=")

	target, err := url.QueryUnescape(rawTarget)
	if err != nil {
		return Action{}, fmt.Errorf("%w: target: %v", ErrInvalidAction, err)
	}
	payload, err := url.QueryUnescape(rawPayload)
	if err != nil {
		return Action{}, fmt.Errorf("%w: payload: %v", ErrInvalidAction, err)
	}

	a := Action{Verb: Verb(verb), Target: target, Payload: payload}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}
