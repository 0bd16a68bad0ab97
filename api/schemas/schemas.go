package schemas

import "strings"

// Category classifies a perceived control. The set is closed.
type Category string

const (
	CategoryShortText Category = "short_text"
	CategoryEmailText Category = "email_text"
	CategoryLongText  Category = "long_text"
	CategoryDropdown  Category = "dropdown"
	CategoryCheckbox  Category = "checkbox"
	CategoryRadio     Category = "radio"
	CategoryClickable Category = "clickable"
	CategoryUnknown   Category = "unknown"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryShortText,
	CategoryEmailText,
	CategoryLongText,
	CategoryDropdown,
	CategoryCheckbox,
	CategoryRadio,
	CategoryClickable,
	CategoryUnknown,
}

// IsText reports whether the category accepts free text.
func (c Category) IsText() bool {
	switch c {
	case CategoryShortText, CategoryEmailText, CategoryLongText:
		return true
	}
	return false
}

// CheckedValue is the Value reported for a checked checkbox or radio button.
const CheckedValue = "checked"

// Element is one interactive control as seen by a single perception call.
// Elements are produced fresh on every scan and must not be mutated.
type Element struct {
	ID           string   `json:"id"`
	Category     Category `json:"category"`
	Tag          string   `json:"tag,omitempty"`
	Label        string   `json:"label,omitempty"`
	Required     bool     `json:"required"`
	Enabled      bool     `json:"enabled"`
	Value        string   `json:"value"`
	Options      []string `json:"options,omitempty"`
	Capabilities []Verb   `json:"capabilities"`
	// Submit marks an activation control that submits its form.
	Submit bool `json:"submit,omitempty"`
}

// Filled reports whether the element currently holds a value.
func (e Element) Filled() bool {
	return strings.TrimSpace(e.Value) != ""
}

// Can reports whether the element supports the given verb.
func (e Element) Can(v Verb) bool {
	for _, c := range e.Capabilities {
		if c == v {
			return true
		}
	}
	return false
}

// ProgressSignal is the surface's own report of how far along it is.
type ProgressSignal struct {
	// Completion is a percentage in [0, 100].
	Completion float64 `json:"completion"`
	// Complete is set when the surface reports every required input satisfied.
	Complete bool `json:"complete"`
	// Success is the goal condition. Once true the episode must end.
	Success bool           `json:"success"`
	Aux     map[string]any `json:"aux,omitempty"`
}

// Snapshot is one observation of the surface.
type Snapshot struct {
	Elements []Element     `json:"elements"`
	Progress ProgressSignal `json:"progress"`
}

// Element looks up an element by identifier.
func (s Snapshot) Element(id string) (Element, bool) {
	for _, e := range s.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

// EmptySnapshot is what a perceiver reports when it cannot see anything.
func EmptySnapshot() Snapshot {
	return Snapshot{}
}
