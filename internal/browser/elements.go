package browser

import (
	"strings"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// idAttribute tags every harvested control so later actions can find it
// again without relying on the page's own ids being present or unique.
const idAttribute = "data-formrl-id"

// rawElement is the shape returned by the harvest script.
type rawElement struct {
	ID       string   `json:"id"`
	Tag      string   `json:"tag"`
	Type     string   `json:"type"`
	Role     string   `json:"role"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Disabled bool     `json:"disabled"`
	ReadOnly bool     `json:"readOnly"`
	Value    string   `json:"value"`
	Checked  bool     `json:"checked"`
	Options  []string `json:"options"`
	Clicky   bool     `json:"clicky"`
}

// rawProgress is the progress part of the harvest.
type rawProgress struct {
	Completion float64        `json:"completion"`
	Complete   bool           `json:"complete"`
	Success    bool           `json:"success"`
	Aux        map[string]any `json:"aux"`
}

type rawSnapshot struct {
	Elements []rawElement `json:"elements"`
	Progress rawProgress  `json:"progress"`
}

// toSnapshot converts a harvest into the perceived snapshot.
func (r rawSnapshot) toSnapshot() schemas.Snapshot {
	elements := make([]schemas.Element, 0, len(r.Elements))
	for _, raw := range r.Elements {
		elements = append(elements, toElement(raw))
	}
	return schemas.Snapshot{
		Elements: elements,
		Progress: schemas.ProgressSignal{
			Completion: r.Progress.Completion,
			Complete:   r.Progress.Complete,
			Success:    r.Progress.Success,
			Aux:        r.Progress.Aux,
		},
	}
}

func toElement(raw rawElement) schemas.Element {
	category := classify(raw)
	el := schemas.Element{
		ID:       raw.ID,
		Category: category,
		Tag:      strings.ToLower(raw.Tag),
		Label:    strings.TrimSpace(raw.Label),
		Required: raw.Required,
		Enabled:  !raw.Disabled && !raw.ReadOnly,
		Value:    raw.Value,
		Options:  raw.Options,
		Submit:   isSubmit(raw),
	}
	if category == schemas.CategoryCheckbox || category == schemas.CategoryRadio {
		el.Value = ""
		if raw.Checked {
			el.Value = schemas.CheckedValue
		}
	}
	el.Capabilities = capabilities(category)
	return el
}

// classify maps a control onto the closed category set.
func classify(raw rawElement) schemas.Category {
	tag := strings.ToLower(raw.Tag)
	typ := strings.ToLower(raw.Type)

	switch tag {
	case "input":
		switch typ {
		case "email":
			return schemas.CategoryEmailText
		case "checkbox":
			return schemas.CategoryCheckbox
		case "radio":
			return schemas.CategoryRadio
		case "submit", "button", "reset", "image":
			return schemas.CategoryClickable
		case "", "text", "password", "search", "tel", "url", "number":
			return schemas.CategoryShortText
		}
		return schemas.CategoryUnknown
	case "textarea":
		return schemas.CategoryLongText
	case "select":
		return schemas.CategoryDropdown
	case "button", "a":
		return schemas.CategoryClickable
	}
	if raw.Clicky || strings.EqualFold(raw.Role, "button") {
		return schemas.CategoryClickable
	}
	return schemas.CategoryUnknown
}

func isSubmit(raw rawElement) bool {
	typ := strings.ToLower(raw.Type)
	switch strings.ToLower(raw.Tag) {
	case "input":
		return typ == "submit" || typ == "image"
	case "button":
		// A button with no type attribute submits its form.
		return typ == "" || typ == "submit"
	}
	return false
}

// capabilities lists the verbs each category affords.
func capabilities(c schemas.Category) []schemas.Verb {
	switch c {
	case schemas.CategoryShortText, schemas.CategoryEmailText, schemas.CategoryLongText:
		return []schemas.Verb{schemas.VerbEnterText, schemas.VerbReset}
	case schemas.CategoryDropdown:
		return []schemas.Verb{schemas.VerbChooseOption}
	case schemas.CategoryCheckbox:
		return []schemas.Verb{schemas.VerbEnable, schemas.VerbDisable}
	case schemas.CategoryRadio, schemas.CategoryClickable:
		return []schemas.Verb{schemas.VerbActivate}
	}
	return nil
}

// selectorFor builds the CSS selector for a harvested control.
func selectorFor(id string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(id)
	return `[` + idAttribute + `="` + escaped + `"]`
}

// resolveOption picks the option a choose-option action selects: the payload
// when it names an option, otherwise the first non-empty option that is not
// already selected. ok is false when nothing would change.
func resolveOption(payload, current string, options []string) (string, bool) {
	for _, o := range options {
		if payload != "" && o == payload {
			return o, o != current
		}
	}
	for _, o := range options {
		if o != "" && o != current {
			return o, true
		}
	}
	return "", false
}

// readable turns a candidate payload into the text typed into a field.
// Candidates use underscores in place of spaces.
func readable(payload string) string {
	return strings.ReplaceAll(payload, "_", " ")
}
