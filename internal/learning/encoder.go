package learning

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// Encoder maps snapshots onto state keys and counts how often each key is
// seen.
type Encoder struct {
	visits map[string]int
}

// NewEncoder returns an Encoder with no recorded visits.
func NewEncoder() *Encoder {
	return &Encoder{visits: make(map[string]int)}
}

// Encode returns the state key for s and records a visit to it.
func (e *Encoder) Encode(s schemas.Snapshot) string {
	key := StateKey(s)
	e.visits[key]++
	return key
}

// Visits returns a copy of the visit counters.
func (e *Encoder) Visits() map[string]int {
	out := make(map[string]int, len(e.visits))
	for k, v := range e.visits {
		out[k] = v
	}
	return out
}

// Restore replaces the visit counters.
func (e *Encoder) Restore(visits map[string]int) {
	e.visits = make(map[string]int, len(visits))
	for k, v := range visits {
		e.visits[k] = v
	}
}

// StateKey is the pure part of Encode. Snapshots that agree on progress
// decile, filled and required counts, completion and per-category counts
// share a key regardless of element order.
func StateKey(s schemas.Snapshot) string {
	var filled, required int
	counts := make(map[schemas.Category]int)
	for _, el := range s.Elements {
		cat := el.Category
		if cat == "" {
			cat = schemas.CategoryUnknown
		}
		counts[cat]++
		if el.Required {
			required++
			if el.Filled() {
				filled++
			}
		}
	}

	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)

	var b strings.Builder
	b.WriteString("progress_")
	b.WriteString(strconv.Itoa(progressBucket(s.Progress.Completion)))
	b.WriteString("|filled_")
	b.WriteString(strconv.Itoa(filled))
	b.WriteString("|required_")
	b.WriteString(strconv.Itoa(required))
	b.WriteString("|complete_")
	b.WriteString(strconv.FormatBool(s.Progress.Complete || s.Progress.Success))
	for _, c := range cats {
		b.WriteByte('|')
		b.WriteString(c)
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(counts[schemas.Category(c)]))
	}
	return b.String()
}

// progressBucket floors completion to a multiple of ten within [0, 100].
func progressBucket(completion float64) int {
	if math.IsNaN(completion) || completion <= 0 {
		return 0
	}
	if completion >= 100 {
		return 100
	}
	return int(completion/10) * 10
}
