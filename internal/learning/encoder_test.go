package learning

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formrl/api/schemas"
)

func textField(id string, required bool, value string) schemas.Element {
	return schemas.Element{
		ID: id, Category: schemas.CategoryShortText, Required: required, Enabled: true, Value: value,
		Capabilities: []schemas.Verb{schemas.VerbEnterText, schemas.VerbReset},
	}
}

func TestStateKeyFormat(t *testing.T) {
	s := schemas.Snapshot{
		Elements: []schemas.Element{
			textField("name", true, "John_Doe"),
			textField("city", true, ""),
			{ID: "agree", Category: schemas.CategoryCheckbox, Required: true, Enabled: true, Value: schemas.CheckedValue},
			{ID: "submit", Category: schemas.CategoryClickable, Enabled: true},
		},
		Progress: schemas.ProgressSignal{Completion: 66.6},
	}
	assert.Equal(t,
		"progress_60|filled_2|required_3|complete_false|checkbox_1|clickable_1|short_text_2",
		StateKey(s))
}

func TestStateKeyEmptySnapshot(t *testing.T) {
	assert.Equal(t, "progress_0|filled_0|required_0|complete_false", StateKey(schemas.EmptySnapshot()))
}

func TestStateKeyAliasing(t *testing.T) {
	base := schemas.Snapshot{
		Elements: []schemas.Element{
			textField("first", true, "a"),
			textField("second", false, ""),
			{ID: "country", Category: schemas.CategoryDropdown, Enabled: true},
		},
		Progress: schemas.ProgressSignal{Completion: 41},
	}

	t.Run("same decile", func(t *testing.T) {
		other := base
		other.Progress.Completion = 49.9
		assert.Equal(t, StateKey(base), StateKey(other))
	})

	t.Run("different element ids and values", func(t *testing.T) {
		other := schemas.Snapshot{
			Elements: []schemas.Element{
				{ID: "c2", Category: schemas.CategoryDropdown, Enabled: false, Value: "x"},
				textField("zzz", false, "typed"),
				textField("yyy", true, "b"),
			},
			Progress: schemas.ProgressSignal{Completion: 40},
		}
		assert.Equal(t, StateKey(base), StateKey(other))
	})

	t.Run("next decile differs", func(t *testing.T) {
		other := base
		other.Progress.Completion = 50
		assert.NotEqual(t, StateKey(base), StateKey(other))
	})

	t.Run("success counts as complete", func(t *testing.T) {
		a, b := base, base
		a.Progress.Complete = true
		b.Progress.Success = true
		assert.Equal(t, StateKey(a), StateKey(b))
		assert.Contains(t, StateKey(a), "complete_true")
	})
}

func TestProgressBucketClamps(t *testing.T) {
	assert.Equal(t, 0, progressBucket(-5))
	assert.Equal(t, 0, progressBucket(9.99))
	assert.Equal(t, 10, progressBucket(10))
	assert.Equal(t, 90, progressBucket(99.9))
	assert.Equal(t, 100, progressBucket(100))
	assert.Equal(t, 100, progressBucket(250))
}

func TestEncoderCountsVisits(t *testing.T) {
	enc := NewEncoder()
	s := schemas.Snapshot{Elements: []schemas.Element{textField("a", true, "")}}

	k1 := enc.Encode(s)
	k2 := enc.Encode(s)
	require.Equal(t, k1, k2)

	visits := enc.Visits()
	assert.Equal(t, 2, visits[k1])

	// The copy is detached from the encoder.
	visits[k1] = 100
	assert.Equal(t, 2, enc.Visits()[k1])

	enc.Restore(map[string]int{"x": 7})
	assert.Equal(t, map[string]int{"x": 7}, enc.Visits())
}

type fuzzElement struct {
	Category uint8
	Required bool
	Enabled  bool
	Value    string
}

type fuzzSnapshot struct {
	Completion float64
	Complete   bool
	Elements   []fuzzElement
}

func (f fuzzSnapshot) build(reverse bool) schemas.Snapshot {
	s := schemas.Snapshot{Progress: schemas.ProgressSignal{Completion: f.Completion, Complete: f.Complete}}
	for i := range f.Elements {
		fe := f.Elements[i]
		if reverse {
			fe = f.Elements[len(f.Elements)-1-i]
		}
		s.Elements = append(s.Elements, schemas.Element{
			ID:       strings.Repeat("e", i+1),
			Category: schemas.Categories[int(fe.Category)%len(schemas.Categories)],
			Required: fe.Required,
			Enabled:  fe.Enabled,
			Value:    fe.Value,
		})
	}
	return s
}

// FuzzStateKeyOrderIndependent checks perception order never changes the key.
func FuzzStateKeyOrderIndependent(f *testing.F) {
	f.Add([]byte("seed"))
	f.Add([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	f.Fuzz(func(t *testing.T, data []byte) {
		var fs fuzzSnapshot
		if err := fuzz.NewConsumer(data).GenerateStruct(&fs); err != nil {
			return
		}
		forward := StateKey(fs.build(false))
		backward := StateKey(fs.build(true))
		if forward != backward {
			t.Fatalf("key depends on element order: %q vs %q", forward, backward)
		}
		if !strings.HasPrefix(forward, "progress_") {
			t.Fatalf("unexpected key %q", forward)
		}
	})
}
