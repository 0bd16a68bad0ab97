package schemas_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// TestConstants guards values that end up in persisted knowledge files.
func TestConstants(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		constant interface{}
		expected string
	}{
		{"CategoryShortText", schemas.CategoryShortText, "short_text"},
		{"CategoryEmailText", schemas.CategoryEmailText, "email_text"},
		{"CategoryClickable", schemas.CategoryClickable, "clickable"},
		{"VerbActivate", schemas.VerbActivate, "activate"},
		{"VerbEnterText", schemas.VerbEnterText, "enter-text"},
		{"VerbChooseOption", schemas.VerbChooseOption, "choose-option"},
		{"VerbReset", schemas.VerbReset, "reset"},
		{"ClassAlreadySatisfied", schemas.ClassAlreadySatisfied, "already_satisfied"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, fmt.Sprintf("%v", tc.constant))
		})
	}
}

func TestActionID(t *testing.T) {
	t.Parallel()

	t.Run("without payload", func(t *testing.T) {
		a := schemas.Action{Verb: schemas.VerbActivate, Target: "submit"}
		assert.Equal(t, "activate:submit", a.ID())
	})

	t.Run("with payload", func(t *testing.T) {
		a := schemas.Action{Verb: schemas.VerbEnterText, Target: "email", Payload: "test@example.com"}
		assert.Equal(t, "enter-text:email=test%40example.com", a.ID())
	})

	t.Run("separators inside fields survive", func(t *testing.T) {
		a := schemas.Action{Verb: schemas.VerbEnterText, Target: "a:b=c", Payload: "x=y:z w"}
		parsed, err := schemas.ParseAction(a.ID())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	})
}

func TestParseActionRejectsMalformed(t *testing.T) {
	t.Parallel()
	for _, id := range []string{"", "activate", "jump:submit", "activate:", "enter-text:%zz"} {
		id := id
		t.Run(id, func(t *testing.T) {
			_, err := schemas.ParseAction(id)
			require.Error(t, err)
			assert.ErrorIs(t, err, schemas.ErrInvalidAction)
		})
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, schemas.ClassSuccess, schemas.ClassifyError(nil))
	assert.Equal(t, schemas.ClassElementMissing, schemas.ClassifyError(fmt.Errorf("lookup: %w", schemas.ErrElementMissing)))
	assert.Equal(t, schemas.ClassNotInteractable, schemas.ClassifyError(schemas.ErrNotInteractable))
	assert.Equal(t, schemas.ClassTimeout, schemas.ClassifyError(schemas.ErrActionTimeout))
	assert.Equal(t, schemas.ClassInvalidAction, schemas.ClassifyError(schemas.ErrInvalidAction))
	assert.Equal(t, schemas.ClassFailure, schemas.ClassifyError(errors.New("boom")))
	assert.True(t, schemas.ClassFailure.Fatal())
	assert.False(t, schemas.ClassTimeout.Fatal())
}

func TestSnapshotHelpers(t *testing.T) {
	t.Parallel()
	s := schemas.Snapshot{Elements: []schemas.Element{
		{ID: "name", Category: schemas.CategoryShortText, Value: "  ", Capabilities: []schemas.Verb{schemas.VerbEnterText}},
		{ID: "agree", Category: schemas.CategoryCheckbox, Value: schemas.CheckedValue},
	}}

	name, ok := s.Element("name")
	require.True(t, ok)
	assert.False(t, name.Filled(), "whitespace does not count as filled")
	assert.True(t, name.Can(schemas.VerbEnterText))
	assert.False(t, name.Can(schemas.VerbActivate))

	agree, _ := s.Element("agree")
	assert.True(t, agree.Filled())

	_, ok = s.Element("missing")
	assert.False(t, ok)
	assert.True(t, schemas.CategoryLongText.IsText())
	assert.False(t, schemas.CategoryDropdown.IsText())
}
