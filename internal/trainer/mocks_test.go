package trainer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/formrl/api/schemas"
	"github.com/xkilldash9x/formrl/internal/learning"
	"github.com/xkilldash9x/formrl/internal/reward"
	"github.com/xkilldash9x/formrl/internal/store"
)

// -- Mock Implementations for Testing --

type mockPerceiver struct {
	mock.Mock
}

func (m *mockPerceiver) Scan(ctx context.Context) schemas.Snapshot {
	args := m.Called(ctx)
	return args.Get(0).(schemas.Snapshot)
}

func (m *mockPerceiver) Reset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockPerceiver) WaitStable(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockActuator struct {
	mock.Mock
}

func (m *mockActuator) Perform(ctx context.Context, a schemas.Action, s schemas.Snapshot) (schemas.Outcome, error) {
	args := m.Called(ctx, a, s)
	return args.Get(0).(schemas.Outcome), args.Error(1)
}

// memStore keeps one snapshot in memory.
type memStore struct {
	saved   *learning.Knowledge
	loadErr error
	saveErr error
}

func (s *memStore) Save(_ context.Context, k learning.Knowledge) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = &k
	return nil
}

func (s *memStore) Load(_ context.Context) (learning.Knowledge, error) {
	if s.loadErr != nil {
		return learning.Knowledge{}, s.loadErr
	}
	if s.saved == nil {
		return learning.Knowledge{}, store.ErrNotFound
	}
	return *s.saved, nil
}

// fakeForm is a two-control surface: an email field and a submit button.
// Submitting with the email filled succeeds. It is both the Perceiver and
// the Actuator.
type fakeForm struct {
	table     reward.Table
	email     string
	submitted bool
	resets    int
	// onReset runs at the start of every reset with the reset count.
	onReset func(n int)
}

func newFakeForm() *fakeForm {
	return &fakeForm{table: reward.DefaultTable()}
}

func (f *fakeForm) Reset(context.Context) error {
	f.resets++
	if f.onReset != nil {
		f.onReset(f.resets)
	}
	f.email = ""
	f.submitted = false
	return nil
}

func (f *fakeForm) WaitStable(context.Context) error { return nil }

func (f *fakeForm) Scan(context.Context) schemas.Snapshot {
	completion := 0.0
	if f.email != "" {
		completion = 50
	}
	if f.submitted {
		completion = 100
	}
	return schemas.Snapshot{
		Elements: []schemas.Element{
			{
				ID: "email", Category: schemas.CategoryEmailText, Tag: "input",
				Required: true, Enabled: true, Value: f.email,
				Capabilities: []schemas.Verb{schemas.VerbEnterText},
			},
			{
				ID: "submit", Category: schemas.CategoryClickable, Tag: "button",
				Enabled: true, Submit: true,
				Capabilities: []schemas.Verb{schemas.VerbActivate},
			},
		},
		Progress: schemas.ProgressSignal{
			Completion: completion,
			Complete:   f.email != "",
			Success:    f.submitted,
		},
	}
}

func (f *fakeForm) Perform(_ context.Context, a schemas.Action, s schemas.Snapshot) (schemas.Outcome, error) {
	el, ok := s.Element(a.Target)
	if !ok {
		return f.table.Outcome(schemas.ClassElementMissing, a, el, ""), nil
	}
	switch a.Verb {
	case schemas.VerbEnterText:
		if f.email == a.Payload {
			return f.table.Outcome(schemas.ClassAlreadySatisfied, a, el, ""), nil
		}
		f.email = a.Payload
	case schemas.VerbActivate:
		if f.email != "" {
			f.submitted = true
		}
	}
	return f.table.Outcome(schemas.ClassSuccess, a, el, ""), nil
}
