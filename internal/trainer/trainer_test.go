package trainer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/formrl/api/schemas"
	"github.com/xkilldash9x/formrl/internal/learning"
	"github.com/xkilldash9x/formrl/internal/observability"
	"github.com/xkilldash9x/formrl/internal/reward"
	"github.com/xkilldash9x/formrl/internal/store"
)

// -- Test Fixture Setup --

func testConfig(maxEpisodes, maxSteps int) Config {
	return Config{
		MaxEpisodes: maxEpisodes,
		MaxSteps:    maxSteps,
		Mastery:     learning.DefaultMasteryRule(),
		Shaper:      reward.NewShaper(500, -0.2, 10),
		Table:       reward.DefaultTable(),
	}
}

func newTestAgent(t *testing.T) *learning.Agent {
	t.Helper()
	params := learning.Params{
		LearningRate:   0.15,
		DiscountFactor: 0.95,
		Epsilon:        0.4,
		EpsilonDecay:   0.95,
		EpsilonMin:     0.01,
	}
	agent, err := learning.NewAgent(params, learning.WithSeed(42))
	require.NoError(t, err)
	return agent
}

func newTestOrchestrator(t *testing.T, cfg Config, p schemas.Perceiver, a schemas.Actuator, agent *learning.Agent, ks store.KnowledgeStore) *Orchestrator {
	t.Helper()
	o, err := New(cfg, observability.GetLogger(), p, a, agent, ks)
	require.NoError(t, err)
	return o
}

// blankForm has a single unfilled email field.
func blankForm() schemas.Snapshot {
	return schemas.Snapshot{
		Elements: []schemas.Element{{
			ID: "email", Category: schemas.CategoryEmailText, Required: true, Enabled: true,
			Capabilities: []schemas.Verb{schemas.VerbEnterText},
		}},
	}
}

// -- Test Cases --

func TestNew(t *testing.T) {
	agent := newTestAgent(t)
	form := newFakeForm()

	t.Run("rejects nil dependencies", func(t *testing.T) {
		_, err := New(testConfig(1, 1), nil, form, form, agent, &memStore{})
		assert.Error(t, err)
		_, err = New(testConfig(1, 1), zap.NewNop(), nil, form, agent, &memStore{})
		assert.Error(t, err)
		_, err = New(testConfig(1, 1), zap.NewNop(), form, form, nil, &memStore{})
		assert.Error(t, err)
		_, err = New(testConfig(1, 1), zap.NewNop(), form, form, agent, nil)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive limits", func(t *testing.T) {
		_, err := New(testConfig(0, 12), zap.NewNop(), form, form, agent, &memStore{})
		assert.Error(t, err)
		_, err = New(testConfig(15, 0), zap.NewNop(), form, form, agent, &memStore{})
		assert.Error(t, err)
	})

	t.Run("starts idle", func(t *testing.T) {
		o, err := New(testConfig(1, 1), zap.NewNop(), form, form, agent, &memStore{})
		require.NoError(t, err)
		assert.Equal(t, PhaseIdle, o.Phase())
		assert.Same(t, agent, o.Agent())
	})
}

func TestRunEpisodeStuckDoesNotLearn(t *testing.T) {
	snapshots := map[string]schemas.Snapshot{
		"empty surface": schemas.EmptySnapshot(),
		"only disabled controls": {Elements: []schemas.Element{{
			ID: "name", Category: schemas.CategoryShortText, Enabled: false,
			Capabilities: []schemas.Verb{schemas.VerbEnterText},
		}}},
	}

	for name, snap := range snapshots {
		t.Run(name, func(t *testing.T) {
			p := &mockPerceiver{}
			p.On("Reset", mock.Anything).Return(nil).Once()
			p.On("WaitStable", mock.Anything).Return(nil).Once()
			p.On("Scan", mock.Anything).Return(snap).Once()
			a := &mockActuator{}
			agent := newTestAgent(t)
			startEpsilon := agent.Epsilon()

			o := newTestOrchestrator(t, testConfig(5, 12), p, a, agent, &memStore{})
			rec, err := o.RunEpisode(context.Background())
			require.NoError(t, err)

			assert.Equal(t, learning.TerminationStuck, rec.Termination)
			assert.Zero(t, rec.Steps)
			assert.False(t, rec.Success)
			assert.Zero(t, agent.KnownPairs(), "a stuck episode must not touch the value table")
			assert.Empty(t, agent.Recent(10))
			assert.Equal(t, 1, agent.Stats().Episodes)
			assert.Less(t, agent.Epsilon(), startEpsilon, "epsilon still decays at episode end")
			assert.Equal(t, PhaseIdle, o.Phase())
			a.AssertNotCalled(t, "Perform", mock.Anything, mock.Anything, mock.Anything)
			p.AssertExpectations(t)
		})
	}
}

func TestRunEpisodeHardFailureEndsEpisode(t *testing.T) {
	p := &mockPerceiver{}
	p.On("Reset", mock.Anything).Return(nil)
	p.On("WaitStable", mock.Anything).Return(nil)
	p.On("Scan", mock.Anything).Return(blankForm())

	var o *Orchestrator
	var seen Phase
	a := &mockActuator{}
	a.On("Perform", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { seen = o.Phase() }).
		Return(schemas.Outcome{Classification: schemas.ClassFailure, Reward: -0.3, Detail: "page crashed"}, nil).
		Once()

	agent := newTestAgent(t)
	o = newTestOrchestrator(t, testConfig(5, 10), p, a, agent, &memStore{})

	rec, err := o.RunEpisode(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseRunning, seen)
	assert.Equal(t, PhaseIdle, o.Phase())
	assert.Equal(t, learning.TerminationExhausted, rec.Termination)
	assert.Equal(t, 1, rec.Steps)
	require.Len(t, agent.Recent(10), 1)
	last := agent.Recent(1)[0]
	assert.True(t, last.Terminal, "a hard failure is terminal")
	assert.InDelta(t, -0.3, last.Reward, 1e-9)
	a.AssertExpectations(t)
}

func TestRunEpisodeSettleTimeoutRewritesOutcome(t *testing.T) {
	p := &mockPerceiver{}
	p.On("Reset", mock.Anything).Return(nil).Once()
	p.On("WaitStable", mock.Anything).Return(nil).Once()
	p.On("WaitStable", mock.Anything).Return(fmt.Errorf("surface still changing: %w", schemas.ErrActionTimeout)).Once()
	p.On("Scan", mock.Anything).Return(blankForm()).Times(2)

	a := &mockActuator{}
	a.On("Perform", mock.Anything, mock.Anything, mock.Anything).
		Return(schemas.Outcome{Classification: schemas.ClassSuccess, Reward: 2, Changed: true}, nil).
		Once()

	agent := newTestAgent(t)
	o := newTestOrchestrator(t, testConfig(5, 1), p, a, agent, &memStore{})

	rec, err := o.RunEpisode(context.Background())
	require.NoError(t, err)

	assert.Equal(t, learning.TerminationExhausted, rec.Termination)
	require.Len(t, agent.Recent(10), 1)
	last := agent.Recent(1)[0]
	assert.InDelta(t, reward.DefaultTable().Timeout, last.Reward, 1e-9)
	assert.True(t, last.Terminal, "the step cap makes the last transition terminal")
	p.AssertExpectations(t)
}

func TestRunEpisodeActuatorErrorAborts(t *testing.T) {
	p := &mockPerceiver{}
	p.On("Reset", mock.Anything).Return(nil)
	p.On("WaitStable", mock.Anything).Return(nil)
	p.On("Scan", mock.Anything).Return(blankForm())

	boom := errors.New("devtools connection lost")
	a := &mockActuator{}
	a.On("Perform", mock.Anything, mock.Anything, mock.Anything).Return(schemas.Outcome{}, boom)

	agent := newTestAgent(t)
	o := newTestOrchestrator(t, testConfig(5, 10), p, a, agent, &memStore{})

	_, err := o.RunEpisode(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Zero(t, agent.Stats().Episodes, "an aborted episode is not recorded")
	assert.Equal(t, PhaseIdle, o.Phase())
}

func TestTrainEnvironmentInit(t *testing.T) {
	t.Run("first reset failure is fatal", func(t *testing.T) {
		p := &mockPerceiver{}
		p.On("Reset", mock.Anything).Return(errors.New("chrome not found")).Once()
		agent := newTestAgent(t)
		o := newTestOrchestrator(t, testConfig(5, 12), p, &mockActuator{}, agent, &memStore{})

		res, err := o.Train(context.Background())
		require.ErrorIs(t, err, schemas.ErrEnvironmentInit)
		assert.ErrorContains(t, err, "chrome not found")
		assert.Zero(t, res.Episodes)
		assert.Zero(t, agent.Stats().Episodes)
	})

	t.Run("later reset failure is an ordinary error", func(t *testing.T) {
		form := newFakeForm()
		failing := &resetFailingForm{fakeForm: form, failOn: 2}
		agent := newTestAgent(t)
		o := newTestOrchestrator(t, testConfig(5, 12), failing, form, agent, &memStore{})

		res, err := o.Train(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, schemas.ErrEnvironmentInit)
		assert.ErrorContains(t, err, "failed to reset surface")
		assert.Equal(t, 1, res.Episodes)
	})
}

type resetFailingForm struct {
	*fakeForm
	failOn int
}

func (f *resetFailingForm) Reset(ctx context.Context) error {
	if f.resets+1 == f.failOn {
		f.resets++
		return errors.New("navigation failed")
	}
	return f.fakeForm.Reset(ctx)
}

func TestTrainReachesMastery(t *testing.T) {
	form := newFakeForm()
	agent := newTestAgent(t)
	cfg := testConfig(40, 12)
	o := newTestOrchestrator(t, cfg, form, form, agent, &memStore{})

	res, err := o.Train(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Mastered)
	assert.False(t, res.Interrupted)
	assert.NotEmpty(t, res.RunID)
	assert.GreaterOrEqual(t, res.Episodes, cfg.Mastery.MinEpisodes)
	assert.Len(t, res.Records, res.Episodes)
	assert.Equal(t, res.Episodes, agent.Stats().Episodes)

	successes := make([]bool, len(res.Records))
	for i, rec := range res.Records {
		successes[i] = rec.Success
		assert.Equal(t, i+1, rec.Episode)
	}
	assert.True(t, cfg.Mastery.Mastered(successes))
	assert.False(t, cfg.Mastery.Mastered(successes[:len(successes)-1]), "training stops at the first mastered episode")

	// With the email filled, submitting is the learned choice.
	form.email = "test@example.com"
	best, _, ok := agent.BestAction(learning.StateKey(form.Scan(context.Background())))
	require.True(t, ok)
	assert.Equal(t, schemas.Action{Verb: schemas.VerbActivate, Target: "submit"}, best)
}

func TestTrainStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	form := newFakeForm()
	form.onReset = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	agent := newTestAgent(t)
	o := newTestOrchestrator(t, testConfig(10, 12), form, form, agent, &memStore{})

	res, err := o.Train(ctx)
	require.NoError(t, err, "cancellation is reported through the result")
	assert.True(t, res.Interrupted)
	assert.Equal(t, 2, res.Episodes)
	assert.Equal(t, 2, agent.Stats().Episodes, "the interrupted episode is not recorded")
	assert.Equal(t, PhaseIdle, o.Phase())
}

func TestEvaluateIsGreedyAndSideEffectFree(t *testing.T) {
	form := newFakeForm()
	agent := newTestAgent(t)
	o := newTestOrchestrator(t, testConfig(40, 12), form, form, agent, &memStore{})

	trained, err := o.Train(context.Background())
	require.NoError(t, err)
	require.True(t, trained.Mastered)

	epsilon := agent.Epsilon()
	episodes := agent.Stats().Episodes
	pairs := agent.KnownPairs()
	recent := len(agent.Recent(1000))
	before := agent.Snapshot()

	res, err := o.Evaluate(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Episodes)
	assert.Equal(t, 3, res.Successes())
	for i, rec := range res.Records {
		assert.Equal(t, i+1, rec.Episode)
		assert.Zero(t, rec.Epsilon)
		assert.Equal(t, 2, rec.Steps, "fill the email, then submit")
	}
	assert.Equal(t, epsilon, agent.Epsilon(), "epsilon is restored after evaluation")
	assert.Equal(t, episodes, agent.Stats().Episodes)
	assert.Equal(t, pairs, agent.KnownPairs())
	assert.Len(t, agent.Recent(1000), recent)
	after := agent.Snapshot()
	assert.Equal(t, before.Visits, after.Visits, "evaluation does not count visits")
	assert.Equal(t, before.ActionCounts, after.ActionCounts, "evaluation does not count choices")
}

func TestTrainingTransitionsCarryNextLegalActions(t *testing.T) {
	form := newFakeForm()
	agent := newTestAgent(t)
	o := newTestOrchestrator(t, testConfig(5, 12), form, form, agent, &memStore{})

	_, err := o.Train(context.Background())
	require.NoError(t, err)

	transitions := agent.Recent(1000)
	require.NotEmpty(t, transitions)
	for _, tr := range transitions {
		if tr.Terminal {
			assert.Empty(t, tr.NextLegal, "terminal transitions do not bootstrap")
			continue
		}
		assert.NotEmpty(t, tr.NextLegal, "non-terminal transition from %s", tr.State)
	}
}

func TestPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	ks := &memStore{}
	form := newFakeForm()
	agent := newTestAgent(t)
	o := newTestOrchestrator(t, testConfig(40, 12), form, form, agent, ks)

	res, err := o.Train(ctx)
	require.NoError(t, err)
	require.NoError(t, o.Persist(ctx))
	require.NotNil(t, ks.saved)
	assert.Equal(t, res.RunID, ks.saved.RunID)

	fresh := newTestAgent(t)
	restored := newTestOrchestrator(t, testConfig(40, 12), form, form, fresh, ks)
	require.True(t, restored.Restore(ctx))
	assert.Equal(t, agent.KnownPairs(), fresh.KnownPairs())
	assert.Equal(t, agent.Epsilon(), fresh.Epsilon())
	assert.Equal(t, agent.Stats(), fresh.Stats())
}

func TestRestoreFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	form := newFakeForm()

	cases := map[string]struct {
		ks       *memStore
		warnings int
	}{
		"nothing saved": {ks: &memStore{}, warnings: 0},
		"store error":   {ks: &memStore{loadErr: fmt.Errorf("%w: truncated", store.ErrCorrupt)}, warnings: 1},
		"unusable knowledge": {ks: &memStore{saved: &learning.Knowledge{
			Params: learning.DefaultParams(),
			Values: map[string]map[string]float64{"s": {"not-an-action": 1}},
		}}, warnings: 1},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			agent := newTestAgent(t)
			o, err := New(testConfig(1, 1), zap.New(core), form, form, agent, tc.ks)
			require.NoError(t, err)

			assert.False(t, o.Restore(ctx))
			assert.Equal(t, tc.warnings, logs.Len())
			assert.Zero(t, agent.KnownPairs())
		})
	}
}

func TestPersistReturnsSaveError(t *testing.T) {
	diskFull := errors.New("disk full")
	form := newFakeForm()
	agent := newTestAgent(t)
	o := newTestOrchestrator(t, testConfig(1, 1), form, form, agent, &memStore{saveErr: diskFull})

	err := o.Persist(context.Background())
	require.ErrorIs(t, err, diskFull)
	assert.ErrorContains(t, err, "failed to persist knowledge")
}
