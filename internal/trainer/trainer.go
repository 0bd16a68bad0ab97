// Package trainer runs training episodes: it drives the perceive, act, wait,
// re-perceive, learn loop against a surface and decides when training stops.
package trainer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/api/schemas"
	"github.com/xkilldash9x/formrl/internal/learning"
	"github.com/xkilldash9x/formrl/internal/observability"
	"github.com/xkilldash9x/formrl/internal/reward"
	"github.com/xkilldash9x/formrl/internal/store"
)

// Phase is the orchestrator's position in the episode state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseExhausted Phase = "exhausted"
	PhaseStuck     Phase = "stuck"
)

var terminalPhase = map[learning.Termination]Phase{
	learning.TerminationSucceeded: PhaseSucceeded,
	learning.TerminationExhausted: PhaseExhausted,
	learning.TerminationStuck:     PhaseStuck,
}

// Config bounds a training run and prices step outcomes.
type Config struct {
	MaxEpisodes int
	MaxSteps    int
	Mastery     learning.MasteryRule
	Shaper      reward.Shaper
	// Table prices an outcome the orchestrator has to rewrite itself, such
	// as a surface that never settles after an action.
	Table reward.Table
}

// Result describes a finished Train or Evaluate call.
type Result struct {
	RunID       string                   `json:"run_id"`
	Episodes    int                      `json:"episodes"`
	Mastered    bool                     `json:"mastered"`
	Interrupted bool                     `json:"interrupted"`
	Records     []learning.EpisodeRecord `json:"records"`
}

// Successes counts successful episodes.
func (r Result) Successes() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Success {
			n++
		}
	}
	return n
}

// Orchestrator owns one agent and the surface it trains on. It is
// single-threaded and not safe for concurrent use.
type Orchestrator struct {
	cfg       Config
	logger    *zap.Logger
	perceiver schemas.Perceiver
	actuator  schemas.Actuator
	agent     *learning.Agent
	knowledge store.KnowledgeStore

	phase Phase
	runID string
	// ready is set once the surface has been reset successfully.
	ready bool
}

// New wires an orchestrator. All collaborators are required.
func New(
	cfg Config,
	logger *zap.Logger,
	perceiver schemas.Perceiver,
	actuator schemas.Actuator,
	agent *learning.Agent,
	knowledge store.KnowledgeStore,
) (*Orchestrator, error) {
	if logger == nil ||
		perceiver == nil ||
		actuator == nil ||
		agent == nil ||
		knowledge == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if cfg.MaxEpisodes <= 0 || cfg.MaxSteps <= 0 {
		return nil, fmt.Errorf("episode and step limits must be positive, got %d and %d", cfg.MaxEpisodes, cfg.MaxSteps)
	}
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger.Named("trainer"),
		perceiver: perceiver,
		actuator:  actuator,
		agent:     agent,
		knowledge: knowledge,
		phase:     PhaseIdle,
	}, nil
}

// Phase reports where the state machine currently is.
func (o *Orchestrator) Phase() Phase { return o.phase }

// Agent exposes the agent being trained.
func (o *Orchestrator) Agent() *learning.Agent { return o.agent }

// Train runs episodes until the mastery rule is satisfied, the episode budget
// is spent or ctx is cancelled. Cancellation is not an error: the result is
// marked Interrupted and what was learned so far stays in the agent.
func (o *Orchestrator) Train(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	o.runID = res.RunID
	o.ready = false

	o.logger.Info("Training started.",
		observability.RunID(res.RunID),
		zap.Int("max_episodes", o.cfg.MaxEpisodes),
		zap.Int("max_steps", o.cfg.MaxSteps),
		observability.Epsilon(o.agent.Epsilon()))

	successes := make([]bool, 0, o.cfg.MaxEpisodes)
	for i := 0; i < o.cfg.MaxEpisodes; i++ {
		rec, err := o.runEpisode(ctx, true)
		if err != nil {
			if ctx.Err() != nil {
				res.Interrupted = true
				o.logger.Warn("Training interrupted.", observability.RunID(res.RunID), zap.Int("completed", res.Episodes))
				break
			}
			return res, err
		}
		res.Episodes++
		res.Records = append(res.Records, rec)
		successes = append(successes, rec.Success)

		if o.cfg.Mastery.Mastered(successes) {
			res.Mastered = true
			o.logger.Info("Mastery reached.", observability.RunID(res.RunID), zap.Int("episodes", res.Episodes))
			break
		}
	}

	o.logger.Info("Training finished.",
		observability.RunID(res.RunID),
		zap.Int("episodes", res.Episodes),
		zap.Int("successes", res.Successes()),
		zap.Bool("mastered", res.Mastered),
		zap.Int("known_pairs", o.agent.KnownPairs()))
	return res, nil
}

// RunEpisode runs a single learning episode. An interrupted episode is not
// recorded and returns the context error.
func (o *Orchestrator) RunEpisode(ctx context.Context) (learning.EpisodeRecord, error) {
	return o.runEpisode(ctx, true)
}

// Evaluate runs greedy episodes with exploration switched off and learning
// disabled. The agent's epsilon is restored afterwards and nothing is
// recorded in its statistics.
func (o *Orchestrator) Evaluate(ctx context.Context, episodes int) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	o.runID = res.RunID

	saved := o.agent.Epsilon()
	o.agent.SetEpsilon(0)
	defer o.agent.SetEpsilon(saved)

	for i := 0; i < episodes; i++ {
		rec, err := o.runEpisode(ctx, false)
		if err != nil {
			if ctx.Err() != nil {
				res.Interrupted = true
				break
			}
			return res, err
		}
		rec.Episode = i + 1
		res.Episodes++
		res.Records = append(res.Records, rec)
		o.logger.Info("Evaluation episode finished.",
			observability.RunID(res.RunID),
			observability.Episode(rec.Episode),
			zap.Bool("success", rec.Success),
			zap.Int("steps", rec.Steps),
			observability.Reward(rec.TotalReward))
	}
	return res, nil
}

// Restore loads persisted knowledge into the agent. Failures are logged and
// training continues from an empty table.
func (o *Orchestrator) Restore(ctx context.Context) bool {
	k, err := o.knowledge.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			o.logger.Info("No saved knowledge, starting fresh.")
		} else {
			o.logger.Warn("Failed to load knowledge, starting fresh.", zap.Error(err))
		}
		return false
	}
	if err := o.agent.Restore(k); err != nil {
		o.logger.Warn("Saved knowledge is unusable, starting fresh.", zap.Error(err))
		return false
	}
	o.logger.Info("Knowledge restored.",
		zap.Int("states", len(k.Values)),
		zap.Int("episodes", k.Stats.Episodes),
		observability.Epsilon(k.Params.Epsilon))
	return true
}

// Persist saves the agent's knowledge under the current run ID.
func (o *Orchestrator) Persist(ctx context.Context) error {
	k := o.agent.Snapshot()
	k.RunID = o.runID
	if err := o.knowledge.Save(ctx, k); err != nil {
		return fmt.Errorf("failed to persist knowledge: %w", err)
	}
	return nil
}

func (o *Orchestrator) runEpisode(ctx context.Context, learn bool) (learning.EpisodeRecord, error) {
	if err := o.perceiver.Reset(ctx); err != nil {
		if ctx.Err() != nil {
			return learning.EpisodeRecord{}, ctx.Err()
		}
		if !o.ready {
			return learning.EpisodeRecord{}, fmt.Errorf("%w: %w", schemas.ErrEnvironmentInit, err)
		}
		return learning.EpisodeRecord{}, fmt.Errorf("failed to reset surface: %w", err)
	}
	o.ready = true
	if err := o.settle(ctx); err != nil {
		return learning.EpisodeRecord{}, err
	}

	o.phase = PhaseRunning
	defer func() { o.phase = PhaseIdle }()

	episode := o.agent.Stats().Episodes + 1
	logger := o.logger.With(observability.RunID(o.runID), observability.Episode(episode))

	snap := o.perceiver.Scan(ctx)
	var (
		total float64
		steps int
		term  learning.Termination
	)

	for term == "" {
		if err := ctx.Err(); err != nil {
			return learning.EpisodeRecord{}, err
		}
		if snap.Progress.Success {
			term = learning.TerminationSucceeded
			break
		}
		if steps >= o.cfg.MaxSteps {
			term = learning.TerminationExhausted
			break
		}

		state, legal := o.observe(snap, learn)
		if len(legal) == 0 {
			logger.Info("No legal actions, episode is stuck.", observability.State(state))
			term = learning.TerminationStuck
			break
		}
		var action schemas.Action
		if learn {
			action = o.agent.Act(state, legal)
		} else {
			action = o.agent.Greedy(state, legal)
		}

		outcome, err := o.actuator.Perform(ctx, action, snap)
		if err != nil {
			if ctx.Err() != nil {
				return learning.EpisodeRecord{}, ctx.Err()
			}
			return learning.EpisodeRecord{}, fmt.Errorf("actuator failed on %s: %w", action.ID(), err)
		}
		if err := o.perceiver.WaitStable(ctx); err != nil {
			if ctx.Err() != nil {
				return learning.EpisodeRecord{}, ctx.Err()
			}
			outcome = o.unsettled(outcome, action, snap, err, logger)
		}

		next := o.perceiver.Scan(ctx)
		r := o.cfg.Shaper.Shape(outcome.Reward, snap.Progress.Completion, next.Progress.Completion, next.Progress.Success)
		steps++
		hardFailure := outcome.Classification.Fatal() && !next.Progress.Success

		if learn {
			t := learning.Transition{
				State:    state,
				Action:   action,
				Reward:   r,
				Next:     learning.StateKey(next),
				Terminal: next.Progress.Success || hardFailure || steps >= o.cfg.MaxSteps,
			}
			if !t.Terminal {
				t.NextLegal = o.agent.Enumerate(next)
			}
			o.agent.Learn(t)
		}
		total += r

		logger.Debug("Step complete.",
			observability.Step(steps),
			observability.State(state),
			observability.Action(action),
			observability.Outcome(outcome),
			observability.Reward(r),
			observability.Progress(next.Progress.Completion))

		snap = next
		if hardFailure {
			logger.Warn("Action failed hard, ending episode.", observability.Action(action), zap.String("detail", outcome.Detail))
			term = learning.TerminationExhausted
		}
	}

	o.phase = terminalPhase[term]
	rec := learning.EpisodeRecord{
		TotalReward:   total,
		Steps:         steps,
		Success:       term == learning.TerminationSucceeded,
		FinalProgress: snap.Progress.Completion,
		Termination:   term,
		Epsilon:       o.agent.Epsilon(),
	}
	if learn {
		rec = o.agent.EndEpisode(rec)
		logger.Info("Episode finished.",
			zap.String("termination", string(term)),
			zap.Int("steps", steps),
			observability.Reward(total),
			observability.Progress(rec.FinalProgress),
			observability.Epsilon(o.agent.Epsilon()))
	}
	return rec, nil
}

// observe encodes snap and lists its legal actions. Evaluation uses the
// pure key so visit counts only reflect training.
func (o *Orchestrator) observe(snap schemas.Snapshot, learn bool) (string, []schemas.Action) {
	if learn {
		return o.agent.Observe(snap)
	}
	return learning.StateKey(snap), o.agent.Enumerate(snap)
}

// settle waits for the freshly reset surface. A surface that never goes
// quiet is still usable, so only cancellation is an error here.
func (o *Orchestrator) settle(ctx context.Context) error {
	if err := o.perceiver.WaitStable(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Warn("Surface did not settle after reset.", zap.Error(err))
	}
	return nil
}

// unsettled rewrites an outcome when the surface kept changing after the
// action. A hard failure is kept as is.
func (o *Orchestrator) unsettled(outcome schemas.Outcome, action schemas.Action, snap schemas.Snapshot, err error, logger *zap.Logger) schemas.Outcome {
	if !errors.Is(err, schemas.ErrActionTimeout) {
		logger.Warn("Waiting for the surface failed.", observability.Action(action), zap.Error(err))
		return outcome
	}
	if outcome.Classification.Fatal() {
		return outcome
	}
	el, _ := snap.Element(action.Target)
	return o.cfg.Table.Outcome(schemas.ClassTimeout, action, el, err.Error())
}
