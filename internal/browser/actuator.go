package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/formrl/api/schemas"
	"github.com/xkilldash9x/formrl/internal/config"
	"github.com/xkilldash9x/formrl/internal/reward"
)

// runner is the part of a Session the Actuator needs.
type runner interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
	Evaluate(ctx context.Context, expression string, res any) error
}

// errSatisfied short-circuits an action whose effect is already in place.
var errSatisfied = errors.New("already satisfied")

// Actuator performs actions in the session's tab and prices the outcome.
type Actuator struct {
	session runner
	cfg     config.SurfaceConfig
	table   reward.Table
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ schemas.Actuator = (*Actuator)(nil)

// NewActuator acts in session. A positive cfg.ActionsPerSecond throttles
// actions.
func NewActuator(session *Session, cfg config.SurfaceConfig, table reward.Table, logger *zap.Logger) *Actuator {
	return newActuator(session, cfg, table, logger)
}

func newActuator(r runner, cfg config.SurfaceConfig, table reward.Table, logger *zap.Logger) *Actuator {
	a := &Actuator{session: r, cfg: cfg, table: table, logger: logger.Named("actuator")}
	if cfg.ActionsPerSecond > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), 1)
	}
	return a
}

// Perform executes action against the element it targets in snap. Expected
// failures come back as classified outcomes; the error is only set when ctx
// is cancelled.
func (a *Actuator) Perform(ctx context.Context, action schemas.Action, snap schemas.Snapshot) (schemas.Outcome, error) {
	if err := action.Validate(); err != nil {
		return a.table.Outcome(schemas.ClassInvalidAction, action, schemas.Element{}, err.Error()), nil
	}
	el, ok := snap.Element(action.Target)
	if !ok {
		return a.table.Outcome(schemas.ClassElementMissing, action, el, "not in the current snapshot"), nil
	}
	if !el.Enabled {
		return a.table.Outcome(schemas.ClassNotInteractable, action, el, "element is disabled"), nil
	}
	if !el.Can(action.Verb) {
		return a.table.Outcome(schemas.ClassNotInteractable, action, el,
			fmt.Sprintf("%s elements do not support %s", el.Category, action.Verb)), nil
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return schemas.Outcome{}, err
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, a.cfg.ActionTimeout)
	defer cancel()

	err := a.execute(opCtx, action, el)
	if err != nil && ctx.Err() != nil {
		return schemas.Outcome{}, ctx.Err()
	}

	var out schemas.Outcome
	switch {
	case err == nil:
		out = a.table.Outcome(schemas.ClassSuccess, action, el, "")
	case errors.Is(err, errSatisfied):
		out = a.table.Outcome(schemas.ClassAlreadySatisfied, action, el, "")
	case errors.Is(err, context.DeadlineExceeded):
		out = a.table.Outcome(schemas.ClassTimeout, action, el, err.Error())
	default:
		out = a.table.Outcome(schemas.ClassifyError(err), action, el, err.Error())
	}
	a.logger.Debug("Action performed.",
		zap.String("action", action.ID()),
		zap.String("class", string(out.Classification)),
		zap.Float64("reward", out.Reward))
	return out, nil
}

func (a *Actuator) execute(ctx context.Context, action schemas.Action, el schemas.Element) error {
	sel := selectorFor(el.ID)

	var live probeResult
	if err := a.session.Evaluate(ctx, script(probeScript, sel), &live); err != nil {
		return fmt.Errorf("probing %s: %w", el.ID, err)
	}
	if !live.Found {
		return fmt.Errorf("%w: %s", schemas.ErrElementMissing, el.ID)
	}
	if !live.Enabled {
		return fmt.Errorf("%w: %s is disabled", schemas.ErrNotInteractable, el.ID)
	}

	switch action.Verb {
	case schemas.VerbEnterText:
		text := readable(action.Payload)
		if strings.TrimSpace(live.Value) == text {
			return errSatisfied
		}
		if err := a.clear(ctx, sel); err != nil {
			return err
		}
		return a.session.Run(ctx,
			chromedp.ScrollIntoView(sel, chromedp.ByQuery),
			chromedp.SendKeys(sel, text, chromedp.ByQuery),
			chromedp.Blur(sel, chromedp.ByQuery),
		)

	case schemas.VerbReset:
		if strings.TrimSpace(live.Value) == "" {
			return errSatisfied
		}
		return a.clear(ctx, sel)

	case schemas.VerbChooseOption:
		option, changes := resolveOption(action.Payload, live.Value, el.Options)
		if !changes {
			if live.Value != "" {
				return errSatisfied
			}
			return fmt.Errorf("%w: %s has no selectable options", schemas.ErrNotInteractable, el.ID)
		}
		var ok bool
		if err := a.session.Evaluate(ctx, script(selectScript, sel, option), &ok); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s rejected option %q", schemas.ErrNotInteractable, el.ID, option)
		}
		return nil

	case schemas.VerbEnable, schemas.VerbDisable:
		if live.Checked == (action.Verb == schemas.VerbEnable) {
			return errSatisfied
		}
		return a.click(ctx, sel)

	case schemas.VerbActivate:
		if el.Category == schemas.CategoryRadio && live.Checked {
			return errSatisfied
		}
		return a.click(ctx, sel)
	}
	return fmt.Errorf("%w: unsupported verb %q", schemas.ErrInvalidAction, action.Verb)
}

func (a *Actuator) click(ctx context.Context, sel string) error {
	return a.session.Run(ctx,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
}

func (a *Actuator) clear(ctx context.Context, sel string) error {
	var cleared bool
	if err := a.session.Evaluate(ctx, script(clearScript, sel), &cleared); err != nil {
		return err
	}
	if !cleared {
		return fmt.Errorf("%w: could not clear %s", schemas.ErrNotInteractable, sel)
	}
	return nil
}
