package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/api/schemas"
	"github.com/xkilldash9x/formrl/internal/config"
)

const defaultNavigationTimeout = 30 * time.Second

// Perceiver reads the form in the session's tab.
type Perceiver struct {
	session *Session
	cfg     config.SurfaceConfig
	logger  *zap.Logger
}

var _ schemas.Perceiver = (*Perceiver)(nil)

// NewPerceiver observes the surface at cfg.TargetURL.
func NewPerceiver(session *Session, cfg config.SurfaceConfig, logger *zap.Logger) *Perceiver {
	return &Perceiver{session: session, cfg: cfg, logger: logger.Named("perceiver")}
}

// Scan harvests the visible controls and the progress signal. When the page
// cannot be read it returns an empty snapshot.
func (p *Perceiver) Scan(ctx context.Context) schemas.Snapshot {
	var raw rawSnapshot
	expr := script(harvestScript, p.cfg.SuccessSelector, p.cfg.ProgressFunction, idAttribute)
	if err := p.session.Evaluate(ctx, expr, &raw); err != nil {
		p.logger.Warn("Failed to scan surface.", zap.Error(err))
		return schemas.EmptySnapshot()
	}
	snap := raw.toSnapshot()
	p.logger.Debug("Surface scanned.",
		zap.Int("elements", len(snap.Elements)),
		zap.Float64("completion", snap.Progress.Completion),
		zap.Bool("success", snap.Progress.Success))
	return snap
}

// Reset reloads the target page.
func (p *Perceiver) Reset(ctx context.Context) error {
	timeout := p.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.session.Run(navCtx, chromedp.Navigate(p.cfg.TargetURL)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %s timed out after %v: %w", p.cfg.TargetURL, timeout, navCtx.Err())
		}
		return fmt.Errorf("navigation to %s failed: %w", p.cfg.TargetURL, err)
	}
	p.logger.Debug("Surface reset.", zap.String("url", p.cfg.TargetURL))
	return nil
}

// WaitStable blocks until the page has been quiet for the configured period.
func (p *Perceiver) WaitStable(ctx context.Context) error {
	probe := func(ctx context.Context) (string, error) {
		var sig string
		err := p.session.Evaluate(ctx, signatureScript, &sig)
		return sig, err
	}
	return waitQuiet(ctx, probe, p.cfg.PollInterval, p.cfg.QuietPeriod, p.cfg.SettleTimeout)
}
