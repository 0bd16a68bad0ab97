// Package browser implements the Perceiver and Actuator over a Chrome tab
// driven through the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/api/schemas"
	"github.com/xkilldash9x/formrl/internal/config"
)

const defaultStartupTimeout = 30 * time.Second

// Session owns one Chrome process and the single tab training happens in.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger

	closeOnce sync.Once
}

// NewSession launches Chrome and opens a blank tab. Any failure here is
// reported as schemas.ErrEnvironmentInit.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("browser")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, ExecAllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)
	s := &Session{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
	}

	timeout := cfg.StartupTimeout
	if timeout <= 0 {
		timeout = defaultStartupTimeout
	}
	startCtx, startCancel := context.WithTimeout(ctx, timeout)
	defer startCancel()

	// The first Run starts the browser process and attaches to the tab.
	if err := s.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: failed to start browser: %w", schemas.ErrEnvironmentInit, err)
	}
	logger.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// Run executes actions in the session's tab. ctx bounds the operation; the
// tab context carries the DevTools connection.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Evaluate runs a script in the page and decodes its JSON result into res.
func (s *Session) Evaluate(ctx context.Context, expression string, res any) error {
	return s.Run(ctx, chromedp.Evaluate(expression, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
}

// Close shuts the tab and the browser process. It is safe to call twice.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil {
			s.logger.Debug("Browser did not close cleanly.", zap.Error(err))
		}
		s.cancel()
		s.allocCancel()
		s.logger.Info("Browser session closed.")
	})
}

// combineContext derives a context from primary (which carries values such
// as the chromedp target) that is also cancelled when secondary is done, and
// that inherits secondary's deadline.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	if deadline, ok := secondary.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		inner := cancel
		cancel = func() {
			cancelDeadline()
			inner()
		}
	}

	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
