// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/internal/browser"
	"github.com/xkilldash9x/formrl/internal/config"
	"github.com/xkilldash9x/formrl/internal/reward"
	"github.com/xkilldash9x/formrl/internal/trainer"
)

// ComponentFactory creates the set of components needed for a run. The
// abstraction keeps the commands testable without a browser.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

type sessionLauncher func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*browser.Session, error)

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct {
	launch sessionLauncher
}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{launch: browser.NewSession}
}

// Create handles the full dependency injection and initialization of run
// components.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	// Ensure cleanup happens if initialization fails midway.
	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Target
	if cfg.Surface().TargetURL == "" {
		initializationErr = fmt.Errorf("target URL is not configured (hint: pass --url or set FORMRL_SURFACE_TARGET_URL)")
		return nil, initializationErr
	}

	// 2. Knowledge store
	ks, pool, err := InitializeStore(ctx, cfg, logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.Store = ks
	components.DBPool = pool

	// 3. Agent
	agent, err := InitializeAgent(cfg.Learning(), logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to create agent: %w", err)
		return nil, initializationErr
	}
	components.Agent = agent
	logger.Debug("Agent created.")

	// 4. Browser session
	session, err := f.launch(ctx, cfg.Browser(), logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.Session = session

	// 5. Surface adapters
	perceiver := browser.NewPerceiver(session, cfg.Surface(), logger)
	actuator := browser.NewActuator(session, cfg.Surface(), reward.DefaultTable(), logger)

	// 6. Orchestrator
	orch, err := trainer.New(TrainerConfig(cfg), logger, perceiver, actuator, agent, ks)
	if err != nil {
		initializationErr = fmt.Errorf("failed to create orchestrator: %w", err)
		return nil, initializationErr
	}
	components.Trainer = orch

	logger.Info("All run components initialized successfully.",
		zap.String("target", cfg.Surface().TargetURL),
		zap.String("backend", cfg.Persistence().Backend))
	return components, nil
}
