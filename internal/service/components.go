// File: internal/service/components.go
package service

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/formrl/internal/browser"
	"github.com/xkilldash9x/formrl/internal/learning"
	"github.com/xkilldash9x/formrl/internal/observability"
	"github.com/xkilldash9x/formrl/internal/store"
	"github.com/xkilldash9x/formrl/internal/trainer"
)

// Components holds everything a training or evaluation run needs and owns
// their lifecycle.
type Components struct {
	Store   store.KnowledgeStore
	Agent   *learning.Agent
	Trainer *trainer.Orchestrator
	Session *browser.Session
	DBPool  *pgxpool.Pool
}

// Shutdown releases resources in reverse order of creation. It is safe to
// call on partially initialized components.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	if c.Session != nil {
		c.Session.Close()
		logger.Debug("Browser session closed.")
	}

	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("Database connection pool closed.")
	}

	logger.Info("All components shut down.")
}
