// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "formrl", cfg.Logger().ServiceName)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser().StartupTimeout)
	assert.Equal(t, "#successPanel", cfg.Surface().SuccessSelector)
	assert.Equal(t, 100*time.Millisecond, cfg.Surface().PollInterval)
	assert.Equal(t, 0.15, cfg.Learning().LearningRate)
	assert.Equal(t, 0.4, cfg.Learning().Epsilon)
	assert.Equal(t, 10000, cfg.Learning().HistorySize)
	assert.Equal(t, 15, cfg.Training().MaxEpisodes)
	assert.Equal(t, 12, cfg.Training().MaxSteps)
	assert.Equal(t, 5, cfg.Training().Mastery.MinEpisodes)
	assert.Equal(t, 0.8, cfg.Training().Mastery.Rate)
	assert.Equal(t, -0.2, cfg.Reward().RegressionPenalty)
	assert.Equal(t, "file", cfg.Persistence().Backend)

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"zero learning rate", func(c *Config) { c.LearningCfg.LearningRate = 0 }, "learning.learning_rate must be in (0, 1]"},
		{"learning rate above one", func(c *Config) { c.LearningCfg.LearningRate = 1.5 }, "learning.learning_rate must be in (0, 1]"},
		{"negative discount", func(c *Config) { c.LearningCfg.DiscountFactor = -0.1 }, "learning.discount_factor must be in [0, 1]"},
		{"epsilon above one", func(c *Config) { c.LearningCfg.Epsilon = 2 }, "learning.epsilon must be in [0, 1]"},
		{"zero decay", func(c *Config) { c.LearningCfg.EpsilonDecay = 0 }, "learning.epsilon_decay must be in (0, 1]"},
		{"floor above epsilon", func(c *Config) { c.LearningCfg.EpsilonMin = 0.9 }, "learning.epsilon_min must be in [0, learning.epsilon]"},
		{"no episodes", func(c *Config) { c.TrainingCfg.MaxEpisodes = 0 }, "training.max_episodes must be a positive integer"},
		{"no steps", func(c *Config) { c.TrainingCfg.MaxSteps = -1 }, "training.max_steps must be a positive integer"},
		{"mastery rate", func(c *Config) { c.TrainingCfg.Mastery.Rate = 0 }, "training.mastery.rate must be in (0, 1]"},
		{"progress scale", func(c *Config) { c.RewardCfg.ProgressScale = 0 }, "reward.progress_scale must be positive"},
		{"positive penalty", func(c *Config) { c.RewardCfg.RegressionPenalty = 1 }, "reward.regression_penalty must not be positive"},
		{"bonus does not dominate", func(c *Config) { c.RewardCfg.TerminalBonus = 10 }, "reward.terminal_bonus must exceed"},
		{"long episodes outgrow bonus", func(c *Config) { c.TrainingCfg.MaxSteps = 1000 }, "reward.terminal_bonus must exceed"},
		{"action timeout", func(c *Config) { c.SurfaceCfg.ActionTimeout = 0 }, "surface.action_timeout must be positive"},
		{"poll interval", func(c *Config) { c.SurfaceCfg.PollInterval = 0 }, "surface.poll_interval must be positive"},
		{"unknown backend", func(c *Config) { c.PersistenceCfg.Backend = "s3" }, "persistence.backend must be one of file, postgres"},
		{"file without path", func(c *Config) { c.PersistenceCfg.Path = "" }, "persistence.path is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("postgres backend needs a name only", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.PersistenceCfg.Backend = "postgres"
		cfg.PersistenceCfg.Path = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
surface:
  target_url: "file:///tmp/form.html"
  settle_timeout: 2s
learning:
  learning_rate: 0.1
training:
  max_episodes: 40
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "file:///tmp/form.html", cfg.Surface().TargetURL)
		assert.Equal(t, 2*time.Second, cfg.Surface().SettleTimeout)
		assert.Equal(t, 0.1, cfg.Learning().LearningRate)
		assert.Equal(t, 40, cfg.Training().MaxEpisodes)
		// Defaults survive alongside file values.
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("learning.discount_factor", 3)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "learning.discount_factor")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
database:
  url: "postgres://configfile/db"
`)))

		t.Setenv("FORMRL_DATABASE_URL", "postgres://envvar/db")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "postgres://envvar/db", cfg.Database().URL)
	})
}

func TestSetters(t *testing.T) {
	var cfg Interface = NewDefaultConfig()
	cfg.SetSurfaceTargetURL("http://localhost:8000/form.html")
	cfg.SetBrowserHeadless(false)
	cfg.SetTrainingMaxEpisodes(3)
	cfg.SetTrainingMaxSteps(7)
	cfg.SetPersistencePath("/tmp/k.json")

	assert.Equal(t, "http://localhost:8000/form.html", cfg.Surface().TargetURL)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, 3, cfg.Training().MaxEpisodes)
	assert.Equal(t, 7, cfg.Training().MaxSteps)
	assert.Equal(t, "/tmp/k.json", cfg.Persistence().Path)
}
