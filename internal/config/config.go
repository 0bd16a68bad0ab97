// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/formrl/internal/reward"
)

// Interface defines the contract for accessing application configuration.
// Components depend on it rather than on *Config so tests can hand in fakes.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Surface() SurfaceConfig
	Learning() LearningConfig
	Training() TrainingConfig
	Reward() RewardConfig
	Persistence() PersistenceConfig
	Database() DatabaseConfig

	SetSurfaceTargetURL(string)
	SetBrowserHeadless(bool)
	SetTrainingMaxEpisodes(int)
	SetTrainingMaxSteps(int)
	SetPersistencePath(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	SurfaceCfg     SurfaceConfig     `mapstructure:"surface" yaml:"surface"`
	LearningCfg    LearningConfig    `mapstructure:"learning" yaml:"learning"`
	TrainingCfg    TrainingConfig    `mapstructure:"training" yaml:"training"`
	RewardCfg      RewardConfig      `mapstructure:"reward" yaml:"reward"`
	PersistenceCfg PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`
	DatabaseCfg    DatabaseConfig    `mapstructure:"database" yaml:"database"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) Surface() SurfaceConfig         { return c.SurfaceCfg }
func (c *Config) Learning() LearningConfig       { return c.LearningCfg }
func (c *Config) Training() TrainingConfig       { return c.TrainingCfg }
func (c *Config) Reward() RewardConfig           { return c.RewardCfg }
func (c *Config) Persistence() PersistenceConfig { return c.PersistenceCfg }
func (c *Config) Database() DatabaseConfig       { return c.DatabaseCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetSurfaceTargetURL(u string) { c.SurfaceCfg.TargetURL = u }
func (c *Config) SetBrowserHeadless(b bool)    { c.BrowserCfg.Headless = b }
func (c *Config) SetTrainingMaxEpisodes(n int) { c.TrainingCfg.MaxEpisodes = n }
func (c *Config) SetTrainingMaxSteps(n int)    { c.TrainingCfg.MaxSteps = n }
func (c *Config) SetPersistencePath(p string)  { c.PersistenceCfg.Path = p }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how the Chrome instance is launched.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	DisableGPU      bool          `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	StartupTimeout  time.Duration `mapstructure:"startup_timeout" yaml:"startup_timeout"`
}

// SurfaceConfig describes the form under training and how to wait on it.
type SurfaceConfig struct {
	TargetURL string `mapstructure:"target_url" yaml:"target_url"`
	// SuccessSelector is visible once the goal has been reached.
	SuccessSelector string `mapstructure:"success_selector" yaml:"success_selector"`
	// ProgressFunction is a global JS function returning
	// {progress, isComplete}. Optional.
	ProgressFunction  string        `mapstructure:"progress_function" yaml:"progress_function"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	SettleTimeout     time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	QuietPeriod       time.Duration `mapstructure:"quiet_period" yaml:"quiet_period"`
	// ActionsPerSecond of 0 disables rate limiting.
	ActionsPerSecond float64 `mapstructure:"actions_per_second" yaml:"actions_per_second"`
}

// LearningConfig holds the Q-learning hyperparameters.
type LearningConfig struct {
	LearningRate   float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	DiscountFactor float64 `mapstructure:"discount_factor" yaml:"discount_factor"`
	Epsilon        float64 `mapstructure:"epsilon" yaml:"epsilon"`
	EpsilonDecay   float64 `mapstructure:"epsilon_decay" yaml:"epsilon_decay"`
	EpsilonMin     float64 `mapstructure:"epsilon_min" yaml:"epsilon_min"`
	HistorySize    int     `mapstructure:"history_size" yaml:"history_size"`
	// Seed of 0 seeds from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// TrainingConfig bounds a training run.
type TrainingConfig struct {
	MaxEpisodes int           `mapstructure:"max_episodes" yaml:"max_episodes"`
	MaxSteps    int           `mapstructure:"max_steps" yaml:"max_steps"`
	Mastery     MasteryConfig `mapstructure:"mastery" yaml:"mastery"`
}

// MasteryConfig is the stopping rule evaluated after every episode.
type MasteryConfig struct {
	MinEpisodes int     `mapstructure:"min_episodes" yaml:"min_episodes"`
	Streak      int     `mapstructure:"streak" yaml:"streak"`
	Window      int     `mapstructure:"window" yaml:"window"`
	Rate        float64 `mapstructure:"rate" yaml:"rate"`
}

// RewardConfig parameterises the reward shaper.
type RewardConfig struct {
	TerminalBonus     float64 `mapstructure:"terminal_bonus" yaml:"terminal_bonus"`
	RegressionPenalty float64 `mapstructure:"regression_penalty" yaml:"regression_penalty"`
	ProgressScale     float64 `mapstructure:"progress_scale" yaml:"progress_scale"`
}

// PersistenceConfig selects where learned knowledge lives.
type PersistenceConfig struct {
	// Backend is "file" or "postgres".
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
	// Name keys the snapshot row when the postgres backend is used.
	Name        string `mapstructure:"name" yaml:"name"`
	SummaryPath string `mapstructure:"summary_path" yaml:"summary_path"`
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a configuration object populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formrl")
	v.SetDefault("logger.log_file", "formrl.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.startup_timeout", "30s")

	// -- Surface --
	v.SetDefault("surface.target_url", "")
	v.SetDefault("surface.success_selector", "#successPanel")
	v.SetDefault("surface.progress_function", "checkFormState")
	v.SetDefault("surface.navigation_timeout", "30s")
	v.SetDefault("surface.action_timeout", "5s")
	v.SetDefault("surface.settle_timeout", "5s")
	v.SetDefault("surface.poll_interval", "100ms")
	v.SetDefault("surface.quiet_period", "300ms")
	v.SetDefault("surface.actions_per_second", 0)

	// -- Learning --
	v.SetDefault("learning.learning_rate", 0.15)
	v.SetDefault("learning.discount_factor", 0.95)
	v.SetDefault("learning.epsilon", 0.4)
	v.SetDefault("learning.epsilon_decay", 0.95)
	v.SetDefault("learning.epsilon_min", 0.01)
	v.SetDefault("learning.history_size", 10000)
	v.SetDefault("learning.seed", 0)

	// -- Training --
	v.SetDefault("training.max_episodes", 15)
	v.SetDefault("training.max_steps", 12)
	v.SetDefault("training.mastery.min_episodes", 5)
	v.SetDefault("training.mastery.streak", 3)
	v.SetDefault("training.mastery.window", 10)
	v.SetDefault("training.mastery.rate", 0.8)

	// -- Reward --
	v.SetDefault("reward.terminal_bonus", 500.0)
	v.SetDefault("reward.regression_penalty", -0.2)
	v.SetDefault("reward.progress_scale", 10.0)

	// -- Persistence --
	v.SetDefault("persistence.backend", "file")
	v.SetDefault("persistence.path", "~/.formrl/knowledge.json")
	v.SetDefault("persistence.name", "default")
	v.SetDefault("persistence.summary_path", "training_summary.json")

	// -- Database --
	v.SetDefault("database.url", "")
}

// NewConfigFromViper unmarshals a viper instance into a Config and validates it.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.BindEnv("database.url", "FORMRL_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Fall back to the conventional libpq variable.
	if cfg.DatabaseCfg.URL == "" {
		cfg.DatabaseCfg.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.LearningCfg.Validate(); err != nil {
		return err
	}
	if err := c.TrainingCfg.Validate(); err != nil {
		return err
	}
	if err := c.RewardCfg.Validate(c.TrainingCfg.MaxSteps); err != nil {
		return err
	}
	if err := c.SurfaceCfg.Validate(); err != nil {
		return err
	}
	switch c.PersistenceCfg.Backend {
	case "file":
		if c.PersistenceCfg.Path == "" {
			return fmt.Errorf("persistence.path is required for the file backend")
		}
	case "postgres":
		if c.PersistenceCfg.Name == "" {
			return fmt.Errorf("persistence.name is required for the postgres backend")
		}
	default:
		return fmt.Errorf("persistence.backend must be one of file, postgres (got %q)", c.PersistenceCfg.Backend)
	}
	return nil
}

// Validate checks the learning hyperparameters.
func (l LearningConfig) Validate() error {
	if l.LearningRate <= 0 || l.LearningRate > 1 {
		return fmt.Errorf("learning.learning_rate must be in (0, 1]")
	}
	if l.DiscountFactor < 0 || l.DiscountFactor > 1 {
		return fmt.Errorf("learning.discount_factor must be in [0, 1]")
	}
	if l.Epsilon < 0 || l.Epsilon > 1 {
		return fmt.Errorf("learning.epsilon must be in [0, 1]")
	}
	if l.EpsilonDecay <= 0 || l.EpsilonDecay > 1 {
		return fmt.Errorf("learning.epsilon_decay must be in (0, 1]")
	}
	if l.EpsilonMin < 0 || l.EpsilonMin > l.Epsilon {
		return fmt.Errorf("learning.epsilon_min must be in [0, learning.epsilon]")
	}
	if l.HistorySize < 0 {
		return fmt.Errorf("learning.history_size must not be negative")
	}
	return nil
}

// Validate checks the training bounds and mastery rule.
func (t TrainingConfig) Validate() error {
	if t.MaxEpisodes <= 0 {
		return fmt.Errorf("training.max_episodes must be a positive integer")
	}
	if t.MaxSteps <= 0 {
		return fmt.Errorf("training.max_steps must be a positive integer")
	}
	m := t.Mastery
	if m.MinEpisodes <= 0 || m.Streak <= 0 || m.Window <= 0 {
		return fmt.Errorf("training.mastery min_episodes, streak and window must be positive integers")
	}
	if m.Rate <= 0 || m.Rate > 1 {
		return fmt.Errorf("training.mastery.rate must be in (0, 1]")
	}
	return nil
}

// Validate checks the shaper parameters and that the terminal bonus outweighs
// the best non-terminal episode the shaper could produce in maxSteps steps.
func (r RewardConfig) Validate(maxSteps int) error {
	if r.ProgressScale <= 0 {
		return fmt.Errorf("reward.progress_scale must be positive")
	}
	if r.RegressionPenalty > 0 {
		return fmt.Errorf("reward.regression_penalty must not be positive")
	}
	shaper := reward.NewShaper(r.TerminalBonus, r.RegressionPenalty, r.ProgressScale)
	table := reward.DefaultTable()
	if !shaper.Dominates(table, maxSteps) {
		return fmt.Errorf("reward.terminal_bonus must exceed %.2f to dominate %d steps of shaped reward",
			float64(maxSteps)*shaper.MaxStepReward(table), maxSteps)
	}
	return nil
}

// Validate checks the surface timing settings.
func (s SurfaceConfig) Validate() error {
	if s.ActionTimeout <= 0 {
		return fmt.Errorf("surface.action_timeout must be positive")
	}
	if s.SettleTimeout <= 0 {
		return fmt.Errorf("surface.settle_timeout must be positive")
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("surface.poll_interval must be positive")
	}
	if s.QuietPeriod < 0 {
		return fmt.Errorf("surface.quiet_period must not be negative")
	}
	if s.ActionsPerSecond < 0 {
		return fmt.Errorf("surface.actions_per_second must not be negative")
	}
	return nil
}
