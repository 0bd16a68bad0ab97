// Package reporting exports training runs: a JSON summary, HTML learning
// curves and colored console tables.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/formrl/internal/config"
	"github.com/xkilldash9x/formrl/internal/learning"
	"github.com/xkilldash9x/formrl/internal/trainer"
)

// RunConfig is the slice of configuration that shaped a run.
type RunConfig struct {
	TargetURL     string          `json:"target_url"`
	MaxEpisodes   int             `json:"max_episodes"`
	MaxSteps      int             `json:"max_steps"`
	TerminalBonus float64         `json:"terminal_bonus"`
	Params        learning.Params `json:"params"`
}

// Episode is one point on the learning curve.
type Episode struct {
	Episode  int     `json:"episode"`
	Reward   float64 `json:"reward"`
	Steps    int     `json:"steps"`
	Success  bool    `json:"success"`
	Progress float64 `json:"progress"`
	Epsilon  float64 `json:"epsilon"`
}

// Summary is the exported record of a training run.
type Summary struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Mastered    bool             `json:"mastered"`
	Interrupted bool             `json:"interrupted"`
	Config      RunConfig        `json:"config"`
	Totals      learning.Summary `json:"totals"`
	// KnownPairs is the size of the value table at the end of the run.
	KnownPairs int       `json:"known_pairs"`
	Episodes   []Episode `json:"episodes"`
}

// NewSummary builds the summary of res. params are the agent's parameters
// at the start of the run.
func NewSummary(res trainer.Result, cfg *config.Config, params learning.Params, knownPairs int) Summary {
	stats := learning.Statistics{Episodes: len(res.Records), Records: res.Records}
	episodes := make([]Episode, len(res.Records))
	for i, rec := range res.Records {
		stats.Steps += rec.Steps
		episodes[i] = Episode{
			Episode:  rec.Episode,
			Reward:   rec.TotalReward,
			Steps:    rec.Steps,
			Success:  rec.Success,
			Progress: rec.FinalProgress,
			Epsilon:  rec.Epsilon,
		}
	}
	return Summary{
		RunID:       res.RunID,
		GeneratedAt: time.Now().UTC(),
		Mastered:    res.Mastered,
		Interrupted: res.Interrupted,
		Config: RunConfig{
			TargetURL:     cfg.Surface().TargetURL,
			MaxEpisodes:   cfg.Training().MaxEpisodes,
			MaxSteps:      cfg.Training().MaxSteps,
			TerminalBonus: cfg.Reward().TerminalBonus,
			Params:        params,
		},
		Totals:     stats.Summarize(),
		KnownPairs: knownPairs,
		Episodes:   episodes,
	}
}

// WriteJSON writes s to path, creating parent directories. A leading ~ is
// expanded.
func WriteJSON(path string, s Summary) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand summary path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", expanded, err)
	}
	return nil
}

// ReadJSON loads a summary written by WriteJSON.
func ReadJSON(path string) (Summary, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to expand summary path %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read summary %s: %w", expanded, err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("failed to decode summary %s: %w", expanded, err)
	}
	return s, nil
}
