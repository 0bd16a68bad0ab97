package learning

import (
	"gonum.org/v1/gonum/stat"
)

// Termination is how an episode ended.
type Termination string

const (
	TerminationSucceeded Termination = "succeeded"
	TerminationExhausted Termination = "exhausted"
	TerminationStuck     Termination = "stuck"
)

// EpisodeRecord summarises one completed episode. Records are immutable once
// appended to Statistics.
type EpisodeRecord struct {
	Episode       int         `json:"episode"`
	TotalReward   float64     `json:"total_reward"`
	Steps         int         `json:"steps"`
	Success       bool        `json:"success"`
	FinalProgress float64     `json:"final_progress"`
	Termination   Termination `json:"termination"`
	// Epsilon is the exploration rate the episode ran with.
	Epsilon float64 `json:"epsilon"`
}

// Statistics is the cumulative training record.
type Statistics struct {
	Episodes int             `json:"episodes"`
	Steps    int             `json:"steps"`
	Records  []EpisodeRecord `json:"records"`
}

func (s *Statistics) append(rec EpisodeRecord) {
	s.Episodes++
	s.Steps += rec.Steps
	s.Records = append(s.Records, rec)
}

func (s Statistics) clone() Statistics {
	out := s
	out.Records = append([]EpisodeRecord(nil), s.Records...)
	return out
}

// Successes returns the success flag of every recorded episode, in order.
func (s Statistics) Successes() []bool {
	out := make([]bool, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Success
	}
	return out
}

// Summary aggregates Statistics for reporting.
type Summary struct {
	Episodes    int     `json:"episodes"`
	Steps       int     `json:"steps"`
	SuccessRate float64 `json:"success_rate"`
	MeanReward  float64 `json:"mean_reward"`
	StdReward   float64 `json:"std_reward"`
	BestReward  float64 `json:"best_reward"`
	MeanSteps   float64 `json:"mean_steps"`
}

// Summarize computes aggregate figures over all records.
func (s Statistics) Summarize() Summary {
	sum := Summary{Episodes: s.Episodes, Steps: s.Steps}
	n := len(s.Records)
	if n == 0 {
		return sum
	}

	rewards := make([]float64, n)
	steps := make([]float64, n)
	successes := 0
	for i, r := range s.Records {
		rewards[i] = r.TotalReward
		steps[i] = float64(r.Steps)
		if r.Success {
			successes++
		}
		if i == 0 || r.TotalReward > sum.BestReward {
			sum.BestReward = r.TotalReward
		}
	}
	sum.SuccessRate = float64(successes) / float64(n)
	sum.MeanReward, sum.StdReward = stat.MeanStdDev(rewards, nil)
	sum.MeanSteps = stat.Mean(steps, nil)
	if n == 1 {
		// MeanStdDev is NaN for one sample.
		sum.StdReward = 0
	}
	return sum
}

// MasteryRule decides when training can stop.
type MasteryRule struct {
	MinEpisodes int
	Streak      int
	Window      int
	Rate        float64
}

// DefaultMasteryRule: at least five episodes, and either the last three
// succeeded or at least 80% of the last ten did.
func DefaultMasteryRule() MasteryRule {
	return MasteryRule{MinEpisodes: 5, Streak: 3, Window: 10, Rate: 0.8}
}

// Mastered evaluates the rule against a success history, oldest first.
func (r MasteryRule) Mastered(successes []bool) bool {
	n := len(successes)
	if n < r.MinEpisodes {
		return false
	}
	if n >= r.Streak && allTrue(successes[n-r.Streak:]) {
		return true
	}
	if n >= r.Window {
		return successRate(successes[n-r.Window:]) >= r.Rate
	}
	return false
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return true
}

func successRate(bs []bool) float64 {
	if len(bs) == 0 {
		return 0
	}
	hits := 0
	for _, b := range bs {
		if b {
			hits++
		}
	}
	return float64(hits) / float64(len(bs))
}
