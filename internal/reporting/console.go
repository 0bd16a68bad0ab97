package reporting

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/logrusorgru/aurora"

	"github.com/xkilldash9x/formrl/internal/learning"
)

// PrintConsole writes a per-episode table of s followed by the run totals.
func PrintConsole(w io.Writer, s Summary, colors bool) error {
	au := aurora.NewAurora(colors)

	fmt.Fprintf(w, "%s %s\n", au.Bold("Training run"), s.RunID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EPISODE\tRESULT\tREWARD\tSTEPS\tPROGRESS\tEPSILON")
	for _, ep := range s.Episodes {
		result := au.Red("failed")
		if ep.Success {
			result = au.Green("success")
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%d\t%.0f%%\t%.3f\n",
			ep.Episode, result, ep.Reward, ep.Steps, ep.Progress, ep.Epsilon)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write episode table: %w", err)
	}

	t := s.Totals
	fmt.Fprintf(w, "\nEpisodes: %d  Steps: %d  Known pairs: %d\n", t.Episodes, t.Steps, s.KnownPairs)
	fmt.Fprintf(w, "Success rate: %s  Mean reward: %.2f (±%.2f)  Best: %.2f  Mean steps: %.1f\n",
		rate(au, t.SuccessRate), t.MeanReward, t.StdReward, t.BestReward, t.MeanSteps)
	verdict := au.Yellow("Episode limit reached without mastery.")
	switch {
	case s.Interrupted:
		verdict = au.Yellow("Run was interrupted.")
	case s.Mastered:
		verdict = au.Green("Mastery reached.")
	}
	if _, err := fmt.Fprintln(w, verdict); err != nil {
		return fmt.Errorf("failed to write run totals: %w", err)
	}
	return nil
}

func rate(au aurora.Aurora, r float64) aurora.Value {
	text := fmt.Sprintf("%.0f%%", r*100)
	switch {
	case r >= 0.8:
		return au.Green(text)
	case r >= 0.5:
		return au.Yellow(text)
	default:
		return au.Red(text)
	}
}

// PrintPolicy writes the best known action for every learned state, sorted
// by state key. limit of 0 prints everything.
func PrintPolicy(w io.Writer, k learning.Knowledge, limit int, colors bool) error {
	values, err := learning.ImportValues(k.Values)
	if err != nil {
		return fmt.Errorf("failed to read value table: %w", err)
	}
	au := aurora.NewAurora(colors)

	states := values.States()
	fmt.Fprintf(w, "%s %d states, %d pairs, epsilon %.3f\n",
		au.Bold("Knowledge:"), len(states), values.Len(), k.Params.Epsilon)
	if k.RunID != "" {
		fmt.Fprintf(w, "Last run: %s at %s\n", k.RunID, k.SavedAt.Format("2006-01-02 15:04:05"))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tVISITS\tBEST ACTION\tQ")
	for i, state := range states {
		if limit > 0 && i == limit {
			fmt.Fprintf(tw, "...\t\t%d more\t\n", len(states)-limit)
			break
		}
		best, q, _ := values.Best(state)
		value := au.Green(fmt.Sprintf("%.3f", q))
		if q < 0 {
			value = au.Red(fmt.Sprintf("%.3f", q))
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", au.Cyan(state), k.Visits[state], best.ID(), value)
	}
	return tw.Flush()
}
