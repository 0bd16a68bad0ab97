package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes the learning curves of s as a standalone HTML page.
func RenderHTML(w io.Writer, s Summary) error {
	xAxis := make([]string, len(s.Episodes))
	rewards := make([]opts.LineData, len(s.Episodes))
	steps := make([]opts.LineData, len(s.Episodes))
	progress := make([]opts.LineData, len(s.Episodes))
	epsilon := make([]opts.LineData, len(s.Episodes))
	successes := make([]opts.LineData, len(s.Episodes))

	wins := 0
	for i, ep := range s.Episodes {
		xAxis[i] = strconv.Itoa(ep.Episode)
		rewards[i] = opts.LineData{Value: ep.Reward}
		steps[i] = opts.LineData{Value: ep.Steps}
		progress[i] = opts.LineData{Value: ep.Progress}
		epsilon[i] = opts.LineData{Value: ep.Epsilon}
		if ep.Success {
			wins++
		}
		successes[i] = opts.LineData{Value: float64(wins) / float64(i+1)}
	}

	reward := charts.NewLine()
	reward.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Episode reward",
			Subtitle: fmt.Sprintf("run %s", s.RunID),
		}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	reward.SetXAxis(xAxis).AddSeries("reward", rewards)

	effort := charts.NewLine()
	effort.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Steps and progress"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	effort.SetXAxis(xAxis).
		AddSeries("steps", steps).
		AddSeries("final progress", progress)

	exploration := charts.NewLine()
	exploration.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Exploration and success rate"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	exploration.SetXAxis(xAxis).
		AddSeries("epsilon", epsilon).
		AddSeries("cumulative success rate", successes)

	page := components.NewPage()
	page.PageTitle = "formrl training"
	page.AddCharts(reward, effort, exploration)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	return nil
}
