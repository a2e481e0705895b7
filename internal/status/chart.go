package status

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

// ProgressCounts is the subset of a session snapshot the progress chart
// visualizes: named counters against their declared totals.
type ProgressCounts struct {
	MainFrames      int
	MainFramesTotal int
	ShardFrames     int
	ShardThreshold  int
}

// RenderProgressChart renders a bar chart of frame-completion and shard
// quorum progress as SVG: one bar per named counter plus a zero-value
// baseline bar. When every counter is zero it returns a placeholder SVG
// instead of calling go-chart.
func RenderProgressChart(c ProgressCounts) ([]byte, error) {
	total := c.MainFrames + c.MainFramesTotal + c.ShardFrames + c.ShardThreshold
	// go-chart fails with "invalid data range; cannot be zero" when every bar
	// is 0 (nothing ingested yet); fall back to a placeholder SVG instead.
	if total == 0 {
		const noDataSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="256">` +
			`<text x="200" y="128" text-anchor="middle" font-size="16">No frames ingested yet</text>` +
			`</svg>`
		return []byte(noDataSVG), nil
	}

	bars := []chart.Value{
		{Value: 0, Label: "baseline"},
		{Value: float64(c.MainFrames), Label: "main frames"},
		{Value: float64(c.MainFramesTotal), Label: "main frames total"},
		{Value: float64(c.ShardFrames), Label: "shard frames"},
		{Value: float64(c.ShardThreshold), Label: "shard threshold"},
	}

	graph := chart.BarChart{
		Title: "Recovery progress",
		Background: chart.Style{
			Padding: chart.Box{
				Top:   40,
				Left:  10,
				Right: 10,
			},
		},
		Height:   256,
		BarWidth: 30,
		Bars:     bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("status: render progress chart: %w", err)
	}
	return buf.Bytes(), nil
}
