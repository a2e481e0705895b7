package status

import "testing"

func TestGuardSingleFlight(t *testing.T) {
	var g Guard
	if !g.TryEnter() {
		t.Fatal("first TryEnter should succeed")
	}
	if g.TryEnter() {
		t.Fatal("second concurrent TryEnter should be dropped")
	}
	g.Leave()
	if !g.TryEnter() {
		t.Fatal("TryEnter should succeed again after Leave")
	}
}

func TestRenderProgressChartEmpty(t *testing.T) {
	svg, err := RenderProgressChart(ProgressCounts{})
	if err != nil {
		t.Fatalf("RenderProgressChart: %v", err)
	}
	if len(svg) == 0 {
		t.Fatal("expected placeholder SVG for empty counts")
	}
}

func TestRenderProgressChartWithData(t *testing.T) {
	svg, err := RenderProgressChart(ProgressCounts{MainFrames: 2, MainFramesTotal: 3, ShardFrames: 1, ShardThreshold: 3})
	if err != nil {
		t.Fatalf("RenderProgressChart: %v", err)
	}
	if len(svg) == 0 {
		t.Fatal("expected non-empty SVG")
	}
}
