// Package report renders simulation results: HTML charts of a recorded
// trace and text trees of a snapshot.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/xlab/treeprint"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

// OccupancyChart plots the number of instructions in each stage per cycle.
func OccupancyChart(title string, stages []insts.Stage, trace *pipeline.Trace) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "Instructions per stage by cycle",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "cycle"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "instructions"}),
	)

	cycles := make([]string, len(trace.Records))
	for i, rec := range trace.Records {
		cycles[i] = fmt.Sprint(rec.Cycle)
	}
	line.SetXAxis(cycles)

	for _, stage := range stages {
		data := make([]opts.LineData, len(trace.Records))
		for i, rec := range trace.Records {
			data[i] = opts.LineData{Value: rec.Count(stage)}
		}
		line.AddSeries(stage.String(), data)
	}

	return line
}

// UtilizationChart plots the fraction of cycles each stage was occupied.
func UtilizationChart(title string, stages []insts.Stage, stats pipeline.Statistics) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Subtitle: fmt.Sprintf("%d cycles, %d instructions, IPC %.3f",
				stats.Cycles, stats.Instructions, stats.IPC()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "utilization", Max: 1}),
	)

	names := make([]string, len(stages))
	data := make([]opts.BarData, len(stages))
	for i, stage := range stages {
		names[i] = stage.String()
		data[i] = opts.BarData{Value: stats.Utilization(stage)}
	}
	bar.SetXAxis(names).AddSeries("utilization", data)

	return bar
}

// WriteHTML writes a page with the occupancy and utilization charts.
func WriteHTML(
	w io.Writer,
	title string,
	kind pipeline.Kind,
	trace *pipeline.Trace,
	stats pipeline.Statistics,
) error {
	stages := kind.Stages()

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		OccupancyChart(title, stages, trace),
		UtilizationChart(title+" utilization", stages, stats),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// SnapshotTree renders a snapshot as a stage to instruction tree.
func SnapshotTree(snap core.Snapshot) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("%s pipeline (threading %s, forwarding %v)",
		snap.Pipeline, snap.Threading, snap.Forwarding))

	for _, stage := range snap.Pipeline.Stages() {
		branch := tree.AddBranch(stage.String())
		for _, inst := range snap.InStage(stage) {
			branch.AddNode(describe(inst))
		}
	}

	if len(snap.Pending) > 0 {
		pending := tree.AddBranch(fmt.Sprintf("pending (%d)", len(snap.Pending)))
		for _, inst := range snap.Pending {
			pending.AddNode(fmt.Sprintf("#%d %s", inst.ID, inst))
		}
	}

	m := snap.Metrics
	metrics := tree.AddBranch("metrics")
	metrics.AddNode(fmt.Sprintf("cycles: %d", m.Cycles))
	metrics.AddNode(fmt.Sprintf("completed: %d", m.Instructions))
	metrics.AddNode(fmt.Sprintf("bubbles: %d", m.BubbleCycles))
	metrics.AddNode(fmt.Sprintf("stalls: %d", m.Stalls))
	metrics.AddNode(fmt.Sprintf("IPC: %.3f", m.IPC()))

	for _, t := range snap.Threads {
		tree.AddBranch(fmt.Sprintf("thread %d", t.ID)).
			AddNode(fmt.Sprintf("state: %s", t.State)).
			AddNode(fmt.Sprintf("pc: %d/%d", t.PC, len(t.Instructions))).
			AddNode(fmt.Sprintf("completed: %d", t.Metrics.InstructionsCompleted))
	}

	return tree.String()
}

func describe(inst insts.Instruction) string {
	s := fmt.Sprintf("#%d %s [%s", inst.ID, inst, inst.Unit)
	if inst.Stage == insts.StageExecute {
		s += fmt.Sprintf(" %d/%d", inst.RemainingLatency, inst.Latency)
	}
	s += "]"
	if len(inst.Dependencies) > 0 {
		s += fmt.Sprintf(" waits on %v", inst.Dependencies)
	}
	if inst.ThreadID > 0 {
		s += fmt.Sprintf(" t%d", inst.ThreadID)
	}
	return s
}
