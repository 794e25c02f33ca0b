package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/perflog"
	"github.com/sarchlab/pipesim/report"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

// runFlags holds the flags of commands that execute a workload.
type runFlags struct {
	maxCycles uint64
	freqMHz   float64
	htmlPath  string
	step      bool
	name      string
	noLog     bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.maxCycles, "max-cycles", 100000, "Stop if the pipeline has not drained after this many cycles")
	cmd.Flags().Float64Var(&f.freqMHz, "freq", 1000, "Simulated clock frequency in MHz")
	cmd.Flags().StringVar(&f.htmlPath, "html", "", "Write an HTML occupancy report to this path")
	cmd.Flags().BoolVar(&f.step, "step", false, "Print the pipeline after every cycle")
	cmd.Flags().StringVar(&f.name, "name", "", "Name recorded in the performance log")
	cmd.Flags().BoolVar(&f.noLog, "no-log", false, "Do not record the run in the performance log")
}

func newRunCmd(o *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <program> [program...]",
		Short: "Run text programs through the pipeline (\"-\" reads stdin)",
		Long: "Run text programs through the pipeline. Each file is one instruction\n" +
			"stream; lines tagged @t<N> are grouped into thread N, which keeps\n" +
			"N as its id in snapshots and the step view.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := o.simConfig(cmd)
			if err != nil {
				return err
			}

			decoder := insts.NewDecoder()
			decoder.Strict = config.StrictOps

			var program []insts.Instruction
			for _, path := range args {
				p, err := readProgram(decoder, path, cmd.InOrStdin())
				if err != nil {
					return err
				}
				program = append(program, p...)
			}

			name := f.name
			if name == "" {
				name = args[0]
			}

			return o.execute(config, f, name, func(s *core.Simulator) error {
				return load(s, program)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func readProgram(decoder *insts.Decoder, path string, stdin io.Reader) ([]insts.Instruction, error) {
	if path == "-" {
		return decoder.DecodeProgram(stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer file.Close()

	program, err := decoder.DecodeProgram(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return program, nil
}

// load submits untagged instructions as one stream and tagged ones as
// thread contexts that keep their tag as thread id.
func load(s *core.Simulator, program []insts.Instruction) error {
	var plain []insts.Instruction
	threads := map[int][]insts.Instruction{}
	for _, inst := range program {
		if inst.ThreadID == 0 {
			plain = append(plain, inst)
			continue
		}
		threads[inst.ThreadID] = append(threads[inst.ThreadID], inst)
	}

	if err := s.SubmitProgram(plain); err != nil {
		return err
	}

	ids := make([]int, 0, len(threads))
	for id := range threads {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, err := s.AddThreadWithID(id, threads[id]); err != nil {
			return err
		}
	}
	return nil
}

// execute builds a simulator, loads the workload, runs it to completion and
// reports the result.
func (o *options) execute(
	config *core.Config,
	f *runFlags,
	name string,
	loadWorkload func(*core.Simulator) error,
) error {
	trace := pipeline.NewTrace()
	s, err := core.NewSimulatorChecked(
		core.WithConfig(config),
		core.WithLogger(o.logger()),
		core.WithTrace(trace),
	)
	if err != nil {
		return err
	}

	if err := loadWorkload(s); err != nil {
		return err
	}

	if f.step {
		err = o.stepThrough(s, f.maxCycles)
	} else {
		_, err = core.RunToCompletion(s, sim.Freq(f.freqMHz)*sim.MHz, f.maxCycles)
	}
	if err != nil {
		return err
	}

	stats := s.Stats()
	o.printSummary(name, config, stats)

	if f.htmlPath != "" {
		if err := writeHTML(f.htmlPath, name, config.Pipeline, trace, stats); err != nil {
			return err
		}
		o.printf("Report: %s\n", f.htmlPath)
	}

	if f.noLog {
		return nil
	}
	return o.record(name, config, stats)
}

func (o *options) stepThrough(s *core.Simulator, maxCycles uint64) error {
	for cycle := uint64(0); ; cycle++ {
		if maxCycles > 0 && cycle >= maxCycles {
			return fmt.Errorf("pipeline did not drain within %d cycles", maxCycles)
		}
		tick := s.Tick()
		if !tick.Advanced {
			return nil
		}
		o.printf("--- cycle %d ---\n", tick.Cycle)
		o.printf("%s\n", reportTree(s))
	}
}

func reportTree(s *core.Simulator) string {
	return report.SnapshotTree(s.Snapshot())
}

func writeHTML(path, title string, kind pipeline.Kind, trace *pipeline.Trace, stats pipeline.Statistics) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer file.Close()

	return report.WriteHTML(file, title, kind, trace, stats)
}

func (o *options) printSummary(name string, config *core.Config, stats pipeline.Statistics) {
	o.printf("%s: %s pipeline, threading %s, forwarding %v\n",
		name, config.Pipeline, config.Threading, config.Forwarding)
	o.printf("  Cycles:        %d\n", stats.Cycles)
	o.printf("  Completed:     %d\n", stats.Instructions)
	o.printf("  IPC:           %.3f\n", stats.IPC())
	o.printf("  CPI:           %.3f\n", stats.CPI())
	o.printf("  Bubble cycles: %d\n", stats.BubbleCycles)
	o.printf("  Stall cycles:  %d\n", stats.Stalls)
	for _, stage := range config.Pipeline.Stages() {
		o.printf("  %-4s utilization: %.2f\n", stage, stats.Utilization(stage))
	}
}

func (o *options) record(name string, config *core.Config, stats pipeline.Statistics) error {
	store, err := o.openLog()
	if err != nil {
		return err
	}
	defer store.Close()

	entry := perflog.NewEntry(name, stats)
	entry.Pipeline = config.Pipeline.String()
	entry.Threading = config.Threading.String()
	entry.Forwarding = config.Forwarding

	seq, err := store.Add(entry)
	if err != nil {
		return err
	}
	o.printf("Logged as run #%d\n", seq)
	return nil
}
