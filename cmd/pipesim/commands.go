package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/sarchlab/pipesim/benchmarks"
	"github.com/sarchlab/pipesim/timing/core"
)

func newDemoCmd(o *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "demo [name]",
		Short: "Run a named workload, or list them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, b := range append(benchmarks.GetMicrobenchmarks(), benchmarks.GetDemos()...) {
					o.printf("%-22s %s\n", b.Name, b.Description)
				}
				return nil
			}

			bench, ok := benchmarks.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown demo %q", args[0])
			}

			config, err := o.simConfig(cmd)
			if err != nil {
				return err
			}
			if bench.Threading != nil {
				config.Threading = *bench.Threading
			}

			name := f.name
			if name == "" {
				name = bench.Name
			}

			return o.execute(config, f, name, func(s *core.Simulator) error {
				if err := s.SubmitProgram(bench.Program); err != nil {
					return err
				}
				for _, program := range bench.Threads {
					if _, err := s.AddThread(program); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newBenchCmd(o *options) *cobra.Command {
	var (
		format    string
		matrix    bool
		maxCycles uint64
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run every workload and report timing results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := o.simConfig(cmd)
			if err != nil {
				return err
			}

			hc := benchmarks.DefaultConfig()
			hc.Sim = config
			hc.MaxCycles = maxCycles
			hc.Output = o.out
			hc.Verbose = o.verbosity > 0

			harness := benchmarks.NewHarness(hc)
			harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
			harness.AddBenchmarks(benchmarks.GetDemos())

			var results []benchmarks.BenchmarkResult
			if matrix {
				results = harness.RunMatrix(benchmarks.ConfigMatrix(config))
			} else {
				results = harness.RunAll()
			}

			switch strings.ToLower(format) {
			case "text":
				harness.PrintResults(results)
			case "csv":
				harness.PrintCSV(results)
			case "json":
				return harness.PrintJSON(results)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, csv or json")
	cmd.Flags().BoolVar(&matrix, "matrix", false, "Run scalar and superscalar, with and without forwarding")
	cmd.Flags().Uint64Var(&maxCycles, "max-cycles", 100000, "Cycle bound per run")
	return cmd
}

func newLogsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the performance log",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := o.openLog()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				o.printf("No runs recorded.\n")
				return nil
			}

			o.printf("%-5s %-20s %-12s %-5s %-5s %8s %8s %8s %7s\n",
				"#", "name", "pipeline", "mt", "fwd", "cycles", "bubbles", "stalls", "IPC")
			for _, e := range entries {
				o.printf("%-5d %-20s %-12s %-5s %-5v %8d %8d %8d %7.3f\n",
					e.Seq, e.Name, e.Pipeline, e.Threading, e.Forwarding,
					e.Cycles, e.BubbleCycles, e.Stalls, e.IPC)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := o.openLog()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear()
			if err != nil {
				return err
			}
			o.printf("Cleared %d runs.\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

func newConfigCmd(o *options) *cobra.Command {
	var (
		savePath string
		diff     bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := o.simConfig(cmd)
			if err != nil {
				return err
			}

			if savePath != "" {
				if err := config.SaveConfig(savePath); err != nil {
					return err
				}
				o.printf("Saved %s\n", savePath)
				return nil
			}

			data, err := config.Marshal()
			if err != nil {
				return err
			}
			if !diff {
				o.printf("%s\n", data)
				return nil
			}

			defaults, err := core.DefaultConfig().Marshal()
			if err != nil {
				return err
			}
			delta, err := gojsondiff.New().Compare(defaults, data)
			if err != nil {
				return fmt.Errorf("failed to diff config: %w", err)
			}
			if !delta.Modified() {
				o.printf("Configuration matches the defaults.\n")
				return nil
			}

			var left map[string]any
			if err := json.Unmarshal(defaults, &left); err != nil {
				return fmt.Errorf("failed to diff config: %w", err)
			}
			text, err := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{}).Format(delta)
			if err != nil {
				return fmt.Errorf("failed to format config diff: %w", err)
			}
			o.printf("%s", text)
			return nil
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "Write the configuration to this path instead of printing it")
	cmd.Flags().BoolVar(&diff, "diff", false, "Show only the differences from the default configuration")
	return cmd
}
