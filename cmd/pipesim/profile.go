package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pipesim/benchmarks"
	"github.com/sarchlab/pipesim/timing/core"
)

func newProfileCmd(o *options) *cobra.Command {
	var (
		cpuProfile string
		memProfile string
		seed       int64
		size       int
		rounds     int
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Measure simulator throughput on random programs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := o.simConfig(cmd)
			if err != nil {
				return err
			}

			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return fmt.Errorf("failed to create CPU profile: %w", err)
				}
				defer func() { _ = f.Close() }()

				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("failed to start CPU profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			start := time.Now()
			var cycles, retired uint64
			for round := 0; round < rounds; round++ {
				s, err := core.NewSimulatorChecked(core.WithConfig(config))
				if err != nil {
					return err
				}
				if err := s.SubmitProgram(benchmarks.RandomProgram(seed+int64(round), size)); err != nil {
					return err
				}
				if err := s.Run(uint64(size) * 64); err != nil {
					return err
				}
				stats := s.Stats()
				cycles += stats.Cycles
				retired += stats.Instructions
			}
			elapsed := time.Since(start)

			if memProfile != "" {
				f, err := os.Create(memProfile)
				if err != nil {
					return fmt.Errorf("failed to create memory profile: %w", err)
				}
				defer func() { _ = f.Close() }()

				if err := pprof.WriteHeapProfile(f); err != nil {
					return fmt.Errorf("failed to write memory profile: %w", err)
				}
			}

			o.printf("Profiling Results:\n")
			o.printf("  Rounds:                %d\n", rounds)
			o.printf("  Simulated cycles:      %d\n", cycles)
			o.printf("  Instructions retired:  %d\n", retired)
			o.printf("  Elapsed time:          %v\n", elapsed)
			if elapsed > 0 {
				o.printf("  Cycles/second:         %.0f\n", float64(cycles)/elapsed.Seconds())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")
	cmd.Flags().StringVar(&memProfile, "memprofile", "", "Write a memory profile to this file")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed of the first random program")
	cmd.Flags().IntVar(&size, "size", 1000, "Instructions per program")
	cmd.Flags().IntVar(&rounds, "rounds", 10, "Number of programs to simulate")
	return cmd
}
