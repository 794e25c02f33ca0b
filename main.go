// Package main provides the entry point for PipeSim.
// PipeSim is a cycle-accurate scalar and superscalar pipeline simulator
// built on Akita.
//
// For the full CLI, use: go run ./cmd/pipesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("PipeSim - Cycle-Accurate Pipeline Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: pipesim <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run        Run a text program through the pipeline")
	fmt.Println("  demo       Run a named workload, or list them")
	fmt.Println("  bench      Run every workload and report timing results")
	fmt.Println("  logs       List or clear the performance log")
	fmt.Println("  config     Print the effective configuration")
	fmt.Println("  profile    Measure simulator throughput")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/pipesim --help' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/pipesim' instead.")
	}
}
