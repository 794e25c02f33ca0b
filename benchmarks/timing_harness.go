// Package benchmarks provides named workloads and a harness that runs them
// through the pipeline simulator and reports timing results.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/pipeline"
	"github.com/sarchlab/pipesim/timing/thread"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Pipeline, Threading and Forwarding describe the configuration run
	Pipeline   string `json:"pipeline"`
	Threading  string `json:"threading"`
	Forwarding bool   `json:"forwarding"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// IPC is instructions per cycle
	IPC float64 `json:"ipc"`

	// StallCycles is the number of cycles with a Decode stall
	StallCycles uint64 `json:"stall_cycles"`

	// BubbleCycles is the number of cycles without a completion after the
	// first one
	BubbleCycles uint64 `json:"bubble_cycles"`

	// DataHazards is the number of stalls caused by RAW dependencies
	DataHazards uint64 `json:"data_hazards"`

	// StructuralStalls is the number of stalls on busy slots or issue width
	StructuralStalls uint64 `json:"structural_stalls"`

	// ResourceStalls is the number of stalls on functional units
	ResourceStalls uint64 `json:"resource_stalls"`

	// Forwards is the number of hazards resolved by forwarding
	Forwards uint64 `json:"forwards"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`

	// Err is set if the run did not drain
	Err string `json:"error,omitempty"`
}

// Benchmark defines a single workload.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is submitted as one instruction stream
	Program []insts.Instruction

	// Threads are registered as thread contexts and merged by the
	// configured multithreading mode
	Threads [][]insts.Instruction

	// Threading overrides the harness multithreading mode when set
	Threading *thread.Mode
}

// Size returns the number of instructions in the benchmark.
func (b Benchmark) Size() int {
	n := len(b.Program)
	for _, t := range b.Threads {
		n += len(t)
	}
	return n
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Sim is the simulator configuration used for each run
	Sim *core.Config

	// MaxCycles bounds each run; zero means no bound
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Sim:       core.DefaultConfig(),
		MaxCycles: 100000,
		Output:    os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Sim == nil {
		config.Sim = core.DefaultConfig()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.Run(bench, h.config.Sim))
	}

	return results
}

// RunMatrix executes every benchmark under every configuration.
func (h *Harness) RunMatrix(configs []*core.Config) []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks)*len(configs))

	for _, bench := range h.benchmarks {
		for _, config := range configs {
			results = append(results, h.Run(bench, config))
		}
	}

	return results
}

// Run executes a single benchmark under the given configuration.
func (h *Harness) Run(bench Benchmark, config *core.Config) BenchmarkResult {
	config = config.Clone()
	if bench.Threading != nil {
		config.Threading = *bench.Threading
	}

	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
		Pipeline:    config.Pipeline.String(),
		Threading:   config.Threading.String(),
		Forwarding:  config.Forwarding,
	}

	s, err := core.NewSimulatorChecked(core.WithConfig(config))
	if err != nil {
		result.Err = err.Error()
		return result
	}

	if err := s.SubmitProgram(bench.Program); err != nil {
		result.Err = err.Error()
		return result
	}
	for _, program := range bench.Threads {
		if _, err := s.AddThread(program); err != nil {
			result.Err = err.Error()
			return result
		}
	}

	start := time.Now()
	if err := s.Run(h.config.MaxCycles); err != nil {
		result.Err = err.Error()
	}
	result.WallTime = time.Since(start)

	stats := s.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.IPC = stats.IPC()
	result.StallCycles = stats.Stalls
	result.BubbleCycles = stats.BubbleCycles
	result.DataHazards = stats.DataHazards
	result.StructuralStalls = stats.StructuralStalls
	result.ResourceStalls = stats.ResourceStalls
	result.Forwards = stats.Forwards

	return result
}

// ConfigMatrix returns the scalar and superscalar configurations with and
// without forwarding, derived from base.
func ConfigMatrix(base *core.Config) []*core.Config {
	var configs []*core.Config
	for _, kind := range []pipeline.Kind{pipeline.KindScalar, pipeline.KindSuperscalar} {
		for _, forwarding := range []bool{false, true} {
			c := base.Clone()
			c.Pipeline = kind
			c.Forwarding = forwarding
			configs = append(configs, c)
		}
	}
	return configs
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== PipeSim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Configuration: %s, threading %s, forwarding %v\n",
			r.Pipeline, r.Threading, r.Forwarding)
		if r.Err != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Err)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  IPC:                  %.3f\n", r.IPC)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Bubble Cycles:        %d\n", r.BubbleCycles)

		if h.config.Verbose {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Hazards ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Data Hazards:         %d\n", r.DataHazards)
			_, _ = fmt.Fprintf(h.config.Output, "  Structural Stalls:    %d\n", r.StructuralStalls)
			_, _ = fmt.Fprintf(h.config.Output, "  Resource Stalls:      %d\n", r.ResourceStalls)
			_, _ = fmt.Fprintf(h.config.Output, "  Forwards:             %d\n", r.Forwards)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,pipeline,threading,forwarding,cycles,instructions,cpi,ipc,stalls,bubbles,data_hazards,structural_stalls,resource_stalls,forwards")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%s,%v,%d,%d,%.3f,%.3f,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Pipeline,
			r.Threading,
			r.Forwarding,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.IPC,
			r.StallCycles,
			r.BubbleCycles,
			r.DataHazards,
			r.StructuralStalls,
			r.ResourceStalls,
			r.Forwards,
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
