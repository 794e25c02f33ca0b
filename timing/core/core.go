// Package core provides the pipeline simulator. It owns one pipeline
// engine, the thread contexts feeding it and the configuration, and exposes
// the tick, submit and snapshot interface.
package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
	"github.com/sarchlab/pipesim/timing/thread"
)

// Snapshot is a read-only view of the simulator.
type Snapshot struct {
	Pipeline   pipeline.Kind       `json:"pipeline"`
	Threading  thread.Mode         `json:"threading"`
	Forwarding bool                `json:"forwarding"`
	InFlight   []insts.Instruction `json:"in_flight"`
	Pending    []insts.Instruction `json:"pending"`
	Metrics    pipeline.Statistics `json:"metrics"`
	Threads    []*thread.Context   `json:"threads,omitempty"`
}

// InStage returns the snapshot's instructions in the given stage, oldest
// first.
func (s Snapshot) InStage(stage insts.Stage) []insts.Instruction {
	var out []insts.Instruction
	for _, inst := range s.InFlight {
		if inst.Stage == stage {
			out = append(out, inst)
		}
	}
	return out
}

// Option is a functional option for configuring a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithConfig sets the configuration. The config is copied.
func WithConfig(config *Config) Option {
	return func(s *Simulator) {
		s.config = config.Clone()
	}
}

// WithTrace records per-cycle stage occupancy into trace. The trace is
// reset whenever the configuration changes.
func WithTrace(trace *pipeline.Trace) Option {
	return func(s *Simulator) {
		s.trace = trace
	}
}

// Simulator drives one pipeline engine cycle by cycle.
type Simulator struct {
	config  *Config
	engine  pipeline.Engine
	threads []*thread.Context
	trace   *pipeline.Trace
	logger  *slog.Logger
}

// NewSimulator creates a simulator. It panics if the configuration is
// invalid; use NewSimulatorChecked to get an error instead.
func NewSimulator(opts ...Option) *Simulator {
	s, err := NewSimulatorChecked(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSimulatorChecked creates a simulator, validating the configuration.
func NewSimulatorChecked(opts ...Option) (*Simulator, error) {
	s := &Simulator{
		config: DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	s.rebuild()
	return s, nil
}

// rebuild replaces the engine, and with it all simulation state.
func (s *Simulator) rebuild() {
	opts := []pipeline.Option{
		pipeline.WithLatencyTable(latency.NewTableWithConfig(s.config.Timing)),
		pipeline.WithForwarding(s.config.Forwarding),
		pipeline.WithThreading(s.config.Threading),
		pipeline.WithSuperscalar(s.config.Superscalar),
	}
	if s.trace != nil {
		s.trace.Reset()
		opts = append(opts, pipeline.WithTrace(s.trace))
	}

	s.engine = pipeline.New(s.config.Pipeline, opts...)
	s.threads = nil
}

// reconfigure applies a configuration change. In-flight work, pending
// work, threads and metrics are discarded.
func (s *Simulator) reconfigure(what string, apply func(*Config)) {
	state := s.engine.State()
	dropped := len(state.Active) + len(state.Pending)

	apply(s.config)
	s.rebuild()

	s.logger.Info("configuration changed",
		"setting", what,
		"pipeline", s.config.Pipeline,
		"threading", s.config.Threading,
		"forwarding", s.config.Forwarding,
		"dropped", dropped)
}

// Config returns a copy of the current configuration.
func (s *Simulator) Config() *Config {
	return s.config.Clone()
}

// SetPipelineType switches between the scalar and the superscalar engine.
func (s *Simulator) SetPipelineType(kind pipeline.Kind) {
	s.reconfigure("pipeline", func(c *Config) { c.Pipeline = kind })
}

// SetPipelineTypeName is SetPipelineType for a textual pipeline name.
func (s *Simulator) SetPipelineTypeName(name string) error {
	kind, err := pipeline.ParseKind(name)
	if err != nil {
		return &ConfigurationError{Field: "pipeline type", Value: name, Err: err}
	}
	s.SetPipelineType(kind)
	return nil
}

// SetMultithreadingMode sets how thread contexts are merged and issued.
func (s *Simulator) SetMultithreadingMode(mode thread.Mode) {
	s.reconfigure("threading", func(c *Config) { c.Threading = mode })
}

// SetMultithreadingModeName is SetMultithreadingMode for a textual mode.
func (s *Simulator) SetMultithreadingModeName(name string) error {
	mode, err := thread.ParseMode(name)
	if err != nil {
		return &ConfigurationError{Field: "multithreading mode", Value: name, Err: err}
	}
	s.SetMultithreadingMode(mode)
	return nil
}

// SetForwarding enables or disables forwarding.
func (s *Simulator) SetForwarding(enabled bool) {
	s.reconfigure("forwarding", func(c *Config) { c.Forwarding = enabled })
}

// Submit enqueues one instruction and returns its id.
func (s *Simulator) Submit(inst insts.Instruction) (uint64, error) {
	if err := s.check(inst); err != nil {
		return 0, err
	}
	return s.engine.Submit(inst), nil
}

// SubmitProgram enqueues instructions in order. Nothing is enqueued if any
// instruction is rejected.
func (s *Simulator) SubmitProgram(program []insts.Instruction) error {
	for _, inst := range program {
		if err := s.check(inst); err != nil {
			return err
		}
	}
	for _, inst := range program {
		s.engine.Submit(inst)
	}
	return nil
}

func (s *Simulator) check(inst insts.Instruction) error {
	if s.config.StrictOps && inst.Op == insts.OpGeneric {
		return &ConfigurationError{
			Field: "operation",
			Value: inst.Name(),
			Err:   insts.ErrUnknownOp,
		}
	}
	return nil
}

// AddThread registers a thread context with the next free id. Its
// instructions are merged into the pending queue by the multithreading
// policy at the next tick.
func (s *Simulator) AddThread(program []insts.Instruction) (*thread.Context, error) {
	id := 1
	for _, t := range s.threads {
		if t.ID >= id {
			id = t.ID + 1
		}
	}
	return s.AddThreadWithID(id, program)
}

// AddThreadWithID registers a thread context under a caller-chosen id.
// Ids start at 1; 0 is the untagged instruction stream.
func (s *Simulator) AddThreadWithID(id int, program []insts.Instruction) (*thread.Context, error) {
	if id < 1 {
		return nil, &ConfigurationError{
			Field: "thread id",
			Value: fmt.Sprint(id),
			Err:   fmt.Errorf("thread ids start at 1"),
		}
	}
	for _, t := range s.threads {
		if t.ID == id {
			return nil, &ConfigurationError{
				Field: "thread id",
				Value: fmt.Sprint(id),
				Err:   fmt.Errorf("thread %d already registered", id),
			}
		}
	}

	for _, inst := range program {
		if err := s.check(inst); err != nil {
			return nil, err
		}
	}

	ctx := thread.NewContext(id, program)
	s.threads = append(s.threads, ctx)
	return ctx, nil
}

// Threads returns copies of the thread contexts.
func (s *Simulator) Threads() []*thread.Context {
	out := make([]*thread.Context, len(s.threads))
	for i, t := range s.threads {
		out[i] = t.Clone()
	}
	return out
}

// Tick advances the simulation by exactly one cycle.
func (s *Simulator) Tick() pipeline.TickReport {
	s.dispatch()

	report := s.engine.Tick()
	if !report.Advanced {
		return report
	}

	s.observe(report)

	s.logger.Log(context.Background(), LevelTrace, "tick",
		"cycle", report.Cycle,
		"retired", len(report.Retired),
		"stalled", len(report.Stalled))

	return report
}

// dispatch merges undispatched thread instructions into the pending queue.
func (s *Simulator) dispatch() {
	var ready []*thread.Context
	for _, t := range s.threads {
		if t.Remaining() > 0 {
			ready = append(ready, t)
		}
	}
	if len(ready) == 0 {
		return
	}

	merged := thread.Merge(s.config.Threading, ready, s.config.BMTBlockSize)
	for _, inst := range merged {
		s.engine.Submit(inst)
	}

	s.logger.Debug("threads dispatched",
		"threads", len(ready),
		"instructions", len(merged),
		"mode", s.config.Threading)
}

func (s *Simulator) observe(report pipeline.TickReport) {
	if len(s.threads) == 0 {
		return
	}

	retired := make(map[int]int)
	stalled := make(map[int]bool)
	for _, inst := range report.Retired {
		retired[inst.ThreadID]++
	}
	for _, inst := range report.Stalled {
		stalled[inst.ThreadID] = true
	}

	for _, t := range s.threads {
		before := t.State
		t.Observe(retired[t.ID], stalled[t.ID])
		if t.State != before && t.State == thread.StateCompleted {
			s.logger.Debug("thread completed",
				"thread", t.ID,
				"cycles", t.Metrics.CyclesExecuted,
				"instructions", t.Metrics.InstructionsCompleted)
		}
	}
}

// Drained returns true if nothing is in flight, pending or undispatched.
func (s *Simulator) Drained() bool {
	state := s.engine.State()
	for _, inst := range state.Active {
		if inst.Stage != insts.StageWriteback {
			return false
		}
	}
	if len(state.Pending) > 0 {
		return false
	}
	for _, t := range s.threads {
		if t.Remaining() > 0 {
			return false
		}
	}
	return true
}

// RunCycles ticks up to cycles times. It returns true if work remains.
func (s *Simulator) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles; i++ {
		if !s.Tick().Advanced {
			return false
		}
	}
	return !s.Drained()
}

// Run ticks until the pipeline drains. It fails if more than maxCycles
// cycles are needed; zero means no limit.
func (s *Simulator) Run(maxCycles uint64) error {
	start := s.engine.State().Stats.Cycles
	for s.Tick().Advanced {
		if maxCycles > 0 && s.engine.State().Stats.Cycles-start > maxCycles {
			return fmt.Errorf("pipeline did not drain within %d cycles", maxCycles)
		}
	}
	return nil
}

// Snapshot returns the current in-flight instructions, the pending queue
// and the cumulative metrics.
func (s *Simulator) Snapshot() Snapshot {
	state := s.engine.State()
	return Snapshot{
		Pipeline:   s.engine.Kind(),
		Threading:  s.engine.Threading(),
		Forwarding: s.engine.Forwarding(),
		InFlight:   state.InFlight(),
		Pending:    state.PendingQueue(),
		Metrics:    state.Stats.Clone(),
		Threads:    s.Threads(),
	}
}

// Stats returns the cumulative metrics.
func (s *Simulator) Stats() pipeline.Statistics {
	return s.engine.State().Stats.Clone()
}

// ClearInstructions drops every in-flight, pending and undispatched
// instruction. Metrics are kept.
func (s *Simulator) ClearInstructions() {
	s.engine.State().ClearInstructions()
	s.threads = nil
	s.logger.Info("instructions cleared")
}

// ClearMetrics resets the cumulative metrics and the attached trace.
// Instructions are kept.
func (s *Simulator) ClearMetrics() {
	s.engine.State().ClearMetrics()
	if s.trace != nil {
		s.trace.Reset()
	}
	for _, t := range s.threads {
		t.Metrics = thread.Metrics{}
	}
	s.logger.Info("metrics cleared")
}
