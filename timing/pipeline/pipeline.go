// Package pipeline provides cycle-accurate scalar and superscalar pipeline
// engines driven one tick at a time.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/thread"
)

// Kind selects the pipeline organization.
type Kind uint8

// Pipeline kinds.
const (
	KindScalar Kind = iota
	KindSuperscalar
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSuperscalar:
		return "superscalar"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses a pipeline kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar", "escalar", "":
		return KindScalar, nil
	case "superscalar", "superescalar":
		return KindSuperscalar, nil
	default:
		return KindScalar, fmt.Errorf("unknown pipeline type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Stages returns the stages of the pipeline kind in pipeline order.
func (k Kind) Stages() []insts.Stage {
	if k == KindSuperscalar {
		return []insts.Stage{
			insts.StageFetch,
			insts.StageDecode,
			insts.StageDecode2,
			insts.StageExecute,
			insts.StageWriteback,
		}
	}
	return []insts.Stage{
		insts.StageFetch,
		insts.StageDecode,
		insts.StageExecute,
		insts.StageMemory,
		insts.StageWriteback,
	}
}

// TickReport describes what happened during one tick.
type TickReport struct {
	// Cycle is the cycle number after the tick.
	Cycle uint64
	// Advanced is false when the tick was a no-op on an empty pipeline.
	Advanced bool
	// Retired holds the instructions that entered Writeback this cycle.
	Retired []insts.Instruction
	// Stalled holds the instructions that stayed in Decode this cycle.
	Stalled []insts.Instruction
}

// Engine advances one pipeline organization a cycle at a time.
type Engine interface {
	// Kind returns the pipeline organization.
	Kind() Kind
	// Submit enqueues an instruction and returns its assigned id.
	Submit(inst insts.Instruction) uint64
	// Tick advances the simulation by exactly one cycle.
	Tick() TickReport
	// State exposes the simulation state owned by the engine.
	State() *State
	// Forwarding reports whether data forwarding is enabled.
	Forwarding() bool
	// Threading returns the multithreading mode the engine issues under.
	Threading() thread.Mode
	// Trace returns the occupancy trace, or nil if tracing is off.
	Trace() *Trace
}

// Option is a functional option for configuring an engine.
type Option func(*base)

// WithLatencyTable sets the table used for unit and latency assignment.
func WithLatencyTable(table *latency.Table) Option {
	return func(b *base) {
		b.latency = table
	}
}

// WithForwarding enables or disables data forwarding.
func WithForwarding(enabled bool) Option {
	return func(b *base) {
		b.hazards = NewHazardUnit(enabled)
	}
}

// WithThreading sets the multithreading mode. The superscalar engine only
// lets instructions of different threads issue together when the mode
// allows it.
func WithThreading(mode thread.Mode) Option {
	return func(b *base) {
		b.threading = mode
	}
}

// WithSuperscalar sets the superscalar issue configuration.
func WithSuperscalar(config SuperscalarConfig) Option {
	return func(b *base) {
		b.superscalar = config.Clone()
	}
}

// WithTrace records per-cycle stage occupancy into trace.
func WithTrace(trace *Trace) Option {
	return func(b *base) {
		b.trace = trace
	}
}

// New creates an engine of the given kind.
func New(kind Kind, opts ...Option) Engine {
	if kind == KindSuperscalar {
		return NewSuperscalarPipeline(opts...)
	}
	return NewScalarPipeline(opts...)
}

// base holds what both engines share.
type base struct {
	state       *State
	hazards     *HazardUnit
	latency     *latency.Table
	threading   thread.Mode
	superscalar SuperscalarConfig
	trace       *Trace
}

func newBase(opts []Option) base {
	b := base{
		state:       NewState(),
		hazards:     NewHazardUnit(false),
		latency:     latency.NewTable(),
		superscalar: DefaultSuperscalarConfig(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Submit enqueues an instruction at the tail of the pending queue.
func (b *base) Submit(inst insts.Instruction) uint64 {
	return b.state.enqueue(inst)
}

// State returns the simulation state.
func (b *base) State() *State {
	return b.state
}

// Forwarding reports whether data forwarding is enabled.
func (b *base) Forwarding() bool {
	return b.hazards.Forwarding()
}

// Threading returns the multithreading mode.
func (b *base) Threading() thread.Mode {
	return b.threading
}

// Trace returns the occupancy trace.
func (b *base) Trace() *Trace {
	return b.trace
}

// dependencies analyzes inst against the older instructions of the
// start-of-tick view.
func (b *base) dependencies(
	inst *insts.Instruction,
	before []*insts.Instruction,
	ranks map[uint64]int,
) HazardResult {
	return b.hazards.Analyze(inst, olderThan(inst, before, ranks))
}

// finishCycle updates the cycle-level metrics and the trace.
func (b *base) finishCycle(stages []insts.Stage, report *TickReport) {
	s := b.state
	for _, stage := range stages {
		if s.occupied(stage) {
			s.Stats.addOccupancy(stage)
		}
	}

	if len(report.Retired) > 0 {
		s.firstCompleted = true
	} else if s.firstCompleted {
		s.Stats.BubbleCycles++
	}

	if len(report.Stalled) > 0 {
		s.Stats.Stalls++
	}

	if b.trace != nil {
		b.trace.record(s)
	}
}

// olderThan returns the instructions admitted before inst.
func olderThan(
	inst *insts.Instruction,
	set []*insts.Instruction,
	ranks map[uint64]int,
) []*insts.Instruction {
	mine, ok := ranks[inst.ID]
	if !ok {
		mine = len(ranks)
	}

	var older []*insts.Instruction
	for _, other := range set {
		if r, ok := ranks[other.ID]; ok && r < mine {
			older = append(older, other)
		}
	}
	return older
}
