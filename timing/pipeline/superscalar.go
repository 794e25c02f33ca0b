package pipeline

import (
	"errors"
	"fmt"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/latency"
)

// SuperscalarConfig holds configuration for the superscalar engine.
type SuperscalarConfig struct {
	// IssueWidth is the maximum number of instructions that enter Execute
	// per cycle.
	IssueWidth int `json:"issue_width"`
	// FetchWidth is the capacity of the Fetch stage and the maximum number
	// of instructions admitted per cycle. There are two decode lanes, so at
	// most two instructions move to decode per cycle.
	FetchWidth int `json:"fetch_width"`
	// UnitLimits bounds the number of Execute occupants per unit class.
	UnitLimits map[insts.UnitClass]int `json:"unit_limits"`
}

// DefaultSuperscalarConfig returns the dual-issue configuration.
func DefaultSuperscalarConfig() SuperscalarConfig {
	return SuperscalarConfig{
		IssueWidth: 2,
		FetchWidth: 2,
		UnitLimits: map[insts.UnitClass]int{
			insts.UnitClassALU: 2,
			insts.UnitClassMUL: 1,
			insts.UnitClassLSU: 1,
			insts.UnitClassBRU: 1,
		},
	}
}

// Limit returns the Execute occupancy limit for a unit class.
func (c SuperscalarConfig) Limit(class insts.UnitClass) int {
	if n, ok := c.UnitLimits[class]; ok {
		return n
	}
	return 1
}

// Validate checks that the configuration values are usable.
func (c SuperscalarConfig) Validate() error {
	var errs []error
	if c.IssueWidth < 1 {
		errs = append(errs, fmt.Errorf("issue_width must be at least 1, got %d", c.IssueWidth))
	}
	if c.FetchWidth < 1 || c.FetchWidth > 2 {
		errs = append(errs, fmt.Errorf("fetch_width must be 1 or 2, got %d", c.FetchWidth))
	}
	for class, n := range c.UnitLimits {
		if n < 1 {
			errs = append(errs, fmt.Errorf("unit limit for %s must be at least 1, got %d", class, n))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of the configuration.
func (c SuperscalarConfig) Clone() SuperscalarConfig {
	out := c
	if c.UnitLimits != nil {
		out.UnitLimits = make(map[insts.UnitClass]int, len(c.UnitLimits))
		for k, v := range c.UnitLimits {
			out.UnitLimits[k] = v
		}
	}
	return out
}

// SuperscalarPipeline is an in-order dual-issue pipeline with stages
// IF, DE, DE2, EX and WB. Decode has two lanes; issue is bounded by the
// issue width, by functional unit instances and by unit-class limits.
type SuperscalarPipeline struct {
	base
}

// NewSuperscalarPipeline creates a superscalar pipeline engine.
func NewSuperscalarPipeline(opts ...Option) *SuperscalarPipeline {
	return &SuperscalarPipeline{base: newBase(opts)}
}

// Kind returns KindSuperscalar.
func (p *SuperscalarPipeline) Kind() Kind {
	return KindSuperscalar
}

// Config returns the issue configuration.
func (p *SuperscalarPipeline) Config() SuperscalarConfig {
	return p.superscalar.Clone()
}

func superscalarPriority(stage insts.Stage) int {
	switch stage {
	case insts.StageWriteback:
		return 0
	case insts.StageExecute:
		return 1
	case insts.StageDecode, insts.StageDecode2:
		return 2
	default:
		return 3
	}
}

// issueSlot tracks what has entered Execute in the current cycle.
type issueSlot struct {
	count  int
	thread int
}

// Tick advances the pipeline by one cycle.
func (p *SuperscalarPipeline) Tick() TickReport {
	s := p.state
	s.retire()
	if s.Idle() {
		return TickReport{Cycle: s.Stats.Cycles}
	}

	s.Stats.Cycles++
	report := TickReport{Cycle: s.Stats.Cycles, Advanced: true}

	before := s.view()
	executing := inStage(before, insts.StageExecute)
	ranks := s.Order.Ranks()
	s.order(superscalarPriority, ranks)

	var (
		issued issueSlot
		held   []*insts.Instruction
	)
	fetched := 0
	for _, inst := range s.Active {
		switch inst.Stage {
		case insts.StageExecute:
			p.tickExecute(inst, &report)
		case insts.StageDecode, insts.StageDecode2:
			if !p.tickIssue(inst, executing, held, ranks, &issued, &report) {
				held = append(held, inst)
			}
		case insts.StageFetch:
			p.tickFetch(inst, fetched, executing, ranks)
			fetched++
		}
	}

	for s.count(insts.StageFetch) < p.superscalar.FetchWidth {
		inst, ok := s.dequeue()
		if !ok {
			break
		}
		p.latency.Assign(&inst, latencyMode(KindSuperscalar))
		s.admit(inst)
	}

	p.finishCycle(KindSuperscalar.Stages(), &report)
	p.checkInvariants(KindSuperscalar, p.superscalar.UnitLimits)

	return report
}

func (p *SuperscalarPipeline) tickExecute(inst *insts.Instruction, report *TickReport) {
	if inst.RemainingLatency > 0 {
		inst.RemainingLatency--
	}
	if inst.RemainingLatency > 0 {
		return
	}
	inst.Stage = insts.StageWriteback
	p.state.Stats.Instructions++
	report.Retired = append(report.Retired, inst.Clone())
}

// tickIssue tries to move a decode occupant into Execute and reports
// whether it moved. Decode occupants are visited oldest first; held lists
// the older ones that stayed in decode this cycle. A sibling that issues in
// the same cycle is not a producer, but one that stays behind is.
func (p *SuperscalarPipeline) tickIssue(
	inst *insts.Instruction,
	executing []*insts.Instruction,
	held []*insts.Instruction,
	ranks map[uint64]int,
	issued *issueSlot,
	report *TickReport,
) bool {
	s := p.state
	hazards := p.dependencies(inst, executing, ranks)
	hazards.Blocking = append(hazards.Blocking, p.hazards.Analyze(inst, held).Blocking...)
	inst.Dependencies = hazards.Blocking

	switch {
	case len(hazards.Blocking) > 0:
		s.Stats.DataHazards++
	case issued.count >= p.superscalar.IssueWidth:
		s.Stats.StructuralStalls++
	case issued.count > 0 && issued.thread != inst.ThreadID &&
		!p.threading.AllowsCrossThreadIssue():
		s.Stats.StructuralStalls++
	case p.unitBusy(inst.Unit):
		s.Stats.ResourceStalls++
	case p.classCount(inst.Unit.Class()) >= p.superscalar.Limit(inst.Unit.Class()):
		s.Stats.ResourceStalls++
	default:
		inst.Stage = insts.StageExecute
		inst.RemainingLatency = inst.Latency
		inst.Dependencies = nil
		s.Stats.Forwards += uint64(len(hazards.Forwarded))
		issued.count++
		issued.thread = inst.ThreadID
		return true
	}

	report.Stalled = append(report.Stalled, inst.Clone())
	return false
}

// tickFetch moves the oldest Fetch occupant to DE and the next to DE2.
func (p *SuperscalarPipeline) tickFetch(
	inst *insts.Instruction,
	position int,
	executing []*insts.Instruction,
	ranks map[uint64]int,
) {
	var lane insts.Stage
	switch position {
	case 0:
		lane = insts.StageDecode
	case 1:
		lane = insts.StageDecode2
	default:
		return
	}

	if p.state.occupied(lane) {
		return
	}
	inst.Stage = lane
	inst.Dependencies = p.dependencies(inst, executing, ranks).Blocking
}

func (p *SuperscalarPipeline) unitBusy(unit insts.Unit) bool {
	for _, other := range p.state.Active {
		if other.Stage == insts.StageExecute && other.Unit == unit {
			return true
		}
	}
	return false
}

func (p *SuperscalarPipeline) classCount(class insts.UnitClass) int {
	n := 0
	for _, other := range p.state.Active {
		if other.Stage == insts.StageExecute && other.Unit.Class() == class {
			n++
		}
	}
	return n
}

func inStage(list []*insts.Instruction, stage insts.Stage) []*insts.Instruction {
	var out []*insts.Instruction
	for _, inst := range list {
		if inst.Stage == stage {
			out = append(out, inst)
		}
	}
	return out
}

func latencyMode(kind Kind) latency.Mode {
	if kind == KindSuperscalar {
		return latency.Superscalar
	}
	return latency.Scalar
}
