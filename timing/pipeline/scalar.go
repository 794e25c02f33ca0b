package pipeline

import "github.com/sarchlab/pipesim/insts"

// ScalarPipeline is a single-issue in-order 5-stage pipeline:
// IF, DE, EX, MEM and WB, each holding at most one instruction.
type ScalarPipeline struct {
	base
}

// NewScalarPipeline creates a scalar pipeline engine.
func NewScalarPipeline(opts ...Option) *ScalarPipeline {
	return &ScalarPipeline{base: newBase(opts)}
}

// Kind returns KindScalar.
func (p *ScalarPipeline) Kind() Kind {
	return KindScalar
}

func scalarPriority(stage insts.Stage) int {
	switch stage {
	case insts.StageWriteback:
		return 0
	case insts.StageMemory:
		return 1
	case insts.StageExecute:
		return 2
	case insts.StageDecode:
		return 3
	default:
		return 4
	}
}

// Tick advances the pipeline by one cycle. Instructions are processed
// downstream first so a slot freed this cycle can be refilled in the same
// cycle. Hazards are checked against the state at the start of the tick.
func (p *ScalarPipeline) Tick() TickReport {
	s := p.state
	s.retire()
	if s.Idle() {
		return TickReport{Cycle: s.Stats.Cycles}
	}

	s.Stats.Cycles++
	report := TickReport{Cycle: s.Stats.Cycles, Advanced: true}

	before := s.view()
	ranks := s.Order.Ranks()
	s.order(scalarPriority, ranks)

	for _, inst := range s.Active {
		switch inst.Stage {
		case insts.StageMemory:
			p.tickMemory(inst, &report)
		case insts.StageExecute:
			p.tickExecute(inst)
		case insts.StageDecode:
			p.tickDecode(inst, before, ranks, &report)
		case insts.StageFetch:
			p.tickFetch(inst, before, ranks)
		}
	}

	if !s.occupied(insts.StageFetch) {
		if inst, ok := s.dequeue(); ok {
			p.latency.Assign(&inst, latencyMode(KindScalar))
			s.admit(inst)
		}
	}

	p.finishCycle(KindScalar.Stages(), &report)
	p.checkInvariants(KindScalar, nil)

	return report
}

func (p *ScalarPipeline) tickMemory(inst *insts.Instruction, report *TickReport) {
	s := p.state
	if s.occupied(insts.StageWriteback) {
		return
	}
	inst.Stage = insts.StageWriteback
	s.Stats.Instructions++
	report.Retired = append(report.Retired, inst.Clone())
}

func (p *ScalarPipeline) tickExecute(inst *insts.Instruction) {
	if inst.RemainingLatency > 0 {
		inst.RemainingLatency--
	}
	if inst.RemainingLatency == 0 && !p.state.occupied(insts.StageMemory) {
		inst.Stage = insts.StageMemory
	}
}

func (p *ScalarPipeline) tickDecode(
	inst *insts.Instruction,
	before []*insts.Instruction,
	ranks map[uint64]int,
	report *TickReport,
) {
	s := p.state
	hazards := p.dependencies(inst, before, ranks)
	inst.Dependencies = hazards.Blocking

	switch {
	case len(hazards.Blocking) > 0:
		s.Stats.DataHazards++
	case s.occupied(insts.StageExecute):
		s.Stats.StructuralStalls++
	default:
		inst.Stage = insts.StageExecute
		inst.RemainingLatency = inst.Latency
		inst.Dependencies = nil
		s.Stats.Forwards += uint64(len(hazards.Forwarded))
		return
	}

	report.Stalled = append(report.Stalled, inst.Clone())
}

func (p *ScalarPipeline) tickFetch(
	inst *insts.Instruction,
	before []*insts.Instruction,
	ranks map[uint64]int,
) {
	if p.state.occupied(insts.StageDecode) {
		return
	}
	inst.Stage = insts.StageDecode
	inst.Dependencies = p.dependencies(inst, before, ranks).Blocking
}
