package pipeline

import "github.com/sarchlab/pipesim/insts"

// HazardResult is the outcome of analyzing one consumer against a set of
// producers.
type HazardResult struct {
	// Blocking holds the ids of producers the consumer must wait for.
	Blocking []uint64
	// Forwarded holds the ids of producers whose results can be forwarded.
	Forwarded []uint64
}

// HazardUnit detects read-after-write dependencies between a consumer and
// the older in-flight instructions.
type HazardUnit struct {
	forwarding bool
}

// NewHazardUnit creates a hazard unit.
func NewHazardUnit(forwarding bool) *HazardUnit {
	return &HazardUnit{forwarding: forwarding}
}

// Forwarding reports whether forwarding paths are enabled.
func (h *HazardUnit) Forwarding() bool {
	return h.forwarding
}

// DetectDependencies returns the ids of the producers in inFlight that
// inst must wait for. The caller passes only producers that precede inst
// in program order.
func (h *HazardUnit) DetectDependencies(
	inst *insts.Instruction,
	inFlight []*insts.Instruction,
) []uint64 {
	return h.Analyze(inst, inFlight).Blocking
}

// Analyze classifies every RAW hazard between inst and inFlight as either
// blocking or forwarded.
func (h *HazardUnit) Analyze(
	inst *insts.Instruction,
	inFlight []*insts.Instruction,
) HazardResult {
	var result HazardResult

	for _, producer := range inFlight {
		if producer.ID == inst.ID {
			continue
		}

		rd, ok := producer.Destination()
		if !ok || rd == 0 || !inst.Reads(rd) {
			continue
		}

		// The value is architecturally visible once the producer writes back.
		if producer.Stage == insts.StageWriteback {
			continue
		}

		if h.CanForward(producer) {
			result.Forwarded = append(result.Forwarded, producer.ID)
			continue
		}

		result.Blocking = append(result.Blocking, producer.ID)
	}

	return result
}

// CanForward reports whether the producer's result is available on a
// forwarding path this cycle: an ALU-class result in its last Execute
// cycle, or load data in Memory.
func (h *HazardUnit) CanForward(producer *insts.Instruction) bool {
	if !h.forwarding {
		return false
	}

	switch {
	case producer.Op.IsLoad():
		return producer.Stage == insts.StageMemory
	case producer.Op.IsALU():
		return producer.Stage == insts.StageExecute &&
			producer.RemainingLatency == 1
	default:
		return false
	}
}
