package pipeline

import (
	"fmt"
	"slices"

	"github.com/sarchlab/pipesim/insts"
)

// checkInvariants panics if the state violates a structural rule of the
// pipeline. A violation is a defect in the engine, never a user error.
func (b *base) checkInvariants(kind Kind, limits map[insts.UnitClass]int) {
	stages := kind.Stages()
	counts := make(map[insts.Stage]int)
	classes := make(map[insts.UnitClass]int)

	for _, inst := range b.state.Active {
		if !slices.Contains(stages, inst.Stage) {
			panic(fmt.Sprintf("instruction %d in stage %s outside the %s pipeline",
				inst.ID, inst.Stage, kind))
		}
		if inst.Unit == insts.UnitNone {
			panic(fmt.Sprintf("instruction %d has no functional unit", inst.ID))
		}
		if inst.RemainingLatency > inst.Latency {
			panic(fmt.Sprintf("instruction %d remaining latency %d exceeds latency %d",
				inst.ID, inst.RemainingLatency, inst.Latency))
		}
		if inst.Stage == insts.StageExecute {
			if len(inst.Dependencies) > 0 {
				panic(fmt.Sprintf("instruction %d in EX with pending dependencies %v",
					inst.ID, inst.Dependencies))
			}
			if inst.Latency == 0 {
				panic(fmt.Sprintf("instruction %d in EX with zero latency", inst.ID))
			}
			classes[inst.Unit.Class()]++
		}
		counts[inst.Stage]++
	}

	if kind == KindScalar {
		for stage, n := range counts {
			if n > 1 {
				panic(fmt.Sprintf("scalar stage %s holds %d instructions", stage, n))
			}
		}
		return
	}

	if counts[insts.StageDecode] > 1 || counts[insts.StageDecode2] > 1 {
		panic(fmt.Sprintf("decode lane overflow: DE=%d DE2=%d",
			counts[insts.StageDecode], counts[insts.StageDecode2]))
	}
	for class, n := range classes {
		limit, ok := limits[class]
		if !ok {
			limit = 1
		}
		if n > limit {
			panic(fmt.Sprintf("%d %s instructions in EX, limit %d", n, class, limit))
		}
	}
}
