package pipeline

import "github.com/sarchlab/pipesim/insts"

// CycleRecord is the stage occupancy at the end of one cycle.
type CycleRecord struct {
	Cycle  uint64                   `json:"cycle"`
	Stages map[insts.Stage][]uint64 `json:"stages"`
}

// Count returns the number of instructions in the stage.
func (r CycleRecord) Count(stage insts.Stage) int {
	return len(r.Stages[stage])
}

// Trace is a per-cycle record of which instruction occupied which stage.
type Trace struct {
	Records []CycleRecord `json:"records"`
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// StageOf returns the stage the instruction occupied at the end of the
// given cycle.
func (t *Trace) StageOf(cycle, id uint64) (insts.Stage, bool) {
	for _, r := range t.Records {
		if r.Cycle != cycle {
			continue
		}
		for stage, ids := range r.Stages {
			for _, other := range ids {
				if other == id {
					return stage, true
				}
			}
		}
	}
	return 0, false
}

// Reset drops every record.
func (t *Trace) Reset() {
	t.Records = nil
}

func (t *Trace) record(s *State) {
	rec := CycleRecord{
		Cycle:  s.Stats.Cycles,
		Stages: make(map[insts.Stage][]uint64),
	}
	ranks := s.Order.Ranks()
	ordered := make([]*insts.Instruction, len(s.Active))
	copy(ordered, s.Active)
	sortByRank(ordered, ranks)
	for _, inst := range ordered {
		rec.Stages[inst.Stage] = append(rec.Stages[inst.Stage], inst.ID)
	}
	t.Records = append(t.Records, rec)
}
