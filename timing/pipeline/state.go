package pipeline

import (
	"cmp"
	"slices"

	"github.com/sarchlab/pipesim/insts"
)

// IssueOrder is a FIFO record of admission order. It breaks ties between
// instructions contending for the same stage or unit.
type IssueOrder struct {
	ids []uint64
}

// Push records a newly admitted instruction.
func (q *IssueOrder) Push(id uint64) {
	q.ids = append(q.ids, id)
}

// Remove drops a retired instruction.
func (q *IssueOrder) Remove(id uint64) {
	if i := slices.Index(q.ids, id); i >= 0 {
		q.ids = slices.Delete(q.ids, i, i+1)
	}
}

// Ranks maps each recorded id to its position, oldest first.
func (q *IssueOrder) Ranks() map[uint64]int {
	ranks := make(map[uint64]int, len(q.ids))
	for i, id := range q.ids {
		ranks[id] = i
	}
	return ranks
}

// IDs returns the recorded ids, oldest first.
func (q *IssueOrder) IDs() []uint64 {
	return slices.Clone(q.ids)
}

// Len returns the number of recorded instructions.
func (q *IssueOrder) Len() int {
	return len(q.ids)
}

// Clear empties the queue.
func (q *IssueOrder) Clear() {
	q.ids = nil
}

// State is the simulation state owned by one engine: the in-flight set,
// the pending queue, the issue-order queue and the cumulative metrics.
type State struct {
	// Active holds the in-flight instructions. Its order is not significant.
	Active []*insts.Instruction
	// Pending is the FIFO of submitted instructions awaiting admission.
	Pending []insts.Instruction
	// Order records admission order of the active instructions.
	Order IssueOrder
	// Stats holds the cumulative metrics.
	Stats Statistics

	nextID         uint64
	firstCompleted bool
}

// NewState creates an empty state.
func NewState() *State {
	return &State{nextID: 1}
}

// Idle returns true if nothing is in flight or pending.
func (s *State) Idle() bool {
	return len(s.Active) == 0 && len(s.Pending) == 0
}

// InStage returns the active instructions in the given stage, oldest first.
func (s *State) InStage(stage insts.Stage) []*insts.Instruction {
	ranks := s.Order.Ranks()
	var out []*insts.Instruction
	for _, inst := range s.Active {
		if inst.Stage == stage {
			out = append(out, inst)
		}
	}
	sortByRank(out, ranks)
	return out
}

// Find returns the active instruction with the given id.
func (s *State) Find(id uint64) *insts.Instruction {
	for _, inst := range s.Active {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}

// InFlight returns copies of the active instructions, oldest first.
func (s *State) InFlight() []insts.Instruction {
	ordered := slices.Clone(s.Active)
	sortByRank(ordered, s.Order.Ranks())

	out := make([]insts.Instruction, len(ordered))
	for i, inst := range ordered {
		out[i] = inst.Clone()
	}
	return out
}

// PendingQueue returns copies of the pending instructions in queue order.
func (s *State) PendingQueue() []insts.Instruction {
	out := make([]insts.Instruction, len(s.Pending))
	for i, inst := range s.Pending {
		out[i] = inst.Clone()
	}
	return out
}

// ClearInstructions drops every in-flight and pending instruction.
func (s *State) ClearInstructions() {
	s.Active = nil
	s.Pending = nil
	s.Order.Clear()
}

// ClearMetrics resets the cumulative metrics and the cycle counter.
func (s *State) ClearMetrics() {
	s.Stats = Statistics{}
	s.firstCompleted = false
}

func (s *State) enqueue(inst insts.Instruction) uint64 {
	inst = inst.Clone()
	inst.ID = s.nextID
	inst.Stage = insts.StageFetch
	inst.Dependencies = nil
	s.nextID++
	s.Pending = append(s.Pending, inst)
	return inst.ID
}

// dequeue pops the head of the pending queue.
func (s *State) dequeue() (insts.Instruction, bool) {
	if len(s.Pending) == 0 {
		return insts.Instruction{}, false
	}
	inst := s.Pending[0]
	s.Pending = s.Pending[1:]
	return inst, true
}

// admit moves an instruction into Fetch.
func (s *State) admit(inst insts.Instruction) *insts.Instruction {
	inst.Stage = insts.StageFetch
	p := &inst
	s.Active = append(s.Active, p)
	s.Order.Push(p.ID)
	return p
}

// retire drops the instructions that completed Writeback last cycle.
func (s *State) retire() {
	kept := s.Active[:0]
	for _, inst := range s.Active {
		if inst.Stage == insts.StageWriteback {
			s.Order.Remove(inst.ID)
			continue
		}
		kept = append(kept, inst)
	}
	clear(s.Active[len(kept):])
	s.Active = kept
}

func (s *State) occupied(stage insts.Stage) bool {
	return s.count(stage) > 0
}

func (s *State) count(stage insts.Stage) int {
	n := 0
	for _, inst := range s.Active {
		if inst.Stage == stage {
			n++
		}
	}
	return n
}

// view copies the active set so hazard checks can read the start-of-tick
// state while the cascade mutates the live instructions.
func (s *State) view() []*insts.Instruction {
	out := make([]*insts.Instruction, len(s.Active))
	for i, inst := range s.Active {
		c := inst.Clone()
		out[i] = &c
	}
	return out
}

// order sorts the active set downstream-first by the given stage priority,
// breaking ties by admission order.
func (s *State) order(priority func(insts.Stage) int, ranks map[uint64]int) {
	slices.SortStableFunc(s.Active, func(a, b *insts.Instruction) int {
		if c := cmp.Compare(priority(a.Stage), priority(b.Stage)); c != 0 {
			return c
		}
		return cmp.Compare(ranks[a.ID], ranks[b.ID])
	})
}

func sortByRank(list []*insts.Instruction, ranks map[uint64]int) {
	slices.SortStableFunc(list, func(a, b *insts.Instruction) int {
		return cmp.Compare(ranks[a.ID], ranks[b.ID])
	})
}
