package pipeline

import "github.com/sarchlab/pipesim/insts"

// Statistics holds cumulative pipeline performance metrics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64 `json:"total_cycles"`
	// Instructions is the number of instructions that entered Writeback.
	Instructions uint64 `json:"completed_instructions"`
	// BubbleCycles counts cycles, after the first completion, in which no
	// instruction entered Writeback.
	BubbleCycles uint64 `json:"bubble_cycles"`
	// Stalls counts cycles in which at least one instruction stalled in Decode.
	Stalls uint64 `json:"stall_cycles"`
	// DataHazards counts Decode stalls caused by RAW dependencies.
	DataHazards uint64 `json:"data_hazards"`
	// StructuralStalls counts Decode stalls caused by an occupied Execute
	// slot or an exhausted issue width.
	StructuralStalls uint64 `json:"structural_stalls"`
	// ResourceStalls counts Decode stalls caused by functional unit
	// conflicts or unit-class limits.
	ResourceStalls uint64 `json:"resource_stalls"`
	// Forwards counts RAW hazards resolved by forwarding.
	Forwards uint64 `json:"forwards"`
	// StageOccupancy counts the cycles each stage was occupied.
	StageOccupancy map[insts.Stage]uint64 `json:"stage_occupancy"`
}

// IPC returns the instructions per cycle.
func (s Statistics) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Instructions) / float64(s.Cycles)
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Occupancy returns the number of cycles the stage was occupied.
func (s Statistics) Occupancy(stage insts.Stage) uint64 {
	return s.StageOccupancy[stage]
}

// Utilization returns the fraction of cycles the stage was occupied.
func (s Statistics) Utilization(stage insts.Stage) float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Occupancy(stage)) / float64(s.Cycles)
}

// Clone returns a deep copy of the statistics.
func (s Statistics) Clone() Statistics {
	c := s
	if s.StageOccupancy != nil {
		c.StageOccupancy = make(map[insts.Stage]uint64, len(s.StageOccupancy))
		for k, v := range s.StageOccupancy {
			c.StageOccupancy[k] = v
		}
	}
	return c
}

func (s *Statistics) addOccupancy(stage insts.Stage) {
	if s.StageOccupancy == nil {
		s.StageOccupancy = make(map[insts.Stage]uint64)
	}
	s.StageOccupancy[stage]++
}
