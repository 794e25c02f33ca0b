// Package thread provides hardware thread contexts and the multithreading
// policies that merge per-thread instruction streams into one pending queue.
package thread

import (
	"fmt"

	"github.com/sarchlab/pipesim/insts"
)

// State is the run-state of a thread.
type State uint8

// Thread run-states.
const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateCompleted:
		return "COMPLETED"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Metrics is the per-thread subset of the pipeline metrics.
type Metrics struct {
	// CyclesExecuted counts cycles in which the thread had work in flight.
	CyclesExecuted uint64 `json:"cycles_executed"`
	// InstructionsCompleted counts the thread's instructions that reached Writeback.
	InstructionsCompleted uint64 `json:"instructions_completed"`
	// StallCycles counts cycles in which one of the thread's instructions
	// stalled in Decode.
	StallCycles uint64 `json:"stall_cycles"`
	// BubbleCycles counts cycles after the thread's first completion in
	// which none of its instructions completed while it still had work.
	BubbleCycles uint64 `json:"bubble_cycles"`
}

// Context is a hardware thread: a private instruction list and a program
// counter into it.
type Context struct {
	ID           int                 `json:"id"`
	State        State               `json:"state"`
	Priority     int                 `json:"priority"`
	PC           int                 `json:"pc"`
	Instructions []insts.Instruction `json:"instructions"`
	Metrics      Metrics             `json:"metrics"`

	inFlight       int
	firstCompleted bool
}

// NewContext creates a ready thread owning the given instructions. Every
// instruction is tagged with the thread's id.
func NewContext(id int, instructions []insts.Instruction) *Context {
	c := &Context{
		ID:           id,
		State:        StateReady,
		Priority:     1,
		Instructions: make([]insts.Instruction, len(instructions)),
	}
	for i, inst := range instructions {
		inst = inst.Clone()
		inst.ThreadID = id
		c.Instructions[i] = inst
	}
	return c
}

// Remaining returns the number of instructions not yet dispatched.
func (c *Context) Remaining() int {
	return len(c.Instructions) - c.PC
}

// Next dispatches the instruction at the program counter.
func (c *Context) Next() (insts.Instruction, bool) {
	if c.PC >= len(c.Instructions) {
		return insts.Instruction{}, false
	}
	inst := c.Instructions[c.PC]
	c.PC++
	c.inFlight++
	if c.State == StateReady {
		c.State = StateRunning
	}
	return inst, true
}

// Observe folds one cycle of pipeline activity into the thread's state and
// metrics. retired is the number of the thread's instructions that entered
// Writeback this cycle; stalled reports whether one of them stalled in Decode.
func (c *Context) Observe(retired int, stalled bool) {
	if c.State == StateCompleted || c.State == StateReady {
		return
	}

	c.Metrics.CyclesExecuted++
	c.Metrics.InstructionsCompleted += uint64(retired)
	if stalled {
		c.Metrics.StallCycles++
	}
	if retired > 0 {
		c.firstCompleted = true
	} else if c.firstCompleted {
		c.Metrics.BubbleCycles++
	}

	c.inFlight -= retired
	switch {
	case c.inFlight <= 0 && c.Remaining() == 0:
		c.inFlight = 0
		c.State = StateCompleted
	case stalled:
		c.State = StateBlocked
	default:
		c.State = StateRunning
	}
}

// Clone returns a deep copy of the context.
func (c *Context) Clone() *Context {
	clone := *c
	clone.Instructions = make([]insts.Instruction, len(c.Instructions))
	for i, inst := range c.Instructions {
		clone.Instructions[i] = inst.Clone()
	}
	return &clone
}
