// Package latency assigns functional units and execute latencies to
// instructions.
//
// Assignment happens exactly once, when an instruction is admitted into
// Fetch. The latency values can be configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/pipesim/insts"
)

// Mode selects which pipeline the assignment is for.
type Mode uint8

// Assignment modes.
const (
	Scalar Mode = iota
	Superscalar
)

// Table provides unit and latency lookups.
type Table struct {
	config *TimingConfig

	// nextALU alternates between the two symmetric ALUs.
	nextALU insts.Unit
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return NewTableWithConfig(DefaultTimingConfig())
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config:  config,
		nextALU: insts.UnitALU1,
	}
}

// UnitClass returns the functional unit class an operation executes on.
func (t *Table) UnitClass(op insts.Op) insts.UnitClass {
	switch {
	case op.IsMultiply():
		return insts.UnitClassMUL
	case op.IsMemory():
		return insts.UnitClassLSU
	case op.IsBranch():
		return insts.UnitClassBRU
	default:
		return insts.UnitClassALU
	}
}

// GetLatency returns the execute latency in cycles for the given operation.
func (t *Table) GetLatency(op insts.Op, mode Mode) uint64 {
	switch t.UnitClass(op) {
	case insts.UnitClassMUL:
		if mode == Superscalar {
			return t.config.SuperscalarMultiplyLatency
		}
		return t.config.MultiplyLatency
	case insts.UnitClassLSU:
		if mode == Superscalar {
			return t.config.SuperscalarLoadStoreLatency
		}
		return t.config.LoadStoreLatency
	case insts.UnitClassBRU:
		return t.config.BranchLatency
	default:
		return t.config.ALULatency
	}
}

// Assign fills in the functional unit and latency of an instruction.
// ALU operations alternate between ALU1 and ALU2. Any unit set by the
// caller is overwritten.
func (t *Table) Assign(inst *insts.Instruction, mode Mode) {
	switch t.UnitClass(inst.Op) {
	case insts.UnitClassMUL:
		inst.Unit = insts.UnitMUL
	case insts.UnitClassLSU:
		inst.Unit = insts.UnitLSU
	case insts.UnitClassBRU:
		inst.Unit = insts.UnitBRU
	default:
		inst.Unit = t.nextALU
		if t.nextALU == insts.UnitALU1 {
			t.nextALU = insts.UnitALU2
		} else {
			t.nextALU = insts.UnitALU1
		}
	}

	inst.Latency = t.GetLatency(inst.Op, mode)
	inst.RemainingLatency = inst.Latency
}

// Reset restarts the ALU rotation.
func (t *Table) Reset() {
	t.nextALU = insts.UnitALU1
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
