package insts

import (
	"fmt"
	"slices"
	"strings"
)

// Op represents an operation mnemonic.
type Op uint16

// Operations. OpGeneric is the fallback for unknown mnemonics and is
// treated as a plain ALU operation.
const (
	OpGeneric Op = iota
	OpADD
	OpSUB
	OpAND
	OpOR
	OpXOR
	OpSLL
	OpSRL
	OpSLT
	OpADDI
	OpMUL
	OpDIV
	OpLW
	OpSW
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpJAL
	OpNOP
)

var opNames = map[Op]string{
	OpGeneric: "GENERIC",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpAND:     "AND",
	OpOR:      "OR",
	OpXOR:     "XOR",
	OpSLL:     "SLL",
	OpSRL:     "SRL",
	OpSLT:     "SLT",
	OpADDI:    "ADDI",
	OpMUL:     "MUL",
	OpDIV:     "DIV",
	OpLW:      "LW",
	OpSW:      "SW",
	OpBEQ:     "BEQ",
	OpBNE:     "BNE",
	OpBLT:     "BLT",
	OpBGE:     "BGE",
	OpJAL:     "JAL",
	OpNOP:     "NOP",
}

// String returns the mnemonic.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint16(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. GENERIC decodes to
// OpGeneric; any other unknown mnemonic is an error.
func (o *Op) UnmarshalText(text []byte) error {
	if strings.EqualFold(string(text), opNames[OpGeneric]) {
		*o = OpGeneric
		return nil
	}
	op, err := ParseOp(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// ParseOp looks up a mnemonic, case-insensitively.
// Unknown mnemonics return OpGeneric and an error wrapping ErrUnknownOp.
func ParseOp(mnemonic string) (Op, error) {
	upper := strings.ToUpper(strings.TrimSpace(mnemonic))
	for op, name := range opNames {
		if op != OpGeneric && name == upper {
			return op, nil
		}
	}
	return OpGeneric, fmt.Errorf("%w: %q", ErrUnknownOp, mnemonic)
}

// LookupOp is ParseOp without the error: unknown mnemonics fall back to
// OpGeneric.
func LookupOp(mnemonic string) Op {
	op, _ := ParseOp(mnemonic)
	return op
}

// IsLoad returns true for load operations.
func (o Op) IsLoad() bool { return o == OpLW }

// IsStore returns true for store operations.
func (o Op) IsStore() bool { return o == OpSW }

// IsMemory returns true for loads and stores.
func (o Op) IsMemory() bool { return o.IsLoad() || o.IsStore() }

// IsBranch returns true for branches and jumps.
func (o Op) IsBranch() bool {
	switch o {
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpJAL:
		return true
	default:
		return false
	}
}

// IsMultiply returns true for operations executed on the multiply unit.
func (o Op) IsMultiply() bool { return o == OpMUL || o == OpDIV }

// IsALU returns true for single-cycle arithmetic-logic operations,
// including the generic fallback.
func (o Op) IsALU() bool {
	return !o.IsMemory() && !o.IsBranch() && !o.IsMultiply()
}

// WritesRegister returns true if the operation produces a register result
// that later instructions can depend on. Stores and branches never do,
// even if a destination register is attached to them.
func (o Op) WritesRegister() bool {
	return o != OpNOP && !o.IsStore() && !o.IsBranch()
}

// Class returns the operand class derived from the operation.
func (o Op) Class() OperandClass {
	switch {
	case o.IsBranch():
		return ClassBranch
	case o.IsMemory():
		return ClassRegMem
	case o == OpADDI:
		return ClassRegImm
	default:
		return ClassRegReg
	}
}

// OperandClass represents how an instruction's operands are formed.
type OperandClass uint8

// Operand classes.
const (
	ClassRegReg OperandClass = iota // register-register
	ClassRegImm                     // register-immediate
	ClassRegMem                     // register-memory
	ClassBranch                     // branch
)

// String returns the short class name (RR, RI, RM, BR).
func (c OperandClass) String() string {
	switch c {
	case ClassRegReg:
		return "RR"
	case ClassRegImm:
		return "RI"
	case ClassRegMem:
		return "RM"
	case ClassBranch:
		return "BR"
	default:
		return fmt.Sprintf("OperandClass(%d)", uint8(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c OperandClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *OperandClass) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "RR":
		*c = ClassRegReg
	case "RI":
		*c = ClassRegImm
	case "RM":
		*c = ClassRegMem
	case "BR":
		*c = ClassBranch
	default:
		return fmt.Errorf("unknown operand class %q", string(text))
	}
	return nil
}

// Stage is a pipeline stage.
type Stage uint8

// Pipeline stages. The scalar engine uses Fetch, Decode, Execute, Memory,
// Writeback. The superscalar engine uses Fetch, Decode (lane 1), Decode2
// (lane 2), Execute, Writeback.
const (
	StageFetch Stage = iota
	StageDecode
	StageDecode2
	StageExecute
	StageMemory
	StageWriteback
)

// String returns the stage label.
func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "IF"
	case StageDecode:
		return "DE"
	case StageDecode2:
		return "DE2"
	case StageExecute:
		return "EX"
	case StageMemory:
		return "MEM"
	case StageWriteback:
		return "WB"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsDecode returns true for either decode lane.
func (s Stage) IsDecode() bool {
	return s == StageDecode || s == StageDecode2
}

// Unit is a functional unit instance.
type Unit uint8

// Functional units. UnitNone means not yet assigned.
const (
	UnitNone Unit = iota
	UnitALU1
	UnitALU2
	UnitMUL
	UnitLSU
	UnitBRU
)

// String returns the unit name.
func (u Unit) String() string {
	switch u {
	case UnitNone:
		return "-"
	case UnitALU1:
		return "ALU1"
	case UnitALU2:
		return "ALU2"
	case UnitMUL:
		return "MUL"
	case UnitLSU:
		return "LSU"
	case UnitBRU:
		return "BRU"
	default:
		return fmt.Sprintf("Unit(%d)", uint8(u))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "-", "":
		*u = UnitNone
	case "ALU1":
		*u = UnitALU1
	case "ALU2":
		*u = UnitALU2
	case "MUL":
		*u = UnitMUL
	case "LSU":
		*u = UnitLSU
	case "BRU":
		*u = UnitBRU
	default:
		return fmt.Errorf("unknown unit %q", string(text))
	}
	return nil
}

// Class returns the class of the unit.
func (u Unit) Class() UnitClass {
	switch u {
	case UnitALU1, UnitALU2:
		return UnitClassALU
	case UnitMUL:
		return UnitClassMUL
	case UnitLSU:
		return UnitClassLSU
	case UnitBRU:
		return UnitClassBRU
	default:
		return UnitClassNone
	}
}

// UnitClass groups symmetric functional unit instances.
type UnitClass uint8

// Unit classes.
const (
	UnitClassNone UnitClass = iota
	UnitClassALU
	UnitClassMUL
	UnitClassLSU
	UnitClassBRU
)

// String returns the class name.
func (c UnitClass) String() string {
	switch c {
	case UnitClassALU:
		return "ALU"
	case UnitClassMUL:
		return "MUL"
	case UnitClassLSU:
		return "LSU"
	case UnitClassBRU:
		return "BRU"
	default:
		return "NONE"
	}
}

// MarshalText implements encoding.TextMarshaler so UnitClass can key JSON maps.
func (c UnitClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *UnitClass) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "ALU":
		*c = UnitClassALU
	case "MUL":
		*c = UnitClassMUL
	case "LSU":
		*c = UnitClassLSU
	case "BRU":
		*c = UnitClassBRU
	default:
		return fmt.Errorf("unknown unit class %q", string(text))
	}
	return nil
}

// Register is an architectural register reference with a cached value.
// Values are carried for display only; the timing model never computes them.
type Register struct {
	Number uint8 `json:"number"`
	Value  int64 `json:"value"`
}

// Reg is a shorthand for a register reference with a zero value.
func Reg(number uint8) *Register {
	return &Register{Number: number}
}

// Instruction is the unit of work carried through the pipeline.
type Instruction struct {
	// ID is assigned by the simulator when the instruction is submitted and
	// identifies the instruction in dependency sets.
	ID uint64 `json:"id"`

	Op    Op           `json:"op"`
	Class OperandClass `json:"class"`

	// Mnemonic keeps the source spelling of an unknown operation that
	// fell back to OpGeneric.
	Mnemonic string `json:"mnemonic,omitempty"`

	Src1 *Register `json:"src1,omitempty"`
	Src2 *Register `json:"src2,omitempty"`
	Dst  *Register `json:"dst,omitempty"`
	Imm  int64     `json:"imm,omitempty"`

	// Unit, Latency and RemainingLatency are filled on admission to Fetch.
	Unit             Unit   `json:"unit"`
	Latency          uint64 `json:"latency"`
	RemainingLatency uint64 `json:"remaining_latency"`

	Stage        Stage    `json:"stage"`
	Dependencies []uint64 `json:"dependencies,omitempty"`

	ThreadID int    `json:"thread_id"`
	Color    string `json:"color,omitempty"`
}

// New creates an instruction with the given registers. Any register may be nil.
func New(op Op, dst, src1, src2 *Register) Instruction {
	return Instruction{
		Op:    op,
		Class: op.Class(),
		Dst:   dst,
		Src1:  src1,
		Src2:  src2,
		Stage: StageFetch,
	}
}

// NewRR creates a register-register instruction: rd = rs1 op rs2.
func NewRR(op Op, rd, rs1, rs2 uint8) Instruction {
	return New(op, Reg(rd), Reg(rs1), Reg(rs2))
}

// NewRI creates a register-immediate instruction: rd = rs1 op imm.
func NewRI(op Op, rd, rs1 uint8, imm int64) Instruction {
	inst := New(op, Reg(rd), Reg(rs1), nil)
	inst.Imm = imm
	return inst
}

// NewLoad creates LW rd, offset(base).
func NewLoad(rd, base uint8, offset int64) Instruction {
	inst := New(OpLW, Reg(rd), Reg(base), nil)
	inst.Imm = offset
	return inst
}

// NewStore creates SW rs, offset(base). The stored register is a source.
func NewStore(rs, base uint8, offset int64) Instruction {
	inst := New(OpSW, nil, Reg(base), Reg(rs))
	inst.Imm = offset
	return inst
}

// NewBranch creates a conditional branch comparing rs1 and rs2.
func NewBranch(op Op, rs1, rs2 uint8, offset int64) Instruction {
	inst := New(op, nil, Reg(rs1), Reg(rs2))
	inst.Imm = offset
	return inst
}

// NewJump creates JAL rd, offset.
func NewJump(rd uint8, offset int64) Instruction {
	inst := New(OpJAL, Reg(rd), nil, nil)
	inst.Imm = offset
	return inst
}

// Sources returns the source register numbers read by the instruction.
func (i *Instruction) Sources() []uint8 {
	var srcs []uint8
	if i.Src1 != nil {
		srcs = append(srcs, i.Src1.Number)
	}
	if i.Src2 != nil {
		srcs = append(srcs, i.Src2.Number)
	}
	return srcs
}

// Reads returns true if the instruction reads the given register.
func (i *Instruction) Reads(reg uint8) bool {
	return slices.Contains(i.Sources(), reg)
}

// Destination returns the register written by the instruction, if any.
func (i *Instruction) Destination() (uint8, bool) {
	if i.Dst == nil || !i.Op.WritesRegister() {
		return 0, false
	}
	return i.Dst.Number, true
}

// Clone returns a deep copy of the instruction.
func (i Instruction) Clone() Instruction {
	c := i
	if i.Src1 != nil {
		r := *i.Src1
		c.Src1 = &r
	}
	if i.Src2 != nil {
		r := *i.Src2
		c.Src2 = &r
	}
	if i.Dst != nil {
		r := *i.Dst
		c.Dst = &r
	}
	if i.Dependencies != nil {
		c.Dependencies = slices.Clone(i.Dependencies)
	}
	return c
}

// String formats the instruction as assembly, e.g. "ADD r1, r2, r3".
func (i Instruction) String() string {
	reg := func(r *Register) string {
		if r == nil {
			return "-"
		}
		return fmt.Sprintf("r%d", r.Number)
	}

	switch {
	case i.Op == OpNOP:
		return "NOP"
	case i.Op == OpLW:
		return fmt.Sprintf("LW %s, %d(%s)", reg(i.Dst), i.Imm, reg(i.Src1))
	case i.Op == OpSW:
		return fmt.Sprintf("SW %s, %d(%s)", reg(i.Src2), i.Imm, reg(i.Src1))
	case i.Op == OpJAL:
		return fmt.Sprintf("JAL %s, %d", reg(i.Dst), i.Imm)
	case i.Op.IsBranch():
		return fmt.Sprintf("%s %s, %s, %d", i.Op, reg(i.Src1), reg(i.Src2), i.Imm)
	case i.Class == ClassRegImm:
		return fmt.Sprintf("%s %s, %s, %d", i.Op, reg(i.Dst), reg(i.Src1), i.Imm)
	default:
		return fmt.Sprintf("%s %s, %s, %s", i.Name(), reg(i.Dst), reg(i.Src1), reg(i.Src2))
	}
}

// Name returns the mnemonic, preferring the source spelling for
// generic operations.
func (i *Instruction) Name() string {
	if i.Op == OpGeneric && i.Mnemonic != "" {
		return i.Mnemonic
	}
	return i.Op.String()
}

var stagesByName = map[string]Stage{
	"IF":  StageFetch,
	"DE":  StageDecode,
	"DE2": StageDecode2,
	"EX":  StageExecute,
	"MEM": StageMemory,
	"WB":  StageWriteback,
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	stage, ok := stagesByName[strings.ToUpper(string(text))]
	if !ok {
		return fmt.Errorf("unknown stage %q", text)
	}
	*s = stage
	return nil
}
