package insts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrUnknownOp is returned for mnemonics the model does not know.
	ErrUnknownOp = errors.New("unknown operation")
	// ErrSyntax is returned for malformed program lines.
	ErrSyntax = errors.New("syntax error")
)

// NumRegisters is the size of the architectural register file.
const NumRegisters = 32

// Decoder turns text assembly into instructions.
//
// Accepted forms:
//
//	ADD r1, r2, r3      register-register
//	ADDI r1, r2, 5      register-immediate
//	LW r10, 0(r20)      load
//	SW r5, 4(r2)        store
//	BEQ r1, r2, 8       conditional branch
//	JAL r1, 16          jump and link
//	NOP
//
// A trailing "@t<N>" assigns the instruction to thread N and "#" starts a
// comment. Register names may use the r or x prefix.
type Decoder struct {
	// Strict rejects unknown mnemonics instead of decoding them as
	// generic ALU operations.
	Strict bool
}

// NewDecoder creates a new text decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes one line. Blank and comment-only lines return (nil, nil).
func (d *Decoder) Decode(line string) (*Instruction, error) {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	threadID := 0
	fields := strings.Fields(line)
	if last := fields[len(fields)-1]; strings.HasPrefix(last, "@t") {
		id, err := strconv.Atoi(last[2:])
		if err != nil || id < 0 {
			return nil, fmt.Errorf("%w: bad thread tag %q", ErrSyntax, last)
		}
		threadID = id
		line = strings.TrimSpace(strings.TrimSuffix(line, last))
	}

	mnemonic, rest := line, ""
	if idx := strings.IndexFunc(line, unicode.IsSpace); idx >= 0 {
		mnemonic, rest = line[:idx], line[idx+1:]
	}
	op, err := ParseOp(mnemonic)
	if err != nil && d.Strict {
		return nil, err
	}

	operands := splitOperands(rest)

	var inst Instruction
	switch {
	case op == OpNOP:
		inst, err = New(OpNOP, nil, nil, nil), expectOperands(operands, 0)
	case op == OpLW:
		inst, err = decodeMemory(op, operands)
	case op == OpSW:
		inst, err = decodeMemory(op, operands)
	case op == OpJAL:
		inst, err = decodeJump(operands)
	case op.IsBranch():
		inst, err = decodeBranch(op, operands)
	case op == OpADDI:
		inst, err = decodeRegImm(op, operands)
	default:
		inst, err = decodeRegReg(op, operands)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", line, err)
	}

	if op == OpGeneric {
		inst.Mnemonic = strings.ToUpper(mnemonic)
	}
	inst.ThreadID = threadID

	return &inst, nil
}

// DecodeProgram decodes every line of r.
func (d *Decoder) DecodeProgram(r io.Reader) ([]Instruction, error) {
	var program []Instruction

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		inst, err := d.Decode(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if inst != nil {
			program = append(program, *inst)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	return program, nil
}

func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func expectOperands(operands []string, n int) error {
	if len(operands) != n {
		return fmt.Errorf("%w: expected %d operands, got %d", ErrSyntax, n, len(operands))
	}
	return nil
}

func parseReg(s string) (uint8, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 || (s[0] != 'r' && s[0] != 'x') {
		return 0, fmt.Errorf("%w: bad register %q", ErrSyntax, s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 || n >= NumRegisters {
		return 0, fmt.Errorf("%w: bad register %q", ErrSyntax, s)
	}
	return uint8(n), nil
}

func parseImm(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad immediate %q", ErrSyntax, s)
	}
	return v, nil
}

func parseRegs(operands []string) ([]uint8, error) {
	regs := make([]uint8, len(operands))
	for i, o := range operands {
		r, err := parseReg(o)
		if err != nil {
			return nil, err
		}
		regs[i] = r
	}
	return regs, nil
}

func decodeRegReg(op Op, operands []string) (Instruction, error) {
	if err := expectOperands(operands, 3); err != nil {
		return Instruction{}, err
	}
	regs, err := parseRegs(operands)
	if err != nil {
		return Instruction{}, err
	}
	return NewRR(op, regs[0], regs[1], regs[2]), nil
}

func decodeRegImm(op Op, operands []string) (Instruction, error) {
	if err := expectOperands(operands, 3); err != nil {
		return Instruction{}, err
	}
	regs, err := parseRegs(operands[:2])
	if err != nil {
		return Instruction{}, err
	}
	imm, err := parseImm(operands[2])
	if err != nil {
		return Instruction{}, err
	}
	return NewRI(op, regs[0], regs[1], imm), nil
}

// decodeMemory handles "LW rd, off(base)" and "SW rs, off(base)".
func decodeMemory(op Op, operands []string) (Instruction, error) {
	if err := expectOperands(operands, 2); err != nil {
		return Instruction{}, err
	}
	reg, err := parseReg(operands[0])
	if err != nil {
		return Instruction{}, err
	}

	offStr, baseStr, ok := strings.Cut(operands[1], "(")
	if !ok || !strings.HasSuffix(baseStr, ")") {
		return Instruction{}, fmt.Errorf("%w: expected offset(base), got %q", ErrSyntax, operands[1])
	}
	base, err := parseReg(strings.TrimSuffix(baseStr, ")"))
	if err != nil {
		return Instruction{}, err
	}
	var offset int64
	if strings.TrimSpace(offStr) != "" {
		offset, err = parseImm(offStr)
		if err != nil {
			return Instruction{}, err
		}
	}

	if op == OpLW {
		return NewLoad(reg, base, offset), nil
	}
	return NewStore(reg, base, offset), nil
}

func decodeBranch(op Op, operands []string) (Instruction, error) {
	if err := expectOperands(operands, 3); err != nil {
		return Instruction{}, err
	}
	regs, err := parseRegs(operands[:2])
	if err != nil {
		return Instruction{}, err
	}
	offset, err := parseImm(operands[2])
	if err != nil {
		return Instruction{}, err
	}
	return NewBranch(op, regs[0], regs[1], offset), nil
}

func decodeJump(operands []string) (Instruction, error) {
	if err := expectOperands(operands, 2); err != nil {
		return Instruction{}, err
	}
	rd, err := parseReg(operands[0])
	if err != nil {
		return Instruction{}, err
	}
	offset, err := parseImm(operands[1])
	if err != nil {
		return Instruction{}, err
	}
	return NewJump(rd, offset), nil
}
