package benchmarks

import (
	"math/rand"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/thread"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentALU(),
		aluChain(),
		loadUse(),
		multiplyPressure(),
		memoryStream(),
		branchMix(),
		randomMix(),
	}
}

// GetDemos returns the scripted demonstration workloads.
func GetDemos() []Benchmark {
	return []Benchmark{
		superscalarDemo(),
		threadPair(),
		threadPairIMT(),
		threadPairBMT(),
		threadPairSMT(),
	}
}

// GetCoreBenchmarks returns a minimal set of benchmarks for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		independentALU(),
		aluChain(),
		loadUse(),
	}
}

// Lookup finds a benchmark or demo by name.
func Lookup(name string) (Benchmark, bool) {
	for _, b := range append(GetMicrobenchmarks(), GetDemos()...) {
		if b.Name == name {
			return b, true
		}
	}
	return Benchmark{}, false
}

// 1. Independent ALU - one completion per cycle after the fill
func independentALU() Benchmark {
	program := make([]insts.Instruction, 0, 10)
	for rd := uint8(1); rd <= 10; rd++ {
		program = append(program, insts.NewRR(insts.OpADD, rd, 20, 21))
	}
	return Benchmark{
		Name:        "independent_alu",
		Description: "10 independent ADD operations - measures ALU throughput",
		Program:     program,
	}
}

// 2. ALU Chain - every instruction reads the previous result
func aluChain() Benchmark {
	program := []insts.Instruction{insts.NewRR(insts.OpADD, 1, 2, 3)}
	for i := 0; i < 7; i++ {
		program = append(program, insts.NewRR(insts.OpADD, 1, 1, 4))
	}
	return Benchmark{
		Name:        "alu_chain",
		Description: "8 dependent ADD operations - measures forwarding benefit",
		Program:     program,
	}
}

// 3. Load Use - loads immediately consumed
func loadUse() Benchmark {
	var program []insts.Instruction
	for i := uint8(0); i < 4; i++ {
		rd := 10 + i
		program = append(program,
			insts.NewLoad(rd, 20, int64(i)*4),
			insts.NewRR(insts.OpADD, rd, rd, 5),
		)
	}
	return Benchmark{
		Name:        "load_use",
		Description: "4 load-use pairs - measures load-to-use latency",
		Program:     program,
	}
}

// 4. Multiply Pressure - back-to-back multiplies on the single multiply unit
func multiplyPressure() Benchmark {
	program := []insts.Instruction{
		insts.NewRR(insts.OpMUL, 1, 2, 3),
		insts.NewRR(insts.OpMUL, 4, 5, 6),
		insts.NewRR(insts.OpDIV, 7, 8, 9),
		insts.NewRR(insts.OpADD, 10, 11, 12),
		insts.NewRR(insts.OpMUL, 13, 14, 15),
		insts.NewRR(insts.OpADD, 16, 17, 18),
	}
	return Benchmark{
		Name:        "multiply_pressure",
		Description: "Multiplies competing for one unit - measures structural stalls",
		Program:     program,
	}
}

// 5. Memory Stream - independent loads and stores
func memoryStream() Benchmark {
	var program []insts.Instruction
	for i := uint8(0); i < 4; i++ {
		program = append(program,
			insts.NewLoad(1+i, 20, int64(i)*8),
			insts.NewStore(10+i, 21, int64(i)*8),
		)
	}
	return Benchmark{
		Name:        "memory_stream",
		Description: "Alternating independent loads and stores - measures LSU throughput",
		Program:     program,
	}
}

// 6. Branch Mix - compares fed by arithmetic
func branchMix() Benchmark {
	program := []insts.Instruction{
		insts.NewRR(insts.OpSUB, 1, 2, 3),
		insts.NewBranch(insts.OpBEQ, 1, 0, 8),
		insts.NewRI(insts.OpADDI, 4, 4, 1),
		insts.NewBranch(insts.OpBNE, 4, 5, -8),
		insts.NewJump(31, 16),
		insts.NewRR(insts.OpSLT, 6, 4, 5),
	}
	return Benchmark{
		Name:        "branch_mix",
		Description: "Branches depending on ALU results - measures branch unit latency",
		Program:     program,
	}
}

// 7. Random Mix - a fixed pseudo-random stream
func randomMix() Benchmark {
	return Benchmark{
		Name:        "random_mix",
		Description: "32 seeded random instructions - mixed hazards",
		Program:     RandomProgram(1, 32),
	}
}

// superscalarDemo is the dual-issue demonstration sequence: pairs of
// independent operations, a multiply and a load on separate units, and a
// trailing dependent pair.
func superscalarDemo() Benchmark {
	return Benchmark{
		Name:        "superscalar_demo",
		Description: "Dual-issue demonstration sequence",
		Program: []insts.Instruction{
			insts.NewRR(insts.OpADD, 1, 2, 3),
			insts.NewRR(insts.OpADD, 11, 4, 6),
			insts.NewRR(insts.OpMUL, 7, 4, 8),
			insts.NewLoad(10, 20, 0),
			insts.NewRR(insts.OpADD, 12, 1, 11),
			insts.NewRR(insts.OpADD, 13, 7, 10),
		},
	}
}

// threadPairPrograms are the two test threads: an ADD/MUL thread and a
// SUB/DIV thread.
func threadPairPrograms() [][]insts.Instruction {
	return [][]insts.Instruction{
		{
			insts.NewRR(insts.OpADD, 3, 1, 2),
			insts.NewRR(insts.OpMUL, 6, 4, 5),
		},
		{
			insts.NewRR(insts.OpSUB, 9, 7, 8),
			insts.NewRR(insts.OpDIV, 12, 10, 11),
		},
	}
}

func threadPair() Benchmark {
	return Benchmark{
		Name:        "thread_pair",
		Description: "Two threads under the configured multithreading mode",
		Threads:     threadPairPrograms(),
	}
}

func threadPairWith(mode thread.Mode) Benchmark {
	b := threadPair()
	b.Name = "thread_pair_" + mode.String()
	b.Description = "Two threads under " + mode.String()
	b.Threading = &mode
	return b
}

func threadPairIMT() Benchmark { return threadPairWith(thread.ModeIMT) }

func threadPairBMT() Benchmark { return threadPairWith(thread.ModeBMT) }

func threadPairSMT() Benchmark { return threadPairWith(thread.ModeSMT) }

var randomOps = []insts.Op{
	insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpDIV,
	insts.OpLW, insts.OpSW, insts.OpBEQ,
}

// RandomProgram returns n pseudo-random instructions. The same seed always
// yields the same program.
func RandomProgram(seed int64, n int) []insts.Instruction {
	rng := rand.New(rand.NewSource(seed))
	reg := func() uint8 { return uint8(rng.Intn(insts.NumRegisters)) }

	program := make([]insts.Instruction, 0, n)
	for i := 0; i < n; i++ {
		op := randomOps[rng.Intn(len(randomOps))]
		rs1, rs2, rd := reg(), reg(), reg()

		switch op {
		case insts.OpLW:
			program = append(program, insts.NewLoad(rd, rs1, 0))
		case insts.OpSW:
			program = append(program, insts.NewStore(rs2, rs1, 0))
		case insts.OpBEQ:
			program = append(program, insts.NewBranch(op, rs1, rs2, 4))
		default:
			program = append(program, insts.NewRR(op, rd, rs1, rs2))
		}
	}
	return program
}
