package pipeline_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

var mixedOps = []insts.Op{
	insts.OpADD, insts.OpSUB, insts.OpAND, insts.OpMUL,
	insts.OpLW, insts.OpSW, insts.OpBEQ, insts.OpADDI,
}

func mixedProgram(seed int64, n int) []insts.Instruction {
	rng := rand.New(rand.NewSource(seed))
	reg := func() uint8 { return uint8(rng.Intn(8)) }

	program := make([]insts.Instruction, 0, n)
	for i := 0; i < n; i++ {
		switch op := mixedOps[rng.Intn(len(mixedOps))]; op {
		case insts.OpLW:
			program = append(program, insts.NewLoad(reg(), reg(), 4))
		case insts.OpSW:
			program = append(program, insts.NewStore(reg(), reg(), 4))
		case insts.OpBEQ:
			program = append(program, insts.NewBranch(op, reg(), reg(), 8))
		case insts.OpADDI:
			program = append(program, insts.NewRI(op, reg(), reg(), 1))
		default:
			program = append(program, insts.NewRR(op, reg(), reg(), reg()))
		}
	}
	return program
}

var _ = Describe("Pipeline properties", func() {
	kinds := []pipeline.Kind{pipeline.KindScalar, pipeline.KindSuperscalar}

	for _, kind := range kinds {
		for _, forwarding := range []bool{false, true} {
			Context(kind.String(), func() {
				var (
					engine  pipeline.Engine
					trace   *pipeline.Trace
					program []insts.Instruction
				)

				BeforeEach(func() {
					trace = pipeline.NewTrace()
					engine = pipeline.New(kind,
						pipeline.WithForwarding(forwarding),
						pipeline.WithTrace(trace))
					program = mixedProgram(42, 40)
					for _, inst := range program {
						engine.Submit(inst)
					}
				})

				It("should produce identical traces for identical streams", func() {
					otherTrace := pipeline.NewTrace()
					other := pipeline.New(kind,
						pipeline.WithForwarding(forwarding),
						pipeline.WithTrace(otherTrace))
					for _, inst := range program {
						other.Submit(inst)
					}

					drain(engine, 1000)
					drain(other, 1000)

					Expect(otherTrace.Records).To(Equal(trace.Records))
					Expect(other.State().Stats).To(Equal(engine.State().Stats))
				})

				It("should conserve instructions", func() {
					written := map[uint64]bool{}
					for i := 0; i < 1000; i++ {
						report := engine.Tick()
						if !report.Advanced {
							break
						}
						for _, inst := range report.Retired {
							Expect(written).NotTo(HaveKey(inst.ID))
							written[inst.ID] = true
						}

						state := engine.State()
						Expect(state.Stats.Instructions).To(Equal(uint64(len(written))))
						inFlight := len(state.Active) - len(state.InStage(insts.StageWriteback))
						Expect(len(written) + inFlight + len(state.Pending)).To(Equal(len(program)))
					}

					Expect(written).To(HaveLen(len(program)))
				})

				It("should count down latency monotonically in Execute", func() {
					last := map[uint64]uint64{}
					for i := 0; i < 1000; i++ {
						if !engine.Tick().Advanced {
							break
						}
						for _, inst := range engine.State().InStage(insts.StageExecute) {
							prev, seen := last[inst.ID]
							if !seen {
								Expect(inst.RemainingLatency).To(Equal(inst.Latency))
							} else {
								Expect(inst.RemainingLatency).To(BeNumerically("<=", prev))
							}
							last[inst.ID] = inst.RemainingLatency
						}
					}
				})

				It("should record one trace entry per counted cycle", func() {
					drain(engine, 1000)

					Expect(trace.Records).To(HaveLen(int(engine.State().Stats.Cycles)))
					Expect(trace.Records[0].Cycle).To(Equal(uint64(1)))
				})
			})
		}
	}

	It("should never make the scalar pipeline slower with forwarding", func() {
		cycles := func(seed int64, forwarding bool) uint64 {
			engine := pipeline.NewScalarPipeline(pipeline.WithForwarding(forwarding))
			for _, inst := range mixedProgram(seed, 30) {
				engine.Submit(inst)
			}
			drain(engine, 1000)
			return engine.State().Stats.Cycles
		}

		for seed := int64(0); seed < 200; seed++ {
			Expect(cycles(seed, true)).To(BeNumerically("<=", cycles(seed, false)),
				"seed %d", seed)
		}
	})

	It("should never hold more than one instruction in scalar Writeback", func() {
		trace := pipeline.NewTrace()
		engine := pipeline.NewScalarPipeline(pipeline.WithTrace(trace))
		for _, inst := range mixedProgram(7, 60) {
			engine.Submit(inst)
		}

		drain(engine, 2000)

		for _, rec := range trace.Records {
			Expect(rec.Count(insts.StageWriteback)).To(BeNumerically("<=", 1))
		}
	})

	It("should locate an instruction in the trace", func() {
		trace := pipeline.NewTrace()
		engine := pipeline.NewScalarPipeline(pipeline.WithTrace(trace))
		id := engine.Submit(insts.NewRR(insts.OpADD, 1, 2, 3))

		drain(engine, 10)

		stage, ok := trace.StageOf(3, id)
		Expect(ok).To(BeTrue())
		Expect(stage).To(Equal(insts.StageExecute))

		_, ok = trace.StageOf(9, id)
		Expect(ok).To(BeFalse())
	})
})
