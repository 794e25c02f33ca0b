package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

func inFlight(inst insts.Instruction, id uint64, stage insts.Stage, remaining uint64) *insts.Instruction {
	inst.ID = id
	inst.Stage = stage
	inst.Latency = max(remaining, 1)
	inst.RemainingLatency = remaining
	return &inst
}

var _ = Describe("HazardUnit", func() {
	var (
		hazardUnit *pipeline.HazardUnit
		consumer   *insts.Instruction
	)

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit(false)
		consumer = inFlight(insts.NewRR(insts.OpSUB, 4, 1, 5), 10, insts.StageDecode, 1)
	})

	Context("without forwarding", func() {
		It("should report a producer of a source register", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 1, 2, 3), 1, insts.StageExecute, 1)

			deps := hazardUnit.DetectDependencies(consumer, []*insts.Instruction{producer})

			Expect(deps).To(ConsistOf(uint64(1)))
		})

		It("should block on a producer in Memory", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 1, 2, 3), 1, insts.StageMemory, 0)

			Expect(hazardUnit.DetectDependencies(consumer, []*insts.Instruction{producer})).
				To(ConsistOf(uint64(1)))
		})

		It("should ignore a producer in Writeback", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 1, 2, 3), 1, insts.StageWriteback, 0)

			Expect(hazardUnit.DetectDependencies(consumer, []*insts.Instruction{producer})).To(BeEmpty())
		})

		It("should ignore unrelated registers", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 7, 2, 3), 1, insts.StageExecute, 1)

			Expect(hazardUnit.DetectDependencies(consumer, []*insts.Instruction{producer})).To(BeEmpty())
		})

		It("should never report register zero", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 0, 2, 3), 1, insts.StageExecute, 1)
			reader := inFlight(insts.NewRR(insts.OpSUB, 4, 0, 5), 2, insts.StageDecode, 1)

			Expect(hazardUnit.DetectDependencies(reader, []*insts.Instruction{producer})).To(BeEmpty())
		})

		It("should ignore stores and branches as producers", func() {
			store := inFlight(insts.NewStore(1, 2, 0), 1, insts.StageExecute, 1)
			branch := inFlight(insts.NewBranch(insts.OpBEQ, 1, 2, 8), 2, insts.StageExecute, 1)
			jump := inFlight(insts.NewJump(1, 16), 3, insts.StageExecute, 1)

			deps := hazardUnit.DetectDependencies(consumer,
				[]*insts.Instruction{store, branch, jump})

			Expect(deps).To(BeEmpty())
		})

		It("should report a producer once when both sources match", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 1, 2, 3), 1, insts.StageDecode, 1)
			reader := inFlight(insts.NewRR(insts.OpSUB, 4, 1, 1), 2, insts.StageFetch, 1)

			Expect(hazardUnit.DetectDependencies(reader, []*insts.Instruction{producer})).
				To(Equal([]uint64{1}))
		})

		It("should treat the stored register as a source", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 5, 2, 3), 1, insts.StageExecute, 1)
			store := inFlight(insts.NewStore(5, 9, 4), 2, insts.StageDecode, 1)

			Expect(hazardUnit.DetectDependencies(store, []*insts.Instruction{producer})).
				To(ConsistOf(uint64(1)))
		})

		It("should skip the consumer itself", func() {
			self := inFlight(insts.NewRR(insts.OpADD, 1, 1, 2), 3, insts.StageDecode, 1)

			Expect(hazardUnit.DetectDependencies(self, []*insts.Instruction{self})).To(BeEmpty())
		})
	})

	Context("with forwarding", func() {
		BeforeEach(func() {
			hazardUnit = pipeline.NewHazardUnit(true)
		})

		It("should forward an ALU result in its last Execute cycle", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 1, 2, 3), 1, insts.StageExecute, 1)

			result := hazardUnit.Analyze(consumer, []*insts.Instruction{producer})

			Expect(result.Blocking).To(BeEmpty())
			Expect(result.Forwarded).To(ConsistOf(uint64(1)))
		})

		It("should block on an ALU result with cycles left", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 1, 2, 3), 1, insts.StageExecute, 2)

			Expect(hazardUnit.DetectDependencies(consumer, []*insts.Instruction{producer})).
				To(ConsistOf(uint64(1)))
		})

		It("should block on an ALU producer still in Decode", func() {
			producer := inFlight(insts.NewRR(insts.OpADD, 1, 2, 3), 1, insts.StageDecode, 1)

			Expect(hazardUnit.DetectDependencies(consumer, []*insts.Instruction{producer})).
				To(ConsistOf(uint64(1)))
		})

		It("should forward load data from Memory", func() {
			producer := inFlight(insts.NewLoad(1, 20, 0), 1, insts.StageMemory, 0)

			result := hazardUnit.Analyze(consumer, []*insts.Instruction{producer})

			Expect(result.Blocking).To(BeEmpty())
			Expect(result.Forwarded).To(ConsistOf(uint64(1)))
		})

		It("should block on a load still in Execute", func() {
			producer := inFlight(insts.NewLoad(1, 20, 0), 1, insts.StageExecute, 1)

			Expect(hazardUnit.DetectDependencies(consumer, []*insts.Instruction{producer})).
				To(ConsistOf(uint64(1)))
		})

		It("should block on a multiply", func() {
			producer := inFlight(insts.NewRR(insts.OpMUL, 1, 2, 3), 1, insts.StageExecute, 1)

			Expect(hazardUnit.CanForward(producer)).To(BeFalse())
			Expect(hazardUnit.DetectDependencies(consumer, []*insts.Instruction{producer})).
				To(ConsistOf(uint64(1)))
		})
	})
})
