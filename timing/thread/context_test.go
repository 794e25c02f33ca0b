package thread_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/thread"
)

var _ = Describe("Context", func() {
	var ctx *thread.Context

	BeforeEach(func() {
		ctx = thread.NewContext(3, []insts.Instruction{
			insts.NewRR(insts.OpADD, 1, 2, 3),
			insts.NewRR(insts.OpMUL, 4, 1, 5),
		})
	})

	It("should start ready and tag its instructions", func() {
		Expect(ctx.State).To(Equal(thread.StateReady))
		Expect(ctx.Instructions[0].ThreadID).To(Equal(3))
		Expect(ctx.Instructions[1].ThreadID).To(Equal(3))
	})

	It("should not share instructions with the caller", func() {
		src := []insts.Instruction{insts.NewRR(insts.OpADD, 1, 2, 3)}
		c := thread.NewContext(1, src)
		c.Instructions[0].Dst.Number = 9

		Expect(src[0].Dst.Number).To(Equal(uint8(1)))
	})

	It("should ignore observations before dispatch", func() {
		ctx.Observe(0, false)

		Expect(ctx.Metrics.CyclesExecuted).To(BeZero())
		Expect(ctx.State).To(Equal(thread.StateReady))
	})

	It("should track run-state and metrics through completion", func() {
		ctx.Next()
		ctx.Next()
		Expect(ctx.State).To(Equal(thread.StateRunning))

		ctx.Observe(0, true)
		Expect(ctx.State).To(Equal(thread.StateBlocked))

		ctx.Observe(1, false)
		Expect(ctx.State).To(Equal(thread.StateRunning))

		ctx.Observe(0, false)
		ctx.Observe(1, false)
		Expect(ctx.State).To(Equal(thread.StateCompleted))

		Expect(ctx.Metrics.CyclesExecuted).To(Equal(uint64(4)))
		Expect(ctx.Metrics.InstructionsCompleted).To(Equal(uint64(2)))
		Expect(ctx.Metrics.StallCycles).To(Equal(uint64(1)))
		Expect(ctx.Metrics.BubbleCycles).To(Equal(uint64(1)))

		ctx.Observe(0, false)
		Expect(ctx.Metrics.CyclesExecuted).To(Equal(uint64(4)))
	})
})
