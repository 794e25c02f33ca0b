package thread_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/thread"
)

// program builds n independent ADDs writing registers base, base+1, ...
func program(n int, base uint8) []insts.Instruction {
	out := make([]insts.Instruction, n)
	for i := range out {
		out[i] = insts.NewRR(insts.OpADD, base+uint8(i), 30, 31)
	}
	return out
}

func threadIDs(stream []insts.Instruction) []int {
	ids := make([]int, len(stream))
	for i, inst := range stream {
		ids[i] = inst.ThreadID
	}
	return ids
}

var _ = Describe("Merge", func() {
	var a, b *thread.Context

	BeforeEach(func() {
		a = thread.NewContext(1, program(3, 1))
		b = thread.NewContext(2, program(5, 10))
	})

	It("should pass threads through in FIFO order with no mode", func() {
		stream := thread.Merge(thread.ModeNone, []*thread.Context{a, b}, 0)

		Expect(threadIDs(stream)).To(Equal([]int{1, 1, 1, 2, 2, 2, 2, 2}))
	})

	It("should treat SMT like FIFO at admission", func() {
		stream := thread.Merge(thread.ModeSMT, []*thread.Context{a, b}, 0)

		Expect(threadIDs(stream)).To(Equal([]int{1, 1, 1, 2, 2, 2, 2, 2}))
	})

	It("should alternate strictly under IMT and continue with the longer thread", func() {
		stream := thread.Merge(thread.ModeIMT, []*thread.Context{a, b}, 0)

		Expect(threadIDs(stream)).To(Equal([]int{1, 2, 1, 2, 1, 2, 2, 2}))
	})

	It("should tag each IMT instruction with its thread's color", func() {
		stream := thread.Merge(thread.ModeIMT, []*thread.Context{a, b}, 0)

		Expect(stream[0].Color).To(Equal(thread.ColorFor(0)))
		Expect(stream[1].Color).To(Equal(thread.ColorFor(1)))
		Expect(stream[0].Color).NotTo(Equal(stream[1].Color))
	})

	It("should merge in blocks of two under BMT", func() {
		stream := thread.Merge(thread.ModeBMT, []*thread.Context{a, b}, thread.DefaultBlockSize)

		Expect(threadIDs(stream)).To(Equal([]int{1, 1, 2, 2, 1, 2, 2, 2}))
	})

	It("should honor a custom BMT block size", func() {
		stream := thread.Merge(thread.ModeBMT, []*thread.Context{a, b}, 3)

		Expect(threadIDs(stream)).To(Equal([]int{1, 1, 1, 2, 2, 2, 2, 2}))
	})

	It("should keep each thread's program order", func() {
		stream := thread.Merge(thread.ModeIMT, []*thread.Context{a, b}, 0)

		var fromB []uint8
		for _, inst := range stream {
			if inst.ThreadID == 2 {
				fromB = append(fromB, inst.Dst.Number)
			}
		}
		Expect(fromB).To(Equal([]uint8{10, 11, 12, 13, 14}))
	})

	It("should advance every thread's program counter", func() {
		thread.Merge(thread.ModeIMT, []*thread.Context{a, b}, 0)

		Expect(a.PC).To(Equal(3))
		Expect(b.PC).To(Equal(5))
		Expect(a.Remaining()).To(BeZero())
		Expect(a.State).To(Equal(thread.StateRunning))
	})
})

var _ = Describe("Mode", func() {
	DescribeTable("ParseMode",
		func(s string, mode thread.Mode) {
			m, err := thread.ParseMode(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(Equal(mode))
		},
		Entry("none", "none", thread.ModeNone),
		Entry("IMT", "IMT", thread.ModeIMT),
		Entry("bmt", "bmt", thread.ModeBMT),
		Entry("SMT", "Smt", thread.ModeSMT),
	)

	It("should reject unknown modes", func() {
		_, err := thread.ParseMode("fgmt")
		Expect(err).To(HaveOccurred())
	})

	It("should only allow cross-thread issue without interleaving", func() {
		Expect(thread.ModeNone.AllowsCrossThreadIssue()).To(BeTrue())
		Expect(thread.ModeSMT.AllowsCrossThreadIssue()).To(BeTrue())
		Expect(thread.ModeIMT.AllowsCrossThreadIssue()).To(BeFalse())
		Expect(thread.ModeBMT.AllowsCrossThreadIssue()).To(BeFalse())
	})
})
