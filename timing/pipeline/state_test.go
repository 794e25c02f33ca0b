package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

var _ = Describe("IssueOrder", func() {
	var order pipeline.IssueOrder

	BeforeEach(func() {
		order = pipeline.IssueOrder{}
		order.Push(3)
		order.Push(5)
		order.Push(9)
	})

	It("should rank ids oldest first", func() {
		Expect(order.Ranks()).To(Equal(map[uint64]int{3: 0, 5: 1, 9: 2}))
	})

	It("should close the gap on removal", func() {
		order.Remove(5)

		Expect(order.IDs()).To(Equal([]uint64{3, 9}))
		Expect(order.Ranks()[9]).To(Equal(1))
	})

	It("should ignore unknown ids", func() {
		order.Remove(42)

		Expect(order.Len()).To(Equal(3))
	})
})

var _ = Describe("Statistics", func() {
	It("should return zero ratios before any cycle", func() {
		var stats pipeline.Statistics

		Expect(stats.IPC()).To(BeZero())
		Expect(stats.CPI()).To(BeZero())
		Expect(stats.Utilization(insts.StageFetch)).To(BeZero())
	})

	It("should derive IPC and CPI", func() {
		stats := pipeline.Statistics{Cycles: 8, Instructions: 2}

		Expect(stats.IPC()).To(BeNumerically("~", 0.25))
		Expect(stats.CPI()).To(BeNumerically("~", 4.0))
	})

	It("should deep-copy occupancy on clone", func() {
		stats := pipeline.Statistics{
			StageOccupancy: map[insts.Stage]uint64{insts.StageFetch: 3},
		}

		clone := stats.Clone()
		clone.StageOccupancy[insts.StageFetch] = 9

		Expect(stats.Occupancy(insts.StageFetch)).To(Equal(uint64(3)))
	})
})

var _ = Describe("Kind", func() {
	DescribeTable("parsing",
		func(text string, expected pipeline.Kind) {
			kind, err := pipeline.ParseKind(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(kind).To(Equal(expected))
		},
		Entry("scalar", "scalar", pipeline.KindScalar),
		Entry("superscalar", "Superscalar", pipeline.KindSuperscalar),
		Entry("empty defaults to scalar", "", pipeline.KindScalar),
	)

	It("should reject unknown kinds", func() {
		_, err := pipeline.ParseKind("vliw")
		Expect(err).To(HaveOccurred())
	})

	It("should create the matching engine", func() {
		Expect(pipeline.New(pipeline.KindScalar).Kind()).To(Equal(pipeline.KindScalar))
		Expect(pipeline.New(pipeline.KindSuperscalar).Kind()).To(Equal(pipeline.KindSuperscalar))
	})
})
