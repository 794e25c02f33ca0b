package report_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/report"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

var _ = Describe("Report", func() {
	var (
		trace *pipeline.Trace
		s     *core.Simulator
	)

	BeforeEach(func() {
		trace = pipeline.NewTrace()
		s = core.NewSimulator(core.WithTrace(trace))
		Expect(s.SubmitProgram([]insts.Instruction{
			insts.NewRR(insts.OpADD, 1, 2, 3),
			insts.NewRR(insts.OpSUB, 4, 1, 5),
			insts.NewLoad(6, 7, 0),
		})).To(Succeed())
	})

	It("should render an HTML page with both charts", func() {
		Expect(s.Run(100)).To(Succeed())
		var buf bytes.Buffer

		err := report.WriteHTML(&buf, "hazards", pipeline.KindScalar, trace, s.Stats())

		Expect(err).NotTo(HaveOccurred())
		html := buf.String()
		Expect(html).To(ContainSubstring("<html"))
		Expect(html).To(ContainSubstring("hazards"))
		Expect(html).To(ContainSubstring("MEM"))
	})

	It("should build one occupancy series per stage", func() {
		Expect(s.Run(100)).To(Succeed())

		line := report.OccupancyChart("t", pipeline.KindScalar.Stages(), trace)

		Expect(line.MultiSeries).To(HaveLen(5))
	})

	It("should render a snapshot tree", func() {
		s.Tick()
		s.Tick()
		s.Tick()

		tree := report.SnapshotTree(s.Snapshot())

		Expect(tree).To(ContainSubstring("scalar pipeline"))
		Expect(tree).To(ContainSubstring("#1 ADD r1, r2, r3"))
		Expect(tree).To(ContainSubstring("waits on [1]"))
		Expect(tree).To(ContainSubstring("#3 LW r6, 0(r7)"))
		Expect(tree).NotTo(ContainSubstring("pending"))
		Expect(tree).To(ContainSubstring("cycles: 3"))
	})
})
