package core_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/pipeline"
	"github.com/sarchlab/pipesim/timing/thread"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should provide valid defaults", func() {
		config := core.DefaultConfig()

		Expect(config.Validate()).To(Succeed())
		Expect(config.BMTBlockSize).To(Equal(2))
		Expect(config.Superscalar.IssueWidth).To(Equal(2))
	})

	It("should round-trip through a file", func() {
		config := core.DefaultConfig()
		config.Pipeline = pipeline.KindSuperscalar
		config.Threading = thread.ModeSMT
		config.Forwarding = true
		config.Timing.MultiplyLatency = 6
		path := filepath.Join(dir, "config.json")

		Expect(config.SaveConfig(path)).To(Succeed())
		loaded, err := core.LoadConfig(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(config))
	})

	It("should keep defaults for fields missing from the file", func() {
		path := filepath.Join(dir, "partial.json")
		Expect(os.WriteFile(path, []byte(`{"pipeline": "superscalar", "threading": "imt"}`), 0644)).To(Succeed())

		loaded, err := core.LoadConfig(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Pipeline).To(Equal(pipeline.KindSuperscalar))
		Expect(loaded.Threading).To(Equal(thread.ModeIMT))
		Expect(loaded.Timing.LoadStoreLatency).To(Equal(uint64(3)))
		Expect(loaded.Superscalar.Limit(insts.UnitClassALU)).To(Equal(2))
	})

	It("should reject unknown names as configuration errors", func() {
		path := filepath.Join(dir, "bad.json")
		Expect(os.WriteFile(path, []byte(`{"pipeline": "vliw"}`), 0644)).To(Succeed())

		_, err := core.LoadConfig(path)

		var cfgErr *core.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
	})

	It("should reject invalid values", func() {
		config := core.DefaultConfig()
		config.BMTBlockSize = 0
		Expect(config.Validate()).To(MatchError(ContainSubstring("bmt_block_size")))

		config = core.DefaultConfig()
		config.Timing.ALULatency = 0
		Expect(config.Validate()).To(MatchError(ContainSubstring("alu_latency")))

		config = core.DefaultConfig()
		config.Superscalar.IssueWidth = 0
		Expect(config.Validate()).To(MatchError(ContainSubstring("issue_width")))
	})

	It("should fail to build a simulator from an invalid config", func() {
		config := core.DefaultConfig()
		config.BMTBlockSize = -1

		_, err := core.NewSimulatorChecked(core.WithConfig(config))

		Expect(err).To(HaveOccurred())
	})

	It("should clone deeply", func() {
		config := core.DefaultConfig()
		clone := config.Clone()
		clone.Timing.ALULatency = 9
		clone.Superscalar.UnitLimits[insts.UnitClassALU] = 4

		Expect(config.Timing.ALULatency).To(Equal(uint64(1)))
		Expect(config.Superscalar.Limit(insts.UnitClassALU)).To(Equal(2))
	})

	It("should fail on a missing file", func() {
		_, err := core.LoadConfig(filepath.Join(dir, "missing.json"))
		Expect(err).To(HaveOccurred())
	})
})
