package perflog_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/perflog"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

var _ = Describe("Store", func() {
	var store *perflog.Store

	BeforeEach(func() {
		var err error
		store, err = perflog.Open("")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	It("should start empty", func() {
		entries, err := store.List()

		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("should list entries in insertion order", func() {
		for _, name := range []string{"alpha", "beta", "gamma"} {
			_, err := store.Add(perflog.Entry{Name: name})
			Expect(err).NotTo(HaveOccurred())
		}

		entries, err := store.List()

		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(3))
		Expect(entries[0].Name).To(Equal("alpha"))
		Expect(entries[2].Name).To(Equal("gamma"))
		Expect(entries[2].Seq).To(Equal(uint64(3)))
	})

	It("should summarize statistics", func() {
		stats := pipeline.Statistics{Cycles: 14, Instructions: 10, BubbleCycles: 1, Stalls: 2}

		seq, err := store.Add(perflog.NewEntry("alu", stats))
		Expect(err).NotTo(HaveOccurred())

		entry, ok, err := store.Get(seq)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(entry.Cycles).To(Equal(uint64(14)))
		Expect(entry.IPC).To(BeNumerically("~", 10.0/14.0))
	})

	It("should report missing entries", func() {
		_, ok, err := store.Get(99)

		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should clear entries and keep numbering", func() {
		_, _ = store.Add(perflog.Entry{Name: "a"})
		_, _ = store.Add(perflog.Entry{Name: "b"})

		n, err := store.Clear()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		entries, _ := store.List()
		Expect(entries).To(BeEmpty())

		seq, _ := store.Add(perflog.Entry{Name: "c"})
		Expect(seq).To(Equal(uint64(3)))
	})

	It("should persist across reopen", func() {
		path := filepath.Join(GinkgoT().TempDir(), "perf")
		disk, err := perflog.Open(path)
		Expect(err).NotTo(HaveOccurred())
		_, err = disk.Add(perflog.Entry{Name: "saved", Cycles: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(disk.Close()).To(Succeed())

		disk, err = perflog.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer disk.Close()

		entries, err := disk.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name).To(Equal("saved"))
	})
})
