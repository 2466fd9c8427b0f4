package cache

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vkngwrapper/memsim/memutils"
	"golang.org/x/exp/slog"
)

var _ = Describe("Hierarchy", func() {
	var (
		logs      *bytes.Buffer
		hierarchy *Hierarchy
	)

	l1 := LevelConfig{Name: "L1", Size: 64, BlockSize: 16, Associativity: 1, Policy: ReplacementLRU, Latency: 1}
	l2 := LevelConfig{Name: "L2", Size: 256, BlockSize: 32, Associativity: 2, Policy: ReplacementFIFO, Latency: 10}

	BeforeEach(func() {
		logs = new(bytes.Buffer)
		logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
		hierarchy = NewHierarchy(logger, HierarchyOptions{})
	})

	It("should fail before any level is added", func() {
		Expect(hierarchy.IsInitialized()).To(BeFalse())

		_, err := hierarchy.Access(0, false)
		Expect(errors.Is(err, memutils.ErrNotInitialized)).To(BeTrue())
		Expect(hierarchy.Stats().Requests).To(BeZero())
	})

	It("should reject an invalid level and keep the existing ones", func() {
		Expect(hierarchy.AddLevel(l1)).To(Succeed())

		bad := l2
		bad.BlockSize = 48
		err := hierarchy.AddLevel(bad)
		Expect(errors.Is(err, memutils.ErrInvalidConfiguration)).To(BeTrue())

		Expect(hierarchy.Config()).To(Equal([]LevelConfig{l1}))
	})

	Context("with two levels", func() {
		BeforeEach(func() {
			Expect(hierarchy.AddLevel(l1)).To(Succeed())
			Expect(hierarchy.AddLevel(l2)).To(Succeed())
		})

		It("should use the default memory latency", func() {
			Expect(hierarchy.MemoryLatency()).To(Equal(DefaultMemoryLatency))
			Expect(hierarchy.IsInitialized()).To(BeTrue())
			Expect(hierarchy.Config()).To(Equal([]LevelConfig{l1, l2}))
		})

		It("should charge every level and memory on a cold miss", func() {
			result, err := hierarchy.Access(0x100, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(AccessResult{Level: MemoryLevelName, Cycles: 111}))
		})

		It("should stop at the first level that hits", func() {
			_, err := hierarchy.Access(0x100, false)
			Expect(err).NotTo(HaveOccurred())

			result, err := hierarchy.Access(0x104, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(AccessResult{Level: "L1", Cycles: 1, Hit: true}))

			stats := hierarchy.Stats()
			Expect(stats.Levels[0].Hits).To(Equal(uint64(1)))
			Expect(stats.Levels[1].Accesses).To(Equal(uint64(1)))
		})

		It("should hit in L2 when only L1 has lost the line", func() {
			_, err := hierarchy.Access(0x000, false)
			Expect(err).NotTo(HaveOccurred())
			// Same L1 set, different L2 set
			_, err = hierarchy.Access(0x040, false)
			Expect(err).NotTo(HaveOccurred())

			result, err := hierarchy.Access(0x000, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(AccessResult{Level: "L2", Cycles: 11, Hit: true}))
		})

		It("should accumulate the total access time", func() {
			for _, address := range []uint64{0x00, 0x00, 0x40, 0x00} {
				_, err := hierarchy.Access(address, false)
				Expect(err).NotTo(HaveOccurred())
			}

			stats := hierarchy.Stats()
			Expect(stats.Requests).To(Equal(uint64(4)))
			Expect(stats.MemoryAccesses).To(Equal(uint64(2)))
			Expect(stats.TotalAccessTime).To(Equal(uint64(111 + 1 + 111 + 11)))
			Expect(stats.AverageAccessTime()).To(BeNumerically("~", 234.0/4, 1e-9))
			Expect(stats.Levels[0].AccessTime).To(Equal(uint64(4)))
			Expect(stats.Levels[1].AccessTime).To(Equal(uint64(30)))
		})

		It("should log evictions", func() {
			_, _ = hierarchy.Access(0x00, true)
			_, _ = hierarchy.Access(0x40, false)

			Expect(logs.String()).To(ContainSubstring("Hierarchy::Evict"))
			Expect(logs.String()).To(ContainSubstring("WriteBack=true"))
			Expect(hierarchy.Stats().Levels[0].WriteBacks).To(Equal(uint64(1)))
		})

		It("should reset counters but keep lines", func() {
			_, err := hierarchy.Access(0x100, false)
			Expect(err).NotTo(HaveOccurred())

			hierarchy.ResetStats()
			stats := hierarchy.Stats()
			Expect(stats.TotalAccessTime).To(BeZero())
			Expect(stats.Requests).To(BeZero())
			Expect(stats.Levels[0].Statistics).To(BeZero())
			Expect(stats.Levels[1].Statistics).To(BeZero())

			result, err := hierarchy.Access(0x100, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Hit).To(BeTrue())
			Expect(hierarchy.Stats().TotalAccessTime).To(Equal(uint64(1)))
		})

		It("should print stats as json", func() {
			_, err := hierarchy.Access(0x100, false)
			Expect(err).NotTo(HaveOccurred())

			writer := jwriter.NewWriter()
			hierarchy.PrintStats(&writer)
			Expect(writer.Error()).NotTo(HaveOccurred())

			var report map[string]any
			Expect(json.Unmarshal(writer.Bytes(), &report)).To(Succeed())
			Expect(report["Requests"]).To(Equal(1.0))
			Expect(report["TotalAccessTime"]).To(Equal(111.0))
			Expect(report["Levels"]).To(HaveLen(2))

			levels := report["Levels"].([]any)
			Expect(levels[1].(map[string]any)["Config"]).To(Equal("L2: 256 bytes, 32B blocks, 2-way, FIFO, 10 cycles"))
		})
	})

	It("should honor a custom memory latency", func() {
		hierarchy = NewHierarchy(slog.New(slog.NewTextHandler(io.Discard, nil)), HierarchyOptions{
			Flags:         CreateExternallySynchronized,
			MemoryLatency: 250,
		})
		Expect(hierarchy.AddLevel(l1)).To(Succeed())

		result, err := hierarchy.Access(0, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Cycles).To(Equal(251))
	})
})
