package cache

import (
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vkngwrapper/memsim/memutils"
	gomock "go.uber.org/mock/gomock"
)

func hits(level *Level, addresses ...uint64) []bool {
	out := make([]bool, 0, len(addresses))
	for _, address := range addresses {
		out = append(out, level.Access(address, false).Hit)
	}
	return out
}

var _ = Describe("LevelConfig", func() {
	valid := LevelConfig{Name: "L1", Size: 256, BlockSize: 16, Associativity: 4, Policy: ReplacementLRU, Latency: 1}

	It("should derive lines and sets", func() {
		Expect(valid.NumLines()).To(Equal(16))
		Expect(valid.NumSets()).To(Equal(4))
		Expect(valid.Validate()).To(Succeed())
	})

	It("should describe itself", func() {
		Expect(valid.String()).To(Equal("L1: 256 bytes, 16B blocks, 4-way, LRU, 1 cycles"))
	})

	DescribeTable("should reject unusable geometry",
		func(mutate func(c *LevelConfig)) {
			config := valid
			mutate(&config)

			err := config.Validate()
			Expect(errors.Is(err, memutils.ErrInvalidConfiguration)).To(BeTrue())

			_, err = NewLevel(config)
			Expect(errors.Is(err, memutils.ErrInvalidConfiguration)).To(BeTrue())
		},
		Entry("empty name", func(c *LevelConfig) { c.Name = "" }),
		Entry("zero size", func(c *LevelConfig) { c.Size = 0 }),
		Entry("negative associativity", func(c *LevelConfig) { c.Associativity = -2 }),
		Entry("negative latency", func(c *LevelConfig) { c.Latency = -1 }),
		Entry("unknown policy", func(c *LevelConfig) { c.Policy = ReplacementPolicy(9) }),
		Entry("block size not a power of two", func(c *LevelConfig) { c.BlockSize = 24 }),
		Entry("size smaller than a block", func(c *LevelConfig) { c.Size = 8 }),
		Entry("associativity does not divide lines", func(c *LevelConfig) { c.Associativity = 3 }),
		Entry("set count not a power of two", func(c *LevelConfig) { c.Size = 192 }),
	)

	It("should report a power of two failure as both error kinds", func() {
		config := valid
		config.BlockSize = 12

		err := config.Validate()
		Expect(errors.Is(err, memutils.ErrInvalidConfiguration)).To(BeTrue())
		Expect(errors.Is(err, memutils.PowerOfTwoError)).To(BeTrue())
	})
})

var _ = Describe("Level", func() {
	It("should decompose addresses", func() {
		level, err := NewLevel(LevelConfig{Name: "L1", Size: 256, BlockSize: 16, Associativity: 4, Policy: ReplacementLRU, Latency: 1})
		Expect(err).NotTo(HaveOccurred())

		set, tag := level.Decompose(0x1234)
		Expect(set).To(Equal(3))
		Expect(tag).To(Equal(uint64(0x48)))
	})

	It("should hit on a warm direct-mapped cache with four sets", func() {
		level, err := NewLevel(LevelConfig{Name: "L1", Size: 64, BlockSize: 16, Associativity: 1, Policy: ReplacementFIFO, Latency: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(hits(level, 0, 16, 32, 0)).To(Equal([]bool{false, false, false, true}))
	})

	It("should miss every time when addresses conflict in a two-set cache", func() {
		level, err := NewLevel(LevelConfig{Name: "L1", Size: 32, BlockSize: 16, Associativity: 1, Policy: ReplacementFIFO, Latency: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(hits(level, 0, 16, 32, 0)).To(Equal([]bool{false, false, false, false}))
		Expect(level.Stats().Evictions).To(Equal(uint64(2)))
	})

	It("should evict the least recently used line under LRU", func() {
		level, err := NewLevel(LevelConfig{Name: "L1", Size: 32, BlockSize: 16, Associativity: 2, Policy: ReplacementLRU, Latency: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(hits(level, 0x00, 0x10, 0x00)).To(Equal([]bool{false, false, true}))

		result := level.Access(0x20, false)
		Expect(result.Hit).To(BeFalse())
		Expect(result.Evicted).To(BeTrue())
		Expect(result.EvictedTag).To(Equal(uint64(1)))

		Expect(hits(level, 0x00)).To(Equal([]bool{true}))
		Expect(hits(level, 0x10)).To(Equal([]bool{false}))
	})

	It("should evict the oldest line under FIFO regardless of reuse", func() {
		level, err := NewLevel(LevelConfig{Name: "L1", Size: 32, BlockSize: 16, Associativity: 2, Policy: ReplacementFIFO, Latency: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(hits(level, 0x00, 0x10, 0x00)).To(Equal([]bool{false, false, true}))

		result := level.Access(0x20, false)
		Expect(result.Evicted).To(BeTrue())
		Expect(result.EvictedTag).To(Equal(uint64(0)))
		Expect(result.Way).To(Equal(0))

		Expect(hits(level, 0x10)).To(Equal([]bool{true}))
	})

	It("should count a write-back once when a dirty line is evicted", func() {
		level, err := NewLevel(LevelConfig{Name: "L1", Size: 16, BlockSize: 16, Associativity: 1, Policy: ReplacementLRU, Latency: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(level.Access(0x00, true).Hit).To(BeFalse())
		Expect(level.Line(0, 0).Dirty).To(BeTrue())

		result := level.Access(0x10, false)
		Expect(result.WriteBack).To(BeTrue())
		Expect(level.Line(0, 0).Dirty).To(BeFalse())

		result = level.Access(0x00, false)
		Expect(result.Evicted).To(BeTrue())
		Expect(result.WriteBack).To(BeFalse())

		Expect(level.Stats().WriteBacks).To(Equal(uint64(1)))
	})

	It("should mark a line dirty on a write hit", func() {
		level, err := NewLevel(LevelConfig{Name: "L1", Size: 64, BlockSize: 16, Associativity: 1, Policy: ReplacementLRU, Latency: 1})
		Expect(err).NotTo(HaveOccurred())

		level.Access(0x00, false)
		Expect(level.Line(0, 0).Dirty).To(BeFalse())

		Expect(level.Access(0x04, true).Hit).To(BeTrue())
		Expect(level.Line(0, 0).Dirty).To(BeTrue())
		Expect(level.Stats().WriteBacks).To(BeZero())
	})

	It("should charge latency on every probe", func() {
		level, err := NewLevel(LevelConfig{Name: "L2", Size: 64, BlockSize: 16, Associativity: 1, Policy: ReplacementLRU, Latency: 10})
		Expect(err).NotTo(HaveOccurred())

		hits(level, 0, 0, 64)

		stats := level.Stats()
		Expect(stats.Accesses).To(Equal(uint64(3)))
		Expect(stats.Hits).To(Equal(uint64(1)))
		Expect(stats.Misses).To(Equal(uint64(2)))
		Expect(stats.AccessTime).To(Equal(uint64(30)))
		Expect(stats.HitRatio()).To(BeNumerically("~", 100.0/3, 1e-9))
	})

	It("should keep lines when stats are reset", func() {
		level, err := NewLevel(LevelConfig{Name: "L1", Size: 64, BlockSize: 16, Associativity: 1, Policy: ReplacementLRU, Latency: 1})
		Expect(err).NotTo(HaveOccurred())

		hits(level, 0)
		level.ResetStats()
		Expect(level.Stats()).To(BeZero())

		Expect(hits(level, 0)).To(Equal([]bool{true}))
		Expect(level.Stats().HitRatio()).To(Equal(100.0))
	})

	Context("with a mock victim finder", func() {
		var (
			mockCtrl *gomock.Controller
			finder   *MockVictimFinder
			level    *Level
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			finder = NewMockVictimFinder(mockCtrl)

			var err error
			level, err = NewLevelWithVictimFinder(LevelConfig{Name: "L1", Size: 32, BlockSize: 16, Associativity: 2, Policy: ReplacementLRU, Latency: 1}, finder)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should fill empty ways without asking for a victim", func() {
			finder.EXPECT().Fill(gomock.Any(), 0)
			finder.EXPECT().Fill(gomock.Any(), 1)

			level.Access(0x00, false)
			level.Access(0x10, false)
		})

		It("should evict the way chosen by the finder", func() {
			finder.EXPECT().Fill(gomock.Any(), gomock.Any()).Times(2)
			level.Access(0x00, true)
			level.Access(0x10, false)

			finder.EXPECT().FindVictim(gomock.Any()).Return(0)
			finder.EXPECT().Fill(gomock.Any(), 0)

			result := level.Access(0x20, false)
			Expect(result.Way).To(Equal(0))
			Expect(result.WriteBack).To(BeTrue())
			Expect(level.Line(0, 0).Tag).To(Equal(uint64(2)))
		})

		It("should not consult the finder on a hit", func() {
			finder.EXPECT().Fill(gomock.Any(), 0)
			level.Access(0x00, false)

			Expect(level.Access(0x00, false).Hit).To(BeTrue())
		})
	})
})
