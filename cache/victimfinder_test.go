package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LRUVictimFinder", func() {
	var finder *LRUVictimFinder

	BeforeEach(func() {
		finder = NewLRUVictimFinder()
	})

	It("should pick the smallest last access", func() {
		set := &Set{Lines: []Line{
			{Valid: true, LastAccess: 7},
			{Valid: true, LastAccess: 3},
			{Valid: true, LastAccess: 5},
		}}

		Expect(finder.FindVictim(set)).To(Equal(1))
	})

	It("should break ties toward the lowest way", func() {
		set := &Set{Lines: []Line{
			{Valid: true, LastAccess: 9},
			{Valid: true, LastAccess: 2},
			{Valid: true, LastAccess: 2},
		}}

		Expect(finder.FindVictim(set)).To(Equal(1))
	})

	It("should not track fills", func() {
		set := &Set{Lines: make([]Line, 2)}
		finder.Fill(set, 1)
		Expect(set.FIFOQueue).To(BeEmpty())
	})
})

var _ = Describe("FIFOVictimFinder", func() {
	var finder *FIFOVictimFinder

	BeforeEach(func() {
		finder = NewFIFOVictimFinder()
	})

	It("should evict in fill order", func() {
		set := &Set{Lines: make([]Line, 3)}
		finder.Fill(set, 2)
		finder.Fill(set, 0)
		finder.Fill(set, 1)

		Expect(finder.FindVictim(set)).To(Equal(2))
		Expect(finder.FindVictim(set)).To(Equal(0))
		Expect(set.FIFOQueue).To(Equal([]int{1}))
	})
})

var _ = Describe("ReplacementPolicy", func() {
	It("should parse names in any case", func() {
		policy, err := ParseReplacementPolicy(" lru ")
		Expect(err).NotTo(HaveOccurred())
		Expect(policy).To(Equal(ReplacementLRU))

		policy, err = ParseReplacementPolicy("FIFO")
		Expect(err).NotTo(HaveOccurred())
		Expect(policy).To(Equal(ReplacementFIFO))
		Expect(policy.String()).To(Equal("FIFO"))
	})

	It("should reject unknown names", func() {
		_, err := ParseReplacementPolicy("random")
		Expect(err).To(HaveOccurred())

		_, err = NewVictimFinder(ReplacementPolicy(4))
		Expect(err).To(HaveOccurred())
		Expect(ReplacementPolicy(4).String()).To(Equal("Unknown"))
	})
})
