package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sparcsim/timing/cache"
	"github.com/sarchlab/sparcsim/timing/config"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	BeforeEach(func() {
		// Small cache for testing: 256B, 2-way, 32B lines => 4 sets
		c = cache.New(config.ICacheConfig{
			Size:          256,
			Associativity: 2,
			BlockSize:     32,
			HitLatency:    1,
			MissLatency:   8,
		})
	})

	It("should miss on cold cache", func() {
		result := c.Access(0x0)

		Expect(result.Hit).To(BeFalse())
		Expect(result.Latency).To(Equal(uint64(8)))
		Expect(c.Stats().Misses).To(Equal(uint64(1)))
	})

	It("should hit on the same block after a miss", func() {
		c.Access(0x0)

		result := c.Access(0x1C)

		Expect(result.Hit).To(BeTrue())
		Expect(result.Latency).To(Equal(uint64(1)))

		stats := c.Stats()
		Expect(stats.Accesses).To(Equal(uint64(2)))
		Expect(stats.Hits).To(Equal(uint64(1)))
		Expect(stats.Misses).To(Equal(uint64(1)))
	})

	It("should evict the least recently used way", func() {
		// 0x000, 0x080 and 0x100 all map to set 0.
		c.Access(0x000)
		c.Access(0x080)
		c.Access(0x000)

		result := c.Access(0x100)

		Expect(result.Evicted).To(BeTrue())
		Expect(result.EvictedAddr).To(Equal(uint64(0x080)))
		Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		Expect(c.Access(0x000).Hit).To(BeTrue())
		Expect(c.Access(0x080).Hit).To(BeFalse())
	})

	It("should clear lines and stats on reset", func() {
		c.Access(0x40)
		c.Reset()

		Expect(c.Stats()).To(Equal(cache.Statistics{}))
		Expect(c.Access(0x40).Hit).To(BeFalse())
	})
})

var _ = Describe("Cache under concurrent use", func() {
	It("should keep counters consistent while probed and read", func() {
		c := cache.New(config.DefaultSimConfig().ICache)
		done := make(chan struct{})

		go func() {
			defer GinkgoRecover()
			defer close(done)
			for i := 0; i < 1000; i++ {
				c.Access(uint64(i) * 4)
			}
		}()

		for i := 0; i < 100; i++ {
			s := c.Stats()
			Expect(s.Hits + s.Misses).To(Equal(s.Accesses))
		}

		Eventually(done).Should(BeClosed())
		Expect(c.Stats().Accesses).To(Equal(uint64(1000)))
	})
})
