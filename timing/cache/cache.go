// Package cache provides an instruction cache tag model using Akita cache components.
package cache

import (
	"sync"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/sparcsim/timing/config"
)

// AccessResult contains the result of a cache probe.
type AccessResult struct {
	// Hit indicates whether the probe was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the replaced block (if Evicted is true).
	EvictedAddr uint64
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Accesses  uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache models the tag array of an instruction cache. Instruction bytes are
// never stored; the prefetch stage only needs hit/miss behavior.
// It is safe for concurrent use.
type Cache struct {
	mu sync.Mutex

	config    config.ICacheConfig
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a new cache with the given configuration.
func New(cfg config.ICacheConfig) *Cache {
	numSets := cfg.Size / (cfg.Associativity * cfg.BlockSize)

	return &Cache{
		config: cfg,
		directory: akitacache.NewDirectory(
			numSets,
			cfg.Associativity,
			cfg.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() config.ICacheConfig {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}

// blockAddr returns the block-aligned address containing addr.
func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Access probes the cache for addr and fills the block on a miss.
func (c *Cache) Access(addr uint64) AccessResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Accesses++

	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return result
}

// Reset invalidates all cache lines and clears statistics.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.directory.Reset()
	c.stats = Statistics{}
}
