// Package config provides the simulator configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// MaxFetchWidth is the number of slots in an instruction group.
const MaxFetchWidth = 4

// ICacheConfig describes the instruction cache geometry.
type ICacheConfig struct {
	// Size in bytes.
	Size int `json:"size"`
	// Associativity (number of ways).
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size).
	BlockSize int `json:"block_size"`
	// HitLatency in cycles.
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles.
	MissLatency uint64 `json:"miss_latency"`
}

// SimConfig holds the run-time parameters of a simulation.
type SimConfig struct {
	// ClockPeriodMS is the wall-clock length of one cycle in milliseconds.
	// Default: 1000 (one stage per second).
	ClockPeriodMS int64 `json:"clock_period_ms"`

	// FetchWidth is the number of source lines read per Fetch stage.
	// Default: 4.
	FetchWidth int `json:"fetch_width"`

	// QueueCapacity is the number of groups the group queue can hold.
	// Default: 4.
	QueueCapacity int `json:"queue_capacity"`

	// MaxCycles stops the clock after this many pulses. 0 runs forever.
	MaxCycles uint64 `json:"max_cycles"`

	// ICache is the instruction cache probed by the prefetch stage.
	// Default: 16KB, 4-way, 32B lines (UltraSPARC I-cache).
	ICache ICacheConfig `json:"icache"`
}

// DefaultSimConfig returns a SimConfig with the default values.
func DefaultSimConfig() *SimConfig {
	return &SimConfig{
		ClockPeriodMS: 1000,
		FetchWidth:    MaxFetchWidth,
		QueueCapacity: 4,
		MaxCycles:     0,
		ICache: ICacheConfig{
			Size:          16 * 1024,
			Associativity: 4,
			BlockSize:     32,
			HitLatency:    1,
			MissLatency:   8,
		},
	}
}

// ClockPeriod returns the clock period as a duration.
func (c *SimConfig) ClockPeriod() time.Duration {
	return time.Duration(c.ClockPeriodMS) * time.Millisecond
}

// LoadConfig loads a SimConfig from a JSON file. Fields absent from the file
// keep their default values.
func LoadConfig(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultSimConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a SimConfig to a JSON file.
func (c *SimConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that all values are usable.
func (c *SimConfig) Validate() error {
	if c.ClockPeriodMS <= 0 {
		return fmt.Errorf("clock_period_ms must be > 0")
	}
	if c.FetchWidth <= 0 || c.FetchWidth > MaxFetchWidth {
		return fmt.Errorf("fetch_width must be between 1 and %d", MaxFetchWidth)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be > 0")
	}
	if c.ICache.BlockSize <= 0 || c.ICache.Associativity <= 0 {
		return fmt.Errorf("icache block_size and associativity must be > 0")
	}
	if c.ICache.Size%(c.ICache.BlockSize*c.ICache.Associativity) != 0 ||
		c.ICache.Size == 0 {
		return fmt.Errorf("icache size must be a non-zero multiple of block_size*associativity")
	}
	return nil
}

// Clone returns a copy of the SimConfig.
func (c *SimConfig) Clone() *SimConfig {
	clone := *c
	return &clone
}
