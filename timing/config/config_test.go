package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sparcsim/timing/config"
)

var _ = Describe("SimConfig", func() {
	Describe("DefaultSimConfig", func() {
		It("should run one stage per second with four-wide fetch", func() {
			c := config.DefaultSimConfig()

			Expect(c.ClockPeriod()).To(Equal(time.Second))
			Expect(c.FetchWidth).To(Equal(4))
			Expect(c.QueueCapacity).To(Equal(4))
			Expect(c.MaxCycles).To(BeZero())
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Validate", func() {
		var c *config.SimConfig

		BeforeEach(func() {
			c = config.DefaultSimConfig()
		})

		It("should reject a zero clock period", func() {
			c.ClockPeriodMS = 0
			Expect(c.Validate()).To(MatchError(ContainSubstring("clock_period_ms")))
		})

		It("should reject fetch widths beyond a group", func() {
			c.FetchWidth = 5
			Expect(c.Validate()).To(MatchError(ContainSubstring("fetch_width")))
		})

		It("should reject an empty queue", func() {
			c.QueueCapacity = 0
			Expect(c.Validate()).To(MatchError(ContainSubstring("queue_capacity")))
		})

		It("should reject an inconsistent cache geometry", func() {
			c.ICache.Size = 1000
			Expect(c.Validate()).To(MatchError(ContainSubstring("icache size")))
		})
	})

	Describe("Load and save", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "config-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"clock_period_ms": 5}`), 0644)).To(Succeed())

			c, err := config.LoadConfig(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(c.ClockPeriod()).To(Equal(5 * time.Millisecond))
			Expect(c.QueueCapacity).To(Equal(4))
		})

		It("should read back a saved config", func() {
			path := filepath.Join(tempDir, "full.json")
			c := config.DefaultSimConfig()
			c.MaxCycles = 21
			c.ICache.Associativity = 2

			Expect(c.SaveConfig(path)).To(Succeed())
			loaded, err := config.LoadConfig(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should fail on a missing file", func() {
			_, err := config.LoadConfig(filepath.Join(tempDir, "none.json"))
			Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
		})

		It("should fail on malformed JSON", func() {
			path := filepath.Join(tempDir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{`), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse config")))
		})
	})

	It("should clone independently", func() {
		c := config.DefaultSimConfig()
		clone := c.Clone()
		clone.FetchWidth = 1

		Expect(c.FetchWidth).To(Equal(4))
	})
})
