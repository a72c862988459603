package clock_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sparcsim/timing/clock"
)

// recorder collects the cycles one subscriber observes until it is released.
type recorder struct {
	mu     sync.Mutex
	cycles []uint64
	err    error
	done   chan struct{}
}

func record(ctx context.Context, sub *clock.Subscription) *recorder {
	r := &recorder{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		for {
			cycle, err := sub.Tick(ctx)
			if err != nil {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
				return
			}
			r.mu.Lock()
			r.cycles = append(r.cycles, cycle)
			r.mu.Unlock()
		}
	}()
	return r
}

func (r *recorder) Cycles() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.cycles...)
}

func (r *recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func sequence(n int) []uint64 {
	s := make([]uint64, n)
	for i := range s {
		s[i] = uint64(i)
	}
	return s
}

var _ = Describe("Clock", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	It("should default to a one second period", func() {
		Expect(clock.New().Period()).To(Equal(time.Second))
	})

	Describe("Pulse", func() {
		It("should deliver every pulse to every subscriber", func() {
			clk := clock.New()
			a := record(ctx, clk.Subscribe())
			b := record(ctx, clk.Subscribe())

			for i := 0; i < 10; i++ {
				cycle, err := clk.Pulse(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(cycle).To(Equal(uint64(i)))
			}
			clk.Stop()
			Eventually(a.done).Should(BeClosed())
			Eventually(b.done).Should(BeClosed())

			Expect(a.Cycles()).To(Equal(sequence(10)))
			Expect(b.Cycles()).To(Equal(sequence(10)))
			Expect(clk.Cycle()).To(Equal(uint64(10)))
		})

		It("should run hooks before delivering the pulse", func() {
			var hooked []uint64
			clk := clock.New(clock.WithPulseHook(func(cycle uint64) {
				hooked = append(hooked, cycle)
			}))

			_, err := clk.Pulse(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = clk.Pulse(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(hooked).To(Equal([]uint64{0, 1}))
		})

		It("should not wait for closed subscriptions", func() {
			clk := clock.New()
			sub := clk.Subscribe()
			sub.Close()

			_, err := clk.Pulse(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = sub.Tick(ctx)
			Expect(err).To(MatchError(clock.ErrStopped))
		})

		It("should fail once stopped", func() {
			clk := clock.New()
			clk.Stop()
			clk.Stop()

			_, err := clk.Pulse(ctx)
			Expect(err).To(MatchError(clock.ErrStopped))
		})
	})

	Describe("Tick", func() {
		It("should release waiting subscribers on stop", func() {
			clk := clock.New()
			r := record(ctx, clk.Subscribe())

			clk.Stop()

			Eventually(r.done).Should(BeClosed())
			Expect(r.Err()).To(MatchError(clock.ErrStopped))
			Expect(clk.Done()).To(BeClosed())
		})

		It("should return the context error on cancellation", func() {
			clk := clock.New()
			r := record(ctx, clk.Subscribe())

			cancel()

			Eventually(r.done).Should(BeClosed())
			Expect(errors.Is(r.Err(), context.Canceled)).To(BeTrue())
		})
	})

	Describe("Run", func() {
		It("should stop after the cycle limit and release subscribers", func() {
			clk := clock.New(
				clock.WithPeriod(time.Millisecond),
				clock.WithMaxCycles(5),
			)
			r := record(ctx, clk.Subscribe())

			Expect(clk.Run(ctx)).To(Succeed())

			Eventually(r.done).Should(BeClosed())
			Expect(r.Cycles()).To(Equal(sequence(5)))
			Expect(r.Err()).To(MatchError(clock.ErrStopped))
		})

		It("should return when the context is cancelled", func() {
			clk := clock.New(clock.WithPeriod(time.Millisecond))
			errCh := make(chan error, 1)
			go func() { errCh <- clk.Run(ctx) }()

			cancel()

			Eventually(errCh).Should(Receive(BeNil()))
		})

		It("should hold pulses while paused and continue numbering on resume", func() {
			clk := clock.New(clock.WithPeriod(time.Millisecond))
			r := record(ctx, clk.Subscribe())
			go func() { _ = clk.Run(ctx) }()

			Eventually(func() int { return len(r.Cycles()) }).Should(BeNumerically(">=", 3))

			clk.Pause()
			Expect(clk.Paused()).To(BeTrue())

			// At most one pulse may already be past the gate.
			time.Sleep(20 * time.Millisecond)
			frozen := len(r.Cycles())
			Consistently(func() int { return len(r.Cycles()) }, 50*time.Millisecond).
				Should(Equal(frozen))

			clk.Resume()
			Expect(clk.Paused()).To(BeFalse())

			Eventually(func() int { return len(r.Cycles()) }).Should(BeNumerically(">", frozen+3))

			clk.Stop()
			Eventually(r.done).Should(BeClosed())

			cycles := r.Cycles()
			Expect(cycles).To(Equal(sequence(len(cycles))))
		})

		It("should toggle between paused and running", func() {
			clk := clock.New()

			Expect(clk.TogglePause()).To(BeTrue())
			Expect(clk.Paused()).To(BeTrue())
			Expect(clk.TogglePause()).To(BeFalse())
			Expect(clk.Paused()).To(BeFalse())
		})

		It("should stop while paused", func() {
			clk := clock.New(clock.WithPeriod(time.Millisecond))
			clk.Pause()
			errCh := make(chan error, 1)
			go func() { errCh <- clk.Run(ctx) }()

			Consistently(errCh, 20*time.Millisecond).ShouldNot(Receive())
			clk.Stop()

			Eventually(errCh).Should(Receive(BeNil()))
			Expect(clk.Cycle()).To(BeZero())
		})
	})
})
