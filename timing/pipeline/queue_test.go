package pipeline_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sparcsim/insts"
	"github.com/sarchlab/sparcsim/timing/pipeline"
)

// sealedGroup returns a sealed group of two instructions with the given text.
func sealedGroup(id uint64, a, b string) *pipeline.Group {
	g := pipeline.NewGroup(id)
	_, err := g.Add(insts.NewPending(a))
	Expect(err).NotTo(HaveOccurred())
	_, err = g.Add(insts.NewPending(b))
	Expect(err).NotTo(HaveOccurred())
	return g
}

var _ = Describe("GroupQueue", func() {
	var q *pipeline.GroupQueue

	BeforeEach(func() {
		q = pipeline.NewGroupQueue(pipeline.DefaultQueueCapacity)
	})

	It("should default to four groups", func() {
		Expect(q.Cap()).To(Equal(4))
		Expect(pipeline.NewGroupQueue(0).Cap()).To(Equal(4))
	})

	It("should dequeue in FIFO order", func() {
		g0 := sealedGroup(0, "a", "b")
		g1 := sealedGroup(1, "c", "d")
		Expect(q.Enqueue(g0)).To(Succeed())
		Expect(q.Enqueue(g1)).To(Succeed())

		first, err := q.Dequeue()
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeIdenticalTo(g0))

		second, err := q.Dequeue()
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(g1))
		Expect(q.Len()).To(BeZero())
	})

	It("should treat a repeated enqueue as a no-op success", func() {
		g := sealedGroup(0, "a", "b")

		Expect(q.Enqueue(g)).To(Succeed())
		Expect(q.Enqueue(g)).To(Succeed())

		Expect(q.Len()).To(Equal(1))
	})

	It("should never grow beyond its capacity", func() {
		var groups []*pipeline.Group
		for i := 0; i < 10; i++ {
			g := sealedGroup(uint64(i), "a", "b")
			err := q.Enqueue(g)
			if i < 4 {
				Expect(err).NotTo(HaveOccurred())
				groups = append(groups, g)
			} else {
				Expect(err).To(MatchError(pipeline.ErrQueueFull))
			}
			Expect(q.Len()).To(BeNumerically("<=", q.Cap()))
		}

		Expect(q.Full()).To(BeTrue())
		Expect(q.Snapshot()).To(Equal(groups))
	})

	It("should accept a queued group again even when full", func() {
		var first *pipeline.Group
		for i := 0; i < 4; i++ {
			g := sealedGroup(uint64(i), "a", "b")
			if i == 0 {
				first = g
			}
			Expect(q.Enqueue(g)).To(Succeed())
		}

		Expect(q.Enqueue(first)).To(Succeed())
		Expect(q.Len()).To(Equal(4))
	})

	It("should reject dequeue from an empty queue", func() {
		g, err := q.Dequeue()

		Expect(err).To(MatchError(pipeline.ErrQueueEmpty))
		Expect(g).To(BeNil())
	})

	It("should reject nil groups", func() {
		Expect(q.Enqueue(nil)).To(MatchError(pipeline.ErrNilGroup))
	})

	It("should seal groups it accepts", func() {
		g := pipeline.NewGroup(0)
		_, _ = g.Add(insts.NewPending("a"))

		Expect(q.Enqueue(g)).To(Succeed())
		Expect(g.Sealed()).To(BeTrue())
	})

	It("should dump group index, text and pipe", func() {
		Expect(q.Enqueue(sealedGroup(0, "ADD %g1 3 %l2", "ADD %o0 %g1 %g2"))).To(Succeed())
		Expect(q.Enqueue(sealedGroup(1, "ADD %g2 1 %g3", "ADD %g3 1 %g4"))).To(Succeed())

		Expect(q.Dump()).To(Equal([]string{
			"0] ADD %g1 3 %l2 A0",
			"0] ADD %o0 %g1 %g2 A1",
			"1] ADD %g2 1 %g3 A0",
			"1] ADD %g3 1 %g4 A1",
		}))
	})

	It("should stay consistent under concurrent producers and consumers", func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = q.Enqueue(pipeline.NewGroup(uint64(i)))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_, _ = q.Dequeue()
			}
		}()
		wg.Wait()

		Expect(q.Len()).To(BeNumerically("<=", q.Cap()))
	})
})
