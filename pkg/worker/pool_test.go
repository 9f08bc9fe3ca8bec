package worker_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/eventstream"
	testutils "github.com/papercomputeco/engram/pkg/utils/test"
	"github.com/papercomputeco/engram/pkg/worker"
)

func newEvent(ts string) *eventstream.TurnStoredEvent {
	return eventstream.NewTurnStoredEvent(
		eventstream.EventSource{UserName: "sam", AssistantName: "engram"},
		eventstream.TurnMeta{Timestamp: ts, PromptChunks: 1, ResponseChunks: 1},
		eventstream.TurnChunkIDs{},
	)
}

var _ = Describe("Worker Pool", func() {
	var (
		wp  *worker.Pool
		pub *testutils.MockPublisher
	)

	BeforeEach(func() {
		pub = testutils.NewMockPublisher()
		var err error
		wp, err = worker.NewPool(&worker.Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a publisher", func() {
		_, err := worker.NewPool(&worker.Config{})
		Expect(err).To(MatchError(ContainSubstring("requires a publisher")))
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			Expect(wp.Enqueue(worker.Job{Event: newEvent("t1")})).To(BeTrue())
			Expect(wp.Close()).To(Succeed())
		})

		It("rejects nil events", func() {
			Expect(wp.Enqueue(worker.Job{})).To(BeFalse())
			Expect(wp.Close()).To(Succeed())
		})

		It("drops jobs when the queue is full", func() {
			blocked := testutils.NewMockPublisher()
			blocked.Block = make(chan struct{})

			small, err := worker.NewPool(&worker.Config{
				Publisher:  blocked,
				NumWorkers: 1,
				QueueSize:  1,
			})
			Expect(err).NotTo(HaveOccurred())

			// one in flight, one queued; the third must be dropped
			Expect(small.Enqueue(worker.Job{Event: newEvent("a")})).To(BeTrue())
			Eventually(func() bool {
				return small.Enqueue(worker.Job{Event: newEvent("b")})
			}).Should(BeTrue())
			Expect(small.Enqueue(worker.Job{Event: newEvent("c")})).To(BeFalse())

			close(blocked.Block)
			Expect(small.Close()).To(Succeed())
			Expect(blocked.Events()).To(HaveLen(2))
		})
	})

	Describe("Close", func() {
		It("drains queued events before closing the publisher", func() {
			for _, ts := range []string{"t1", "t2", "t3"} {
				Expect(wp.Enqueue(worker.Job{Event: newEvent(ts)})).To(BeTrue())
			}
			Expect(wp.Close()).To(Succeed())

			Expect(pub.Events()).To(HaveLen(3))
			Expect(pub.Closed()).To(BeTrue())
		})

		It("is safe to call twice", func() {
			Expect(wp.Close()).To(Succeed())
			Expect(wp.Close()).To(Succeed())
		})
	})

	It("swallows publish failures", func() {
		pub.Fail = true
		Expect(wp.Enqueue(worker.Job{Event: newEvent("t1")})).To(BeTrue())
		Expect(wp.Close()).To(Succeed())
		Expect(pub.Events()).To(BeEmpty())
	})
})
