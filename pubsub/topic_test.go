package pubsub_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/pubsub"
)

var _ = Describe("Topic", func() {
	It("assigns a connection GUID and ping settings on subscribe", func() {
		tp := pubsub.NewTopic("prices")
		tp.PublisherPingInterval = 2 * time.Second

		reply, err := tp.Subscribe(pubsub.SubscriptionRequest{PublisherName: "prices"}, true, func([]byte) error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ConnectionGUID).NotTo(BeEmpty())
		Expect(reply.PingsEnabled).To(BeTrue())
		Expect(reply.PublisherToSubscriberPingMs).To(Equal(uint64(2000)))
		Expect(tp.SubscriberCount()).To(Equal(1))
	})

	It("fans a publish out to every subscriber", func() {
		tp := pubsub.NewTopic("ticks")

		var mu sync.Mutex
		received := make(map[string][]byte)

		for i := 0; i < 5; i++ {
			_, err := tp.Subscribe(pubsub.SubscriptionRequest{}, true, func(guid string) func([]byte) error {
				return func(p []byte) error {
					mu.Lock()
					defer mu.Unlock()
					received[guid] = p
					return nil
				}
			}(string(rune('a'+i))))
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(tp.Publish(context.Background(), []byte("hello"))).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(received).To(HaveLen(5))
		for _, p := range received {
			Expect(p).To(Equal([]byte("hello")))
		}
	})

	It("drops a subscriber whose send fails", func() {
		tp := pubsub.NewTopic("faulty")

		reply, err := tp.Subscribe(pubsub.SubscriptionRequest{}, false, func([]byte) error {
			return errBoom
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(tp.SubscriberCount()).To(Equal(1))

		Expect(tp.Publish(context.Background(), []byte("x"))).To(Succeed())
		Expect(tp.SubscriberCount()).To(Equal(0))
		_ = reply
	})

	It("reaps a stale pinging subscriber but leaves HTTP subscribers alone", func() {
		tp := pubsub.NewTopic("reap")
		tp.SubscriberPingInterval = 10 * time.Millisecond

		pingingReply, err := tp.Subscribe(pubsub.SubscriptionRequest{}, true, func([]byte) error { return nil })
		Expect(err).NotTo(HaveOccurred())

		_, err = tp.Subscribe(pubsub.SubscriptionRequest{}, false, func([]byte) error { return nil })
		Expect(err).NotTo(HaveOccurred())

		// ReapStale's deadline is 2*10ms + 5s.
		time.Sleep(5*time.Second + 100*time.Millisecond)

		reaped := tp.ReapStale()
		Expect(reaped).To(ContainElement(pingingReply.ConnectionGUID))
		Expect(tp.SubscriberCount()).To(Equal(1))
	})
})

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}
