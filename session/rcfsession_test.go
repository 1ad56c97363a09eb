package session_test

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/rcflog"
	"github.com/nabbar/rcfvec/rcflog/metrics"
	"github.com/nabbar/rcfvec/session"
)

type userObject struct{ Name string }

var _ = Describe("RcfSession", func() {
	It("stores and retrieves typed attachments", func() {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		s := session.NewRcfSession(session.NewNetworkSession(server))
		session.Attach(s, userObject{Name: "alice"})

		got, ok := session.Attachment[userObject](s)
		Expect(ok).To(BeTrue())
		Expect(got.Name).To(Equal("alice"))

		_, ok = session.Attachment[int](s)
		Expect(ok).To(BeFalse())
	})

	It("runs on-destroy callbacks exactly once, in order", func() {
		client, server := net.Pipe()
		defer client.Close()

		s := session.NewRcfSession(session.NewNetworkSession(server))

		var order []int
		s.OnDestroy(func() { order = append(order, 1) })
		s.OnDestroy(func() { order = append(order, 2) })

		Expect(s.Destroy()).To(Succeed())
		Expect(s.Destroy()).To(Succeed())
		Expect(order).To(Equal([]int{1, 2}))
	})

	It("registering on-destroy after Destroy runs it immediately", func() {
		client, server := net.Pipe()
		defer client.Close()

		s := session.NewRcfSession(session.NewNetworkSession(server))
		Expect(s.Destroy()).To(Succeed())

		ran := false
		s.OnDestroy(func() { ran = true })
		Expect(ran).To(BeTrue())
	})

	It("assigns a non-empty session id and records observability on open/close", func() {
		client, server := net.Pipe()
		defer client.Close()

		s := session.NewRcfSession(session.NewNetworkSession(server))
		Expect(s.ID()).NotTo(BeEmpty())

		met := metrics.New()
		s.SetObservability(func() rcflog.Logger { return rcflog.New() }, met)

		Expect(s.Destroy()).To(Succeed())
	})
})
