package proxyendpoint_test

import (
	"context"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/errcode"
	"github.com/nabbar/rcfvec/proxyendpoint"
)

var _ = Describe("Endpoint", func() {
	It("pairs a client connection with a backend connection and relays bytes", func() {
		ep := proxyendpoint.SetupProxyEndpoint("backend-a", 0)

		clientSide, clientPeer := net.Pipe()
		backendSide, backendPeer := net.Pipe()

		var guid string
		var connErr error
		done := make(chan struct{})
		go func() {
			guid, connErr = ep.MakeProxyConnection(context.Background(), clientSide)
			close(done)
		}()

		reqGuid, err := ep.GetConnectionRequests(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(ep.MakeConnectionAvailable(reqGuid, backendSide)).To(Succeed())
		<-done

		Expect(connErr).NotTo(HaveOccurred())
		Expect(guid).To(Equal(reqGuid))

		go func() {
			_, _ = clientPeer.Write([]byte("hello backend"))
		}()

		buf := make([]byte, 32)
		backendPeer.SetReadDeadline(time.Now().Add(time.Second))
		n, err := backendPeer.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf[:n])).To(Equal("hello backend"))
	})

	It("gives up with NoProxyConnection when nobody claims the guid in time", func() {
		ep := proxyendpoint.SetupProxyEndpoint("backend-b", 0)
		ep.Timeout = 20 * time.Millisecond

		clientSide, _ := net.Pipe()
		_, err := ep.MakeProxyConnection(context.Background(), clientSide)
		Expect(err).To(HaveOccurred())
		Expect(errcode.Has(err, errcode.NoProxyConnection)).To(BeTrue())
	})

	It("rejects MakeConnectionAvailable for an unknown guid", func() {
		ep := proxyendpoint.SetupProxyEndpoint("backend-c", 0)
		_, peer := net.Pipe()
		err := ep.MakeConnectionAvailable("not-a-real-guid", peer)
		Expect(err).To(HaveOccurred())
	})

	It("closes the endpoint once the backend's long-poll session ends, failing subsequent MakeProxyConnection with ProxyEndpointDown (spec.md §8 scenario 6)", func() {
		ep := proxyendpoint.SetupProxyEndpoint("alpha", 0)

		backendCtx, cancelBackend := context.WithCancel(context.Background())

		pollDone := make(chan error, 1)
		go func() {
			_, pollErr := ep.GetConnectionRequests(backendCtx)
			pollDone <- pollErr
		}()

		// Simulate the backend S disconnecting from the rendezvous: its
		// session context is canceled while GetConnectionRequests is
		// still blocked in its long poll, with no request queued.
		cancelBackend()
		Eventually(pollDone).Should(Receive(HaveOccurred()))

		clientSide, _ := net.Pipe()
		_, err := ep.MakeProxyConnection(context.Background(), clientSide)
		Expect(err).To(HaveOccurred())
		Expect(errcode.Has(err, errcode.ProxyEndpointDown)).To(BeTrue())
	})
})
