package session_test

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/session"
)

var _ = Describe("NetworkSession", func() {
	It("walks frame length validation before reaching dispatch", func() {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		srv := session.NewNetworkSession(server)
		srv.Accept()
		Expect(srv.State()).To(Equal(session.StateReadingFrameLen))

		go func() {
			_, _ = client.Write([]byte{4, 0, 0, 0})
			_, _ = client.Write([]byte("ping"))
		}()

		p, err := srv.ReadFrame()
		Expect(err).ToNot(HaveOccurred())
		Expect(p).To(Equal([]byte("ping")))
		Expect(srv.State()).To(Equal(session.StateDispatch))
	})

	It("rejects an over-maximum frame and closes the session", func() {
		client, server := net.Pipe()
		defer client.Close()

		srv := session.NewNetworkSession(server)
		srv.MaxIncoming = 2
		srv.Accept()

		go func() {
			_, _ = client.Write([]byte{3, 0, 0, 0})
			_, _ = client.Write([]byte("abc"))
		}()

		_, err := srv.ReadFrame()
		Expect(err).To(HaveOccurred())
		Expect(srv.State()).To(Equal(session.StateClosed))
	})
})
