package transport_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libptc "github.com/nabbar/rcfvec/network/protocol"
	"github.com/nabbar/rcfvec/rcflog"
	"github.com/nabbar/rcfvec/transport"
)

var _ = Describe("TCP transport", func() {
	It("round-trips a message between client and server", func() {
		addr := "127.0.0.1:18391"

		received := make(chan []byte, 1)
		srv := transport.NewNetServer(libptc.NetworkTCP, addr, func(c transport.Conn) {
			buf := make([]byte, 64)
			n, err := c.Read(buf)
			Expect(err).ToNot(HaveOccurred())
			received <- buf[:n]
			_, _ = c.Write([]byte("ack"))
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = srv.Listen(ctx) }()
		Eventually(srv.IsRunning, time.Second).Should(BeTrue())

		cli := transport.NewNetClient(libptc.NetworkTCP, addr)
		conn, err := cli.Dial(context.Background())
		Expect(err).ToNot(HaveOccurred())
		defer conn.Close()

		_, err = conn.Write([]byte("ping"))
		Expect(err).ToNot(HaveOccurred())

		Eventually(received, time.Second).Should(Receive(Equal([]byte("ping"))))

		ack := make([]byte, 8)
		n, err := conn.Read(ack)
		Expect(err).ToNot(HaveOccurred())
		Expect(ack[:n]).To(Equal([]byte("ack")))

		Expect(cli.(interface{ BytesSent() uint64 }).BytesSent()).To(BeNumerically(">", 0))
		Expect(srv.Shutdown(context.Background())).To(Succeed())
	})

	It("accepts an attached logger without altering behavior", func() {
		addr := "127.0.0.1:18392"
		srv := transport.NewNetServer(libptc.NetworkTCP, addr, func(c transport.Conn) {})
		srv.(interface{ SetLogger(rcflog.FuncLog) }).SetLogger(func() rcflog.Logger { return rcflog.New() })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = srv.Listen(ctx) }()
		Eventually(srv.IsRunning, time.Second).Should(BeTrue())
		Expect(srv.Shutdown(context.Background())).To(Succeed())
	})
})
