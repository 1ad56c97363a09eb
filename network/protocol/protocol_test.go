package protocol_test

import (
	"testing"

	. "github.com/nabbar/rcfvec/network/protocol"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestProtocol(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "network/protocol suite")
}

var _ = Describe("NetworkProtocol", func() {
	DescribeTable("parses net.Dial style strings case-insensitively",
		func(s string, want NetworkProtocol) {
			Expect(Parse(s)).To(Equal(want))
		},
		Entry("tcp", "tcp", NetworkTCP),
		Entry("TCP", "TCP", NetworkTCP),
		Entry("tcp4", "tcp4", NetworkTCP4),
		Entry("tcp6", "tcp6", NetworkTCP6),
		Entry("udp", "udp", NetworkUDP),
		Entry("unix", "unix", NetworkUnix),
		Entry("UnixGram mixed case", "UnixGram", NetworkUnixGram),
		Entry("unknown", "sctp", NetworkEmpty),
	)

	It("reports datagram protocols", func() {
		Expect(NetworkUDP.IsDatagram()).To(BeTrue())
		Expect(NetworkUnixGram.IsDatagram()).To(BeTrue())
		Expect(NetworkTCP.IsDatagram()).To(BeFalse())
	})

	It("round-trips through text marshaling", func() {
		b, err := NetworkTCP6.MarshalText()
		Expect(err).ToNot(HaveOccurred())

		var n NetworkProtocol
		Expect(n.UnmarshalText(b)).To(Succeed())
		Expect(n).To(Equal(NetworkTCP6))
	})
})
