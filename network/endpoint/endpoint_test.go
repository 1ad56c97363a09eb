package endpoint_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/network/endpoint"
)

var _ = Describe("Endpoint", func() {
	It("builds a tcp client transport", func() {
		e := endpoint.Endpoint{Kind: endpoint.KindTCP, Address: "127.0.0.1:0"}
		c, err := e.NewClientTransport()
		Expect(err).ToNot(HaveOccurred())
		Expect(c).ToNot(BeNil())
	})

	It("refuses to build a direct transport for a proxy endpoint", func() {
		e := endpoint.Endpoint{Kind: endpoint.KindProxy, Name: "relay-1"}
		_, err := e.NewClientTransport()
		Expect(err).To(HaveOccurred())
	})

	It("reports its kind as a string", func() {
		Expect(endpoint.KindHTTPS.String()).To(Equal("https"))
	})
})
