package filter_test

import (
	"bytes"

	flt "github.com/nabbar/rcfvec/filter"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Chain", func() {
	It("rejects an empty chain", func() {
		_, err := flt.NewChain()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a chain longer than the depth limit", func() {
		link := make([]flt.Filter, 0, 17)
		for i := 0; i < 17; i++ {
			link = append(link, flt.NewPassthrough(new(bytes.Buffer)))
		}
		_, err := flt.NewChain(link...)
		Expect(err).To(HaveOccurred())
	})

	It("round-trips a zlib filter over a passthrough transport", func() {
		wire := new(bytes.Buffer)
		client := flt.NewZlibFilter(wire, 6)
		server := flt.NewZlibFilter(wire, 6)

		payload := []byte("hello ivf-pq world, compress me please")
		_, err := client.Write(payload)
		Expect(err).ToNot(HaveOccurred())

		got := make([]byte, len(payload))
		n, err := server.Read(got)
		Expect(err).ToNot(HaveOccurred())
		Expect(got[:n]).To(Equal(payload))
	})

	It("reports chain ids outermost first", func() {
		c, err := flt.NewChain(flt.NewZlibFilter(new(bytes.Buffer), 6), flt.NewPassthrough(new(bytes.Buffer)))
		Expect(err).ToNot(HaveOccurred())
		Expect(c.IDs()).To(Equal([]flt.ID{flt.IDZlib, 0}))
	})

	It("encodes and decodes the QoP length header", func() {
		h := flt.EncodeLengthHeader(1234, flt.QoPEncryption)
		length, qop := flt.DecodeLengthHeader(h)
		Expect(length).To(Equal(uint32(1234)))
		Expect(qop).To(Equal(flt.QoPEncryption))
	})
})
