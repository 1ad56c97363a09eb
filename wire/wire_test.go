package wire_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/wire"
)

var _ = Describe("frame", func() {
	It("round-trips a frame through a stream", func() {
		buf := new(bytes.Buffer)
		Expect(wire.WriteFrame(buf, []byte("hello"))).To(Succeed())

		got, err := wire.ReadFrame(buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte("hello")))
	})

	It("rejects a frame over the maximum length", func() {
		buf := new(bytes.Buffer)
		Expect(wire.WriteFrame(buf, make([]byte, wire.MaxFrameLength+1))).To(HaveOccurred())
	})
})

var _ = Describe("varint header", func() {
	It("round-trips varints, bytes and strings", func() {
		w := &wire.Writer{}
		w.PutVarint(1)
		w.PutString("inference")
		w.PutVarint(200)
		w.PutBytes([]byte{1, 2, 3})

		r := wire.NewReader(w.Bytes())

		descriptor, err := r.GetVarint()
		Expect(err).ToNot(HaveOccurred())
		Expect(descriptor).To(Equal(uint64(1)))

		name, err := r.GetString()
		Expect(err).ToNot(HaveOccurred())
		Expect(name).To(Equal("inference"))

		method, err := r.GetVarint()
		Expect(err).ToNot(HaveOccurred())
		Expect(method).To(Equal(uint64(200)))

		oob, err := r.GetBytes()
		Expect(err).ToNot(HaveOccurred())
		Expect(oob).To(Equal([]byte{1, 2, 3}))
	})

	It("defaults a missing trailing field to io.EOF", func() {
		w := &wire.Writer{}
		w.PutVarint(1)
		r := wire.NewReader(w.Bytes())
		_, _ = r.GetVarint()
		_, err := r.GetVarint()
		Expect(err).To(HaveOccurred())
	})
})
