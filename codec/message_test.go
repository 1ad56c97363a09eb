package codec_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/codec"
	"github.com/nabbar/rcfvec/errcode"
)

var _ = Describe("Request", func() {
	It("round-trips through Encode/Decode", func() {
		req := codec.Request{
			ServiceBindingName: "ivf.search",
			MethodID:           7,
			Flags:              codec.FlagOneWay | codec.FlagPointerTracking,
			RuntimeVersion:     12,
			ArchiveVersion:     3,
			PingBackIntervalMs: 5000,
			OOB:                []byte("oob"),
			UserData:           []byte("payload"),
		}

		got, err := codec.DecodeRequest(codec.EncodeRequest(req))
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(req))
		Expect(got.Flags.OneWay()).To(BeTrue())
		Expect(got.Flags.CloseAfter()).To(BeFalse())
	})
})

var _ = Describe("Response", func() {
	It("round-trips a user payload response", func() {
		resp := codec.Response{OOB: []byte("o"), UserData: []byte("u")}
		got, err := codec.DecodeResponse(codec.EncodeResponse(resp))
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(resp))
	})

	It("round-trips a remote exception", func() {
		resp := codec.Response{IsException: true, ExceptionCode: errcode.RemoteException, ExceptionMsg: "boom"}
		got, err := codec.DecodeResponse(codec.EncodeResponse(resp))
		Expect(err).ToNot(HaveOccurred())
		Expect(got.IsException).To(BeTrue())
		Expect(got.ExceptionMsg).To(Equal("boom"))
	})

	It("round-trips an error response", func() {
		resp := codec.Response{IsError: true, Error: errcode.PeerDisconnect, Arg0: 1, Arg1: 2}
		got, err := codec.DecodeResponse(codec.EncodeResponse(resp))
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(resp))
	})

	It("builds and recognizes a ping-back", func() {
		pb := codec.PingBack(1500)
		Expect(codec.IsPingBack(pb)).To(BeTrue())
	})
})

var _ = Describe("version negotiation", func() {
	It("accepts a compatible client proposal", func() {
		res, mismatch := codec.Negotiate(12, 3, 14, 5)
		Expect(mismatch).To(BeNil())
		Expect(res.Tries).To(Equal(1))
	})

	It("rejects and then succeeds exactly one retry", func() {
		_, mismatch := codec.Negotiate(20, 3, 14, 5)
		Expect(mismatch).ToNot(BeNil())
		Expect(mismatch.Error).To(Equal(errcode.VersionMismatch))

		res, mismatch2 := codec.RetryNegotiate(20, 3, 14, 5)
		Expect(mismatch2).To(BeNil())
		Expect(res.RuntimeVersion).To(Equal(uint64(14)))
		Expect(res.Tries).To(Equal(2))
	})

	It("retries successfully below MinRuntimeVersion when that's all the server supports (spec.md §8 scenario 2)", func() {
		_, mismatch := codec.Negotiate(12, 0, 8, 0)
		Expect(mismatch).ToNot(BeNil())
		Expect(mismatch.Error).To(Equal(errcode.VersionMismatch))
		Expect(mismatch.Arg0).To(Equal(int64(8)))

		res, mismatch2 := codec.RetryNegotiate(12, 0, 8, 0)
		Expect(mismatch2).To(BeNil())
		Expect(res.RuntimeVersion).To(Equal(uint64(8)))
		Expect(res.Tries).To(Equal(2))
	})
})

var _ = Describe("gob marshaler", func() {
	It("round-trips a value", func() {
		m := codec.DefaultMarshaler()
		type payload struct{ X int }

		b, err := m.Marshal(payload{X: 42})
		Expect(err).ToNot(HaveOccurred())

		var got payload
		Expect(m.Unmarshal(b, &got)).To(Succeed())
		Expect(got.X).To(Equal(42))
	})
})
