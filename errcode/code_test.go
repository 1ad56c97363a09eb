package errcode_test

import (
	"errors"

	. "github.com/nabbar/rcfvec/errcode"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CodeError", func() {
	It("classifies codes into the spec's error groups", func() {
		Expect(GroupOf(ClientReadTimeout)).To(Equal(GroupTransport))
		Expect(GroupOf(BadDescriptor)).To(Equal(GroupFraming))
		Expect(GroupOf(SspiAuthFailServer)).To(Equal(GroupSecurity))
		Expect(GroupOf(NoServerBinding)).To(Equal(GroupDispatch))
		Expect(GroupOf(RemoteException)).To(Equal(GroupApplication))
		Expect(GroupOf(PingBack)).To(Equal(GroupPseudo))
	})

	It("renders a registered message", func() {
		Expect(VersionMismatch.Message()).To(ContainSubstring("version"))
	})

	It("builds a chained error with a parent", func() {
		base := errors.New("dial tcp: connection refused")
		err := PeerDisconnect.Error(base)

		Expect(err.IsCode(PeerDisconnect)).To(BeTrue())
		Expect(err.HasError(base)).To(BeTrue())
		Expect(err.GetParentCode()).To(ContainElement(PeerDisconnect))
	})

	It("IfError returns nil when there is no parent", func() {
		Expect(VersionMismatch.IfError()).To(BeNil())
		Expect(VersionMismatch.IfError(errors.New("x"))).NotTo(BeNil())
	})

	It("clamps out of range codes", func() {
		Expect(ParseCodeError(-1)).To(Equal(Ok))
		Expect(ParseCodeError(1 << 20)).To(Equal(CodeError(65535)))
	})
})
