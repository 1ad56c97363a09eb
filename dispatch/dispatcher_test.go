package dispatch_test

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/codec"
	"github.com/nabbar/rcfvec/dispatch"
	"github.com/nabbar/rcfvec/errcode"
	"github.com/nabbar/rcfvec/rcflog"
	"github.com/nabbar/rcfvec/rcflog/metrics"
	"github.com/nabbar/rcfvec/session"
)

func newTestSession() *session.RcfSession {
	_, server := net.Pipe()
	return session.NewRcfSession(session.NewNetworkSession(server))
}

var _ = Describe("Dispatcher", func() {
	It("responds NoServerBinding for an unknown service", func() {
		d := dispatch.New()
		resp := d.Dispatch(newTestSession(), codec.Request{ServiceBindingName: "missing"})
		Expect(resp.IsError).To(BeTrue())
		Expect(resp.Error).To(Equal(errcode.NoServerBinding))
	})

	It("responds NoServerMethod for an unbound method id", func() {
		d := dispatch.New()
		d.Register(dispatch.NewServerBinding("ivf"))
		resp := d.Dispatch(newTestSession(), codec.Request{ServiceBindingName: "ivf", MethodID: 5})
		Expect(resp.IsError).To(BeTrue())
		Expect(resp.Error).To(Equal(errcode.NoServerMethod))
	})

	It("responds AccessDenied when the access-control callback rejects", func() {
		b := dispatch.NewServerBinding("ivf")
		b.SetAccessControl(func(s *session.RcfSession, methodID uint64) bool { return false })
		b.Bind(0, func(s *session.RcfSession, req codec.Request) codec.Response {
			return codec.Response{UserData: []byte("ok")}
		})

		d := dispatch.New()
		d.Register(b)

		resp := d.Dispatch(newTestSession(), codec.Request{ServiceBindingName: "ivf", MethodID: 0})
		Expect(resp.IsError).To(BeTrue())
		Expect(resp.Error).To(Equal(errcode.AccessDenied))
	})

	It("invokes the bound method and returns its response", func() {
		b := dispatch.NewServerBinding("ivf")
		b.Bind(3, func(s *session.RcfSession, req codec.Request) codec.Response {
			return codec.Response{UserData: []byte("pong")}
		})

		d := dispatch.New()
		d.Register(b)

		resp := d.Dispatch(newTestSession(), codec.Request{ServiceBindingName: "ivf", MethodID: 3})
		Expect(resp.IsError).To(BeFalse())
		Expect(resp.UserData).To(Equal([]byte("pong")))
	})

	It("converts a panicking handler into a remote exception", func() {
		b := dispatch.NewServerBinding("ivf")
		b.Bind(1, func(s *session.RcfSession, req codec.Request) codec.Response {
			panic("boom")
		})

		d := dispatch.New()
		d.Register(b)

		resp := d.Dispatch(newTestSession(), codec.Request{ServiceBindingName: "ivf", MethodID: 1})
		Expect(resp.IsException).To(BeTrue())
		Expect(resp.ExceptionMsg).To(Equal("boom"))
	})

	It("logs and records metrics for a dispatched call when attached", func() {
		b := dispatch.NewServerBinding("ivf")
		b.Bind(0, func(s *session.RcfSession, req codec.Request) codec.Response {
			return codec.Response{UserData: []byte("pong")}
		})

		d := dispatch.New()
		d.Register(b)
		d.SetLogger(func() rcflog.Logger { return rcflog.New() })
		d.SetMetrics(metrics.New())

		resp := d.Dispatch(newTestSession(), codec.Request{ServiceBindingName: "ivf", MethodID: 0})
		Expect(resp.IsError).To(BeFalse())
	})
})
