/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/nabbar/rcfvec/codec"
	"github.com/nabbar/rcfvec/errcode"
	"github.com/nabbar/rcfvec/rcflog"
	"github.com/nabbar/rcfvec/rcflog/metrics"
	"github.com/nabbar/rcfvec/session"
)

// Dispatcher owns the server's binding_name -> ServerBinding map,
// rwmutex-protected for its read-mostly access pattern (spec.md §4.5).
type Dispatcher struct {
	mu       sync.RWMutex
	bindings map[string]*ServerBinding

	log rcflog.FuncLog
	met *metrics.Collectors
}

// New returns an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{bindings: make(map[string]*ServerBinding)}
}

// SetLogger attaches a structured logger, logged with service/method
// fields on every Dispatch call, per spec.md §3.2.
func (d *Dispatcher) SetLogger(log rcflog.FuncLog) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = log
}

// SetMetrics attaches the invocation counters/latency histogram of
// spec.md's domain stack table.
func (d *Dispatcher) SetMetrics(met *metrics.Collectors) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.met = met
}

// Register adds or replaces a binding.
func (d *Dispatcher) Register(b *ServerBinding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings[b.Name] = b
}

// Unregister removes a binding by name.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindings, name)
}

func (d *Dispatcher) lookup(name string) (*ServerBinding, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.bindings[name]
	return b, ok
}

// Dispatch implements spec.md §4.5 steps 1-4: locate the binding, run
// access control, invoke the method, and catch a panicking handler as a
// RemoteException so one bad binding can't take the session down.
func (d *Dispatcher) Dispatch(s *session.RcfSession, req codec.Request) codec.Response {
	d.mu.RLock()
	log, met := d.log, d.met
	d.mu.RUnlock()

	start := time.Now()
	status := "ok"
	defer func() {
		if met != nil {
			met.MethodInvokes.WithLabelValues(req.ServiceBindingName, fmt.Sprint(req.MethodID), status).Inc()
			met.MethodLatency.WithLabelValues(req.ServiceBindingName, fmt.Sprint(req.MethodID)).Observe(time.Since(start).Seconds())
		}
	}()

	b, ok := d.lookup(req.ServiceBindingName)
	if !ok {
		status = "no_binding"
		if log != nil {
			log().Warning("no such server binding", rcflog.Fields{"service": req.ServiceBindingName})
		}
		return codec.Response{IsError: true, Error: errcode.NoServerBinding}
	}

	if b.access != nil && !b.access(s, req.MethodID) {
		status = "access_denied"
		return codec.Response{IsError: true, Error: errcode.AccessDenied}
	}

	fn, ok := b.method(req.MethodID)
	if !ok {
		status = "no_method"
		if log != nil {
			log().Warning("no such server method", rcflog.Fields{"service": req.ServiceBindingName, "method": req.MethodID})
		}
		return codec.Response{IsError: true, Error: errcode.NoServerMethod}
	}

	resp := d.invoke(fn, s, req)
	if resp.IsException {
		status = "exception"
		if log != nil {
			log().Error("method invocation raised an exception", rcflog.Fields{"service": req.ServiceBindingName, "method": req.MethodID, "msg": resp.ExceptionMsg})
		}
	}
	return resp
}

func (d *Dispatcher) invoke(fn Method, s *session.RcfSession, req codec.Request) (resp codec.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = codec.Response{
				IsException:   true,
				ExceptionCode: errcode.RemoteException,
				ExceptionMsg:  fmt.Sprintf("%v", r),
			}
		}
	}()
	return fn(s, req)
}
