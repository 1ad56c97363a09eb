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

// Package dispatch implements the server-side binding map and method-id
// dispatch (spec.md §4.5): a service-name-keyed registry of
// ServerBinding, each wrapping a dense method-id switch plus an optional
// access-control callback.
package dispatch

import (
	"github.com/nabbar/rcfvec/codec"
	"github.com/nabbar/rcfvec/session"
)

// MaxMethodCount bounds the dense method-id switch (spec.md §4.5).
const MaxMethodCount = 200

// Method is a single dispatchable handler: it reads parameters from the
// current invocation's user-data payload and returns the serialized
// result (or a remote exception via codec.Response.IsException).
type Method func(s *session.RcfSession, req codec.Request) codec.Response

// AccessControl decides whether methodID may run on this binding for the
// given session; returning false yields AccessDenied.
type AccessControl func(s *session.RcfSession, methodID uint64) bool

// ServerBinding holds one service's dense method table plus its access
// control callback (spec.md §4.5: "a single ServerMethod ... plus an
// optional access-control callback").
type ServerBinding struct {
	Name    string
	methods [MaxMethodCount]Method
	access  AccessControl
}

// NewServerBinding builds an empty binding for name.
func NewServerBinding(name string) *ServerBinding {
	return &ServerBinding{Name: name}
}

// Bind registers fn at methodID, replacing any previous handler.
func (b *ServerBinding) Bind(methodID uint64, fn Method) {
	if methodID < MaxMethodCount {
		b.methods[methodID] = fn
	}
}

// SetAccessControl installs the per-binding access-control callback.
func (b *ServerBinding) SetAccessControl(fn AccessControl) { b.access = fn }

func (b *ServerBinding) method(methodID uint64) (Method, bool) {
	if methodID >= MaxMethodCount {
		return nil, false
	}
	fn := b.methods[methodID]
	return fn, fn != nil
}
