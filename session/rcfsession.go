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

package session

import (
	"reflect"
	"sync"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/nabbar/rcfvec/codec"
	"github.com/nabbar/rcfvec/rcflog"
	"github.com/nabbar/rcfvec/rcflog/metrics"
)

func newSessionGUID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return ""
	}
	return id
}

// DestroyFunc runs once, in registration order, when a RcfSession is
// destroyed.
type DestroyFunc func()

// RcfSession is the dispatch-facing view of a connection (spec.md §4.4/
// §3): the current method invocation, user-attachable session objects
// keyed by type, ping timestamps, OOB buffers and an ordered on-destroy
// callback list. Attachments are keyed by reflect.Type the same way the
// teacher's generic context.Config[T] keys its sync.Map, specialized
// here to a concrete key type since a session's attachment set is always
// "one value per Go type".
type RcfSession struct {
	id  string
	net *NetworkSession

	mu          sync.RWMutex
	attachments map[reflect.Type]any

	current codec.Request

	lastPingIn  time.Time
	lastPingOut time.Time

	oobIn  []byte
	oobOut []byte

	destroyMu sync.Mutex
	destroyed bool
	onDestroy []DestroyFunc

	log rcflog.FuncLog
	met *metrics.Collectors
}

// NewRcfSession builds a dispatch session wrapping net, assigning it a
// fresh GUID the way proxyendpoint and pubsub identify their own
// resources via hashicorp/go-uuid.
func NewRcfSession(net *NetworkSession) *RcfSession {
	return &RcfSession{id: newSessionGUID(), net: net, attachments: make(map[reflect.Type]any)}
}

// ID returns this session's GUID, the "session id" structured-log field
// of spec.md §3.2.
func (s *RcfSession) ID() string { return s.id }

// SetObservability attaches a structured logger and metrics collectors,
// logging the session as opened and incrementing SessionsOpened
// immediately, per spec.md §3.2/§4.
func (s *RcfSession) SetObservability(log rcflog.FuncLog, met *metrics.Collectors) {
	s.mu.Lock()
	s.log, s.met = log, met
	s.mu.Unlock()

	if met != nil {
		met.SessionsOpened.Inc()
	}
	if log != nil {
		log().Info("session opened", rcflog.Fields{"session_id": s.id})
	}
}

// Network returns the transport-facing state machine this session rides
// on top of.
func (s *RcfSession) Network() *NetworkSession { return s.net }

// SetCurrentRequest records the invocation currently being dispatched.
func (s *RcfSession) SetCurrentRequest(r codec.Request) {
	s.mu.Lock()
	s.current = r
	s.mu.Unlock()
}

// CurrentRequest returns the invocation currently being dispatched.
func (s *RcfSession) CurrentRequest() codec.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Attach stores v, replacing any existing attachment of the same type.
func Attach[T any](s *RcfSession, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[reflect.TypeOf(v)] = v
}

// Attachment retrieves the attachment of type T, if any.
func Attachment[T any](s *RcfSession) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	v, ok := s.attachments[reflect.TypeOf(zero)]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Ping records that a ping was received from the peer.
func (s *RcfSession) Ping() {
	s.mu.Lock()
	s.lastPingIn = time.Now()
	s.mu.Unlock()
}

// LastPing returns the timestamp of the last received ping.
func (s *RcfSession) LastPing() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPingIn
}

// PingSent records that a ping was sent to the peer.
func (s *RcfSession) PingSent() {
	s.mu.Lock()
	s.lastPingOut = time.Now()
	s.mu.Unlock()
}

// SetOOB stores the inbound/outbound out-of-band buffers for the current
// invocation.
func (s *RcfSession) SetOOB(in, out []byte) {
	s.mu.Lock()
	s.oobIn, s.oobOut = in, out
	s.mu.Unlock()
}

// OOB returns the inbound/outbound out-of-band buffers.
func (s *RcfSession) OOB() (in, out []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oobIn, s.oobOut
}

// OnDestroy registers fn to run exactly once when Destroy is called, in
// registration order.
func (s *RcfSession) OnDestroy(fn DestroyFunc) {
	s.destroyMu.Lock()
	defer s.destroyMu.Unlock()
	if s.destroyed {
		fn()
		return
	}
	s.onDestroy = append(s.onDestroy, fn)
}

// Destroy runs every registered on-destroy callback exactly once, in
// registration order, then closes the underlying network session.
func (s *RcfSession) Destroy() error {
	s.destroyMu.Lock()
	if s.destroyed {
		s.destroyMu.Unlock()
		return nil
	}
	s.destroyed = true
	cbs := s.onDestroy
	s.onDestroy = nil
	s.destroyMu.Unlock()

	for _, fn := range cbs {
		fn()
	}

	s.mu.RLock()
	log, met := s.log, s.met
	s.mu.RUnlock()
	if met != nil {
		met.SessionsClosed.Inc()
	}
	if log != nil {
		log().Info("session closed", rcflog.Fields{"session_id": s.id})
	}

	return s.net.Close()
}
