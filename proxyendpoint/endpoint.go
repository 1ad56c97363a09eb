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

package proxyendpoint

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/nabbar/rcfvec/errcode"
)

// Endpoint is one named rendezvous point registered at the proxy.
type Endpoint struct {
	Name string

	// Timeout overrides GUIDTimeout; SetupProxyEndpoint sets it to
	// GUIDTimeout, tests shrink it, and a zero or negative value also
	// means GUIDTimeout.
	Timeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingConnection
	queue   chan string
	closed  bool
}

// SetupProxyEndpoint registers a new rendezvous point named name. backlog
// bounds how many outstanding connection requests GetConnectionRequests can
// have queued before MakeProxyConnection starts blocking on a full queue.
func SetupProxyEndpoint(name string, backlog int) *Endpoint {
	if backlog <= 0 {
		backlog = 64
	}
	return &Endpoint{
		Name:    name,
		pending: make(map[string]*pendingConnection),
		queue:   make(chan string, backlog),
		Timeout: GUIDTimeout,
	}
}

func (e *Endpoint) timeout() time.Duration {
	if e.Timeout <= 0 {
		return GUIDTimeout
	}
	return e.Timeout
}

// MakeProxyConnection is called on behalf of a client that just connected
// to the proxy wanting to reach the backend registered at this endpoint.
// It mints a GUID, queues it for the backend to discover via
// GetConnectionRequests, and blocks until the backend claims it with
// MakeConnectionAvailable or GUIDTimeout elapses.
//
// On success the client's conn is already being relayed to the backend's
// connection; the caller's ownership of conn transfers to the relay
// goroutine and it must not use conn directly again.
func (e *Endpoint) MakeProxyConnection(ctx context.Context, clientConn io.ReadWriteCloser) (string, error) {
	guid, err := newGUID()
	if err != nil {
		return "", errcode.SocketError.Error(err)
	}

	pc := &pendingConnection{conn: clientConn, ready: make(chan io.ReadWriteCloser, 1)}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", errcode.ProxyEndpointDown.Error(nil)
	}
	e.pending[guid] = pc
	e.mu.Unlock()

	select {
	case e.queue <- guid:
	case <-ctx.Done():
		e.dropPending(guid)
		return "", ctx.Err()
	}

	timer := time.NewTimer(e.timeout())
	defer timer.Stop()

	select {
	case peer := <-pc.ready:
		go relay(clientConn, peer)
		return guid, nil
	case <-timer.C:
		e.dropPending(guid)
		return "", errcode.NoProxyConnection.Error(nil)
	case <-ctx.Done():
		e.dropPending(guid)
		return "", ctx.Err()
	}
}

// GetConnectionRequests long-polls for the next GUID a client is waiting
// on, for the backend to claim via MakeConnectionAvailable. ctx must be
// scoped to the backend's registration session (e.g. derived from the
// RcfSession that called SetupProxyEndpoint), not to an individual poll
// deadline: spec.md §4.8 has the backend "keeping the connection open and
// long-polling GetConnectionRequests", so ctx's cancellation is this
// endpoint's only signal that the backend has gone away, and closes it
// (spec.md §8 scenario 6: a subsequent MakeProxyConnection must then fail
// with ProxyEndpointDown).
func (e *Endpoint) GetConnectionRequests(ctx context.Context) (string, error) {
	select {
	case guid := <-e.queue:
		return guid, nil
	case <-ctx.Done():
		e.Close()
		return "", ctx.Err()
	}
}

// MakeConnectionAvailable is called by the backend once it has dialed back
// into the proxy for guid, handing over its side of the connection so the
// proxy can start relaying bytes between it and the waiting client.
func (e *Endpoint) MakeConnectionAvailable(guid string, backendConn io.ReadWriteCloser) error {
	e.mu.Lock()
	pc, ok := e.pending[guid]
	if ok {
		delete(e.pending, guid)
	}
	e.mu.Unlock()

	if !ok {
		return errcode.ProxyRequestExpired.Error(nil)
	}

	select {
	case pc.ready <- backendConn:
		return nil
	default:
		return errcode.ProxyRequestExpired.Error(nil)
	}
}

func (e *Endpoint) dropPending(guid string) {
	e.mu.Lock()
	delete(e.pending, guid)
	e.mu.Unlock()
}

// Close stops accepting new proxy connections.
func (e *Endpoint) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// relay duplex-copies bytes between a and b until either side errors or
// closes, then closes both.
func relay(a, b io.ReadWriteCloser) {
	defer a.Close()
	defer b.Close()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(a, b)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(b, a)
		done <- struct{}{}
	}()
	<-done
}
