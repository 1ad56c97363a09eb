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

// Package session implements the transport-facing NetworkSession state
// machine and the dispatch-facing RcfSession (spec.md §4.4). session
// depends on transport, filter and codec; nothing downstream of it
// (transport, filter) ever imports session back, keeping the package
// graph acyclic.
package session

import (
	"sync"

	"github.com/nabbar/rcfvec/errcode"
	"github.com/nabbar/rcfvec/transport"
	"github.com/nabbar/rcfvec/wire"
)

// State is one node of the server-side state machine (spec.md §4.4); the
// client side is symmetric with roles swapped.
type State uint8

const (
	StateReady State = iota
	StateAccepting
	StateReadingFrameLen
	StateReadingFrameBody
	StateDispatch
	StateWritingResponse
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateAccepting:
		return "accepting"
	case StateReadingFrameLen:
		return "reading-frame-len"
	case StateReadingFrameBody:
		return "reading-frame-body"
	case StateDispatch:
		return "dispatch"
	case StateWritingResponse:
		return "writing-response"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NetworkSession drives one connection's read/write state machine over a
// transport.Conn, applying MaxIncoming validation to every frame length
// (spec.md §4.4 edge cases: zero length and over-maximum length are both
// fatal).
type NetworkSession struct {
	mu    sync.Mutex
	state State
	conn  transport.Conn

	MaxIncoming uint32
	MaxOutgoing uint32
}

// NewNetworkSession wraps conn, ready to accept/connect.
func NewNetworkSession(conn transport.Conn) *NetworkSession {
	return &NetworkSession{state: StateReady, conn: conn, MaxIncoming: wire.MaxFrameLength, MaxOutgoing: wire.MaxFrameLength}
}

// State returns the current machine state.
func (n *NetworkSession) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *NetworkSession) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

// Accept transitions Ready -> Accepting -> ReadingFrameLen.
func (n *NetworkSession) Accept() {
	n.setState(StateAccepting)
	n.setState(StateReadingFrameLen)
}

// ReadFrame reads one frame through wire.ReadFrame, which rejects a length
// above wire.MaxFrameLength before reading the body, and then checks the
// body's length against MaxIncoming; a frame over MaxIncoming but within
// wire.MaxFrameLength is read in full before it is rejected.
// A zero length or over-maximum length transitions to Closed and returns
// a fatal error; the caller must close the connection.
func (n *NetworkSession) ReadFrame() ([]byte, error) {
	n.setState(StateReadingFrameLen)

	p, err := wire.ReadFrame(n.conn)
	if err != nil {
		n.setState(StateClosed)
		return nil, err
	}
	if len(p) == 0 {
		n.setState(StateClosed)
		return nil, errcode.ClientMessageLength.Errorf("zero-length frame")
	}
	if uint32(len(p)) > n.MaxIncoming {
		n.setState(StateClosed)
		return nil, errcode.MessageTooLarge.Errorf("frame length %d exceeds session maximum %d", len(p), n.MaxIncoming)
	}

	n.setState(StateReadingFrameBody)
	n.setState(StateDispatch)
	return p, nil
}

// WriteFrame writes resp and returns to ReadingFrameLen unless
// closeAfter is set, in which case the session transitions to Closed
// (spec.md §4.4: "unless close-after-write").
func (n *NetworkSession) WriteFrame(p []byte, closeAfter bool) error {
	n.setState(StateWritingResponse)
	if uint32(len(p)) > n.MaxOutgoing {
		n.setState(StateClosed)
		return errcode.MessageTooLarge.Errorf("response length %d exceeds session maximum %d", len(p), n.MaxOutgoing)
	}
	if err := wire.WriteFrame(n.conn, p); err != nil {
		n.setState(StateClosed)
		return err
	}
	if closeAfter {
		n.setState(StateClosed)
		return n.conn.Close()
	}
	n.setState(StateReadingFrameLen)
	return nil
}

// Suspend returns the machine to Ready for an async dispatch, matching
// spec.md §4.4's "[dispatch] --async return--> Ready (suspended;
// completion re-enters Writing)".
func (n *NetworkSession) Suspend() { n.setState(StateReady) }

// Resume re-enters WritingResponse once an async continuation completes.
func (n *NetworkSession) Resume() { n.setState(StateWritingResponse) }

// Close marks the session Closed and releases the underlying connection.
func (n *NetworkSession) Close() error {
	n.setState(StateClosed)
	return n.conn.Close()
}

// Conn exposes the underlying transport connection, e.g. for a filter
// chain to be layered on top during handshake.
func (n *NetworkSession) Conn() transport.Conn { return n.conn }
