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

// Package transport implements the per-protocol client/server connection
// layer (spec.md §4.2): tcp, udp, unix and http/https. transport never
// imports session or dispatch — it only hands back a Conn-shaped
// abstraction, keeping the dependency graph one-directional
// (network/endpoint -> transport; session -> transport + filter + codec).
package transport

import (
	"context"
	"io"
	"net"
	"time"
)

// Conn is the minimal connection surface a session drives; satisfied by
// *net.TCPConn/*net.UDPConn/*net.UnixConn directly, and by the http/https
// transports' own wrapper types.
type Conn interface {
	io.ReadWriteCloser

	RemoteAddr() net.Addr
	LocalAddr() net.Addr

	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Client dials a single outbound connection.
type Client interface {
	// Dial connects, honoring ctx's deadline or falling back to
	// transportMinimum, whichever is later (spec.md §4.2).
	Dial(ctx context.Context) (Conn, error)

	// BytesSent and BytesReceived are running counters across every Conn
	// this Client has dialed (spec.md §4.2 domain stack: per-transport
	// byte accounting feeds pool/metrics reporting).
	BytesSent() uint64
	BytesReceived() uint64
}

// Handler processes one accepted connection. The stream server closes c
// once Handler returns; datagram and HTTP connections are not closed by
// the server.
type Handler func(c Conn)

// Server accepts inbound connections and dispatches them to a Handler.
type Server interface {
	// Listen blocks, accepting connections until ctx is done or Shutdown
	// is called.
	Listen(ctx context.Context) error
	Shutdown(ctx context.Context) error

	IsRunning() bool
	OpenConnections() int

	BytesSent() uint64
	BytesReceived() uint64
}
