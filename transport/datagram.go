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

package transport

import (
	"net"
	"time"
)

// datagramConn makes one logical peer of a net.PacketConn look like a
// stream Conn: inbound datagrams are queued on a channel, outbound writes
// go straight to WriteTo. UDP/unixgram are exact, datagram-per-message, so
// one Read never spans or merges two incoming packets (spec.md §4.1 wire
// framing note on UDP exactness).
type datagramConn struct {
	pc   net.PacketConn
	addr net.Addr
	c    *counters
	in   chan []byte
}

func newDatagramConn(pc net.PacketConn, addr net.Addr, c *counters) *datagramConn {
	return &datagramConn{pc: pc, addr: addr, c: c, in: make(chan []byte, 64)}
}

func (d *datagramConn) deliver(p []byte) {
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case d.in <- cp:
	default:
		// Slow consumer: drop rather than block the accept loop, matching
		// UDP's own no-retransmission semantics.
	}
}

func (d *datagramConn) Read(p []byte) (int, error) {
	buf, ok := <-d.in
	if !ok {
		return 0, net.ErrClosed
	}
	return copy(p, buf), nil
}

func (d *datagramConn) Write(p []byte) (int, error) {
	n, err := d.pc.WriteTo(p, d.addr)
	if n > 0 {
		d.c.addSent(n)
	}
	return n, err
}

func (d *datagramConn) Close() error {
	close(d.in)
	return nil
}

func (d *datagramConn) RemoteAddr() net.Addr { return d.addr }
func (d *datagramConn) LocalAddr() net.Addr  { return d.pc.LocalAddr() }

func (d *datagramConn) SetDeadline(t time.Time) error      { return nil }
func (d *datagramConn) SetReadDeadline(t time.Time) error  { return nil }
func (d *datagramConn) SetWriteDeadline(t time.Time) error { return nil }
