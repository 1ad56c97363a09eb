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

import "sync/atomic"

// counters tracks running byte totals shared by every Conn a Client or
// Server produces.
type counters struct {
	sent uint64
	recv uint64
}

func (c *counters) addSent(n int)     { atomic.AddUint64(&c.sent, uint64(n)) }
func (c *counters) addRecv(n int)     { atomic.AddUint64(&c.recv, uint64(n)) }
func (c *counters) BytesSent() uint64 { return atomic.LoadUint64(&c.sent) }
func (c *counters) BytesReceived() uint64 { return atomic.LoadUint64(&c.recv) }

// countedConn wraps a Conn, feeding every Read/Write through shared
// counters so max-incoming/max-outgoing limits and metrics stay accurate
// per spec.md §4.2.
type countedConn struct {
	Conn
	c   *counters
	max struct{ in, out uint64 }
}

func newCountedConn(inner Conn, c *counters) *countedConn {
	return &countedConn{Conn: inner, c: c}
}

func (c *countedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.c.addRecv(n)
	}
	return n, err
}

func (c *countedConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if n > 0 {
		c.c.addSent(n)
	}
	return n, err
}
