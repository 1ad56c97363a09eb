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
	"context"
	"net"
	"time"

	"github.com/nabbar/rcfvec/errcode"
	libptc "github.com/nabbar/rcfvec/network/protocol"
)

// transportMinimum is the floor applied to a dial's effective deadline
// even when the caller's context has no deadline or an earlier one
// (spec.md §4.2: connect timeout is max(userDeadline, transportMinimum)).
const transportMinimum = 3 * time.Second

// netClient dials tcp/tcp4/tcp6/udp/udp4/udp6/unix/unixgram via the
// standard library's net package, grounded on socket/client/{tcp,udp,
// unix}. DNS resolution for the address happens inside net.Dialer on a
// dedicated goroutine (DialContext already does this internally), so a
// slow resolver cannot block the caller past ctx's deadline.
type netClient struct {
	network libptc.NetworkProtocol
	address string
	counters
}

// NewNetClient builds a Client for any net.Dial-style network: tcp
// variants, udp variants, unix and unixgram.
func NewNetClient(network libptc.NetworkProtocol, address string) Client {
	return &netClient{network: network, address: address}
}

func (c *netClient) Dial(ctx context.Context) (Conn, error) {
	deadline := time.Now().Add(transportMinimum)
	if d, ok := ctx.Deadline(); ok && d.After(deadline) {
		deadline = d
	}
	parent := ctx
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		// an earlier caller deadline would otherwise override the floor
		parent = context.WithoutCancel(ctx)
	}
	dialCtx, cancel := context.WithDeadline(parent, deadline)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, c.network.String(), c.address)
	if err != nil {
		if dialCtx.Err() != nil {
			return nil, errcode.ClientConnectTimeout.Error(err)
		}
		return nil, errcode.SocketError.Error(err)
	}
	return newCountedConn(conn.(Conn), &c.counters), nil
}
