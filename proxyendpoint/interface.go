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

// Package proxyendpoint implements NAT-traversal rendezvous (spec.md §4.8):
// a backend that cannot accept inbound connections registers itself at a
// proxy; clients connect to the proxy instead, the proxy hands the backend
// a GUID via a long-polled request queue, the backend dials back in to
// claim it, and the proxy relays bytes between the two resulting
// connections.
package proxyendpoint

import (
	"io"
	"time"

	"github.com/hashicorp/go-uuid"
)

// GUIDTimeout is how long a pending client connection waits for the
// backend to claim it before the proxy gives up (spec.md §4.8: "10s GUID
// timeout -> NoProxyConnection").
const GUIDTimeout = 10 * time.Second

// pendingConnection is one client-side conn waiting to be paired.
type pendingConnection struct {
	conn  io.ReadWriteCloser
	ready chan io.ReadWriteCloser
}

func newGUID() (string, error) { return uuid.GenerateUUID() }
