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

// Package pubsub implements topic-based publish/subscribe over the RPC
// runtime's transports (spec.md §4.6): a publisher multicasts a framed
// payload to every live subscriber transport, bounded-parallel, with
// ping-based reaping for transports that can ping and send-failure
// reaping for the ones that can't (HTTP/HTTPS).
package pubsub

import (
	"time"

	"github.com/hashicorp/go-uuid"
)

// Subscriber is one registered destination for a topic's messages.
type Subscriber struct {
	GUID string
	Send func(payload []byte) error

	// CanPing is false for HTTP/HTTPS subscribers (spec.md §4.6: "HTTP/
	// HTTPS subscribers cannot ping because response streams are
	// server-initiated").
	CanPing    bool
	lastPingAt time.Time
}

// newSubscriberGUID generates a connection-correlation GUID the same way
// proxyendpoint does, via hashicorp/go-uuid.
func newSubscriberGUID() (string, error) { return uuid.GenerateUUID() }
