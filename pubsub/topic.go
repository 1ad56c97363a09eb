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

package pubsub

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/rcfvec/errcode"
)

// Topic is one publisher's multicast group: one entry per active
// subscriber, each entry itself a client transport (spec.md §4.6: "a
// publisher owns a multicast client transport that holds one entry per
// active subscriber").
type Topic struct {
	Name string

	// MaxParallelPublish bounds concurrent subscriber sends (spec.md
	// §4.6: "the simultaneous-publish limit, default unlimited").
	MaxParallelPublish int

	// SubscriberPingInterval / PublisherPingInterval mirror the OOB
	// negotiated fields (spec.md §4.6).
	SubscriberPingInterval time.Duration
	PublisherPingInterval  time.Duration

	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// NewTopic builds an empty topic named name.
func NewTopic(name string) *Topic {
	return &Topic{Name: name, subs: make(map[string]*Subscriber)}
}

// SubscriptionRequest is the OOB payload a subscriber sends to join a
// topic (spec.md §4.6).
type SubscriptionRequest struct {
	PublisherName            string
	SubscriberToPublisherPingMs uint64
}

// SubscriptionReply is the OOB payload the publisher returns.
type SubscriptionReply struct {
	PublisherToSubscriberPingMs uint64
	PingsEnabled                bool
	ConnectionGUID              string
}

// Subscribe registers send as a new subscriber and returns its reply,
// including a freshly generated connection GUID used for reconnection
// correlation.
func (t *Topic) Subscribe(req SubscriptionRequest, canPing bool, send func([]byte) error) (SubscriptionReply, error) {
	guid, err := newSubscriberGUID()
	if err != nil {
		return SubscriptionReply{}, errcode.SocketError.Error(err)
	}

	t.mu.Lock()
	t.subs[guid] = &Subscriber{GUID: guid, Send: send, CanPing: canPing, lastPingAt: time.Now()}
	t.mu.Unlock()

	pingsEnabled := t.PublisherPingInterval > 0
	return SubscriptionReply{
		PublisherToSubscriberPingMs: uint64(t.PublisherPingInterval.Milliseconds()),
		PingsEnabled:                pingsEnabled,
		ConnectionGUID:              guid,
	}, nil
}

// Unsubscribe removes a subscriber by GUID.
func (t *Topic) Unsubscribe(guid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, guid)
}

// Ping records that guid is still alive.
func (t *Topic) Ping(guid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.subs[guid]; ok {
		s.lastPingAt = time.Now()
	}
}

// ReapStale drops subscribers whose last ping is older than
// 2*SubscriberPingInterval + 5s (spec.md §4.6). HTTP/HTTPS subscribers
// (CanPing == false) are exempt here; they are reaped on send failure
// inside Publish instead.
func (t *Topic) ReapStale() []string {
	if t.SubscriberPingInterval <= 0 {
		return nil
	}
	deadline := 2*t.SubscriberPingInterval + 5*time.Second

	t.mu.Lock()
	defer t.mu.Unlock()

	var reaped []string
	for guid, s := range t.subs {
		if !s.CanPing {
			continue
		}
		if time.Since(s.lastPingAt) > deadline {
			delete(t.subs, guid)
			reaped = append(reaped, guid)
		}
	}
	return reaped
}

// Publish sends payload, unchanged, to every subscriber,
// bounded by MaxParallelPublish (0 meaning unlimited), via
// golang.org/x/sync/errgroup. A subscriber whose Send fails is dropped
// (spec.md §4.6: "on send error the subscriber is removed"), matching
// the HTTP/HTTPS reap-on-failure path.
func (t *Topic) Publish(ctx context.Context, payload []byte) error {
	t.mu.RLock()
	targets := make([]*Subscriber, 0, len(t.subs))
	for _, s := range t.subs {
		targets = append(targets, s)
	}
	t.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	if t.MaxParallelPublish > 0 {
		g.SetLimit(t.MaxParallelPublish)
	}

	var failedMu sync.Mutex
	var failed []string

	for _, s := range targets {
		s := s
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err := s.Send(payload); err != nil {
				failedMu.Lock()
				failed = append(failed, s.GUID)
				failedMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	t.mu.Lock()
	for _, guid := range failed {
		delete(t.subs, guid)
	}
	t.mu.Unlock()

	return nil
}

// SubscriberCount returns the number of currently registered subscribers.
func (t *Topic) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
