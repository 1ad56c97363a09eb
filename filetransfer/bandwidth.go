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

package filetransfer

import (
	"context"
	"sync"
	"time"
)

// BandwidthQuota is a shared, sliding-window byte budget (spec.md §4.7:
// "transfer_window_s, default 5s, carrying over negative balance"). A quota
// of Q bytes/second is divided evenly across N concurrent transfers sharing
// it (Q/N sharing); each transfer calls Reserve before sending a chunk and
// blocks just long enough to stay under its share.
//
// The window-carry rule: a window that overspends its allowance subtracts
// the overage from the following window's allowance rather than resetting
// clean, so a burst is paid back over time instead of forgiven.
type BandwidthQuota struct {
	mu sync.Mutex

	limitBps int64
	window   time.Duration
	shares   int64

	windowStart time.Time
	used        int64
	debt        int64
}

// NewBandwidthQuota builds a quota capped at limitBps bytes/second measured
// over window (TransferWindow if zero). limitBps of 0 means unlimited.
func NewBandwidthQuota(limitBps int64, window time.Duration) *BandwidthQuota {
	if window <= 0 {
		window = TransferWindow
	}
	return &BandwidthQuota{
		limitBps:    limitBps,
		window:      window,
		shares:      1,
		windowStart: time.Now(),
	}
}

// SetShares sets how many concurrent transfers divide this quota (minimum
// 1). Each transfer effectively gets limitBps/shares.
func (q *BandwidthQuota) SetShares(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n < 1 {
		n = 1
	}
	q.shares = int64(n)
}

func (q *BandwidthQuota) allowance() int64 {
	if q.limitBps <= 0 {
		return 0
	}
	per := q.limitBps / q.shares
	if per < 1 {
		per = 1
	}
	return int64(float64(per) * q.window.Seconds())
}

// effectiveCap is this window's usable allowance after subtracting any
// debt carried from a prior window that overspent.
func (q *BandwidthQuota) effectiveCap() int64 {
	c := q.allowance() - q.debt
	if c < 0 {
		return 0
	}
	return c
}

func (q *BandwidthQuota) rollWindow(now time.Time) {
	if now.Sub(q.windowStart) < q.window {
		return
	}
	overage := q.used - q.effectiveCap()
	if overage > 0 {
		q.debt = overage
	} else {
		q.debt = 0
	}
	q.used = 0
	q.windowStart = now
}

// Reserve blocks, respecting ctx, until n bytes fit within the current
// window's remaining allowance, then records the usage. A nil or unlimited
// quota returns immediately.
func (q *BandwidthQuota) Reserve(ctx context.Context, n int64) error {
	if q == nil || q.limitBps <= 0 || n <= 0 {
		return nil
	}

	for {
		q.mu.Lock()
		now := time.Now()
		q.rollWindow(now)

		remaining := q.effectiveCap() - q.used
		if n <= remaining {
			q.used += n
			q.mu.Unlock()
			return nil
		}

		waitUntil := q.windowStart.Add(q.window)
		q.mu.Unlock()

		wait := time.Until(waitUntil)
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
