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
	"sync"
	"time"
)

// WorkerPool is a lazily-grown pool of chunk workers, bounded between
// MinWorkers and MaxWorkers, that shrinks a worker back out after it sits
// idle for IdleTTL (spec.md §4.7: "bounded lazy worker pool (1..10, 30s
// idle)").
type WorkerPool struct {
	mu      sync.Mutex
	jobs    chan func()
	active  int
	maxSize int
	idleTTL time.Duration
	closed  bool
}

// NewWorkerPool builds a pool that never exceeds maxWorkers concurrent
// goroutines (clamped to [MinWorkers, MaxWorkers]) and retires idle workers
// after IdleTTL.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < MinWorkers {
		maxWorkers = MinWorkers
	}
	if maxWorkers > MaxWorkers {
		maxWorkers = MaxWorkers
	}
	return &WorkerPool{
		jobs:    make(chan func()),
		maxSize: maxWorkers,
		idleTTL: IdleTTL,
	}
}

// Submit runs fn on a pool worker, spinning a new one up whenever fewer than
// maxSize workers exist (whether or not any are idle), or blocking until a
// running worker takes fn otherwise.
func (p *WorkerPool) Submit(fn func()) {
	p.mu.Lock()
	if p.active < p.maxSize {
		p.active++
		p.mu.Unlock()
		go p.runWorker(fn)
		return
	}
	p.mu.Unlock()
	p.jobs <- fn
}

func (p *WorkerPool) runWorker(first func()) {
	first()

	timer := time.NewTimer(p.idleTTL)
	defer timer.Stop()

	for {
		select {
		case fn, ok := <-p.jobs:
			if !ok {
				p.retire()
				return
			}
			fn()
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(p.idleTTL)
		case <-timer.C:
			p.retire()
			return
		}
	}
}

func (p *WorkerPool) retire() {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
}

// ActiveWorkers reports the current worker count.
func (p *WorkerPool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Close stops accepting new jobs. In-flight jobs already submitted via
// Submit continue to run.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.jobs)
}
