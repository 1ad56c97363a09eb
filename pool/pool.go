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

// Package pool implements the typed object pool of spec.md §5/§3 Resources:
// buffers and client connections reused across sessions, keyed by
// reflect.Type so a single pool instance can serve every shape a caller
// needs without a family of named globals, get/put O(1) behind one
// pool-wide read-write mutex.
package pool

import (
	"reflect"
	"sync"
)

// Pool is a typed object cache. The zero value is not usable; use New.
type Pool struct {
	mu    sync.RWMutex
	typed map[reflect.Type]*sync.Pool
}

// New returns an empty typed pool.
func New() *Pool {
	return &Pool{typed: make(map[reflect.Type]*sync.Pool)}
}

func (p *Pool) poolFor(t reflect.Type, newFn func() any) *sync.Pool {
	p.mu.RLock()
	sp, ok := p.typed[t]
	p.mu.RUnlock()
	if ok {
		return sp
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if sp, ok = p.typed[t]; ok {
		return sp
	}
	sp = &sync.Pool{New: newFn}
	p.typed[t] = sp
	return sp
}

// Get returns a pooled instance of the type newFn produces, allocating one
// via newFn if the pool is empty for that type. The type is derived from
// newFn's return value, so callers never type-assert on the way in.
func (p *Pool) Get(newFn func() any) any {
	v := newFn()
	sp := p.poolFor(reflect.TypeOf(v), newFn)
	if pooled := sp.Get(); pooled != nil {
		return pooled
	}
	return v
}

// Put returns v to the pool matching its dynamic type. A Put for a type
// never seen by Get is silently dropped: there is nothing to reuse it for.
func (p *Pool) Put(v any) {
	if v == nil {
		return
	}
	t := reflect.TypeOf(v)

	p.mu.RLock()
	sp, ok := p.typed[t]
	p.mu.RUnlock()
	if !ok {
		return
	}
	sp.Put(v)
}

// Len reports how many distinct types this pool has ever served, for tests
// and diagnostics; it is not a live object count (sync.Pool does not expose
// one).
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.typed)
}

// Default is the process-wide pool used by packages that have no reason to
// own a private one (filter buffers).
var Default = New()
