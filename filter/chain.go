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

package filter

import (
	"io"
	"sync"

	"github.com/nabbar/rcfvec/errcode"
)

// maxChainDepth bounds how many filters may be stacked on one Chain
// (spec.md §4.1: filter negotiation may layer e.g. TLS then SSPI, but a
// connection cannot negotiate an unbounded number of filters). This is a
// cap on chain *length*, unrelated to spec.md §4.1/§9's synchronous
// completion-recursion trampoline: this module drives every filter
// through blocking Read/Write plus goroutines rather than a
// completion-port reactor (see filter.Filter's doc comment), so there is
// no on_read_completed-into-read call stack to trampoline in the first
// place. Chains are still stored as a flat slice rather than nested
// wrappers, per the redesign guidance in spec.md §9, so a Read/Write call
// walks the slice with a loop instead of recursing through N stack
// frames.
const maxChainDepth = 16

// Chain is an ordered stack of Filter, outermost (application-facing)
// first and the terminal transport adapter last. It implements
// io.ReadWriteCloser so a session can treat the whole stack as a single
// connection.
type Chain struct {
	mu   sync.Mutex
	link []Filter
}

// NewChain builds a Chain from already-constructed filters, outermost
// first. The last filter must be the terminal transport adapter (ID() ==
// 0); everything ahead of it is negotiated compression/security.
func NewChain(link ...Filter) (*Chain, error) {
	if len(link) == 0 {
		return nil, errcode.FilterNegotiateFail.Errorf("empty filter chain")
	}
	if len(link) > maxChainDepth {
		return nil, errcode.FilterNegotiateFail.Errorf("filter chain depth %d exceeds limit %d", len(link), maxChainDepth)
	}
	return &Chain{link: link}, nil
}

// Depth returns the number of filters currently stacked.
func (c *Chain) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.link)
}

// Push appends a new filter closest to the application side, used once a
// security filter's handshake promotes the connection (e.g. TLS-then-SSPI
// layering). Returns FilterNegotiateFail if the resulting depth would
// exceed maxChainDepth.
func (c *Chain) Push(f Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.link)+1 > maxChainDepth {
		return errcode.FilterNegotiateFail.Errorf("pushing filter %s would exceed chain depth limit %d", f.ID(), maxChainDepth)
	}
	c.link = append([]Filter{f}, c.link...)
	return nil
}

// Read reads from the outermost (application-facing) filter.
func (c *Chain) Read(p []byte) (int, error) {
	c.mu.Lock()
	f := c.link[0]
	c.mu.Unlock()
	return f.Read(p)
}

// Write writes to the outermost filter.
func (c *Chain) Write(p []byte) (int, error) {
	c.mu.Lock()
	f := c.link[0]
	c.mu.Unlock()
	return f.Write(p)
}

// Reset restores every filter in the chain to its freshly constructed
// state, outermost first.
func (c *Chain) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.link {
		if err := f.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases any handshake resource held by a filter in the chain.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for _, f := range c.link {
		if cl, ok := f.(Closer); ok {
			if err := cl.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// IDs returns the negotiated filter identifiers, outermost first, for
// inclusion in a connection-setup handshake record.
func (c *Chain) IDs() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]ID, 0, len(c.link))
	for _, f := range c.link {
		res = append(res, f.ID())
	}
	return res
}

// passthrough wraps a plain io.ReadWriter as the terminal, non-negotiating
// link of a chain (ID 0), used when no compression or security filter was
// negotiated for a connection.
type passthrough struct {
	io.ReadWriter
}

// NewPassthrough returns the terminal no-op filter wrapping rw.
func NewPassthrough(rw io.ReadWriter) Filter { return &passthrough{ReadWriter: rw} }

func (p *passthrough) ID() ID       { return 0 }
func (p *passthrough) Reset() error { return nil }
