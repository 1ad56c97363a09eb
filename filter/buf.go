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
	"bytes"

	"github.com/nabbar/rcfvec/pool"
)

func newByteReader(p []byte) *bytes.Reader { return bytes.NewReader(p) }

// newByteBuffer draws a scratch buffer from the shared pool instead of
// allocating, per spec.md §5 "Buffer pools (ObjectPool)".
func newByteBuffer() *bytes.Buffer {
	b := pool.Default.Get(func() any { return new(bytes.Buffer) }).(*bytes.Buffer)
	b.Reset()
	return b
}

// releaseByteBuffer returns a buffer obtained from newByteBuffer to the pool.
// Callers must not touch b afterward.
func releaseByteBuffer(b *bytes.Buffer) {
	pool.Default.Put(b)
}
