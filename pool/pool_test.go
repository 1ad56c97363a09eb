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

package pool_test

import (
	"bytes"

	"github.com/nabbar/rcfvec/pool"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	It("reuses a put instance on the next get for the same type", func() {
		p := pool.New()

		newBuf := func() any { return new(bytes.Buffer) }

		b1 := p.Get(newBuf).(*bytes.Buffer)
		b1.WriteString("hello")
		p.Put(b1)

		b2 := p.Get(newBuf).(*bytes.Buffer)
		Expect(b2).To(BeIdenticalTo(b1))
	})

	It("allocates fresh instances when empty", func() {
		p := pool.New()
		newCounter := func() any { return new(int) }

		a := p.Get(newCounter)
		b := p.Get(newCounter)
		Expect(a).NotTo(BeIdenticalTo(b))
	})

	It("tracks one pool entry per distinct type", func() {
		p := pool.New()
		p.Put(p.Get(func() any { return new(bytes.Buffer) }))
		p.Put(p.Get(func() any { return new(int) }))
		Expect(p.Len()).To(Equal(2))
	})

	It("drops a Put for a type Get never produced", func() {
		p := pool.New()
		p.Put(42)
		Expect(p.Len()).To(Equal(0))
	})
})
