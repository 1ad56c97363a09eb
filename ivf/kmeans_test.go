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

package ivf_test

import (
	"github.com/nabbar/rcfvec/ivf"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("coarse quantizer training (via Index.Train)", func() {
	It("is deterministic for a fixed seed", func() {
		const n, d, kc = 400, 10, 5
		data := randVectors(n, d, 7)

		a, _ := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 7})
		Expect(a.Train(data)).To(Succeed())

		b, _ := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 7})
		Expect(b.Train(data)).To(Succeed())

		query := data[:d]
		pa, _ := a.TopW(query, kc)
		pb, _ := b.TopW(query, kc)
		Expect(pa).To(Equal(pb))
	})

	It("produces a different assignment for a different seed", func() {
		const n, d, kc = 400, 10, 5
		data := randVectors(n, d, 11)

		a, _ := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 1})
		Expect(a.Train(data)).To(Succeed())
		b, _ := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 2})
		Expect(b.Train(data)).To(Succeed())

		query := data[:d]
		pa, _ := a.TopW(query, kc)
		pb, _ := b.TopW(query, kc)
		Expect(pa).NotTo(Equal(pb))
	})

	It("rejects training on empty data", func() {
		idx, _ := ivf.New(ivf.Config{N: 0, D: 4, L: 1, Kc: 2, NSamples: 1, Seed: 1})
		Expect(idx.Train(nil)).To(HaveOccurred())
	})
})
