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

package simd_test

import (
	"math/rand"

	"github.com/nabbar/rcfvec/simd"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func bruteForce32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

var _ = Describe("L2Sq32", func() {
	It("matches brute force for short (scalar-tier) vectors", func() {
		a := []float32{1, 2, 3, 4, 5}
		b := []float32{2, 2, 1, 4, 0}
		Expect(simd.L2Sq32(a, b)).To(BeNumerically("~", bruteForce32(a, b), 1e-4))
	})

	It("matches brute force for wide vectors exercising the unrolled tiers", func() {
		rng := rand.New(rand.NewSource(7))
		for _, d := range []int{16, 17, 31, 32, 63, 128, 129} {
			a := make([]float32, d)
			b := make([]float32, d)
			for i := range a {
				a[i] = rng.Float32()
				b[i] = rng.Float32()
			}
			Expect(simd.L2Sq32(a, b)).To(BeNumerically("~", bruteForce32(a, b), 1e-2))
		}
	})

	It("returns zero for identical vectors", func() {
		v := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}
		Expect(simd.L2Sq32(v, v)).To(BeNumerically("~", 0, 1e-6))
	})

	It("panics on mismatched lengths", func() {
		Expect(func() { simd.L2Sq32([]float32{1}, []float32{1, 2}) }).To(Panic())
	})

	It("reports a stable host width", func() {
		w := simd.HostWidth()
		Expect(w.String()).To(BeElementOf("scalar", "x4", "x8"))
	})
})

var _ = Describe("L2SqU8", func() {
	It("matches brute force", func() {
		a := []uint8{10, 20, 30, 255}
		b := []uint8{0, 25, 30, 0}
		var want uint32
		for i := range a {
			diff := int32(a[i]) - int32(b[i])
			want += uint32(diff * diff)
		}
		Expect(simd.L2SqU8(a, b)).To(Equal(want))
	})
})
