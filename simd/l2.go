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

// Package simd implements the width-dispatched squared-L2 distance kernels
// of spec.md §4.9/§4.10: a scalar tier, and 4-wide/8-wide unrolled tiers
// that stand in for the SSE/AVX2 intrinsic tiers of the original, since this
// module has no cgo or hand-written assembly. golang.org/x/sys/cpu still
// drives the tier choice so the dispatch genuinely reflects what the host
// CPU offers, even though every tier below is portable Go.
package simd

import "golang.org/x/sys/cpu"

// bfUpboundLim is the dimension below which the scalar loop wins: unrolling
// overhead dominates the saved iterations for short vectors (spec.md §4.9).
const bfUpboundLim = 16

// Width reports which unrolled tier L2Sq32 will take for a given dimension on
// this host, exposed for logging/diagnostics only — callers never need to
// select a tier themselves.
type Width int

const (
	WidthScalar Width = iota
	Width4
	Width8
)

func (w Width) String() string {
	switch w {
	case Width4:
		return "x4"
	case Width8:
		return "x8"
	default:
		return "scalar"
	}
}

// hostWidth is computed once at init from the detected CPU features,
// mirroring the original's AVX2/SSE runtime dispatch without relying on
// cgo: AVX2 (8 lanes of f32) maps to Width8, SSE-class SIMD (4 lanes) maps
// to Width4, and anything else falls back to scalar.
var hostWidth = detectWidth()

func detectWidth() Width {
	switch {
	case cpu.X86.HasAVX2:
		return Width8
	case cpu.X86.HasSSE42, cpu.ARM64.HasASIMD:
		return Width4
	default:
		return WidthScalar
	}
}

// HostWidth returns the SIMD tier this process will use for dimensions at
// or above bfUpboundLim.
func HostWidth() Width { return hostWidth }

// L2Sq32 computes the squared Euclidean distance between two equal-length
// float32 vectors, dispatching on dimension and detected host width per
// spec.md §4.9. Panics if a and b have different lengths (a programmer
// error: every caller in this module derives both from the same D).
func L2Sq32(a, b []float32) float32 {
	if len(a) != len(b) {
		panic("simd: L2Sq32 length mismatch")
	}
	d := len(a)
	if d < bfUpboundLim {
		return l2sqScalar32(a, b)
	}
	switch hostWidth {
	case Width8:
		return l2sqWide32(a, b, 8)
	case Width4:
		return l2sqWide32(a, b, 4)
	default:
		return l2sqScalar32(a, b)
	}
}

func l2sqScalar32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// l2sqWide32 sums in `width`-wide independent accumulators to let the Go
// compiler pipeline the multiply-adds the way a hand-unrolled SIMD kernel
// would, then folds the accumulators and handles any tail shorter than
// width via a zero-padded stack buffer (spec.md §4.9 "masked tail read").
func l2sqWide32(a, b []float32, width int) float32 {
	n := len(a)
	main := n - n%width

	acc := make([]float32, width)
	for i := 0; i < main; i += width {
		for l := 0; l < width; l++ {
			diff := a[i+l] - b[i+l]
			acc[l] += diff * diff
		}
	}

	var sum float32
	for _, v := range acc {
		sum += v
	}

	if main < n {
		var pa, pb [8]float32 // widest tier is 8; zero-padded beyond the tail
		tail := n - main
		copy(pa[:tail], a[main:])
		copy(pb[:tail], b[main:])
		for l := 0; l < tail; l++ {
			diff := pa[l] - pb[l]
			sum += diff * diff
		}
	}
	return sum
}

// L2SqU8 computes the squared L2 distance between two equal-length uint8
// vectors. The ivf search path does not call it: IndexPQ scores PQ codes
// through a float32 distance table.
func L2SqU8(a, b []uint8) uint32 {
	if len(a) != len(b) {
		panic("simd: L2SqU8 length mismatch")
	}
	var sum uint32
	for i := range a {
		diff := int32(a[i]) - int32(b[i])
		sum += uint32(diff * diff)
	}
	return sum
}
