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

package ivf

import (
	"math/rand"

	"github.com/nabbar/rcfvec/simd"
)

// fitKMeans runs Lloyd's algorithm for `iterations` rounds over `data`
// (N vectors of dimension d, flattened) to produce k centroids, matching
// the teacher-equivalent original's Fit(..., iterations, seed) call on its
// CQ/PQ quantizer objects (spec.md §1 treats the clustering algorithm
// itself as an external collaborator; this is the minimal Lloyd's-algorithm
// callable that stands in for it, grounded on
// original_source/src/ivf/index_ivf.cpp's Train()/cq_.Fit() call shape).
//
// Centroids are seeded from `iterations`-independent random draws without
// replacement so the result is deterministic given seed, per spec.md §4.9
// "Training".
func fitKMeans(data []float32, n, d, k, iterations int, seed int64) []float32 {
	if n == 0 || k == 0 {
		return make([]float32, k*d)
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := make([]float32, k*d)
	perm := rng.Perm(n)
	for c := 0; c < k; c++ {
		copy(centroids[c*d:(c+1)*d], data[perm[c]*d:(perm[c]+1)*d])
	}

	assign := make([]int, n)
	sum := make([]float64, k*d)
	count := make([]int, k)

	for it := 0; it < iterations; it++ {
		for i := 0; i < n; i++ {
			v := data[i*d : (i+1)*d]
			best, bestDist := 0, float32(-1)
			for c := 0; c < k; c++ {
				dist := simd.L2Sq32(v, centroids[c*d:(c+1)*d])
				if bestDist < 0 || dist < bestDist {
					bestDist = dist
					best = c
				}
			}
			assign[i] = best
		}

		for i := range sum {
			sum[i] = 0
		}
		for i := range count {
			count[i] = 0
		}
		for i := 0; i < n; i++ {
			c := assign[i]
			count[c]++
			v := data[i*d : (i+1)*d]
			base := c * d
			for j := 0; j < d; j++ {
				sum[base+j] += float64(v[j])
			}
		}

		for c := 0; c < k; c++ {
			if count[c] == 0 {
				// Re-seed a collapsed cluster from a random point so later
				// iterations can still make use of it.
				p := perm[rng.Intn(n)]
				copy(centroids[c*d:(c+1)*d], data[p*d:(p+1)*d])
				continue
			}
			base := c * d
			for j := 0; j < d; j++ {
				centroids[base+j] = float32(sum[base+j] / float64(count[c]))
			}
		}
	}

	return centroids
}

// sampleRows draws `nsamples` distinct row indices out of `n` uniformly at
// random given seed, matching Train()'s std::shuffle-then-take-prefix idiom.
func sampleRows(n, nsamples int, seed int64) []int {
	if nsamples > n {
		nsamples = n
	}
	rng := rand.New(rand.NewSource(seed))
	return rng.Perm(n)[:nsamples]
}

func gather(data []float32, d int, rows []int) []float32 {
	out := make([]float32, len(rows)*d)
	for i, r := range rows {
		copy(out[i*d:(i+1)*d], data[r*d:(r+1)*d])
	}
	return out
}
