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
	"math/rand"

	"github.com/nabbar/rcfvec/ivf"
)

func randVectors(n, d int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, n*d)
	for i := range out {
		out[i] = rng.Float32()
	}
	return out
}

func withIDs(data []float32, d int) []ivf.VectorWithID {
	n := len(data) / d
	out := make([]ivf.VectorWithID, n)
	for i := 0; i < n; i++ {
		out[i] = ivf.VectorWithID{ID: uint64(i), Vector: data[i*d : (i+1)*d]}
	}
	return out
}

func bruteForceTopK(data []float32, n, d int, query []float32, k int) []uint64 {
	type sc struct {
		id   uint64
		dist float32
	}
	scores := make([]sc, n)
	for i := 0; i < n; i++ {
		v := data[i*d : (i+1)*d]
		var sum float32
		for j := 0; j < d; j++ {
			diff := query[j] - v[j]
			sum += diff * diff
		}
		scores[i] = sc{id: uint64(i), dist: sum}
	}
	// simple selection sort for the top k, fine for test-sized N
	for i := 0; i < k && i < len(scores); i++ {
		min := i
		for j := i + 1; j < len(scores); j++ {
			if scores[j].dist < scores[min].dist {
				min = j
			}
		}
		scores[i], scores[min] = scores[min], scores[i]
	}
	out := make([]uint64, 0, k)
	for i := 0; i < k && i < len(scores); i++ {
		out = append(out, scores[i].id)
	}
	return out
}
