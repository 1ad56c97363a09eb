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
	"sort"

	"github.com/nabbar/rcfvec/simd"
)

// scored is a (vector id, distance) pair, ordered ascending by distance —
// the Go equivalent of the original's std::pair<vector_id_t, float> scored
// against a partial_sort comparator (original_source/src/ivf/index_ivf.cpp
// TopKID).
type scored struct {
	id   VectorID
	dist float32
}

func nearestCentroid(v, centers []float32, kc, d int) ClusterID {
	best, bestDist := 0, float32(-1)
	for c := 0; c < kc; c++ {
		dist := simd.L2Sq32(v, centers[c*d:(c+1)*d])
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			best = c
		}
	}
	return best
}

// topWCentroids partial-sorts the kc coarse centroids by L2² distance to
// query and returns the w closest cluster ids, per spec.md §4.9 "top_w".
func topWCentroids(query, centers []float32, kc, d, w int) []ClusterID {
	type sc struct {
		id   ClusterID
		dist float32
	}
	all := make([]sc, kc)
	for c := 0; c < kc; c++ {
		all[c] = sc{id: c, dist: simd.L2Sq32(query, centers[c*d:(c+1)*d])}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	if w > kc {
		w = kc
	}
	out := make([]ClusterID, w)
	for i := 0; i < w; i++ {
		out[i] = all[i].id
	}
	return out
}

// partialTopK sorts score ascending by distance and truncates to k, per
// spec.md §4.9 "Partial-sort the collected (id, dist) pairs and return the
// min(k, collected) lowest."
func partialTopK(score []scored, k int) ([]VectorID, []float32) {
	sort.Slice(score, func(i, j int) bool { return score[i].dist < score[j].dist })
	if k > len(score) {
		k = len(score)
	}
	ids := make([]VectorID, k)
	dists := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = score[i].id
		dists[i] = score[i].dist
	}
	return ids, dists
}
