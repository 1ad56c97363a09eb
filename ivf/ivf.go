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

// Package ivf implements the inverted-file vector index of spec.md §4.9:
// a coarse quantizer partitioning a corpus into kc clusters, an optional
// Product Quantizer for compressed codes, posting lists and segments
// loaded on demand, and a two-phase TopW/TopK search. The clustering
// algorithm itself (spec.md §1 "out of scope") is a from-scratch Lloyd's
// implementation in kmeans.go, grounded on the original's Fit(data,
// iterations, seed) call shape rather than on any specific third-party
// clustering library — no corpus repo ships one that fits this signature.
package ivf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Status distinguishes whether a cluster's segments are resident or must
// be fetched, per spec.md §3 "IVF/IVF-PQ Index".
type Status int

const (
	StatusLocal Status = iota
	StatusRemote
)

// ClusterID indexes the coarse quantizer's centroids, 0..Kc-1.
type ClusterID = int

// VectorID is a corpus-wide vector identifier as stored in posting lists.
type VectorID = uint64

var (
	ErrNotTrained    = errors.New("ivf: coarse quantizer has not been trained")
	ErrDimMismatch   = errors.New("ivf: vector dimension does not match index config")
	ErrBadPopulation = errors.New("ivf: populate data length is not a multiple of D")
)

// Config describes an index's shape and on-disk location, shared by Index
// and IndexPQ (spec.md §3 "Corpus size N, dimension D, per-query vector-
// budget L").
type Config struct {
	N  int // corpus size, informational; Populate may see fewer or more
	D  int // vector dimension
	L  int // per-query scanned-vector budget
	Kc int // number of coarse clusters

	IndexPath string // holds cq_centers / pq_centers
	DBPath    string // holds id_<c> / vector_<c> / posting_lists_size

	NSamples int   // training sample size
	Seed     int64 // deterministic training seed
}

func (c Config) validate() error {
	if c.D <= 0 || c.Kc <= 0 {
		return fmt.Errorf("ivf: invalid config D=%d Kc=%d", c.D, c.Kc)
	}
	return nil
}

// coarseQuantizer is the shared training/probing logic used by both the
// raw-vector Index and the PQ-coded IndexPQ (original_source's IndexIVF and
// IndexIVFPQ both embed a `cq_` member of the same quantizer type).
type coarseQuantizer struct {
	mu      sync.RWMutex
	d       int
	kc      int
	centers []float32 // flat [kc x d], nil until trained
}

func (q *coarseQuantizer) ready() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.centers) == q.kc*q.d
}

// fit trains the coarse quantizer over a uniform sample of rawData (N
// vectors flattened, dimension d) for 12 iterations, per spec.md §4.9
// "Training".
func (q *coarseQuantizer) fit(rawData []float32, n, nsamples int, seed int64) {
	rows := sampleRows(n, nsamples, seed)
	sample := gather(rawData, q.d, rows)

	centers := fitKMeans(sample, len(rows), q.d, q.kc, 12, seed)

	q.mu.Lock()
	q.centers = centers
	q.mu.Unlock()
}

// nearest returns the coarse cluster id closest to v.
func (q *coarseQuantizer) nearest(v []float32) ClusterID {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return nearestCentroid(v, q.centers, q.kc, q.d)
}

// topW returns the w coarse cluster ids nearest to query, ascending by
// distance, per spec.md §4.9 "top_w(query, w)".
func (q *coarseQuantizer) topW(query []float32, w int) []ClusterID {
	q.mu.RLock()
	centers := q.centers
	kc, d := q.kc, q.d
	q.mu.RUnlock()
	return topWCentroids(query, centers, kc, d, w)
}

// residency tracks which coarse clusters currently have segments loaded in
// memory, per spec.md §3 "IVF segments: loaded on demand ... evicted when a
// subsequent call passes a disjoint set."
type residency struct {
	mu   sync.Mutex
	bits *bitset.BitSet
}

func newResidency(kc int) *residency {
	return &residency{bits: bitset.New(uint(kc))}
}

func (r *residency) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, r.bits.Count())
	for i, e := r.bits.NextSet(0); e; i, e = r.bits.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

func (r *residency) diff(want []int) (toLoad, toEvict []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wantSet := bitset.New(r.bits.Len())
	for _, c := range want {
		wantSet.Set(uint(c))
	}

	for i, e := r.bits.NextSet(0); e; i, e = r.bits.NextSet(i + 1) {
		if !wantSet.Test(i) {
			toEvict = append(toEvict, int(i))
		}
	}
	for _, c := range want {
		if !r.bits.Test(uint(c)) {
			toLoad = append(toLoad, c)
		}
	}
	r.bits = wantSet
	return toLoad, toEvict
}

func (r *residency) has(c int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bits.Test(uint(c))
}
