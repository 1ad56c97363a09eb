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
	"fmt"
	"sync"

	"github.com/nabbar/rcfvec/rcflog"
	"github.com/nabbar/rcfvec/simd"
	"golang.org/x/sync/errgroup"
)

// Index is the raw (non-PQ) IVF index: each cluster's segment holds the
// untouched float32 vectors assigned to it, per spec.md §3 "segments[kc]:
// raw vectors (IVF) ... per cluster, parallel to the posting list."
type Index struct {
	cfg Config
	cq  coarseQuantizer

	mu           sync.RWMutex
	postingLists [][]VectorID
	segments     [][]float32 // flat, len == len(postingLists[c])*D

	resident *residency
	status   Status

	log rcflog.FuncLog
}

// SetLogger attaches a structured logger used to report training,
// population and eviction events (spec.md §3.2: "every ... IVF component
// accepts a logger.FuncLog").
func (ix *Index) SetLogger(log rcflog.FuncLog) { ix.log = log }

func (ix *Index) logger() rcflog.Logger {
	if ix.log == nil {
		return nil
	}
	return ix.log()
}

// New builds an untrained, empty Index for the given configuration.
func New(cfg Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Index{
		cfg:          cfg,
		cq:           coarseQuantizer{d: cfg.D, kc: cfg.Kc},
		postingLists: make([][]VectorID, cfg.Kc),
		segments:     make([][]float32, cfg.Kc),
		resident:     newResidency(cfg.Kc),
		status:       StatusLocal,
	}, nil
}

// Train fits the coarse quantizer over a uniformly sampled subset of
// rawData (flattened N x D), per spec.md §4.9 "Training": nsamples and
// seed come from cfg.NSamples/cfg.Seed.
func (ix *Index) Train(rawData []float32) error {
	n := len(rawData) / ix.cfg.D
	if n == 0 {
		return fmt.Errorf("ivf: Train called with empty data")
	}
	ix.cq.fit(rawData, n, ix.cfg.NSamples, ix.cfg.Seed)
	if l := ix.logger(); l != nil {
		l.Info("coarse quantizer trained", rcflog.Fields{"n": n, "clusters": ix.cfg.Kc})
	}
	return nil
}

// Ready reports whether the index can serve TopW/TopK queries.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.cq.ready() && len(ix.postingLists) == ix.cfg.Kc && len(ix.segments) == ix.cfg.Kc
}

// Populate assigns every record in rawData to its nearest coarse
// centroid, appending to that cluster's posting list and segment, per
// spec.md §4.9 "Populate". Nearest centroids are computed in parallel,
// one goroutine per record; the appends then run serially while the
// index lock is held.
func (ix *Index) Populate(rawData []VectorWithID) error {
	if !ix.cq.ready() {
		return ErrNotTrained
	}

	locks := make([]sync.Mutex, ix.cfg.Kc)
	assign := make([]ClusterID, len(rawData))

	var wg sync.WaitGroup
	for i := range rawData {
		if len(rawData[i].Vector) != ix.cfg.D {
			return ErrDimMismatch
		}
	}
	wg.Add(len(rawData))
	for i := range rawData {
		go func(i int) {
			defer wg.Done()
			assign[i] = ix.cq.nearest(rawData[i].Vector)
		}(i)
	}
	wg.Wait()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, rec := range rawData {
		c := assign[i]
		locks[c].Lock()
		ix.postingLists[c] = append(ix.postingLists[c], rec.ID)
		ix.segments[c] = append(ix.segments[c], rec.Vector...)
		locks[c].Unlock()
	}
	for c := range ix.postingLists {
		ix.resident.bits.Set(uint(c))
	}
	if l := ix.logger(); l != nil {
		l.Info("populated", rcflog.Fields{"n": len(rawData)})
	}
	return nil
}

// VectorWithID pairs a vector with its corpus-wide identifier, the unit of
// work Populate consumes (vec_id_t in the original).
type VectorWithID struct {
	ID     VectorID
	Vector []float32
}

// TopW returns the w coarse cluster ids nearest to query (the probe list),
// per spec.md §4.9 "top_w".
func (ix *Index) TopW(query []float32, w int) ([]ClusterID, error) {
	if !ix.cq.ready() {
		return nil, ErrNotTrained
	}
	return ix.cq.topW(query, w), nil
}

// TopWBatch runs TopW over a batch of queries in parallel, per spec.md
// §4.9 "Both phases support batching ... parallelized across queries."
func (ix *Index) TopWBatch(queries [][]float32, w int) ([][]ClusterID, error) {
	if !ix.cq.ready() {
		return nil, ErrNotTrained
	}
	out := make([][]ClusterID, len(queries))
	g := new(errgroup.Group)
	for i := range queries {
		i := i
		g.Go(func() error {
			out[i] = ix.cq.topW(queries[i], w)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// TopK scans the clusters in probeList order, computing direct L2² against
// each cluster's raw vectors, stopping once L vectors have been scanned or
// the probe list is exhausted, then returns the min(k, collected) closest
// (id, dist) pairs, per spec.md §4.9 "top_k".
func (ix *Index) TopK(query []float32, probeList []ClusterID, k int) ([]VectorID, []float32, error) {
	if len(query) != ix.cfg.D {
		return nil, nil, ErrDimMismatch
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	score := make([]scored, 0, ix.cfg.L)
	scanned := 0
	for _, c := range probeList {
		if scanned >= ix.cfg.L {
			break
		}
		ids := ix.postingLists[c]
		seg := ix.segments[c]
		for j := 0; j < len(ids) && scanned < ix.cfg.L; j++ {
			v := seg[j*ix.cfg.D : (j+1)*ix.cfg.D]
			score = append(score, scored{id: ids[j], dist: simd.L2Sq32(query, v)})
			scanned++
		}
	}
	ids, dists := partialTopK(score, k)
	return ids, dists, nil
}

// TopKBatch runs TopK for each (query, probeList) pair in parallel.
func (ix *Index) TopKBatch(queries [][]float32, probeLists [][]ClusterID, k int) ([][]VectorID, [][]float32, error) {
	if len(queries) != len(probeLists) {
		return nil, nil, fmt.Errorf("ivf: queries and probeLists length mismatch")
	}
	ids := make([][]VectorID, len(queries))
	dists := make([][]float32, len(queries))
	g := new(errgroup.Group)
	for i := range queries {
		i := i
		g.Go(func() error {
			vid, d, err := ix.TopK(queries[i], probeLists[i], k)
			if err != nil {
				return err
			}
			ids[i], dists[i] = vid, d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ids, dists, nil
}
