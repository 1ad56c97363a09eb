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
	"os"
	"sync"

	"github.com/nabbar/rcfvec/simd"
	"golang.org/x/sync/errgroup"
)

// PQConfig describes the product quantizer's shape: Mp subspaces of
// dimension D/Mp, each with Kp sub-centroids, per spec.md §3 "Product
// quantizer: mp subspaces of dimension dp=D/mp, each with kp centroids".
type PQConfig struct {
	Mp int
	Kp int // must fit in a byte; spec.md calls for 8-bit subcodes
}

func (pc PQConfig) validate(d int) error {
	if pc.Mp <= 0 || pc.Kp <= 0 || pc.Kp > 256 {
		return fmt.Errorf("ivf: invalid PQConfig Mp=%d Kp=%d", pc.Mp, pc.Kp)
	}
	if d%pc.Mp != 0 {
		return fmt.Errorf("ivf: D=%d not divisible by Mp=%d", d, pc.Mp)
	}
	return nil
}

// IndexPQ is the IVF-PQ index: each stored vector becomes an Mp-byte PQ
// code, and search uses asymmetric distance computation (ADC) against a
// per-query distance table instead of direct L2², per spec.md §3/§4.9.
type IndexPQ struct {
	cfg   Config
	pqCfg PQConfig
	dp    int
	cq    coarseQuantizer

	pqMu       sync.RWMutex
	pqCenters  []float32 // flat [mp x kp x dp]

	mu           sync.RWMutex
	postingLists [][]VectorID
	codes        [][]byte // flat, len == len(postingLists[c])*mp

	resident *residency
	status   Status
}

// NewPQ builds an untrained, empty IndexPQ.
func NewPQ(cfg Config, pq PQConfig) (*IndexPQ, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := pq.validate(cfg.D); err != nil {
		return nil, err
	}
	return &IndexPQ{
		cfg:          cfg,
		pqCfg:        pq,
		dp:           cfg.D / pq.Mp,
		cq:           coarseQuantizer{d: cfg.D, kc: cfg.Kc},
		postingLists: make([][]VectorID, cfg.Kc),
		codes:        make([][]byte, cfg.Kc),
		resident:     newResidency(cfg.Kc),
		status:       StatusLocal,
	}, nil
}

// Train fits both the coarse quantizer (12 iterations) and, per subspace,
// the product quantizer (6 iterations), over the same uniformly-sampled
// training set, per spec.md §4.9 "Training", grounded on
// original_source/src/ivf/index_ivfpq.cpp's Train() (cq_train_times=12,
// pq_train_times=6).
func (ix *IndexPQ) Train(rawData []float32) error {
	n := len(rawData) / ix.cfg.D
	if n == 0 {
		return fmt.Errorf("ivf: Train called with empty data")
	}
	rows := sampleRows(n, ix.cfg.NSamples, ix.cfg.Seed)
	sample := gather(rawData, ix.cfg.D, rows)

	cqCenters := fitKMeans(sample, len(rows), ix.cfg.D, ix.cfg.Kc, 12, ix.cfg.Seed)
	ix.cq.mu.Lock()
	ix.cq.centers = cqCenters
	ix.cq.mu.Unlock()

	mp, kp, dp := ix.pqCfg.Mp, ix.pqCfg.Kp, ix.dp
	pqCenters := make([]float32, mp*kp*dp)

	var wg sync.WaitGroup
	wg.Add(mp)
	for m := 0; m < mp; m++ {
		go func(m int) {
			defer wg.Done()
			sub := make([]float32, len(rows)*dp)
			for i := range rows {
				copy(sub[i*dp:(i+1)*dp], sample[i*ix.cfg.D+m*dp:i*ix.cfg.D+(m+1)*dp])
			}
			c := fitKMeans(sub, len(rows), dp, kp, 6, ix.cfg.Seed+int64(m)+1)
			copy(pqCenters[m*kp*dp:(m+1)*kp*dp], c)
		}(m)
	}
	wg.Wait()

	ix.pqMu.Lock()
	ix.pqCenters = pqCenters
	ix.pqMu.Unlock()
	return nil
}

func (ix *IndexPQ) ready() bool {
	ix.pqMu.RLock()
	pqReady := len(ix.pqCenters) == ix.pqCfg.Mp*ix.pqCfg.Kp*ix.dp
	ix.pqMu.RUnlock()
	return ix.cq.ready() && pqReady
}

// Ready reports whether the index can serve TopW/TopK queries.
func (ix *IndexPQ) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready() && len(ix.postingLists) == ix.cfg.Kc && len(ix.codes) == ix.cfg.Kc
}

// encode PQ-codes a single vector into mp bytes, one nearest sub-centroid
// id per subspace.
func (ix *IndexPQ) encode(v []float32) []byte {
	mp, kp, dp := ix.pqCfg.Mp, ix.pqCfg.Kp, ix.dp
	ix.pqMu.RLock()
	centers := ix.pqCenters
	ix.pqMu.RUnlock()

	code := make([]byte, mp)
	for m := 0; m < mp; m++ {
		sub := v[m*dp : (m+1)*dp]
		best, bestDist := 0, float32(-1)
		for ks := 0; ks < kp; ks++ {
			c := centers[(m*kp+ks)*dp : (m*kp+ks+1)*dp]
			dist := simd.L2Sq32(sub, c)
			if bestDist < 0 || dist < bestDist {
				bestDist = dist
				best = ks
			}
		}
		code[m] = byte(best)
	}
	return code
}

// Populate assigns every vector to its nearest coarse centroid and
// PQ-encodes it into the cluster's code segment, per spec.md §4.9
// "Populate ... for IVF-PQ the vector is PQ-encoded into mp bytes".
func (ix *IndexPQ) Populate(rawData []VectorWithID) error {
	if !ix.cq.ready() {
		return ErrNotTrained
	}
	if !ix.ready() {
		return fmt.Errorf("ivf: product quantizer has not been trained")
	}

	assign := make([]ClusterID, len(rawData))
	codes := make([][]byte, len(rawData))

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
			codes[i] = ix.encode(rawData[i].Vector)
		}(i)
	}
	wg.Wait()

	locks := make([]sync.Mutex, ix.cfg.Kc)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, rec := range rawData {
		c := assign[i]
		locks[c].Lock()
		ix.postingLists[c] = append(ix.postingLists[c], rec.ID)
		ix.codes[c] = append(ix.codes[c], codes[i]...)
		locks[c].Unlock()
	}
	for c := range ix.postingLists {
		ix.resident.bits.Set(uint(c))
	}
	return nil
}

// TopW returns the w coarse cluster ids nearest to query.
func (ix *IndexPQ) TopW(query []float32, w int) ([]ClusterID, error) {
	if !ix.cq.ready() {
		return nil, ErrNotTrained
	}
	return ix.cq.topW(query, w), nil
}

// TopWBatch runs TopW over a batch of queries in parallel.
func (ix *IndexPQ) TopWBatch(queries [][]float32, w int) ([][]ClusterID, error) {
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

// distanceTable precomputes dt[m][ks] = ||query_m - centroid_{m,ks}||² for
// every subspace, per spec.md §4.9 "precompute a distance table".
func (ix *IndexPQ) distanceTable(query []float32) []float32 {
	mp, kp, dp := ix.pqCfg.Mp, ix.pqCfg.Kp, ix.dp
	ix.pqMu.RLock()
	centers := ix.pqCenters
	ix.pqMu.RUnlock()

	dt := make([]float32, mp*kp)
	for m := 0; m < mp; m++ {
		sub := query[m*dp : (m+1)*dp]
		for ks := 0; ks < kp; ks++ {
			c := centers[(m*kp+ks)*dp : (m*kp+ks+1)*dp]
			dt[m*kp+ks] = simd.L2Sq32(sub, c)
		}
	}
	return dt
}

// adist sums the distance-table entries selected by code, the asymmetric
// distance computation of spec.md's GLOSSARY "ADC".
func adist(dt []float32, kp int, code []byte) float32 {
	var sum float32
	for m, ks := range code {
		sum += dt[m*kp+int(ks)]
	}
	return sum
}

// TopK scans probeList's clusters computing ADC distances via a
// precomputed per-query distance table, stopping at L scanned vectors,
// returning the min(k, collected) closest, per spec.md §4.9.
func (ix *IndexPQ) TopK(query []float32, probeList []ClusterID, k int) ([]VectorID, []float32, error) {
	if len(query) != ix.cfg.D {
		return nil, nil, ErrDimMismatch
	}
	dt := ix.distanceTable(query)
	mp, kp := ix.pqCfg.Mp, ix.pqCfg.Kp

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	score := make([]scored, 0, ix.cfg.L)
	scanned := 0
	for _, c := range probeList {
		if scanned >= ix.cfg.L {
			break
		}
		ids := ix.postingLists[c]
		codes := ix.codes[c]
		for j := 0; j < len(ids) && scanned < ix.cfg.L; j++ {
			code := codes[j*mp : (j+1)*mp]
			score = append(score, scored{id: ids[j], dist: adist(dt, kp, code)})
			scanned++
		}
	}
	ids, dists := partialTopK(score, k)
	return ids, dists, nil
}

// TopKBatch runs TopK for each (query, probeList) pair in parallel.
func (ix *IndexPQ) TopKBatch(queries [][]float32, probeLists [][]ClusterID, k int) ([][]VectorID, [][]float32, error) {
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

// WriteCQCenters and WritePQCenters persist the trained quantizers to
// <IndexPath>/cq_centers and <IndexPath>/pq_centers, per spec.md §6.
func (ix *IndexPQ) WriteCQCenters() error {
	if !ix.cq.ready() {
		return ErrNotTrained
	}
	if err := os.MkdirAll(ix.cfg.IndexPath, 0o755); err != nil {
		return err
	}
	return writeFloat32File(cqCentersPath(ix.cfg.IndexPath), ix.cq.centers)
}

func (ix *IndexPQ) WritePQCenters() error {
	ix.pqMu.RLock()
	defer ix.pqMu.RUnlock()
	if len(ix.pqCenters) == 0 {
		return fmt.Errorf("ivf: product quantizer has not been trained")
	}
	if err := os.MkdirAll(ix.cfg.IndexPath, 0o755); err != nil {
		return err
	}
	return writeFloat32File(pqCentersPath(ix.cfg.IndexPath), ix.pqCenters)
}

func (ix *IndexPQ) LoadCQCenters() error {
	centers, err := readFloat32File(cqCentersPath(ix.cfg.IndexPath), ix.cfg.Kc*ix.cfg.D)
	if err != nil {
		return err
	}
	ix.cq.mu.Lock()
	ix.cq.centers = centers
	ix.cq.mu.Unlock()
	return nil
}

func (ix *IndexPQ) LoadPQCenters() error {
	centers, err := readFloat32File(pqCentersPath(ix.cfg.IndexPath), ix.pqCfg.Mp*ix.pqCfg.Kp*ix.dp)
	if err != nil {
		return err
	}
	ix.pqMu.Lock()
	ix.pqCenters = centers
	ix.pqMu.Unlock()
	return nil
}

// WriteSegments persists every cluster's posting list and PQ-code segment
// plus the shared posting_lists_size manifest, per spec.md §6.
func (ix *IndexPQ) WriteSegments() error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := os.MkdirAll(ix.cfg.DBPath, 0o755); err != nil {
		return err
	}

	sizes := make([]uint64, ix.cfg.Kc)
	for c := 0; c < ix.cfg.Kc; c++ {
		sizes[c] = uint64(len(ix.postingLists[c]))
		if err := writeUint64File(idPath(ix.cfg.DBPath, c), ix.postingLists[c]); err != nil {
			return err
		}
		if err := writeBytesFile(vectorPath(ix.cfg.DBPath, c), ix.codes[c]); err != nil {
			return err
		}
	}
	return writeUint64File(postingSizePath(ix.cfg.DBPath), sizes)
}

// LoadSegments loads the given clusters' posting lists and PQ codes,
// evicting any resident cluster absent from clusterIDs, per spec.md §4.9
// "Segment I/O". No arguments loads every cluster.
func (ix *IndexPQ) LoadSegments(clusterIDs ...int) error {
	if len(clusterIDs) == 0 {
		clusterIDs = make([]int, ix.cfg.Kc)
		for i := range clusterIDs {
			clusterIDs[i] = i
		}
	}

	toLoad, toEvict := ix.resident.diff(clusterIDs)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, c := range toEvict {
		ix.postingLists[c] = nil
		ix.codes[c] = nil
	}
	for _, c := range toLoad {
		n, err := fileSizeElems(idPath(ix.cfg.DBPath, c), 8)
		if err != nil {
			return err
		}
		ids, err := readUint64File(idPath(ix.cfg.DBPath, c), n)
		if err != nil {
			return err
		}
		codes, err := readBytesFile(vectorPath(ix.cfg.DBPath, c), n*ix.pqCfg.Mp)
		if err != nil {
			return err
		}
		ix.postingLists[c] = ids
		ix.codes[c] = codes
	}
	return nil
}

// ResidentClusters reports which clusters currently have segments loaded.
func (ix *IndexPQ) ResidentClusters() []int { return ix.resident.snapshot() }
