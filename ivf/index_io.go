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

import "os"

// WriteCQCenters persists the trained coarse-quantizer centroids to
// <IndexPath>/cq_centers as a flat f32 matrix [kc x D], per spec.md §6.
func (ix *Index) WriteCQCenters() error {
	if !ix.cq.ready() {
		return ErrNotTrained
	}
	if err := os.MkdirAll(ix.cfg.IndexPath, 0o755); err != nil {
		return err
	}
	return writeFloat32File(cqCentersPath(ix.cfg.IndexPath), ix.cq.centers)
}

// LoadCQCenters loads previously persisted coarse-quantizer centroids.
func (ix *Index) LoadCQCenters() error {
	centers, err := readFloat32File(cqCentersPath(ix.cfg.IndexPath), ix.cfg.Kc*ix.cfg.D)
	if err != nil {
		return err
	}
	ix.cq.mu.Lock()
	ix.cq.centers = centers
	ix.cq.mu.Unlock()
	return nil
}

// WriteSegments persists every cluster's posting list and raw-vector
// segment plus the shared posting_lists_size manifest, per spec.md §6.
func (ix *Index) WriteSegments() error {
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
		if err := writeFloat32File(vectorPath(ix.cfg.DBPath, c), ix.segments[c]); err != nil {
			return err
		}
	}
	return writeUint64File(postingSizePath(ix.cfg.DBPath), sizes)
}

// LoadSegments loads the given clusters' posting lists and segments,
// evicting any currently resident cluster not present in clusterIDs, per
// spec.md §4.9 "Segment I/O". Calling it with no arguments loads every
// cluster.
func (ix *Index) LoadSegments(clusterIDs ...int) error {
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
		ix.segments[c] = nil
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
		vecs, err := readFloat32File(vectorPath(ix.cfg.DBPath, c), n*ix.cfg.D)
		if err != nil {
			return err
		}
		ix.postingLists[c] = ids
		ix.segments[c] = vecs
	}
	return nil
}

// ResidentClusters reports which clusters currently have segments loaded.
func (ix *Index) ResidentClusters() []int { return ix.resident.snapshot() }
