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
	"os"

	"github.com/nabbar/rcfvec/ivf"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Index (raw IVF)", func() {
	It("is ready after training and populating", func() {
		const n, d, kc = 500, 16, 8
		data := randVectors(n, d, 1)

		idx, err := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(idx.Train(data)).To(Succeed())
		Expect(idx.Populate(withIDs(data, d))).To(Succeed())

		Expect(idx.Ready()).To(BeTrue())
	})

	It("returns itself on a round-trip query", func() {
		const n, d, kc = 300, 12, 6
		data := randVectors(n, d, 2)

		idx, _ := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 2})
		Expect(idx.Train(data)).To(Succeed())
		Expect(idx.Populate(withIDs(data, d))).To(Succeed())

		query := data[5*d : 6*d]
		probe, err := idx.TopW(query, kc)
		Expect(err).NotTo(HaveOccurred())

		ids, dists, err := idx.TopK(query, probe, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(HaveLen(1))
		Expect(ids[0]).To(Equal(uint64(5)))
		Expect(dists[0]).To(BeNumerically("~", 0, 1e-3))
	})

	It("persists and reloads segments with LoadSegments diffing residency", func() {
		const n, d, kc = 200, 8, 4
		data := randVectors(n, d, 3)
		dir, err := os.MkdirTemp("", "ivf-index-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		idx, _ := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 3, IndexPath: dir, DBPath: dir})
		Expect(idx.Train(data)).To(Succeed())
		Expect(idx.Populate(withIDs(data, d))).To(Succeed())
		Expect(idx.WriteCQCenters()).To(Succeed())
		Expect(idx.WriteSegments()).To(Succeed())

		reloaded, _ := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 3, IndexPath: dir, DBPath: dir})
		Expect(reloaded.LoadCQCenters()).To(Succeed())
		Expect(reloaded.LoadSegments(0, 1)).To(Succeed())
		Expect(reloaded.ResidentClusters()).To(ConsistOf(0, 1))

		Expect(reloaded.LoadSegments(1, 2)).To(Succeed())
		Expect(reloaded.ResidentClusters()).To(ConsistOf(1, 2))
	})

	It("batches TopW and TopK across queries", func() {
		const n, d, kc = 200, 8, 4
		data := randVectors(n, d, 4)
		idx, _ := ivf.New(ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 4})
		Expect(idx.Train(data)).To(Succeed())
		Expect(idx.Populate(withIDs(data, d))).To(Succeed())

		queries := [][]float32{data[0:d], data[d : 2*d], data[2*d : 3*d]}
		probes, err := idx.TopWBatch(queries, kc)
		Expect(err).NotTo(HaveOccurred())
		Expect(probes).To(HaveLen(3))

		ids, _, err := idx.TopKBatch(queries, probes, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(HaveLen(3))
		Expect(ids[0][0]).To(Equal(uint64(0)))
		Expect(ids[1][0]).To(Equal(uint64(1)))
		Expect(ids[2][0]).To(Equal(uint64(2)))
	})
})

var _ = Describe("IndexPQ", func() {
	It("achieves recall@10 >= 0.8 against brute force (spec.md §8 scenario 4, scaled down)", func() {
		const n, d, kc, mp, kp, l = 1000, 8, 8, 4, 64, 1000
		data := randVectors(n, d, 42)

		idx, err := ivf.NewPQ(
			ivf.Config{N: n, D: d, L: l, Kc: kc, NSamples: n, Seed: 42},
			ivf.PQConfig{Mp: mp, Kp: kp},
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(idx.Train(data)).To(Succeed())
		Expect(idx.Populate(withIDs(data, d))).To(Succeed())
		Expect(idx.Ready()).To(BeTrue())

		const nq, w, k = 20, kc, 10
		hits := 0
		for q := 0; q < nq; q++ {
			query := data[q*d : (q+1)*d]

			probe, err := idx.TopW(query, w)
			Expect(err).NotTo(HaveOccurred())
			ids, _, err := idx.TopK(query, probe, k)
			Expect(err).NotTo(HaveOccurred())

			want := bruteForceTopK(data, n, d, query, k)
			wantSet := make(map[uint64]bool, len(want))
			for _, id := range want {
				wantSet[id] = true
			}
			for _, id := range ids {
				if wantSet[id] {
					hits++
				}
			}
		}
		recall := float64(hits) / float64(nq*k)
		Expect(recall).To(BeNumerically(">=", 0.8))
	})

	It("persists and reloads cq/pq centers and PQ-code segments", func() {
		const n, d, kc, mp, kp = 300, 16, 6, 4, 16
		data := randVectors(n, d, 9)
		dir, err := os.MkdirTemp("", "ivf-indexpq-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		idx, _ := ivf.NewPQ(
			ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 9, IndexPath: dir, DBPath: dir},
			ivf.PQConfig{Mp: mp, Kp: kp},
		)
		Expect(idx.Train(data)).To(Succeed())
		Expect(idx.Populate(withIDs(data, d))).To(Succeed())
		Expect(idx.WriteCQCenters()).To(Succeed())
		Expect(idx.WritePQCenters()).To(Succeed())
		Expect(idx.WriteSegments()).To(Succeed())

		reloaded, _ := ivf.NewPQ(
			ivf.Config{N: n, D: d, L: n, Kc: kc, NSamples: n, Seed: 9, IndexPath: dir, DBPath: dir},
			ivf.PQConfig{Mp: mp, Kp: kp},
		)
		Expect(reloaded.LoadCQCenters()).To(Succeed())
		Expect(reloaded.LoadPQCenters()).To(Succeed())
		Expect(reloaded.LoadSegments()).To(Succeed())
		Expect(reloaded.Ready()).To(BeTrue())

		query := data[:d]
		probe, err := reloaded.TopW(query, kc)
		Expect(err).NotTo(HaveOccurred())
		ids, _, err := reloaded.TopK(query, probe, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids[0]).To(Equal(uint64(0)))
	})
})
