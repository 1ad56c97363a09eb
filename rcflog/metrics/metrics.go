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

// Package metrics registers the session, file-transfer and IVF counters
// named in spec.md's domain stack table (rcflog/metrics), backed by
// github.com/prometheus/client_golang the way the teacher's prometheus/
// package wraps client_golang collectors behind a small typed surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles every counter/histogram this module exposes. Callers
// Register it once against a prometheus.Registerer (or prometheus.
// DefaultRegisterer) at process start.
type Collectors struct {
	SessionsOpened   prometheus.Counter
	SessionsClosed   prometheus.Counter
	MethodInvokes    *prometheus.CounterVec // labels: service, method, status
	MethodLatency    *prometheus.HistogramVec
	TransferBytes    *prometheus.CounterVec // labels: direction (send/recv)
	IVFSearches      *prometheus.CounterVec // labels: index (ivf/ivfpq)
	IVFScannedVectors prometheus.Histogram
}

// New builds a Collectors with the "rcfvec" namespace, unregistered.
func New() *Collectors {
	return &Collectors{
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rcfvec", Subsystem: "session", Name: "opened_total",
			Help: "Total number of network sessions opened.",
		}),
		SessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rcfvec", Subsystem: "session", Name: "closed_total",
			Help: "Total number of network sessions closed.",
		}),
		MethodInvokes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rcfvec", Subsystem: "dispatch", Name: "invokes_total",
			Help: "Total number of dispatched method invocations.",
		}, []string{"service", "method", "status"}),
		MethodLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rcfvec", Subsystem: "dispatch", Name: "latency_seconds",
			Help:    "Dispatched method invocation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method"}),
		TransferBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rcfvec", Subsystem: "filetransfer", Name: "bytes_total",
			Help: "Total bytes moved by file transfer sessions.",
		}, []string{"direction"}),
		IVFSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rcfvec", Subsystem: "ivf", Name: "searches_total",
			Help: "Total TopK searches served.",
		}, []string{"index"}),
		IVFScannedVectors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rcfvec", Subsystem: "ivf", Name: "scanned_vectors",
			Help:    "Number of vectors scanned per TopK search.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}),
	}
}

// Register adds every collector to reg.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.SessionsOpened, c.SessionsClosed, c.MethodInvokes,
		c.MethodLatency, c.TransferBytes, c.IVFSearches, c.IVFScannedVectors,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
