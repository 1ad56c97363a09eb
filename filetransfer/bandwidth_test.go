package filetransfer_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/filetransfer"
)

var _ = Describe("BandwidthQuota", func() {
	It("passes through immediately when unlimited", func() {
		q := filetransfer.NewBandwidthQuota(0, 50*time.Millisecond)
		start := time.Now()
		Expect(q.Reserve(context.Background(), 1<<20)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", 20*time.Millisecond))
	})

	It("admits usage within the window's allowance without blocking", func() {
		q := filetransfer.NewBandwidthQuota(1000, 50*time.Millisecond)
		start := time.Now()
		Expect(q.Reserve(context.Background(), 10)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", 20*time.Millisecond))
	})

	It("divides the quota across shares", func() {
		q := filetransfer.NewBandwidthQuota(1000, 50*time.Millisecond)
		q.SetShares(4)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		// 1000bps / 4 shares * 50ms window = ~12 bytes allowance; 100 bytes
		// should not fit and the context should expire while waiting.
		err := q.Reserve(ctx, 100)
		Expect(err).To(HaveOccurred())
	})
})
