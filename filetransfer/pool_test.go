package filetransfer_test

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/filetransfer"
)

var _ = Describe("WorkerPool", func() {
	It("clamps worker count to MaxWorkers", func() {
		p := filetransfer.NewWorkerPool(1000)
		var count int32
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			wg.Add(1)
			p.Submit(func() {
				defer wg.Done()
				atomic.AddInt32(&count, 1)
			})
		}
		wg.Wait()

		Expect(count).To(Equal(int32(50)))
		Expect(p.ActiveWorkers()).To(BeNumerically("<=", filetransfer.MaxWorkers))
	})

	It("clamps to at least MinWorkers", func() {
		p := filetransfer.NewWorkerPool(0)
		done := make(chan struct{})
		p.Submit(func() { close(done) })
		<-done
	})
})
