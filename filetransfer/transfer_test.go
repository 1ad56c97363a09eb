package filetransfer_test

import (
	"context"
	"hash/crc32"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/rcfvec/errcode"
	"github.com/nabbar/rcfvec/filetransfer"
)

type memSource struct {
	data map[string][]byte
}

func (m *memSource) ReadChunk(file string, index int64, buf []byte) (int, error) {
	d, ok := m.data[file]
	if !ok {
		return 0, errcode.FileNotFound.Error(nil)
	}
	start := index * int64(len(buf))
	if start >= int64(len(d)) {
		return 0, nil
	}
	end := start + int64(len(buf))
	if end > int64(len(d)) {
		end = int64(len(d))
	}
	return copy(buf, d[start:end]), nil
}

type wireLink struct {
	mu   sync.Mutex
	inFlight map[string]map[int64]filetransfer.Chunk
}

func newWireLink() *wireLink {
	return &wireLink{inFlight: make(map[string]map[int64]filetransfer.Chunk)}
}

func (w *wireLink) SendChunk(ctx context.Context, c filetransfer.Chunk) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[c.File] == nil {
		w.inFlight[c.File] = make(map[int64]filetransfer.Chunk)
	}
	cp := make([]byte, len(c.Data))
	copy(cp, c.Data)
	w.inFlight[c.File][c.Index] = filetransfer.Chunk{File: c.File, Index: c.Index, Data: cp, Crc32: c.Crc32}
	return nil
}

func (w *wireLink) FetchChunk(ctx context.Context, file string, index int64) (filetransfer.Chunk, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.inFlight[file][index]
	if !ok {
		return filetransfer.Chunk{}, errcode.FileNotFound.Error(nil)
	}
	return c, nil
}

type memSink struct {
	mu        sync.Mutex
	chunkSize int
	data      map[string][]byte
}

func newMemSink(chunkSize int) *memSink {
	return &memSink{chunkSize: chunkSize, data: make(map[string][]byte)}
}

func (m *memSink) WriteChunk(file string, index int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.data[file]
	offset := int(index) * m.chunkSize
	for len(existing) < offset+len(data) {
		existing = append(existing, 0)
	}
	copy(existing[offset:], data)
	m.data[file] = existing
	return nil
}

var _ = Describe("Upload and Download", func() {
	It("round-trips a manifest end to end through a simulated wire link", func() {
		payload := make([]byte, 10*1024+37)
		for i := range payload {
			payload[i] = byte(i % 251)
		}

		manifest := filetransfer.FileManifest{Files: []filetransfer.FileInfo{
			{Name: "blob.bin", Size: int64(len(payload)), ChunkSize: 4096, Crc32: crc32.ChecksumIEEE(payload)},
		}}

		source := &memSource{data: map[string][]byte{"blob.bin": payload}}
		link := newWireLink()
		sink := newMemSink(4096)
		pool := filetransfer.NewWorkerPool(4)
		quota := filetransfer.NewBandwidthQuota(0, 0)

		up := filetransfer.BeginUpload(manifest, source, link, pool, quota, nil)
		Expect(up.UploadChunks(context.Background())).To(Succeed())

		down := filetransfer.BeginDownload(manifest, link, sink, pool, quota, nil)
		Expect(down.DownloadChunks(context.Background())).To(Succeed())

		Expect(sink.data["blob.bin"]).To(Equal(payload))
	})

	It("stops early when the progress callback returns Cancel", func() {
		payload := make([]byte, 4096*5)
		manifest := filetransfer.FileManifest{Files: []filetransfer.FileInfo{
			{Name: "f", Size: int64(len(payload)), ChunkSize: 4096},
		}}

		source := &memSource{data: map[string][]byte{"f": payload}}
		link := newWireLink()

		seen := 0
		up := filetransfer.BeginUpload(manifest, source, link, nil, nil, func(file string, done, total, bytesDone, bytesTotal int64) filetransfer.ProgressDecision {
			seen++
			if done >= 2 {
				return filetransfer.Cancel
			}
			return filetransfer.Continue
		})
		Expect(errcode.Has(up.UploadChunks(context.Background()), errcode.ClientCancel)).To(BeTrue())
		Expect(seen).To(Equal(2))
	})

	It("rejects a chunk whose CRC does not match", func() {
		manifest := filetransfer.FileManifest{Files: []filetransfer.FileInfo{
			{Name: "f", Size: 10, ChunkSize: 10},
		}}
		link := newWireLink()
		_ = link.SendChunk(context.Background(), filetransfer.Chunk{File: "f", Index: 0, Data: []byte("0123456789"), Crc32: 999})

		down := filetransfer.BeginDownload(manifest, link, newMemSink(10), nil, nil, nil)
		err := down.DownloadChunks(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("rolls back a partial file via TrimDownload", func() {
		manifest := filetransfer.FileManifest{Files: []filetransfer.FileInfo{
			{Name: "f", Size: 100, ChunkSize: 10},
		}}
		down := filetransfer.BeginDownload(manifest, newWireLink(), newMemSink(10), nil, nil, nil)

		trimmedTo := int64(-1)
		err := down.TrimDownload("f", 3, func(file string, keep int64) error {
			trimmedTo = keep
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(trimmedTo).To(Equal(int64(3)))
	})
})
