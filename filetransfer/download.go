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

package filetransfer

import (
	"context"
	"hash/crc32"
	"sync"

	"github.com/nabbar/rcfvec/errcode"
)

// ChunkWriter persists one received chunk, keyed by file+index.
type ChunkWriter interface {
	WriteChunk(file string, index int64, data []byte) error
}

// ChunkFetcher pulls the next chunk from the peer over the wire (the actual
// network read is the caller's session layer; DownloadSession only
// sequences and throttles the calls into it).
type ChunkFetcher interface {
	FetchChunk(ctx context.Context, file string, index int64) (Chunk, error)
}

// DownloadSession mirrors UploadSession for the receive side: one
// outstanding write per file, shared pool/quota across the manifest.
type DownloadSession struct {
	manifest FileManifest
	fetcher  ChunkFetcher
	writer   ChunkWriter
	pool     *WorkerPool
	quota    *BandwidthQuota
	progress ProgressFunc

	fileLocks map[string]*sync.Mutex

	mu          sync.Mutex
	cancelled   bool
	doneChunks  int64
	doneBytes   int64
	totalChunks int64
	totalBytes  int64
}

// BeginDownload prepares a DownloadSession for manifest.
func BeginDownload(manifest FileManifest, fetcher ChunkFetcher, writer ChunkWriter, pool *WorkerPool, quota *BandwidthQuota, progress ProgressFunc) *DownloadSession {
	s := &DownloadSession{
		manifest:  manifest,
		fetcher:   fetcher,
		writer:    writer,
		pool:      pool,
		quota:     quota,
		progress:  progress,
		fileLocks: make(map[string]*sync.Mutex, len(manifest.Files)),
	}
	for _, f := range manifest.Files {
		s.fileLocks[f.Name] = &sync.Mutex{}
		s.totalChunks += f.NumChunks()
		s.totalBytes += f.Size
	}
	return s
}

// DownloadChunks pulls and persists every chunk in the manifest, verifying
// each chunk's data against the CRC32 the chunk itself carries before
// handing it to the writer. The manifest's per-file Crc32 is not checked.
func (s *DownloadSession) DownloadChunks(ctx context.Context) error {
	for _, f := range s.manifest.Files {
		if err := s.downloadFile(ctx, f); err != nil {
			return err
		}
		if s.isCancelled() {
			return errcode.ClientCancel.Error(nil)
		}
	}
	return nil
}

func (s *DownloadSession) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *DownloadSession) downloadFile(ctx context.Context, f FileInfo) error {
	n := f.NumChunks()
	lock := s.fileLocks[f.Name]

	for idx := int64(0); idx < n; idx++ {
		if s.isCancelled() {
			return nil
		}
		if err := f.ValidateChunkIndex(idx); err != nil {
			return err
		}

		chunk, err := s.fetcher.FetchChunk(ctx, f.Name, idx)
		if err != nil {
			return err
		}

		if crc32.ChecksumIEEE(chunk.Data) != chunk.Crc32 {
			return errcode.CrcMismatch.Error(nil)
		}

		if s.quota != nil {
			if err := s.quota.Reserve(ctx, int64(len(chunk.Data))); err != nil {
				return err
			}
		}

		write := func() error {
			lock.Lock()
			defer lock.Unlock()
			return s.writer.WriteChunk(f.Name, idx, chunk.Data)
		}

		var writeErr error
		if s.pool != nil {
			done := make(chan struct{})
			s.pool.Submit(func() {
				writeErr = write()
				close(done)
			})
			<-done
		} else {
			writeErr = write()
		}
		if writeErr != nil {
			return writeErr
		}

		s.mu.Lock()
		s.doneChunks++
		s.doneBytes += int64(len(chunk.Data))
		decision := Continue
		if s.progress != nil {
			decision = s.progress(f.Name, s.doneChunks, s.totalChunks, s.doneBytes, s.totalBytes)
		}
		if decision == Cancel {
			s.cancelled = true
		}
		s.mu.Unlock()

		if decision == Cancel {
			return nil
		}
	}
	return nil
}

// TrimDownload discards any chunks already written for file at or beyond
// keepChunks, used when a resumed download needs to roll back a partial,
// possibly corrupt tail (spec.md §4.7). trim is supplied by the caller
// since only it knows how the destination storage truncates.
func (s *DownloadSession) TrimDownload(file string, keepChunks int64, trim func(file string, keepChunks int64) error) error {
	lock, ok := s.fileLocks[file]
	if !ok {
		return errcode.FileNotFound.Error(nil)
	}
	lock.Lock()
	defer lock.Unlock()
	return trim(file, keepChunks)
}
