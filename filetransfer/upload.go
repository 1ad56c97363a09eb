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

// ChunkSource supplies chunk bytes for an upload, one file+index at a time.
type ChunkSource interface {
	ReadChunk(file string, index int64, buf []byte) (int, error)
}

// ChunkTarget receives chunk bytes sent to the peer over the wire, one
// file+index at a time (the actual network write is the caller's session
// layer; UploadSession only sequences and throttles the calls into it).
type ChunkTarget interface {
	SendChunk(ctx context.Context, c Chunk) error
}

// UploadSession drives one manifest's worth of chunks from source to target,
// enforcing one outstanding read per file (spec.md §4.7) via a per-file
// mutex, and sharing a bandwidth quota and worker pool across every file in
// the manifest.
type UploadSession struct {
	manifest FileManifest
	source   ChunkSource
	target   ChunkTarget
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

// BeginUpload prepares an UploadSession for manifest; the manifest's entries
// are not checked here. pool and quota may be nil (unbounded / unthrottled).
func BeginUpload(manifest FileManifest, source ChunkSource, target ChunkTarget, pool *WorkerPool, quota *BandwidthQuota, progress ProgressFunc) *UploadSession {
	s := &UploadSession{
		manifest:  manifest,
		source:    source,
		target:    target,
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

// UploadChunks runs every file's chunks to completion (or until the
// progress callback returns Cancel), handing each chunk's send to the
// worker pool if one was given and waiting for it before the next chunk,
// or running it inline otherwise.
func (s *UploadSession) UploadChunks(ctx context.Context) error {
	for _, f := range s.manifest.Files {
		if err := s.uploadFile(ctx, f); err != nil {
			return err
		}
		if s.isCancelled() {
			return errcode.ClientCancel.Error(nil)
		}
	}
	return nil
}

func (s *UploadSession) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *UploadSession) uploadFile(ctx context.Context, f FileInfo) error {
	n := f.NumChunks()
	lock := s.fileLocks[f.Name]

	for idx := int64(0); idx < n; idx++ {
		if s.isCancelled() {
			return nil
		}

		buf := make([]byte, f.ChunkSize)

		lock.Lock()
		nread, err := s.source.ReadChunk(f.Name, idx, buf)
		lock.Unlock()
		if err != nil {
			return errcode.FileNotFound.Error(err)
		}
		buf = buf[:nread]

		if s.quota != nil {
			if err := s.quota.Reserve(ctx, int64(nread)); err != nil {
				return err
			}
		}

		chunk := Chunk{File: f.Name, Index: idx, Data: buf, Crc32: crc32.ChecksumIEEE(buf)}

		send := func() error {
			return s.target.SendChunk(ctx, chunk)
		}

		var sendErr error
		if s.pool != nil {
			done := make(chan struct{})
			s.pool.Submit(func() {
				sendErr = send()
				close(done)
			})
			<-done
		} else {
			sendErr = send()
		}
		if sendErr != nil {
			return sendErr
		}

		s.mu.Lock()
		s.doneChunks++
		s.doneBytes += int64(nread)
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
