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

// Package filetransfer implements chunked file upload/download over the RPC
// runtime (spec.md §4.7): a manifest describing one or more files split into
// fixed-size chunks, a sliding bandwidth window shared across transfers, and
// a bounded lazy worker pool driving the chunk reads/writes.
package filetransfer

import (
	"time"

	"github.com/nabbar/rcfvec/errcode"
)

// DefaultChunkSize matches the teacher's file/progress.DefaultBuffSize
// convention scaled up for network chunking.
const DefaultChunkSize = 64 * 1024

// FileInfo describes one file inside a transfer manifest.
type FileInfo struct {
	Name       string
	Size       int64
	ChunkSize  int64
	ChunkCount int64
	Crc32      uint32
}

// FileManifest is the set of files one upload/download session transfers.
type FileManifest struct {
	Files []FileInfo
}

// NumChunks returns how many ChunkSize-sized pieces Size splits into.
func (f FileInfo) NumChunks() int64 {
	if f.ChunkSize <= 0 {
		return 0
	}
	n := f.Size / f.ChunkSize
	if f.Size%f.ChunkSize != 0 {
		n++
	}
	return n
}

// ValidateChunkIndex checks idx against this file's chunk count, returning
// ChunkOutOfRange if it falls outside [0, NumChunks).
func (f FileInfo) ValidateChunkIndex(idx int64) error {
	if idx < 0 || idx >= f.NumChunks() {
		return errcode.ChunkOutOfRange.Error(nil)
	}
	return nil
}

// ProgressDecision is returned by a ProgressFunc to continue or abort a
// transfer in progress (spec.md §4.7: "Continue/Cancel").
type ProgressDecision uint8

const (
	Continue ProgressDecision = iota
	Cancel
)

// ProgressFunc is invoked after every chunk is transferred.
type ProgressFunc func(file string, chunksDone, chunksTotal int64, bytesDone, bytesTotal int64) ProgressDecision

// Chunk is one piece of file data in flight.
type Chunk struct {
	File  string
	Index int64
	Data  []byte
	Crc32 uint32
}

// TransferWindow is the default sliding bandwidth accounting window.
const TransferWindow = 5 * time.Second

// Pool bounds allowed at once.
const (
	MinWorkers = 1
	MaxWorkers = 10
	IdleTTL    = 30 * time.Second
)
