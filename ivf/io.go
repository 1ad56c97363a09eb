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
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

func float32bits(v float32) uint32    { return math.Float32bits(v) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }

// Persisted layout is exactly spec.md §6: raw little-endian binary, no
// length prefixes (sizes are known from metadata). This file implements
// the flat-array codec shared by Index and IndexPQ; neither type touches
// encoding/binary directly.

func writeFloat32File(path string, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	buf := make([]byte, 4)
	for _, v := range data {
		binary.LittleEndian.PutUint32(buf, float32bits(v))
		if _, err = w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readFloat32File(path string, n int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	out := make([]float32, n)
	buf := make([]byte, 4)
	for i := 0; i < n; i++ {
		if _, err = readFull(r, buf); err != nil {
			return nil, err
		}
		out[i] = float32frombits(binary.LittleEndian.Uint32(buf))
	}
	return out, nil
}

func writeUint64File(path string, data []uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	buf := make([]byte, 8)
	for _, v := range data {
		binary.LittleEndian.PutUint64(buf, v)
		if _, err = w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readUint64File(path string, n int) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	out := make([]uint64, n)
	buf := make([]byte, 8)
	for i := 0; i < n; i++ {
		if _, err = readFull(r, buf); err != nil {
			return nil, err
		}
		out[i] = binary.LittleEndian.Uint64(buf)
	}
	return out, nil
}

func writeBytesFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func readBytesFile(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	if _, err = readFull(bufio.NewReader(f), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func fileSizeElems(path string, elemSize int) (int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if fi.Size()%int64(elemSize) != 0 {
		return 0, fmt.Errorf("ivf: %s size %d is not a multiple of %d", path, fi.Size(), elemSize)
	}
	return int(fi.Size() / int64(elemSize)), nil
}

func idPath(dbPath string, c int) string     { return filepath.Join(dbPath, fmt.Sprintf("id_%d", c)) }
func vectorPath(dbPath string, c int) string { return filepath.Join(dbPath, fmt.Sprintf("vector_%d", c)) }
func postingSizePath(dbPath string) string   { return filepath.Join(dbPath, "posting_lists_size") }
func cqCentersPath(indexPath string) string  { return filepath.Join(indexPath, "cq_centers") }
func pqCentersPath(indexPath string) string  { return filepath.Join(indexPath, "pq_centers") }
