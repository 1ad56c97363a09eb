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

package filter

import (
	"bufio"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/nabbar/rcfvec/errcode"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// every compression filter frames each Write as a 4-byte big-endian length
// prefix followed by the compressed block, so a Read can recover exact
// message boundaries across a stream-oriented underlying transport.

func readFrame(r *bufio.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, p []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(p)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// zlibFilter compresses each write with stdlib compress/zlib. Zlib is kept
// on the standard library rather than a third-party codec: the wire
// format it produces (RFC 1950 zlib streams) is itself the compatibility
// contract with older RCF peers, so swapping the codec would change the
// bytes on the wire, not just the implementation (see DESIGN.md).
type zlibFilter struct {
	next   io.ReadWriter
	src    *bufio.Reader
	pend   []byte
	level  int
}

// NewZlibFilter wraps next with DEFLATE compression at level.
func NewZlibFilter(next io.ReadWriter, level int) Filter {
	return &zlibFilter{next: next, src: bufio.NewReader(next), level: level}
}

func (z *zlibFilter) ID() ID { return IDZlib }

func (z *zlibFilter) Reset() error {
	z.pend = nil
	z.src = bufio.NewReader(z.next)
	return nil
}

func (z *zlibFilter) Read(p []byte) (int, error) {
	for len(z.pend) == 0 {
		raw, err := readFrame(z.src)
		if err != nil {
			return 0, err
		}
		zr, err := zlib.NewReader(newByteReader(raw))
		if err != nil {
			return 0, errcode.FilterNegotiateFail.Error(err)
		}
		out, err := io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return 0, err
		}
		z.pend = out
	}
	n := copy(p, z.pend)
	z.pend = z.pend[n:]
	return n, nil
}

func (z *zlibFilter) Write(p []byte) (int, error) {
	buf := newByteBuffer()
	zw, err := zlib.NewWriterLevel(buf, z.level)
	if err != nil {
		return 0, errcode.FilterNegotiateFail.Error(err)
	}
	if _, err = zw.Write(p); err != nil {
		return 0, err
	}
	if err = zw.Close(); err != nil {
		return 0, err
	}
	if err = writeFrame(z.next, buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// lz4Filter compresses each write with github.com/pierrec/lz4/v4.
type lz4Filter struct {
	next io.ReadWriter
	src  *bufio.Reader
	pend []byte
}

// NewLZ4Filter wraps next with LZ4 block compression (filter id 7, an
// extension of the original RCF protocol's compression set).
func NewLZ4Filter(next io.ReadWriter) Filter {
	return &lz4Filter{next: next, src: bufio.NewReader(next)}
}

func (l *lz4Filter) ID() ID { return IDLZ4 }

func (l *lz4Filter) Reset() error {
	l.pend = nil
	l.src = bufio.NewReader(l.next)
	return nil
}

func (l *lz4Filter) Read(p []byte) (int, error) {
	for len(l.pend) == 0 {
		raw, err := readFrame(l.src)
		if err != nil {
			return 0, err
		}
		out, err := io.ReadAll(lz4.NewReader(newByteReader(raw)))
		if err != nil {
			return 0, err
		}
		l.pend = out
	}
	n := copy(p, l.pend)
	l.pend = l.pend[n:]
	return n, nil
}

func (l *lz4Filter) Write(p []byte) (int, error) {
	buf := newByteBuffer()
	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(p); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	if err := writeFrame(l.next, buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// xzFilter compresses each write with github.com/ulikunitz/xz.
type xzFilter struct {
	next io.ReadWriter
	src  *bufio.Reader
	pend []byte
}

// NewXZFilter wraps next with xz/LZMA2 compression (filter id 8), favored
// over zlib/lz4 when bandwidth is at a premium and CPU is not (spec.md
// §1.2 domain stack: highest ratio, slowest of the three).
func NewXZFilter(next io.ReadWriter) Filter {
	return &xzFilter{next: next, src: bufio.NewReader(next)}
}

func (x *xzFilter) ID() ID { return IDXZ }

func (x *xzFilter) Reset() error {
	x.pend = nil
	x.src = bufio.NewReader(x.next)
	return nil
}

func (x *xzFilter) Read(p []byte) (int, error) {
	for len(x.pend) == 0 {
		raw, err := readFrame(x.src)
		if err != nil {
			return 0, err
		}
		xr, err := xz.NewReader(newByteReader(raw))
		if err != nil {
			return 0, errcode.FilterNegotiateFail.Error(err)
		}
		out, err := io.ReadAll(xr)
		if err != nil {
			return 0, err
		}
		x.pend = out
	}
	n := copy(p, x.pend)
	x.pend = x.pend[n:]
	return n, nil
}

func (x *xzFilter) Write(p []byte) (int, error) {
	buf := newByteBuffer()
	xw, err := xz.NewWriter(buf)
	if err != nil {
		return 0, errcode.FilterNegotiateFail.Error(err)
	}
	if _, err = xw.Write(p); err != nil {
		return 0, err
	}
	if err = xw.Close(); err != nil {
		return 0, err
	}
	if err = writeFrame(x.next, buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}
