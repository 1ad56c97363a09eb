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

package wire

import (
	"bytes"
	"io"

	"github.com/nabbar/rcfvec/errcode"
)

// Writer accumulates a method invocation header before it is framed by
// WriteFrame; a zero Writer is ready to use.
type Writer struct {
	buf bytes.Buffer
}

// Bytes returns the accumulated header bytes.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// PutVarint appends v using the spec's zero-extended varint-like
// encoding (compatible with legacy peers): 7 bits per byte, continuation
// bit set on every byte but the last, little-endian bit order.
func (w *Writer) PutVarint(v uint64) {
	for v >= 0x80 {
		w.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	w.buf.WriteByte(byte(v))
}

// PutBytes appends a length-prefixed byte blob (length as PutVarint).
func (w *Writer) PutBytes(p []byte) {
	w.PutVarint(uint64(len(p)))
	w.buf.Write(p)
}

// PutString appends a length-prefixed UTF-8 string.
func (w *Writer) PutString(s string) { w.PutBytes([]byte(s)) }

// Reader decodes a method invocation header previously built by Writer.
// Unknown trailing fields are ignored by simply stopping the read early;
// missing trailing fields are defaulted by the caller checking io.EOF
// from GetVarint/GetBytes (spec.md §4.3 forward/backward compatibility).
type Reader struct {
	r io.ByteReader
}

// NewReader wraps p for sequential field decoding.
func NewReader(p []byte) *Reader { return &Reader{r: bytes.NewReader(p)} }

// GetVarint decodes one varint field, or io.EOF if the header ended
// before this (optional, trailing) field was present.
func (r *Reader) GetVarint() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, errcode.BadDescriptor.Errorf("varint field overflowed 64 bits")
		}
	}
}

// GetBytes decodes one length-prefixed byte blob.
func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetVarint()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.r.ReadByte()
		if err != nil {
			return nil, errcode.BadDescriptor.Error(err)
		}
		buf[i] = b
	}
	return buf, nil
}

// GetString decodes one length-prefixed UTF-8 string.
func (r *Reader) GetString() (string, error) {
	b, err := r.GetBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
