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

// Package wire implements the length-prefix record framing shared by
// every transport (spec.md §4.2): a 4-byte little-endian length prefix
// ahead of each message, identical across TCP, unix, named pipe and UDP
// (datagram-exact), with HTTP wrapping the same frame in its body.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/nabbar/rcfvec/errcode"
)

// MaxFrameLength is the hard ceiling on a single frame's body, matching
// spec.md §7's MessageTooLarge error.
const MaxFrameLength = 64 << 20

// ReadFrame reads one 4-byte-length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errcode.ClientMessageLength.Error(err)
	}

	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxFrameLength {
		return nil, errcode.MessageTooLarge.Errorf("frame length %d exceeds maximum %d", n, MaxFrameLength)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errcode.ClientMessageLength.Error(err)
	}
	return buf, nil
}

// WriteFrame writes p as one 4-byte-length-prefixed frame to w.
func WriteFrame(w io.Writer, p []byte) error {
	if len(p) > MaxFrameLength {
		return errcode.MessageTooLarge.Errorf("frame length %d exceeds maximum %d", len(p), MaxFrameLength)
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(p)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errcode.ServerMessageLength.Error(err)
	}
	if _, err := w.Write(p); err != nil {
		return errcode.ServerMessageLength.Error(err)
	}
	return nil
}
