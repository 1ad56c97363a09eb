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

// Package filter implements the ordered byte-stream transform chain that
// sits between a session's user-visible read/write calls and the wire
// (spec.md §4.1): compression, TLS and SSPI (NTLM/Kerberos/Negotiate)
// filters, terminated by a transport adapter that performs the real I/O.
package filter

import "io"

// ID is the well-known, wire-negotiated filter identifier (spec.md §4.1).
type ID uint8

const (
	IDZlib      ID = 1
	IDOpenSSL   ID = 2
	IDNTLM      ID = 3
	IDKerberos  ID = 4
	IDNegotiate ID = 5
	IDSchannel  ID = 6
	IDLZ4       ID = 7
	IDXZ        ID = 8
)

func (id ID) String() string {
	switch id {
	case IDZlib:
		return "zlib"
	case IDOpenSSL:
		return "openssl"
	case IDNTLM:
		return "ntlm"
	case IDKerberos:
		return "kerberos"
	case IDNegotiate:
		return "negotiate"
	case IDSchannel:
		return "schannel"
	case IDLZ4:
		return "lz4"
	case IDXZ:
		return "xz"
	default:
		return "unknown"
	}
}

// IsSecurity reports whether this filter performs a handshake and must run
// closest to the wire, ahead of any compression filter (spec.md §4.1: "upon
// success both sides reset filter state").
func (id ID) IsSecurity() bool {
	switch id {
	case IDOpenSSL, IDNTLM, IDKerberos, IDNegotiate, IDSchannel:
		return true
	default:
		return false
	}
}

// QoP is the per-message security level an SSPI filter applies, encoded in
// the top two bits of its 4-byte record length header (spec.md §4.1).
type QoP uint8

const (
	QoPNone QoP = iota
	QoPIntegrity
	QoPEncryption
)

const (
	qopIntegrityBit = uint32(1) << 30
	qopEncryptionBit = uint32(1) << 31
	qopLengthMask    = qopIntegrityBit - 1
)

// EncodeLengthHeader packs a record length and its QoP into the 4-byte
// SSPI record header.
func EncodeLengthHeader(length uint32, qop QoP) uint32 {
	h := length & qopLengthMask
	switch qop {
	case QoPIntegrity:
		h |= qopIntegrityBit
	case QoPEncryption:
		h |= qopEncryptionBit
	}
	return h
}

// DecodeLengthHeader unpacks a 4-byte SSPI record header.
func DecodeLengthHeader(h uint32) (length uint32, qop QoP) {
	length = h & qopLengthMask
	switch {
	case h&qopEncryptionBit != 0:
		qop = QoPEncryption
	case h&qopIntegrityBit != 0:
		qop = QoPIntegrity
	default:
		qop = QoPNone
	}
	return
}

// Filter is one link of the chain (spec.md §4.1). Read pulls n bytes from
// the post side (toward the wire) into dest; Write pushes buffers toward
// the wire. spec.md §4.1/§9 describes an async-completion-port variant of
// this contract (on_read_completed/on_write_completed firing the next
// Read/Write, trampolined past a depth of 16 to avoid unbounded stack
// recursion); this module has no completion-port reactor to trampoline in
// the first place, since every transport (see transport package doc) is
// driven through blocking I/O plus goroutines, so Filter exposes only the
// synchronous Read/Write below and there is no completion-callback
// recursion to bound.
type Filter interface {
	io.ReadWriter

	// ID returns the well-known filter identifier, or 0 for the terminal
	// transport adapter.
	ID() ID

	// Reset restores the filter to the state of a freshly constructed
	// instance (spec.md §4.1, invariant 3 in spec.md §8).
	Reset() error
}

// Closer is implemented by filters that hold a handshake resource (a TLS
// connection, an SSPI security context) that must be released.
type Closer interface {
	Close() error
}
