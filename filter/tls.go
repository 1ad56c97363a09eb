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
	"context"
	"crypto/tls"
	"net"

	"github.com/nabbar/rcfvec/errcode"
)

// tlsFilter is the OpenSSL-compatible security filter (spec.md §4.1): it
// always runs closest to the wire, wrapping the raw net.Conn rather than
// another Filter, since crypto/tls needs a real net.Conn for its record
// layer and deadlines. The caller supplies the *tls.Config.
type tlsFilter struct {
	raw  net.Conn
	conn *tls.Conn
	cfg  *tls.Config
	isSrv bool
}

// NewTLSClientFilter performs (lazily, on first Read/Write) a TLS client
// handshake over raw using cfg.
func NewTLSClientFilter(raw net.Conn, cfg *tls.Config) Filter {
	return &tlsFilter{raw: raw, conn: tls.Client(raw, cfg), cfg: cfg}
}

// NewTLSServerFilter performs a TLS server handshake over raw using cfg.
func NewTLSServerFilter(raw net.Conn, cfg *tls.Config) Filter {
	return &tlsFilter{raw: raw, conn: tls.Server(raw, cfg), cfg: cfg, isSrv: true}
}

func (t *tlsFilter) ID() ID { return IDOpenSSL }

func (t *tlsFilter) Reset() error {
	if t.isSrv {
		t.conn = tls.Server(t.raw, t.cfg)
	} else {
		t.conn = tls.Client(t.raw, t.cfg)
	}
	return nil
}

// Close releases the TLS session by sending a close_notify alert.
func (t *tlsFilter) Close() error { return t.conn.Close() }

func (t *tlsFilter) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	if err != nil {
		if _, ok := err.(*tls.RecordHeaderError); ok {
			return n, errcode.TlsHandshakeFailed.Error(err)
		}
	}
	return n, err
}

func (t *tlsFilter) Write(p []byte) (int, error) { return t.conn.Write(p) }

// Handshake runs the TLS handshake eagerly and classifies verification
// failures distinctly from generic handshake failures (spec.md §7:
// CertificateVerify vs TlsHandshakeFailed).
func (t *tlsFilter) Handshake(ctx context.Context) error {
	if err := t.conn.HandshakeContext(ctx); err != nil {
		if _, ok := err.(*tls.CertificateVerificationError); ok {
			return errcode.CertificateVerify.Error(err)
		}
		return errcode.TlsHandshakeFailed.Error(err)
	}
	return nil
}

// ConnectionState exposes the negotiated TLS parameters, e.g. for audit
// logging of the cipher suite and peer certificate chain.
func (t *tlsFilter) ConnectionState() tls.ConnectionState { return t.conn.ConnectionState() }
