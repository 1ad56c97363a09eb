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

package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nabbar/rcfvec/errcode"
)

// httpPipeConn turns a sequence of chunked HTTP POST request/response
// bodies into a Conn: each Write is sent at once as one POST, and reads
// pull from the latest response body. This mirrors
// httpcli's streaming idiom while fitting the codec's expectation of a
// plain io.ReadWriteCloser (spec.md §4.2: "HTTP transport embeds frames
// in POST bodies / chunked responses").
type httpPipeConn struct {
	client   *retryablehttp.Client
	url      string
	resp     *http.Response
	respLock sync.Mutex
	c        *counters
}

// NewHTTPClient builds a Client that issues one HTTP POST per message
// against url via hashicorp/go-retryablehttp (the same retry transport
// httpcli uses for its own client), retrying at most once under that
// library's default retry policy (connection errors, 429 and 5xx).
func NewHTTPClient(url string, tlsCfg *tls.Config) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.Logger = nil
	if tlsCfg != nil {
		if t, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
			t.TLSClientConfig = tlsCfg
		}
	}
	return &httpClientImpl{rc: rc, url: url}
}

type httpClientImpl struct {
	rc  *retryablehttp.Client
	url string
	counters
}

func (h *httpClientImpl) Dial(ctx context.Context) (Conn, error) {
	return &httpPipeConn{client: h.rc, url: h.url, c: &h.counters}, nil
}

func (h *httpPipeConn) Read(p []byte) (int, error) {
	h.respLock.Lock()
	defer h.respLock.Unlock()
	if h.resp == nil {
		return 0, io.EOF
	}
	n, err := h.resp.Body.Read(p)
	if n > 0 {
		h.c.addRecv(n)
	}
	return n, err
}

func (h *httpPipeConn) Write(p []byte) (int, error) {
	req, err := retryablehttp.NewRequest(http.MethodPost, h.url, newByteReaderCloser(p))
	if err != nil {
		return 0, errcode.SocketError.Error(err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, errcode.OnewayHttp.Error(err)
	}

	h.respLock.Lock()
	if h.resp != nil {
		_ = h.resp.Body.Close()
	}
	h.resp = resp
	h.respLock.Unlock()

	h.c.addSent(len(p))
	return len(p), nil
}

func (h *httpPipeConn) Close() error {
	h.respLock.Lock()
	defer h.respLock.Unlock()
	if h.resp != nil {
		return h.resp.Body.Close()
	}
	return nil
}

func (h *httpPipeConn) RemoteAddr() net.Addr { return pseudoAddr(h.url) }
func (h *httpPipeConn) LocalAddr() net.Addr  { return pseudoAddr("client") }

func (h *httpPipeConn) SetDeadline(t time.Time) error      { return nil }
func (h *httpPipeConn) SetReadDeadline(t time.Time) error  { return nil }
func (h *httpPipeConn) SetWriteDeadline(t time.Time) error { return nil }

type pseudoAddr string

func (p pseudoAddr) Network() string { return "http" }
func (p pseudoAddr) String() string  { return string(p) }

func newByteReaderCloser(p []byte) io.Reader { return io.NopCloser(newByteReaderFromSlice(p)) }

// httpServer accepts chunked POST bodies as inbound frames, grounded on
// httpserver's mux-and-handler idiom.
type httpServer struct {
	address string
	handler Handler
	tlsCfg  *tls.Config
	counters

	mu      sync.Mutex
	srv     *http.Server
	running int32
	open    int32
}

// NewHTTPServer builds a Server speaking the same POST-per-frame protocol
// as httpPipeConn. When tlsCfg is non-nil it serves HTTPS.
func NewHTTPServer(address string, handler Handler, tlsCfg *tls.Config) Server {
	return &httpServer{address: address, handler: handler, tlsCfg: tlsCfg}
}

func (s *httpServer) IsRunning() bool      { return atomic.LoadInt32(&s.running) == 1 }
func (s *httpServer) OpenConnections() int { return int(atomic.LoadInt32(&s.open)) }

func (s *httpServer) Listen(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.open, 1)
		defer atomic.AddInt32(&s.open, -1)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, errcode.SocketError.Error(err).Error(), http.StatusBadRequest)
			return
		}
		s.counters.addRecv(len(body))

		pw := &httpResponseConn{w: w, r: r, c: &s.counters}
		pw.pending = body
		s.handler(pw)
	})

	srv := &http.Server{Addr: s.address, Handler: mux, TLSConfig: s.tlsCfg}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()
	atomic.StoreInt32(&s.running, 1)
	defer atomic.StoreInt32(&s.running, 0)

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	var err error
	if s.tlsCfg != nil {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return errcode.SocketError.Error(err)
	}
	return nil
}

func (s *httpServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// httpResponseConn is the server-side Conn handed to a session handler:
// one request body read, one response body write, matching the "oneway
// over HTTP is unsupported" constraint (spec.md §7: OnewayHttp) since the
// handler must write exactly one response per request.
type httpResponseConn struct {
	w       http.ResponseWriter
	r       *http.Request
	c       *counters
	pending []byte
	wrote   bool
}

func (h *httpResponseConn) Read(p []byte) (int, error) {
	if len(h.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(p, h.pending)
	h.pending = h.pending[n:]
	return n, nil
}

func (h *httpResponseConn) Write(p []byte) (int, error) {
	if !h.wrote {
		h.w.Header().Set("Content-Type", "application/octet-stream")
		h.wrote = true
	}
	n, err := h.w.Write(p)
	if n > 0 {
		h.c.addSent(n)
	}
	return n, err
}

func (h *httpResponseConn) Close() error { return nil }

func (h *httpResponseConn) RemoteAddr() net.Addr { return pseudoAddrFromString(h.r.RemoteAddr) }
func (h *httpResponseConn) LocalAddr() net.Addr  { return pseudoAddr("server") }

func (h *httpResponseConn) SetDeadline(t time.Time) error      { return nil }
func (h *httpResponseConn) SetReadDeadline(t time.Time) error  { return nil }
func (h *httpResponseConn) SetWriteDeadline(t time.Time) error { return nil }

func pseudoAddrFromString(s string) net.Addr { return pseudoAddr(s) }

// connectTunnel dials an HTTP proxy with a CONNECT request before handing
// the raw connection off to TLS, per spec.md §4.2's "HTTP CONNECT filter
// precedes TLS when tunnelling through a proxy".
func connectTunnel(ctx context.Context, proxyAddr, targetAddr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, errcode.ClientConnectTimeout.Error(err)
	}

	req, _ := http.NewRequest(http.MethodConnect, "http://"+targetAddr, nil)
	req.Host = targetAddr
	if err = req.Write(conn); err != nil {
		_ = conn.Close()
		return nil, errcode.SocketError.Error(err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		_ = conn.Close()
		return nil, errcode.SocketError.Error(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		return nil, errcode.SocketError.Errorf("proxy CONNECT to %s failed: %s", targetAddr, resp.Status)
	}
	return conn, nil
}
