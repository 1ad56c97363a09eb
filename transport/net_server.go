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
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/nabbar/rcfvec/errcode"
	libptc "github.com/nabbar/rcfvec/network/protocol"
	"github.com/nabbar/rcfvec/rcflog"
)

// netServer accepts tcp/udp/unix connections, grounded on
// socket/server/{tcp,udp,unix}. UpdateConn-style callbacks are left to
// session construction (the handler passed in already receives a Conn).
type netServer struct {
	network libptc.NetworkProtocol
	address string
	handler Handler
	counters

	mu       sync.Mutex
	listener net.Listener
	packet   net.PacketConn
	running  int32
	open     int32
	log      rcflog.FuncLog
}

// NewNetServer builds a Server for tcp/tcp4/tcp6/unix (stream, via
// net.Listener) or udp/udp4/udp6/unixgram (datagram, via net.PacketConn).
func NewNetServer(network libptc.NetworkProtocol, address string, handler Handler) Server {
	return &netServer{network: network, address: address, handler: handler}
}

// SetLogger attaches a structured logger used to report accept errors and
// listener lifecycle events (spec.md §3.2: "every ... transport ...
// component accepts a logger.FuncLog").
func (s *netServer) SetLogger(log rcflog.FuncLog) { s.log = log }

func (s *netServer) logger() rcflog.Logger {
	if s.log == nil {
		return nil
	}
	return s.log()
}

func (s *netServer) IsRunning() bool      { return atomic.LoadInt32(&s.running) == 1 }
func (s *netServer) OpenConnections() int { return int(atomic.LoadInt32(&s.open)) }

func (s *netServer) Listen(ctx context.Context) error {
	if l := s.logger(); l != nil {
		l.Info("listening", rcflog.Fields{"network": s.network.String(), "address": s.address})
	}
	if s.network.IsDatagram() {
		return s.listenPacket(ctx)
	}
	return s.listenStream(ctx)
}

func (s *netServer) listenStream(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, s.network.String(), s.address)
	if err != nil {
		return errcode.SocketError.Error(err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	atomic.StoreInt32(&s.running, 1)
	defer atomic.StoreInt32(&s.running, 0)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if l := s.logger(); l != nil {
				l.Error("accept failed", rcflog.Fields{"error": err.Error()})
			}
			return errcode.SocketError.Error(err)
		}
		atomic.AddInt32(&s.open, 1)
		go func(c net.Conn) {
			defer atomic.AddInt32(&s.open, -1)
			defer func() { _ = c.Close() }()
			s.handler(newCountedConn(c.(Conn), &s.counters))
		}(conn)
	}
}

// listenPacket adapts a connectionless net.PacketConn to the stream-style
// Handler contract by multiplexing datagrams per source address onto a
// short-lived pseudo-connection, matching socket/server/udp's test shape
// of one handler invocation per logical peer.
func (s *netServer) listenPacket(ctx context.Context) error {
	pc, err := net.ListenPacket(s.network.String(), s.address)
	if err != nil {
		return errcode.SocketError.Error(err)
	}

	s.mu.Lock()
	s.packet = pc
	s.mu.Unlock()
	atomic.StoreInt32(&s.running, 1)
	defer atomic.StoreInt32(&s.running, 0)

	go func() {
		<-ctx.Done()
		_ = pc.Close()
	}()

	peers := make(map[string]*datagramConn)
	var mu sync.Mutex

	buf := make([]byte, 65536)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errcode.SocketError.Error(err)
		}
		s.counters.addRecv(n)

		key := addr.String()
		mu.Lock()
		dc, ok := peers[key]
		if !ok {
			dc = newDatagramConn(pc, addr, &s.counters)
			peers[key] = dc
			mu.Unlock()

			atomic.AddInt32(&s.open, 1)
			go func() {
				defer atomic.AddInt32(&s.open, -1)
				defer func() {
					mu.Lock()
					delete(peers, key)
					mu.Unlock()
				}()
				s.handler(dc)
			}()
		} else {
			mu.Unlock()
		}
		dc.deliver(buf[:n])
	}
}

func (s *netServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	if s.packet != nil {
		return s.packet.Close()
	}
	return nil
}
