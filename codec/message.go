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

package codec

import (
	"github.com/nabbar/rcfvec/errcode"
	"github.com/nabbar/rcfvec/wire"
)

// MinRuntimeVersion is the floor below which VersionMismatch is returned
// outright rather than attempting the legacy RCF_FEATURE_LEGACY=0 code
// path (spec.md §9 Open Question, resolved in DESIGN.md: not implemented).
const MinRuntimeVersion = 12

// Request is MethodInvocationRequest (spec.md §4.3).
type Request struct {
	ServiceBindingName string
	MethodID           uint64
	Flags              Flags
	RuntimeVersion      uint64
	ArchiveVersion      uint64
	PingBackIntervalMs  uint64
	OOB                 []byte
	UserData            []byte
}

// EncodeRequest writes r's header fields in wire order.
func EncodeRequest(r Request) []byte {
	w := &wire.Writer{}
	w.PutVarint(uint64(DescriptorRequest))
	w.PutString(r.ServiceBindingName)
	w.PutVarint(r.MethodID)
	w.PutVarint(uint64(r.Flags))
	w.PutVarint(r.RuntimeVersion)
	w.PutVarint(r.ArchiveVersion)
	w.PutVarint(r.PingBackIntervalMs)
	w.PutBytes(r.OOB)
	w.PutBytes(r.UserData)
	return w.Bytes()
}

// DecodeRequest parses a header previously built by EncodeRequest.
// Trailing fields absent from an older peer default to zero, except
// RuntimeVersion which defaults to 1 (spec.md §4.3 backward
// compatibility); extra trailing bytes from a newer peer
// are simply never read (forward compatibility).
func DecodeRequest(p []byte) (Request, error) {
	r := wire.NewReader(p)
	var req Request

	desc, err := r.GetVarint()
	if err != nil {
		return req, errcode.BadDescriptor.Error(err)
	}
	if Descriptor(desc) != DescriptorRequest {
		return req, errcode.BadDescriptor.Errorf("expected request descriptor, got %d", desc)
	}

	if req.ServiceBindingName, err = r.GetString(); err != nil {
		return req, errcode.BadDescriptor.Error(err)
	}
	if req.MethodID, err = r.GetVarint(); err != nil {
		return req, errcode.BadDescriptor.Error(err)
	}
	if flags, err := r.GetVarint(); err == nil {
		req.Flags = Flags(flags)
	}
	if v, err := r.GetVarint(); err == nil {
		req.RuntimeVersion = v
	} else {
		req.RuntimeVersion = 1
	}
	if v, err := r.GetVarint(); err == nil {
		req.ArchiveVersion = v
	}
	if v, err := r.GetVarint(); err == nil {
		req.PingBackIntervalMs = v
	}
	if b, err := r.GetBytes(); err == nil {
		req.OOB = b
	}
	if b, err := r.GetBytes(); err == nil {
		req.UserData = b
	}
	return req, nil
}

// Response is MethodInvocationResponse (spec.md §4.3): carries one of a
// user payload, a remote exception, or an error.
type Response struct {
	OOB      []byte
	UserData []byte

	IsException   bool
	ExceptionCode errcode.CodeError
	ExceptionMsg  string

	IsError  bool
	Error    errcode.CodeError
	Arg0     int64
	Arg1     int64
}

// EncodeResponse writes resp in wire order.
func EncodeResponse(resp Response) []byte {
	w := &wire.Writer{}

	if resp.IsError {
		w.PutVarint(uint64(DescriptorError))
		w.PutVarint(uint64(resp.Error))
		w.PutVarint(uint64(resp.Arg0))
		w.PutVarint(uint64(resp.Arg1))
		return w.Bytes()
	}

	w.PutVarint(uint64(DescriptorResponse))
	w.PutBytes(resp.OOB)
	w.PutBytes(resp.UserData)
	if resp.IsException {
		w.PutVarint(1)
		w.PutVarint(uint64(resp.ExceptionCode))
		w.PutString(resp.ExceptionMsg)
	} else {
		w.PutVarint(0)
	}
	return w.Bytes()
}

// DecodeResponse parses a header previously built by EncodeResponse.
func DecodeResponse(p []byte) (Response, error) {
	r := wire.NewReader(p)
	var resp Response

	desc, err := r.GetVarint()
	if err != nil {
		return resp, errcode.BadDescriptor.Error(err)
	}

	switch Descriptor(desc) {
	case DescriptorError:
		resp.IsError = true
		code, err := r.GetVarint()
		if err != nil {
			return resp, errcode.BadDescriptor.Error(err)
		}
		resp.Error = errcode.ParseCodeError(int64(code))
		if v, err := r.GetVarint(); err == nil {
			resp.Arg0 = int64(v)
		}
		if v, err := r.GetVarint(); err == nil {
			resp.Arg1 = int64(v)
		}
		return resp, nil

	case DescriptorResponse:
		if resp.OOB, err = r.GetBytes(); err != nil {
			return resp, errcode.BadDescriptor.Error(err)
		}
		if resp.UserData, err = r.GetBytes(); err != nil {
			return resp, errcode.BadDescriptor.Error(err)
		}
		if isExc, err := r.GetVarint(); err == nil && isExc == 1 {
			resp.IsException = true
			if code, err := r.GetVarint(); err == nil {
				resp.ExceptionCode = errcode.ParseCodeError(int64(code))
			}
			if msg, err := r.GetString(); err == nil {
				resp.ExceptionMsg = msg
			}
		}
		return resp, nil

	default:
		return resp, errcode.BadDescriptor.Errorf("unexpected response descriptor %d", desc)
	}
}

// PingBack builds the "keep waiting" pseudo-error response (spec.md
// §4.3), sent when a handler outruns the client's declared ping-back
// interval.
func PingBack(actualIntervalMs int64) Response {
	return Response{IsError: true, Error: errcode.PingBack, Arg0: actualIntervalMs}
}

// IsPingBack reports whether resp is a PingBack pseudo-error, never to be
// surfaced to the caller as a real failure.
func IsPingBack(resp Response) bool {
	return resp.IsError && resp.Error == errcode.PingBack
}

// NegotiationResult records the outcome of version negotiation,
// including how many attempts it took (spec.md §4.3: "retries exactly
// once").
type NegotiationResult struct {
	RuntimeVersion uint64
	ArchiveVersion uint64
	Tries          int
}

// Negotiate validates a client's proposed versions against the server's
// supported range, returning either an accepted NegotiationResult or a
// VersionMismatch Response carrying the server's maxima. The
// MinRuntimeVersion floor only gates this first attempt, where
// clientRuntime is the client's own declared proposal; RetryNegotiate's
// clamped retry does not re-run this floor check (spec.md §8 scenario 2
// depends on a retry succeeding at a version below MinRuntimeVersion when
// that is all the server supports).
func Negotiate(clientRuntime, clientArchive, serverMaxRuntime, serverMaxArchive uint64) (NegotiationResult, *Response) {
	if clientRuntime < MinRuntimeVersion {
		return NegotiationResult{}, &Response{
			IsError: true,
			Error:   errcode.VersionMismatch,
			Arg0:    int64(serverMaxRuntime),
			Arg1:    int64(serverMaxArchive),
		}
	}
	return negotiateRange(clientRuntime, clientArchive, serverMaxRuntime, serverMaxArchive, 1)
}

// RetryNegotiate lowers the client's proposal to the minimum of client
// and server values, per spec.md §4.3's single auto-retry.
func RetryNegotiate(clientRuntime, clientArchive, serverMaxRuntime, serverMaxArchive uint64) (NegotiationResult, *Response) {
	runtime := min64(clientRuntime, serverMaxRuntime)
	archive := min64(clientArchive, serverMaxArchive)
	return negotiateRange(runtime, archive, serverMaxRuntime, serverMaxArchive, 2)
}

// negotiateRange checks a (possibly already-clamped) proposal against the
// server's maxima, independent of MinRuntimeVersion.
func negotiateRange(runtime, archive, serverMaxRuntime, serverMaxArchive uint64, tries int) (NegotiationResult, *Response) {
	if runtime > serverMaxRuntime || archive > serverMaxArchive {
		return NegotiationResult{}, &Response{
			IsError: true,
			Error:   errcode.VersionMismatch,
			Arg0:    int64(serverMaxRuntime),
			Arg1:    int64(serverMaxArchive),
		}
	}
	return NegotiationResult{RuntimeVersion: runtime, ArchiveVersion: archive, Tries: tries}, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
