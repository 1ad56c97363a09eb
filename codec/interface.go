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

// Package codec implements the method invocation request/response wire
// shape (spec.md §4.3): header varint layout, ping-back, and version
// negotiation with one auto-retry. codec depends on wire for framing and
// varint primitives; it never depends on session or dispatch.
package codec

// Descriptor tags the kind of message a frame carries.
type Descriptor uint64

const (
	DescriptorError           Descriptor = 0
	DescriptorRequest         Descriptor = 1
	DescriptorResponse        Descriptor = 2
	DescriptorFilteredPayload Descriptor = 3
)

func (d Descriptor) String() string {
	switch d {
	case DescriptorError:
		return "error"
	case DescriptorRequest:
		return "request"
	case DescriptorResponse:
		return "response"
	case DescriptorFilteredPayload:
		return "filtered-payload"
	default:
		return "unknown"
	}
}

// Flags is the request header's bitfield (spec.md §4.3).
type Flags uint64

const (
	FlagOneWay Flags = 1 << iota
	FlagCloseAfter
	FlagPointerTracking
	FlagNativeWString
)

func (f Flags) OneWay() bool           { return f&FlagOneWay != 0 }
func (f Flags) CloseAfter() bool       { return f&FlagCloseAfter != 0 }
func (f Flags) PointerTracking() bool  { return f&FlagPointerTracking != 0 }
func (f Flags) NativeWString() bool    { return f&FlagNativeWString != 0 }

// Marshaler serializes/deserializes the request/response user payload.
// The wire's serialization-protocol tag stays a plain byte alongside the
// header (see Request.SerializationProtocol / Response), independent of
// which Marshaler a given deployment plugs in (see DESIGN.md for why the
// default is stdlib encoding/gob rather than a hard-coded third-party
// format).
type Marshaler interface {
	Tag() byte
	Marshal(v any) ([]byte, error)
	Unmarshal(p []byte, v any) error
}
