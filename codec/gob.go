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
	"bytes"
	"encoding/gob"
)

// gobMarshaler is the default Marshaler (see DESIGN.md: the wire treats
// serialization as an opaque, protocol-tagged byte stream, so the default
// implementation intentionally uses nothing but the standard library).
type gobMarshaler struct{}

// GobTag is the serialization-protocol tag byte for gobMarshaler.
const GobTag byte = 1

// DefaultMarshaler returns the gob-backed Marshaler used when a session
// does not negotiate a different serialization-protocol tag.
func DefaultMarshaler() Marshaler { return gobMarshaler{} }

func (gobMarshaler) Tag() byte { return GobTag }

func (gobMarshaler) Marshal(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobMarshaler) Unmarshal(p []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(p)).Decode(v)
}
