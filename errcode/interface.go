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

package errcode

import (
	goerrors "errors"
	"fmt"
)

// FuncMap iterates an error and its parents; return false to stop early.
type FuncMap func(e error) bool

// Error extends the standard error with an RCF error code, a parent chain
// and trace information, matching the wire MethodInvocationResponse error
// shape (code, arg0, arg1 collapse onto parent errors carrying the
// operands as message text).
type Error interface {
	error

	IsCode(code CodeError) bool
	HasCode(code CodeError) bool
	GetCode() CodeError
	GetParentCode() []CodeError

	Is(e error) bool
	IsError(e error) bool
	HasError(err error) bool
	HasParent() bool
	GetParent(withMainError bool) []error
	Map(fct FuncMap) bool
	ContainsString(s string) bool

	Add(parent ...error)
	SetParent(parent ...error)

	Code() uint16
	CodeSlice() []uint16

	CodeError(pattern string) string
	CodeErrorSlice(pattern string) []string
	CodeErrorTrace(pattern string) string
	CodeErrorTraceSlice(pattern string) []string

	StringError() string
	StringErrorSlice() []string

	GetError() error
	GetErrorSlice() []error
	Unwrap() []error

	GetTrace() string
	GetTraceSlice() []string
}

// Is reports whether e can be asserted to the Error interface.
func Is(e error) bool {
	var err Error
	return goerrors.As(e, &err)
}

// Get returns e as an Error if possible, nil otherwise.
func Get(e error) Error {
	var err Error
	if goerrors.As(e, &err) {
		return err
	}
	return nil
}

// Has reports whether e or one of its parents carries code.
func Has(e error, code CodeError) bool {
	if err := Get(e); err != nil {
		return err.HasCode(code)
	}
	return false
}

// Make wraps a plain error into an Error with code Ok if it is not one already.
func Make(e error) Error {
	if e == nil {
		return nil
	}
	var err Error
	if goerrors.As(e, &err) {
		return err
	}
	return &ers{c: 0, e: e.Error(), t: getNilFrame()}
}

// New builds a new Error with the given code, message and parent errors.
func New(code CodeError, message string, parent ...error) Error {
	p := make([]Error, 0, len(parent))
	for _, e := range parent {
		if er := Make(e); er != nil {
			p = append(p, er)
		}
	}
	return &ers{c: code.Uint16(), e: message, p: p, t: getFrame()}
}

// Newf builds a new Error with a formatted message.
func Newf(code CodeError, pattern string, args ...any) Error {
	return &ers{c: code.Uint16(), e: fmt.Sprintf(pattern, args...), t: getFrame()}
}

// IfError returns an Error only if at least one non-nil parent is present.
func IfError(code CodeError, message string, parent ...error) Error {
	p := make([]Error, 0, len(parent))
	for _, e := range parent {
		if er := Make(e); er != nil {
			p = append(p, er)
		}
	}
	if len(p) == 0 {
		return nil
	}
	return &ers{c: code.Uint16(), e: message, p: p, t: getFrame()}
}
