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

import "strings"

// ErrorMode controls what Error() renders for the standard error interface.
type ErrorMode uint8

const (
	ModeDefault ErrorMode = iota
	ModeCode
	ModeCodeError
	ModeCodeErrorTrace
	ModeStringError
	ModeStringErrorFull
)

var modeError = ModeDefault

// SetModeReturnError changes the global rendering mode for Error().
func SetModeReturnError(mode ErrorMode) { modeError = mode }

// GetModeReturnError returns the global rendering mode.
func GetModeReturnError() ErrorMode { return modeError }

func (m ErrorMode) render(e *ers) string {
	switch m {
	case ModeCode:
		return CodeError(e.c).String()
	case ModeCodeError:
		return e.CodeError("")
	case ModeCodeErrorTrace:
		return e.CodeErrorTrace("")
	case ModeStringError:
		return e.StringError()
	case ModeStringErrorFull:
		return strings.Join(e.StringErrorSlice(), ", ")
	default:
		return e.StringError()
	}
}
