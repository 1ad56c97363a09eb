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

package rcflog

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// FuncLog returns a Logger instance, the dependency-injection shape every
// session, transport, dispatcher and ivf component accepts per spec.md
// §3.2, mirroring the teacher's logger.FuncLog.
type FuncLog func() Logger

// Logger is the structured logging surface shared across this module.
type Logger interface {
	// SetLevel changes the minimal level a message must meet to be emitted.
	SetLevel(lvl Level)
	// GetLevel returns the current minimal level.
	GetLevel() Level

	// SetFields replaces the default fields attached to every entry.
	SetFields(f Fields)
	// GetFields returns the default fields attached to every entry.
	GetFields() Fields

	// Clone returns a new Logger sharing the same output but an
	// independent copy of level and fields.
	Clone() Logger

	// SetOutput redirects where entries are written.
	SetOutput(w io.Writer)

	Debug(message string, fields Fields, args ...interface{})
	Info(message string, fields Fields, args ...interface{})
	Warning(message string, fields Fields, args ...interface{})
	Error(message string, fields Fields, args ...interface{})

	// CheckError logs err at lvlKO if non-nil, returning false; otherwise
	// logs message at lvlOK (when lvlOK is not NilLevel) and returns true.
	CheckError(lvlKO, lvlOK Level, message string, err error) bool
}

// NilLevel disables the "ok" branch of CheckError.
const NilLevel Level = 255

type lgr struct {
	mu     sync.RWMutex
	base   *logrus.Logger
	fields Fields
}

// New returns a Logger writing through a fresh logrus.Logger, defaulting
// to InfoLevel, per spec.md §3.2.
func New() Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &lgr{base: l, fields: NewFields()}
}

func (o *lgr) SetLevel(lvl Level) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.base.SetLevel(lvl.logrus())
}

func (o *lgr) GetLevel() Level {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Level(o.base.GetLevel())
}

func (o *lgr) SetFields(f Fields) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fields = f.clone()
}

func (o *lgr) GetFields() Fields {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fields.clone()
}

func (o *lgr) Clone() Logger {
	o.mu.RLock()
	defer o.mu.RUnlock()
	base := logrus.New()
	base.SetOutput(o.base.Out)
	base.SetFormatter(o.base.Formatter)
	base.SetLevel(o.base.GetLevel())
	return &lgr{base: base, fields: o.fields.clone()}
}

func (o *lgr) SetOutput(w io.Writer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.base.SetOutput(w)
}

func (o *lgr) entry(fields Fields) *logrus.Entry {
	o.mu.RLock()
	merged := o.fields.Merge(fields)
	base := o.base
	o.mu.RUnlock()
	return base.WithFields(merged.logrus())
}

func (o *lgr) Debug(message string, fields Fields, args ...interface{}) {
	o.entry(fields).Debugf(message, args...)
}

func (o *lgr) Info(message string, fields Fields, args ...interface{}) {
	o.entry(fields).Infof(message, args...)
}

func (o *lgr) Warning(message string, fields Fields, args ...interface{}) {
	o.entry(fields).Warnf(message, args...)
}

func (o *lgr) Error(message string, fields Fields, args ...interface{}) {
	o.entry(fields).Errorf(message, args...)
}

func (o *lgr) CheckError(lvlKO, lvlOK Level, message string, err error) bool {
	if err != nil {
		o.entry(Fields{"error": err.Error()}).Log(lvlKO.logrus(), message)
		return false
	}
	if lvlOK != NilLevel {
		o.entry(nil).Log(lvlOK.logrus(), message)
	}
	return true
}
