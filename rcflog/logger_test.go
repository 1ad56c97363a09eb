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

package rcflog_test

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/nabbar/rcfvec/rcflog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	var buf *bytes.Buffer
	var log rcflog.Logger

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		log = rcflog.New()
		log.SetOutput(buf)
	})

	It("defaults to InfoLevel", func() {
		Expect(log.GetLevel()).To(Equal(rcflog.InfoLevel))
	})

	It("merges default fields with per-call fields", func() {
		log.SetFields(rcflog.Fields{"service": "dispatch"})
		log.Info("hello %s", rcflog.Fields{"method": "Ping"}, "world")

		var decoded map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).NotTo(HaveOccurred())
		Expect(decoded["service"]).To(Equal("dispatch"))
		Expect(decoded["method"]).To(Equal("Ping"))
		Expect(decoded["msg"]).To(Equal("hello world"))
	})

	It("suppresses Debug entries below the configured level", func() {
		log.Debug("should not appear", nil)
		Expect(buf.Len()).To(Equal(0))
	})

	It("emits Debug entries once the level is lowered", func() {
		log.SetLevel(rcflog.DebugLevel)
		log.Debug("now visible", nil)
		Expect(buf.Len()).NotTo(Equal(0))
	})

	It("Clone copies fields but stays independent afterward", func() {
		log.SetFields(rcflog.Fields{"a": 1})
		clone := log.Clone()
		clone.SetFields(rcflog.Fields{"a": 2})

		Expect(log.GetFields()["a"]).To(Equal(1))
		Expect(clone.GetFields()["a"]).To(Equal(2))
	})

	Describe("CheckError", func() {
		It("logs at lvlKO and returns false when err is non-nil", func() {
			ok := log.CheckError(rcflog.ErrorLevel, rcflog.InfoLevel, "failed", errors.New("boom"))
			Expect(ok).To(BeFalse())
			Expect(buf.Len()).NotTo(Equal(0))
		})

		It("logs at lvlOK and returns true when err is nil", func() {
			ok := log.CheckError(rcflog.ErrorLevel, rcflog.InfoLevel, "succeeded", nil)
			Expect(ok).To(BeTrue())
			Expect(buf.Len()).NotTo(Equal(0))
		})

		It("stays silent on success when lvlOK is NilLevel", func() {
			ok := log.CheckError(rcflog.ErrorLevel, rcflog.NilLevel, "succeeded", nil)
			Expect(ok).To(BeTrue())
			Expect(buf.Len()).To(Equal(0))
		})
	})
})
