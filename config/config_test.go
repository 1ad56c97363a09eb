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

package config_test

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/rcfvec/config"
	"github.com/nabbar/rcfvec/network/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RegisterFlags + Load", func() {
	It("binds cobra flags into viper and loads a valid config", func() {
		cmd := &cobra.Command{Use: "test"}
		v := viper.New()
		Expect(config.RegisterFlags(cmd, v)).To(Succeed())

		Expect(cmd.PersistentFlags().Set("listen.protocol", "tcp")).To(Succeed())
		Expect(cmd.PersistentFlags().Set("listen.address", ":9000")).To(Succeed())
		Expect(cmd.PersistentFlags().Set("ivf.dim", "128")).To(Succeed())
		Expect(cmd.PersistentFlags().Set("ivf.clusters", "64")).To(Succeed())

		cfg, err := config.Load(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Listen.Protocol).To(Equal(protocol.NetworkTCP))
		Expect(cfg.Listen.Address).To(Equal(":9000"))
		Expect(cfg.IVF.Dim).To(Equal(128))
		Expect(cfg.IVF.Clusters).To(Equal(64))
	})

	It("rejects a missing listen address", func() {
		v := viper.New()
		v.Set("listen.protocol", "tcp")
		v.Set("ivf.dim", 8)
		v.Set("ivf.clusters", 4)

		_, err := config.Load(v)
		Expect(err).To(HaveOccurred())
	})

	It("rejects TLS enabled without cert/key", func() {
		v := viper.New()
		v.Set("listen.protocol", "tcp")
		v.Set("listen.address", ":9000")
		v.Set("tls.enabled", true)
		v.Set("ivf.dim", 8)
		v.Set("ivf.clusters", 4)

		_, err := config.Load(v)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a PQ subspace count that doesn't divide the dimension", func() {
		v := viper.New()
		v.Set("listen.protocol", "tcp")
		v.Set("listen.address", ":9000")
		v.Set("ivf.dim", 10)
		v.Set("ivf.clusters", 4)
		v.Set("ivf.pq_subspaces", 3)

		_, err := config.Load(v)
		Expect(err).To(HaveOccurred())
	})
})
