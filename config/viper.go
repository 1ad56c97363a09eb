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

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nabbar/rcfvec/network/protocol"
)

// RegisterFlags declares every bindable flag on cmd's persistent flag set
// and binds each to v, the way the teacher's per-component RegisterFlag
// binds a cobra.Command's PersistentFlags into a *viper.Viper
// (config/components/smtp/config.go's vpr.BindPFlag pattern), collapsed
// here into one function for the whole flat Config.
func RegisterFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()

	flags.String("listen.protocol", "tcp", "network protocol to bind (tcp, tcp4, tcp6, udp, unix, unixgram)")
	flags.String("listen.address", "", "address to bind the server to")

	flags.Bool("tls.enabled", false, "enable TLS on the listening endpoint")
	flags.String("tls.cert_file", "", "PEM certificate file")
	flags.String("tls.key_file", "", "PEM private key file")
	flags.String("tls.ca_file", "", "PEM CA bundle for client verification")
	flags.Bool("tls.skip_verify", false, "skip TLS peer verification (testing only)")

	flags.Int("ivf.dim", 0, "vector dimension")
	flags.Int("ivf.clusters", 0, "number of coarse clusters")
	flags.Int("ivf.scan_budget", 0, "per-query scanned-vector budget (L)")
	flags.Int("ivf.nsamples", 0, "training sample size")
	flags.Int64("ivf.seed", 0, "deterministic training seed")
	flags.String("ivf.index_path", "", "directory holding cq_centers/pq_centers")
	flags.String("ivf.db_path", "", "directory holding posting lists and segments")
	flags.Int("ivf.pq_subspaces", 0, "product quantizer subspace count (0 disables PQ)")
	flags.Int("ivf.pq_centroids", 0, "product quantizer per-subspace centroid count")

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(f.Name, f)
		}
	})
	return err
}

// Load unmarshals v into a Config and validates it, the way
// config/components/smtp/config.go's _getConfig unmarshals a key then
// calls cfg.Validate().
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Listen.Protocol = protocol.Parse(cfg.Listen.ProtocolName)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
