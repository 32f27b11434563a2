// Copyright 2026 The xrootd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chilikink/xrootd/internal/clientconfig"
	"github.com/chilikink/xrootd/xrdcl"
	"github.com/chilikink/xrootd/xrdcl/netpoller"
	"github.com/chilikink/xrootd/xrdcl/stream"
	"github.com/chilikink/xrootd/xrdcl/xrdproto"
)

func connectCmd() *cobra.Command {
	var (
		configPath string
		endpoint   string
		username   string
		insecure   bool
		stayReady  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Dial one endpoint and print its phase transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := clientconfig.Default()
			if configPath != "" {
				loaded, err := clientconfig.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if endpoint != "" {
				cfg.Endpoint = endpoint
			}
			if username != "" {
				cfg.Username = username
			}
			if insecure {
				cfg.TLS.InsecureSkipVerify = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runConnect(cfg, stayReady)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to a TOML config file (see clientconfig.Config)")
	flags.StringVar(&endpoint, "endpoint", "", "Override the config's endpoint, as host:port")
	flags.StringVar(&username, "username", "", "Override the config's username (xrdproto logs in as \"anonymous\" regardless)")
	flags.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	flags.DurationVar(&stayReady, "stay", 5*time.Second, "How long to stay connected once PhaseReady is reached")
	return cmd
}

func runConnect(cfg clientconfig.Config, stayReady time.Duration) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	poller, err := netpoller.NewEPoller(opts.TickResolution, logger)
	if err != nil {
		return fmt.Errorf("starting poller: %w", err)
	}
	defer poller.Close()

	transport := xrdproto.New()
	listener := &printingListener{}
	st := stream.New(listener, logger)
	st.RequireTLS(cfg.TLS.Policy == clientconfig.TLSRequire)

	metrics := xrdcl.NewMetrics(prometheus.NewRegistry(), cfg.MetricsNamespace)

	opts.Poller = poller
	opts.Transport = transport
	opts.ChannelData = xrdproto.ChannelData{Username: cfg.Username}
	opts.Stream = st
	opts.Logger = logger
	opts.Metrics = metrics

	conn := xrdcl.NewConnection(opts)
	st.Bind(conn)

	var tlsConfig *tls.Config
	if cfg.TLS.Policy != clientconfig.TLSNever {
		tlsConfig = &tls.Config{
			ServerName:         cfg.TLS.ServerName,
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		}
	}
	sock := netpoller.NewSocket(tlsConfig)

	started := time.Now()
	color.New(color.FgCyan).Printf("connecting to %s as %q (conn %s)\n", cfg.Endpoint, cfg.Username, conn.ID())

	if st := conn.Connect(sock, time.Duration(cfg.ConnectTimeout)); !st.Ok() {
		return st
	}

	last := xrdcl.PhaseIdle
	for {
		phase := conn.Phase()
		if phase != last {
			printPhaseTransition(last, phase, time.Since(started))
			last = phase
		}
		switch phase {
		case xrdcl.PhaseReady:
			color.New(color.FgGreen).Printf("ready after %s\n", humanize.Time(started))
			time.Sleep(stayReady)
			conn.Close()
			return nil
		case xrdcl.PhaseClosed:
			return fmt.Errorf("connection closed without reaching PhaseReady")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func printPhaseTransition(from, to xrdcl.Phase, elapsed time.Duration) {
	c := color.New(color.FgYellow)
	if to == xrdcl.PhaseClosed || to == xrdcl.PhaseClosing {
		c = color.New(color.FgRed)
	}
	c.Printf("%s -> %s (%s elapsed)\n", from, to, elapsed.Round(time.Millisecond))
}

// printingListener prints everything Send doesn't already resolve:
// unsolicited messages, faults, and timeouts.
type printingListener struct{}

func (printingListener) OnUnsolicitedMessage(msg *xrdcl.Message) {
	color.New(color.FgBlue).Printf("unsolicited message: %s\n", humanize.Bytes(uint64(len(msg.Raw))))
}

func (printingListener) OnFault(status xrdcl.Status) {
	color.New(color.FgRed).Printf("fault: %s\n", status)
}

func (printingListener) OnReadTimeout() {
	color.New(color.FgRed).Println("read timeout")
}

func (printingListener) OnWriteTimeout() {
	color.New(color.FgRed).Println("write timeout")
}
