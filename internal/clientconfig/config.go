// Package clientconfig loads the small TOML file cmd/xrdclient accepts
// for settings that aren't worth typing out as flags every run:
// connection timeouts, tick resolution, and TLS policy. The core
// xrdcl package itself takes everything through an Options struct and
// has no config file of its own; this is purely a convenience layer
// sitting above (and independent of) the connection core it configures.
package clientconfig

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chilikink/xrootd/xrdcl"
)

// TLSPolicy selects how a Config's TLS section is applied to a dial.
type TLSPolicy string

const (
	// TLSAuto upgrades to TLS only if the server's login response asks
	// for it (xrdproto.Handler.HandshakeNext sets HandShakeData.RequiresTLS).
	TLSAuto TLSPolicy = "auto"
	// TLSRequire faults the connection if the server doesn't ask for
	// TLS, refusing to fall back to a plaintext session.
	TLSRequire TLSPolicy = "require"
	// TLSNever gives the socket no TLS configuration. It does not stop
	// the connection from entering its TLS handshake when the server's
	// login response asks for TLS.
	TLSNever TLSPolicy = "never"
)

// Duration is a time.Duration that decodes from a TOML string like "30s"
// via encoding.TextUnmarshaler, which BurntSushi/toml honors for any
// field whose type implements it (time.Duration itself does not).
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("clientconfig: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the decoded shape of the TOML file cmd/xrdclient reads.
// Each field's TOML key is the one named in its toml struct tag.
type Config struct {
	Endpoint string `toml:"endpoint"`
	Username string `toml:"username"`

	ConnectTimeout Duration `toml:"connect_timeout"`
	TickResolution Duration `toml:"tick_resolution"`
	ReadTimeout    Duration `toml:"read_timeout"`
	WriteTimeout   Duration `toml:"write_timeout"`

	OutboundQueueSize int `toml:"outbound_queue_size"`

	TLS TLSConfig `toml:"tls"`

	MetricsNamespace string `toml:"metrics_namespace"`
}

// TLSConfig is the [tls] table of a Config.
type TLSConfig struct {
	Policy             TLSPolicy `toml:"policy"`
	InsecureSkipVerify bool      `toml:"insecure_skip_verify"`
	ServerName         string    `toml:"server_name"`
}

// Default returns a Config whose tick resolution and outbound queue size
// match what xrdcl.NewConnection itself falls back to when those fields
// are left zero, plus the CLI's own baseline settings (a 30s connect
// timeout, TLSAuto, username "anonymous").
func Default() Config {
	return Config{
		Username:          "anonymous",
		ConnectTimeout:    Duration(30 * time.Second),
		TickResolution:    Duration(time.Second),
		ReadTimeout:       0,
		WriteTimeout:      0,
		OutboundQueueSize: 64,
		TLS: TLSConfig{
			Policy: TLSAuto,
		},
		MetricsNamespace: "xrdclient",
	}
}

// Load reads and decodes the TOML file at path over Default(), so a
// config file only needs to set the fields it wants to override.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("clientconfig: decoding %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("clientconfig: %s: unrecognized key %q", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether cfg is complete enough to dial with.
func (cfg Config) Validate() error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("clientconfig: endpoint is required")
	}
	switch cfg.TLS.Policy {
	case TLSAuto, TLSRequire, TLSNever, "":
	default:
		return fmt.Errorf("clientconfig: unknown tls policy %q", cfg.TLS.Policy)
	}
	if cfg.ConnectTimeout < 0 || cfg.TickResolution < 0 || cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return fmt.Errorf("clientconfig: timeouts must not be negative")
	}
	if cfg.OutboundQueueSize < 0 {
		return fmt.Errorf("clientconfig: outbound_queue_size must not be negative")
	}
	return nil
}

// ParseEndpoint splits cfg.Endpoint's "host:port" into an xrdcl.Endpoint,
// the shape xrdcl.Options.Endpoint expects.
func (cfg Config) ParseEndpoint() (xrdcl.Endpoint, error) {
	host, portStr, err := net.SplitHostPort(cfg.Endpoint)
	if err != nil {
		return xrdcl.Endpoint{}, fmt.Errorf("clientconfig: endpoint %q: %w", cfg.Endpoint, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return xrdcl.Endpoint{}, fmt.Errorf("clientconfig: endpoint %q: invalid port: %w", cfg.Endpoint, err)
	}
	return xrdcl.Endpoint{Network: "tcp", Host: host, Port: uint16(port)}, nil
}

// Options builds the Connection-independent fields of xrdcl.Options from
// cfg: URL, Endpoint, timeouts, tick resolution, and queue size. The
// caller still has to fill in Poller, Transport, Stream, and Logger,
// since those depend on the concrete netpoller/xrdproto/stream wiring
// the CLI chooses at startup.
func (cfg Config) Options() (xrdcl.Options, error) {
	endpoint, err := cfg.ParseEndpoint()
	if err != nil {
		return xrdcl.Options{}, err
	}
	return xrdcl.Options{
		URL:               "root://" + cfg.Endpoint,
		Endpoint:          endpoint,
		ConnectionTimeout: time.Duration(cfg.ConnectTimeout),
		TickResolution:    time.Duration(cfg.TickResolution),
		ReadTimeout:       time.Duration(cfg.ReadTimeout),
		WriteTimeout:      time.Duration(cfg.WriteTimeout),
		OutboundQueueSize: cfg.OutboundQueueSize,
	}, nil
}
