package clientconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "xrdclient.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaultsOverUnsetFields(t *testing.T) {
	path := writeConfig(t, `endpoint = "xrootd.example.org:1094"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "xrootd.example.org:1094", cfg.Endpoint)
	require.Equal(t, "anonymous", cfg.Username)
	require.Equal(t, Duration(30*time.Second), cfg.ConnectTimeout)
	require.Equal(t, TLSAuto, cfg.TLS.Policy)
	require.Equal(t, 64, cfg.OutboundQueueSize)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
endpoint = "xrootd.example.org:1094"
username = "alice"
connect_timeout = "5s"
tick_resolution = "100ms"

[tls]
policy = "require"
server_name = "xrootd.example.org"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "alice", cfg.Username)
	require.Equal(t, Duration(5*time.Second), cfg.ConnectTimeout)
	require.Equal(t, Duration(100*time.Millisecond), cfg.TickResolution)
	require.Equal(t, TLSRequire, cfg.TLS.Policy)
	require.Equal(t, "xrootd.example.org", cfg.TLS.ServerName)
}

func TestLoadRejectsMissingEndpoint(t *testing.T) {
	path := writeConfig(t, `username = "alice"`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnrecognizedKey(t *testing.T) {
	path := writeConfig(t, `
endpoint = "xrootd.example.org:1094"
bogus_key = "nope"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownTLSPolicy(t *testing.T) {
	path := writeConfig(t, `
endpoint = "xrootd.example.org:1094"

[tls]
policy = "sideways"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
endpoint = "xrootd.example.org:1094"
connect_timeout = "not-a-duration"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestParseEndpointSplitsHostPort(t *testing.T) {
	cfg := Default()
	cfg.Endpoint = "xrootd.example.org:1094"

	ep, err := cfg.ParseEndpoint()
	require.NoError(t, err)
	require.Equal(t, "tcp", ep.Network)
	require.Equal(t, "xrootd.example.org", ep.Host)
	require.Equal(t, uint16(1094), ep.Port)
}

func TestParseEndpointRejectsMissingPort(t *testing.T) {
	cfg := Default()
	cfg.Endpoint = "xrootd.example.org"

	_, err := cfg.ParseEndpoint()
	require.Error(t, err)
}

func TestOptionsCarriesTimeoutsAndEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Endpoint = "xrootd.example.org:1094"
	cfg.ConnectTimeout = Duration(5 * time.Second)

	opts, err := cfg.Options()
	require.NoError(t, err)
	require.Equal(t, "root://xrootd.example.org:1094", opts.URL)
	require.Equal(t, uint16(1094), opts.Endpoint.Port)
	require.Equal(t, 5*time.Second, opts.ConnectionTimeout)
	require.Equal(t, 64, opts.OutboundQueueSize)
}
