package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "envelop.yaml")
	data := `
graphql:
  schema: [a.graphql, b.graphql]
  introspection: false
server:
  addr: ":9090"
  timeout: 3s
  cors_origins: ["https://example.com"]
  metrics_path: /metrics
plugins:
  metrics: true
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	want := Default()
	want.GraphQL.Schema = []string{"a.graphql", "b.graphql"}
	want.GraphQL.Introspection = false
	want.Server.Addr = ":9090"
	want.Server.Timeout = 3 * time.Second
	want.Server.CORSOrigins = []string{"https://example.com"}
	want.Server.MetricsPath = "/metrics"
	want.Plugins.Metrics = true
	want.Log.Level = "debug"
	want.Log.Format = "console"
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "envelop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644))
	t.Setenv("ENVELOP_SERVER_ADDR", ":7070")
	t.Setenv("ENVELOP_SERVER_PRETTY", "true")
	t.Setenv("ENVELOP_OTEL_SERVICE", "gateway")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.True(t, cfg.Server.Pretty)
	require.Equal(t, "gateway", cfg.OTel.Service)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative timeout", func(c *Config) { c.Server.Timeout = -time.Second }, false},
		{"negative body limit", func(c *Config) { c.Server.MaxBodyBytes = -1 }, false},
		{"relative metrics path", func(c *Config) { c.Server.MetricsPath = "metrics" }, false},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
