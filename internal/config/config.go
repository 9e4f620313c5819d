package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding file values.
// ENVELOP_SERVER_ADDR sets server.addr.
const EnvPrefix = "ENVELOP"

// Config is the configuration of the envelop command.
type Config struct {
	GraphQL GraphQLConfig `mapstructure:"graphql"`
	Server  ServerConfig  `mapstructure:"server"`
	Plugins PluginsConfig `mapstructure:"plugins"`
	Log     LogConfig     `mapstructure:"log"`
	OTel    OTelConfig    `mapstructure:"otel"`
}

// GraphQLConfig describes the served schema.
type GraphQLConfig struct {
	// Schema lists SDL files merged into one schema.
	Schema []string `mapstructure:"schema"`
	// RootValue is an optional YAML or JSON file holding the root value.
	RootValue string `mapstructure:"root_value"`
	// Introspection enables __schema and __type queries (default: true)
	Introspection bool `mapstructure:"introspection"`
	// Tracing records phase timings in result extensions.
	Tracing bool `mapstructure:"tracing"`
}

// ServerConfig controls the HTTP endpoint.
type ServerConfig struct {
	Addr    string        `mapstructure:"addr"`
	Pretty  bool          `mapstructure:"pretty"`
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxBodyBytes limits request bodies, 0 = unlimited
	MaxBodyBytes    int64    `mapstructure:"max_body_bytes"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	MetadataHeaders []string `mapstructure:"metadata_headers"`
	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string `mapstructure:"metrics_path"`
}

// PluginsConfig selects the built-in plugins.
type PluginsConfig struct {
	Logger       bool `mapstructure:"logger"`
	Timing       bool `mapstructure:"timing"`
	MaskedErrors bool `mapstructure:"masked_errors"`
	// Dev exposes original error messages in masked error extensions.
	Dev     bool `mapstructure:"dev"`
	Metrics bool `mapstructure:"metrics"`
	// ResolverMetrics adds the per-field resolver histogram.
	ResolverMetrics bool `mapstructure:"resolver_metrics"`
	Events          bool `mapstructure:"events"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of "trace", "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Format is "json" or "console" (default: "json")
	Format string `mapstructure:"format"`
}

// OTelConfig controls trace export. An empty endpoint disables it.
type OTelConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		GraphQL: GraphQLConfig{
			Introspection: true,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Timeout: 10 * time.Second,
		},
		Plugins: PluginsConfig{
			Logger:       true,
			MaskedErrors: true,
			Events:       true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		OTel: OTelConfig{
			Service: "envelop",
		},
	}
}

// New returns a viper instance with defaults and environment overrides set
// up. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("graphql.schema", d.GraphQL.Schema)
	v.SetDefault("graphql.root_value", d.GraphQL.RootValue)
	v.SetDefault("graphql.introspection", d.GraphQL.Introspection)
	v.SetDefault("graphql.tracing", d.GraphQL.Tracing)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.pretty", d.Server.Pretty)
	v.SetDefault("server.timeout", d.Server.Timeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.metadata_headers", d.Server.MetadataHeaders)
	v.SetDefault("server.metrics_path", d.Server.MetricsPath)

	v.SetDefault("plugins.logger", d.Plugins.Logger)
	v.SetDefault("plugins.timing", d.Plugins.Timing)
	v.SetDefault("plugins.masked_errors", d.Plugins.MaskedErrors)
	v.SetDefault("plugins.dev", d.Plugins.Dev)
	v.SetDefault("plugins.metrics", d.Plugins.Metrics)
	v.SetDefault("plugins.resolver_metrics", d.Plugins.ResolverMetrics)
	v.SetDefault("plugins.events", d.Plugins.Events)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("otel.endpoint", d.OTel.Endpoint)
	v.SetDefault("otel.service", d.OTel.Service)
}

// Load reads path, if given, into v and decodes the result. Values from the
// environment take precedence over the file.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot be served.
func (c *Config) Validate() error {
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative: %s", c.Server.Timeout)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative: %d", c.Server.MaxBodyBytes)
	}
	if c.Server.MetricsPath != "" && !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return fmt.Errorf("server.metrics_path must start with /: %q", c.Server.MetricsPath)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console: %q", c.Log.Format)
	}
	return nil
}
