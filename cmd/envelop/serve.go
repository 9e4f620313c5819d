package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	config "github.com/hanpama/envelop/internal/config"
	envelop "github.com/hanpama/envelop/internal/envelop"
	eventbus "github.com/hanpama/envelop/internal/eventbus"
	"github.com/hanpama/envelop/internal/logging"
	"github.com/hanpama/envelop/internal/otel"
	"github.com/hanpama/envelop/internal/plugins"
	schema "github.com/hanpama/envelop/internal/schema"
	"github.com/hanpama/envelop/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(c *cli) *cobra.Command {
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	fs := cmd.Flags()
	fs.String("addr", d.Server.Addr, "HTTP listen address")
	fs.Bool("pretty", d.Server.Pretty, "pretty-print JSON responses")
	fs.Duration("timeout", d.Server.Timeout, "per-request timeout, 0 disables it")
	fs.StringSlice("metadata-header", nil, "forward HTTP header to gRPC metadata; repeatable")
	fs.String("metrics-path", d.Server.MetricsPath, "serve Prometheus metrics on this path")
	fs.String("root-value", d.GraphQL.RootValue, "YAML or JSON file used as the root value")
	fs.Bool("introspection", d.GraphQL.Introspection, "allow introspection queries")
	fs.String("otel-endpoint", d.OTel.Endpoint, "OTLP collector endpoint")
	fs.String("log-level", d.Log.Level, "log level")
	c.bind(fs, "server.addr", "addr")
	c.bind(fs, "server.pretty", "pretty")
	c.bind(fs, "server.timeout", "timeout")
	c.bind(fs, "server.metadata_headers", "metadata-header")
	c.bind(fs, "server.metrics_path", "metrics-path")
	c.bind(fs, "graphql.root_value", "root-value")
	c.bind(fs, "graphql.introspection", "introspection")
	c.bind(fs, "otel.endpoint", "otel-endpoint")
	c.bind(fs, "log.level", "log-level")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logging.SetGlobalLogger(logger)

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mux, err := newMux(cfg, reg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("GraphQL server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// newMux builds the HTTP routes: /graphql and, when configured, the metrics
// endpoint backed by reg.
func newMux(cfg *config.Config, reg *prometheus.Registry, logger zerolog.Logger) (*http.ServeMux, error) {
	sch, err := loadSchema(cfg.GraphQL.Schema)
	if err != nil {
		return nil, err
	}
	root, err := loadRootValue(cfg.GraphQL.RootValue)
	if err != nil {
		return nil, err
	}

	env := newEnvelop(cfg, sch, reg, logger)
	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithLogger(logger),
	}
	if root != nil {
		opts = append(opts, server.WithRootValue(root))
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		opts = append(opts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	h, err := server.New(env, opts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	if cfg.Server.MetricsPath != "" {
		mux.Handle(cfg.Server.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	return mux, nil
}

// newEnvelop composes the plugins selected by cfg around sch. Masking comes
// last so the other plugins observe the original errors.
func newEnvelop(cfg *config.Config, sch *schema.Schema, reg prometheus.Registerer, logger zerolog.Logger) *envelop.Envelop {
	return envelop.New(envelop.Options{
		EnableInternalTracing: cfg.GraphQL.Tracing,
		Logger:                &logger,
		Plugins: []envelop.Plugin{
			plugins.UseSchema(sch),
			envelop.EnableIf(!cfg.GraphQL.Introspection, plugins.UseDisableIntrospection()),
			envelop.EnableIf(cfg.Plugins.Logger, plugins.UseLogger(plugins.LoggerOptions{
				Logger:            &logger,
				SkipIntrospection: true,
			})),
			envelop.EnableIf(cfg.Plugins.Timing, plugins.UseTiming(plugins.TimingOptions{
				Logger:            &logger,
				SkipIntrospection: true,
			})),
			envelop.EnableIfFunc(cfg.Plugins.Metrics, func() envelop.Plugin {
				return plugins.UseMetrics(plugins.MetricsOptions{
					Registerer: reg,
					Resolvers:  cfg.Plugins.ResolverMetrics,
				})
			}),
			envelop.EnableIf(cfg.Plugins.Events, plugins.UseEvents()),
			envelop.EnableIf(cfg.Plugins.MaskedErrors, plugins.UseMaskedErrors(plugins.MaskedErrorsOptions{
				IsDev: cfg.Plugins.Dev,
			})),
		},
	})
}
