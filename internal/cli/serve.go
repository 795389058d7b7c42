package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pangraph/pkg/observability"
	"github.com/matzehuels/pangraph/pkg/pipeline"
	"github.com/matzehuels/pangraph/pkg/server"
	"github.com/matzehuels/pangraph/pkg/session"
)

const (
	hooksPrometheus = "prometheus"
	hooksOTel       = "otel"
	hooksNone       = "none"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string
	dataDir  string
	redis    string
	hooks    string
	preload  string
	interval time.Duration // view cleanup interval
}

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags loadFlags
		opts  serveOpts
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Views are kept in memory unless a Redis address is configured, in which case
several instances can serve the same views. Metrics are exposed at /metrics
in Prometheus format, or recorded through OpenTelemetry with --hooks otel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), flags, opts)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "only load sources inside this directory")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "Redis address for shared views (default from config)")
	cmd.Flags().StringVar(&opts.hooks, "hooks", hooksPrometheus, "metrics backend: prometheus, otel, none")
	cmd.Flags().StringVar(&opts.preload, "load", "", "GFA file to load at startup")
	cmd.Flags().DurationVar(&opts.interval, "cleanup-interval", 10*time.Minute, "how often expired views are removed")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, flags loadFlags, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	cfg := c.Config.Server
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.redis != "" {
		cfg.RedisAddr = opts.redis
	}

	registry, err := installHooks(opts.hooks)
	if err != nil {
		return err
	}
	defer observability.Reset()

	views, err := c.openSessionStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer views.Close()

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	loader := pipeline.NewLoader(runner)
	defer loader.Close()

	palette, err := c.Config.Palette()
	if err != nil {
		return err
	}
	srv := server.New(loader, views, server.Config{
		Addr:         cfg.Addr,
		DataDir:      opts.dataDir,
		AllowOrigins: cfg.AllowOrigins,
		Radius:       c.Config.View.Radius,
		Palette:      palette,
		ViewTTL:      c.Config.ViewTTL(),
		Layout:       c.options(flags).Layout,
		Registry:     registry,
		Logger:       logger,
	})

	if opts.preload != "" {
		if _, err := loader.Start(ctx, opts.preload, c.options(flags)); err != nil {
			return err
		}
		logger.Info("Loading in background", "source", opts.preload)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		return cleanupViews(ctx, views, opts.interval)
	})
	return g.Wait()
}

// installHooks registers the metrics backend. The returned registry is nil
// unless Prometheus was selected.
func installHooks(kind string) (*prometheus.Registry, error) {
	switch kind {
	case hooksPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		hooks := observability.NewPrometheusHooks(reg)
		setAllHooks(hooks)
		return reg, nil
	case hooksOTel:
		setAllHooks(observability.NewOTelHooks())
		return nil, nil
	case hooksNone:
		return nil, nil
	}
	return nil, fmt.Errorf("invalid hooks: %q (must be one of: prometheus, otel, none)", kind)
}

type allHooks interface {
	observability.LoadHooks
	observability.CacheHooks
	observability.WindowHooks
	observability.HTTPHooks
}

func setAllHooks(h allHooks) {
	observability.SetLoadHooks(h)
	observability.SetCacheHooks(h)
	observability.SetWindowHooks(h)
	observability.SetHTTPHooks(h)
}

// openSessionStore returns a Redis store when addr is set, else an
// in-memory one.
func (c *CLI) openSessionStore(ctx context.Context, addr, password string, db int) (session.Store, error) {
	if addr == "" {
		return session.NewMemoryStore(), nil
	}
	store, err := session.NewRedisStore(ctx, addr, password, db)
	if err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	c.Logger.Info("Sharing views through Redis", "addr", addr)
	return store, nil
}

// cleanupViews removes expired views every interval until ctx is done.
func cleanupViews(ctx context.Context, views session.Store, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := views.Cleanup(ctx); err != nil {
				loggerFromContext(ctx).Warn("View cleanup failed", "error", err)
			}
		}
	}
}
