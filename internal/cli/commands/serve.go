package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/dictquery/internal/cli/config"
	"github.com/conduit-lang/dictquery/internal/cli/ui"
	"github.com/conduit-lang/dictquery/internal/web/ratelimit"
	"github.com/conduit-lang/dictquery/internal/web/router"
	"github.com/conduit-lang/dictquery/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(flags *globalFlags) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Long: `Serve container listings, dependent fields and reference lookups over HTTP.

The server shuts down gracefully on SIGINT or SIGTERM, waiting up to
server.shutdown_timeout for in-flight requests.`,
		Example: `  dictquery serve
  dictquery serve --host 0.0.0.0 --port 9090 --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			srvCfg := server.DefaultConfig()
			srvCfg.Address = cfg.Addr()
			srvCfg.ReadTimeout = cfg.ReadTimeout
			srvCfg.WriteTimeout = cfg.WriteTimeout
			srvCfg.ShutdownTimeout = cfg.ShutdownTimeout

			opts := []router.Option{router.WithProfiling(cfg.Profiling)}
			if cfg.RateLimit.Enabled() {
				limiter, closeLimiter, err := newLimiter(ctx, a.cfg)
				if err != nil {
					return err
				}
				defer closeLimiter()
				opts = append(opts, router.WithRateLimit(limiter))
			}
			if cfg.Profiling.Enabled {
				a.logger.Warn("profiling endpoints enabled", zap.String("path", cfg.Profiling.Path))
			}

			srv, err := server.New(srvCfg, router.New(a.engine, a.logger, opts...), a.logger)
			if err != nil {
				return err
			}

			announceCtx, cancelAnnounce := context.WithCancel(ctx)
			announced := make(chan struct{})
			go func() {
				defer close(announced)
				select {
				case <-srv.Ready():
					fmt.Fprintln(cmd.ErrOrStderr(), ui.Info("listening on http://"+srv.Addr(), color.NoColor))
				case <-announceCtx.Done():
				}
			}()

			err = srv.Run(ctx)
			cancelAnnounce()
			<-announced
			if err != nil {
				a.logger.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host, overrides server.host")
	cmd.Flags().IntVar(&port, "port", 0, "listen port, overrides server.port (0 picks a free port)")
	return cmd
}

// newLimiter builds the configured rate limiter. The redis backend shares the
// cache's redis settings; in-memory buckets are swept once per window.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	rl := cfg.Server.RateLimit

	var client *redis.Client
	if strings.EqualFold(rl.Backend, ratelimit.BackendRedis) {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("rate limit redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
	}

	limiter, err := ratelimit.New(rl, client)
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, nil, err
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	if tb, ok := limiter.(*ratelimit.TokenBucket); ok {
		go func() {
			ticker := time.NewTicker(rl.Window)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					tb.Sweep()
				case <-sweepCtx.Done():
					return
				}
			}
		}()
	}

	return limiter, func() {
		stopSweep()
		limiter.Close()
		if client != nil {
			client.Close()
		}
	}, nil
}
