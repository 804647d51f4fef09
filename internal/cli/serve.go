package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adibhanna/focusflow/internal/logging"
	"github.com/adibhanna/focusflow/internal/metrics"
	"github.com/adibhanna/focusflow/internal/ratelimit"
	"github.com/adibhanna/focusflow/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve background generation over HTTP",
	Long: `Runs an HTTP service with POST /api/generate-background, GET /healthz
and GET /metrics. Requests are rate limited per client IP when REDIS_ADDR is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default $HTTP_ADDR or :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.LogLevel, os.Stderr); err != nil {
		return err
	}
	if err := cfg.RequireReplicate(); err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}

	m := metrics.New()
	srv, err := server.New(server.Options{
		Addr:      cfg.HTTPAddr,
		Generator: newService(cfg, client, m),
		Limiter: ratelimit.New(client, ratelimit.Config{
			MaxRequests: cfg.RateLimitMax,
			Window:      cfg.RateLimitWindow,
		}),
		Metrics: m,
		Redis:   client,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
