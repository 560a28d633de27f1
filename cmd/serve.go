package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kass/go-openroute/pkg/api"
	"github.com/kass/go-openroute/pkg/config"
	"github.com/kass/go-openroute/pkg/routing"
	"github.com/kass/go-openroute/pkg/tracing"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve routes over HTTP",
	Long: `Start the JSON HTTP API:
  GET /health
  GET /api/profiles
  GET /api/route?from=lat,lon&to=lat,lon[&via=lat,lon][&profile=car]`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (overrides "+config.EnvListenAddr+")")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	tp, shutdownTracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return err
	}

	client, log, err := newClient(cfg, routing.WithTracerProvider(tp))
	if err != nil {
		_ = shutdownTracer(context.Background())
		return err
	}
	defer func() { _ = log.Sync() }()

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           newHTTPHandler(cfg, client, log, tp),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", cfg.Server.ListenAddr),
			zap.String("language", string(client.Language())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
		return err
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Warn("failed to flush spans", zap.Error(err))
	}
	log.Info("HTTP server stopped")
	return nil
}

// newHTTPHandler wires the API routes behind a server span per request, so
// the routing client spans nest under the request that caused them
func newHTTPHandler(cfg *config.Config, routes api.RouteComputer, log *zap.Logger, tp trace.TracerProvider) http.Handler {
	handler := api.NewHandler(routes, log.Named("api"), cfg.Server.RouteTimeout)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	return otelhttp.NewHandler(router, cfg.Tracing.ServiceName,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
