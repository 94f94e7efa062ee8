// Command researchbot-web serves the research assistant as a browser chat.
//
//	export GEMINI_API_KEY=...
//	go run ./cmd/researchbot-web -addr :8501
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Protocol-Lattice/research-agent/src/adk"
	"github.com/Protocol-Lattice/research-agent/src/config"
	"github.com/Protocol-Lattice/research-agent/src/logging"
	"github.com/Protocol-Lattice/research-agent/src/metrics"
	"github.com/Protocol-Lattice/research-agent/src/shell"
)

var (
	flagConfig   = flag.String("config", "", "Path to researchbot.yaml (default: ./researchbot.yaml if present)")
	flagAddr     = flag.String("addr", "", "Listen address (overrides web.addr)")
	flagProvider = flag.String("provider", "", "Override model provider: gemini|openai|anthropic|ollama|dummy")
	flagModel    = flag.String("model", "", "Override model ID for the selected provider")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fail(err)
	}
	if *flagAddr != "" {
		cfg.Web.Addr = *flagAddr
	}
	if *flagProvider != "" {
		cfg.Model.Provider = *flagProvider
	}
	if *flagModel != "" {
		cfg.Model.Name = *flagModel
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New(prometheus.DefaultRegisterer)
	kit, err := adk.New(ctx, cfg, adk.WithLogger(logger), adk.WithMetrics(recorder))
	if err != nil {
		fail(err)
	}
	defer kit.Close()

	web := shell.NewWeb(kit.Shell,
		shell.WithWebLogger(logger.With(map[string]any{"component": "web"})),
		shell.WithWebMetrics(recorder),
		shell.WithMetricsHandler(promhttp.Handler()),
	)
	srv := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           web,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web chat listening", map[string]any{"addr": cfg.Web.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped", nil)
		}
	case <-ctx.Done():
		logger.Info("shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("graceful shutdown failed", nil)
		}
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
