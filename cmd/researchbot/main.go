// Command researchbot is the terminal research assistant.
//
// Examples:
//
//	export GEMINI_API_KEY=...
//	go run ./cmd/researchbot
//
//	export OPENAI_API_KEY=...
//	go run ./cmd/researchbot -provider openai -model gpt-4o-mini -query "Tell me about France"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Protocol-Lattice/research-agent/src/adk"
	"github.com/Protocol-Lattice/research-agent/src/config"
	"github.com/Protocol-Lattice/research-agent/src/logging"
	"github.com/Protocol-Lattice/research-agent/src/metrics"
	"github.com/Protocol-Lattice/research-agent/src/shell"
)

var (
	flagConfig   = flag.String("config", "", "Path to researchbot.yaml (default: ./researchbot.yaml if present)")
	flagProvider = flag.String("provider", "", "Override model provider: gemini|openai|anthropic|ollama|dummy")
	flagModel    = flag.String("model", "", "Override model ID for the selected provider")
	flagQuery    = flag.String("query", "", "Answer a single query and exit")
	flagNoSave   = flag.Bool("no-save", false, "Do not archive answers")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fail(err)
	}
	if *flagProvider != "" {
		cfg.Model.Provider = *flagProvider
	}
	if *flagModel != "" {
		cfg.Model.Name = *flagModel
	}
	if *flagNoSave {
		cfg.Shell.AutoSave = false
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kit, err := adk.New(ctx, cfg,
		adk.WithLogger(logger),
		adk.WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	if err != nil {
		fail(err)
	}

	cli := shell.NewCLI(kit.Shell, os.Stdin, os.Stdout)
	if *flagQuery != "" {
		err = cli.RunOnce(ctx, *flagQuery)
	} else {
		err = cli.Run(ctx)
	}
	if cerr := kit.Close(); cerr != nil {
		logger.WithError(cerr).Warn("shutdown", nil)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("conversation ended with an error", map[string]any{"session": cli.SessionID()})
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
