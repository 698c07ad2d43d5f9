// Command semnet-server serves the knowledge base over GraphQL with health,
// readiness and Prometheus endpoints. SIGHUP reloads the dataset, as does an
// edit of the dataset file when dataset.watch is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-semnet/pkg/config"
	"github.com/dd0wney/cluso-semnet/pkg/dataset"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
	"github.com/dd0wney/cluso-semnet/pkg/server"
)

const metricsInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML config file (SEMNET_* variables override it)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Log.Level))
	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server exited with error", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	app, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.server.StartMetricsUpdater(ctx, metricsInterval)

	if cfg.Dataset.Watch {
		w, err := dataset.NewWatcher(cfg.Dataset.Path, dataset.DefaultDebounce, app.server.Reload, logger)
		if err != nil {
			return fmt.Errorf("watch dataset: %w", err)
		}
		go w.Run(ctx)
	}

	gs := server.NewGracefulServer(cfg.Server.Addr, app.server.Handler(), logger)
	gs.SetShutdownTimeout(cfg.Server.ShutdownTimeout)
	gs.SetReloadFunc(app.server.Reload)
	if app.tls != nil {
		gs.SetTLSConfig(app.tls)
	}

	st := app.server.Engine().Store().Statistics()
	logger.Info("semnet server starting",
		logging.String("addr", cfg.Server.Addr),
		logging.Int("nodes", st.Nodes),
		logging.Int("relations", st.Relations),
		logging.Bool("auth", cfg.Server.AuthEnabled),
		logging.Bool("tls", app.tls != nil),
		logging.String("snapshot_backend", cfg.Snapshot.Backend),
	)
	return gs.Run(ctx)
}
