// Command docsai answers questions about PDF documents.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docsai/internal/adapters/driving/cli"
	"github.com/custodia-labs/docsai/internal/bootstrap"
	"github.com/custodia-labs/docsai/internal/config"
	"github.com/custodia-labs/docsai/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetServiceLoader(loadServices)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadServices reads the configuration and opens every client.
func loadServices(ctx context.Context, configPath string, validate bool) (*cli.Services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if lvl, ok := logger.ParseLevel(cfg.LogLevel); ok && !logger.IsVerbose() {
		logger.SetLevel(lvl)
	}

	var opts []bootstrap.Option
	if validate {
		opts = append(opts, bootstrap.WithValidation())
	}
	rt, err := bootstrap.New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &cli.Services{
		Config:   rt.Config,
		Ingest:   rt.Ingest,
		Question: rt.Question,
		Context:  rt.Question,
		Metrics:  rt.Metrics,
		Health:   rt.Healthy,
		Close:    rt.Close,
	}, nil
}
