// Package cli implements the docsai command line.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsai/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docsai/internal/config"
	"github.com/custodia-labs/docsai/internal/core/ports/driving"
	"github.com/custodia-labs/docsai/internal/logger"
	"github.com/custodia-labs/docsai/internal/metrics"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services bundles what the commands run against.
type Services struct {
	Config   *config.Config
	Ingest   driving.IngestService
	Question driving.QuestionService

	// Context exposes retrieval without generation. Optional.
	Context mcp.ContextRetriever

	Metrics *metrics.Metrics

	// Health reports whether the vector store answers. Optional.
	Health func(ctx context.Context) error

	// Close releases clients. Optional.
	Close func() error
}

// ServiceLoader builds services from the --config path. validate asks the
// loader to check provider credentials before returning.
type ServiceLoader func(ctx context.Context, configPath string, validate bool) (*Services, error)

var serviceLoader ServiceLoader

// SetServiceLoader sets how commands obtain their services.
func SetServiceLoader(l ServiceLoader) {
	serviceLoader = l
}

// Persistent flags.
var (
	configPath string
	verbose    bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "docsai",
	Short: "Ask questions about your PDFs",
	Long: `docsai ingests PDF documents into a vector store and answers questions
strictly from their content.

Ingest documents, then ask:
  docsai ingest handbook.pdf
  docsai ask "What is the refund policy?"

Or run the HTTP API:
  docsai serve`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.docsai/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "abort the command after this long (0 = no limit)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadServices builds services for cmd. The caller must call closeServices.
func loadServices(cmd *cobra.Command, validate bool) (*Services, error) {
	if serviceLoader == nil {
		return nil, errors.New("services not configured")
	}
	svc, err := serviceLoader(cmd.Context(), configPath, validate)
	if err != nil {
		return nil, err
	}
	if svc.Question == nil || svc.Ingest == nil {
		closeServices(svc)
		return nil, errors.New("services not configured")
	}
	return svc, nil
}

func closeServices(svc *Services) {
	if svc == nil || svc.Close == nil {
		return
	}
	if err := svc.Close(); err != nil {
		logger.Warn("closing services: %v", err)
	}
}

// commandContext applies --timeout to the command's context.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}
