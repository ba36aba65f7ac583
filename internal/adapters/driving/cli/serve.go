package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsai/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docsai/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API:

  POST /upload   multipart form with a "file" field holding a PDF
  POST /ask      {"question": "..."}
  GET  /healthz  vector store health
  GET  /metrics  Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.`,
	Example: `  docsai serve
  docsai serve --addr 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from config, :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd, true)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	cfg := svc.Config.Server
	addr := serveAddr
	if addr == "" {
		addr = cfg.Addr
	}

	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	server := httpapi.New(httpapi.Config{
		Ingest:         svc.Ingest,
		Question:       svc.Question,
		Metrics:        svc.Metrics,
		Health:         svc.Health,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		RequestTimeout: cfg.RequestTimeout.Duration,
	})

	fmt.Fprintf(cmd.OutOrStdout(), "docsai listening on %s\n", addr)
	return server.Run(cmd.Context(), addr)
}
