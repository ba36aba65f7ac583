package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsai/internal/connectors/filesystem"
)

var (
	ingestWatch    string
	ingestDebounce = filesystem.DefaultDebounce
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf...]",
	Short: "Add PDFs to the knowledge base",
	Long: `Extracts text from each PDF, splits it into chunks, embeds the chunks and
stores them in the vector store.

With --watch, every PDF already in the directory is ingested and the
command keeps running, ingesting PDFs as they are added or changed.`,
	Example: `  docsai ingest handbook.pdf policies.pdf
  docsai ingest --watch ~/papers`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestWatch, "watch", "w", "", "directory to watch for PDFs")
	ingestCmd.Flags().DurationVar(&ingestDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && ingestWatch == "" {
		return errors.New("requires at least one PDF or --watch")
	}

	svc, err := loadServices(cmd, ingestWatch != "")
	if err != nil {
		return err
	}
	defer closeServices(svc)

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var failed int
	for _, arg := range args {
		path := filesystem.ResolvePath(arg)
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			cmd.PrintErrf("Skipping %s: only PDF supported\n", path)
			failed++
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("Failed to read %s: %v\n", path, err)
			failed++
			continue
		}
		n, err := svc.Ingest.Ingest(ctx, data, filepath.Base(path))
		if err != nil {
			cmd.PrintErrf("Failed to ingest %s: %v\n", path, err)
			failed++
			continue
		}
		printIngested(cmd, path, n)
	}

	if ingestWatch != "" {
		if err := watchDirectory(cmd, svc); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func watchDirectory(cmd *cobra.Command, svc *Services) error {
	// Watching runs until interrupted, so --timeout does not apply.
	ctx := cmd.Context()

	w := filesystem.NewWatcher(ingestWatch, svc.Ingest, filesystem.WithDebounce(ingestDebounce))
	defer w.Close()

	existing, err := w.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan %s: %w", ingestWatch, err)
	}
	for _, r := range existing {
		printResult(cmd, r)
	}

	results, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s for PDFs (Ctrl+C to stop)\n", ingestWatch)
	for r := range results {
		printResult(cmd, r)
	}
	return nil
}

func printResult(cmd *cobra.Command, r filesystem.Result) {
	if r.Err != nil {
		cmd.PrintErrf("Failed to ingest %s: %v\n", r.Path, r.Err)
		return
	}
	printIngested(cmd, r.Path, r.Chunks)
}

func printIngested(cmd *cobra.Command, path string, n int) {
	if n == 0 {
		cmd.Printf("%s: no text found\n", path)
		return
	}
	cmd.Printf("%s: %d chunks\n", path, n)
}
