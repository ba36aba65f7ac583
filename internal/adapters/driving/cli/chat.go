package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docsai/internal/adapters/driving/tui"
)

// isTerminal is replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runProgram is replaced in tests.
var runProgram = func(app *tui.App) error {
	_, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents in the terminal",
	Long: `Opens an interactive chat over the ingested documents.

Controls:
  Enter           - Ask
  PgUp/PgDn       - Scroll the transcript
  Ctrl+L          - Clear the transcript
  Esc / Ctrl+C    - Quit

Type "/ingest path/to/file.pdf" to add a document without leaving the chat.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if !isTerminal() {
		return errors.New("chat requires an interactive terminal; use 'docsai ask' instead")
	}

	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	svc, err := loadServices(cmd, true)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	app, err := tui.NewApp(&tui.Ports{
		Question: svc.Question,
		Ingest:   svc.Ingest,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := runProgram(app); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
