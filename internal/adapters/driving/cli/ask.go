package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askJSON        bool
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about ingested documents",
	Long: `Answers a question strictly from the ingested documents. Words after
"ask" are joined, so quoting the question is optional.`,
	Example: `  docsai ask "What is the refund policy?"
  docsai ask --json what changed in v2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the retrieved chunks before the answer")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	Answer  string   `json:"answer"`
	Context []string `json:"context,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if strings.TrimSpace(question) == "" {
		return errors.New("question required")
	}

	svc, err := loadServices(cmd, false)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var docs []string
	if askShowContext {
		if svc.Context == nil {
			return errors.New("context retrieval not available")
		}
		docs, err = svc.Context.RetrieveContext(ctx, question)
		if err != nil {
			return fmt.Errorf("retrieve failed: %w", err)
		}
	}

	answer, err := svc.Question.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(askOutput{Answer: answer, Context: docs}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if askShowContext {
		for i, d := range docs {
			cmd.Printf("--- context %d ---\n%s\n\n", i+1, d)
		}
	}
	cmd.Println(answer)
	return nil
}
