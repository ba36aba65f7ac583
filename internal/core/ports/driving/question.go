package driving

import "context"

// QuestionService answers questions from ingested documents.
type QuestionService interface {
	// Ask answers question strictly from retrieved context.
	// A blank question fails with domain.ErrEmptyQuestion.
	Ask(ctx context.Context, question string) (string, error)
}
