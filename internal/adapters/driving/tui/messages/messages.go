// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

// AnswerReceived carries the outcome of a question back to the model.
type AnswerReceived struct {
	Question string
	Answer   string
	Err      error
}

// IngestCompleted carries the outcome of an /ingest command.
type IngestCompleted struct {
	Path   string
	Chunks int
	Err    error
}

// ErrorOccurred signals that an error happened outside a question.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
