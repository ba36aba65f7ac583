package domain

// Stage is a state of the question-answering pipeline.
type Stage string

// Pipeline stages, in order. Answered is terminal.
const (
	StageStart     Stage = "start"
	StageRetrieved Stage = "retrieved"
	StageAnswered  Stage = "answered"
)

// PipelineState is the record threaded through one question-answering run.
// It is owned by a single invocation and never shared.
type PipelineState struct {
	// Question is the question as asked.
	Question string

	// Docs holds the retrieved chunk texts, nearest first.
	// Nil until the retrieve stage completes.
	Docs []string

	// Answer is the generated answer, empty until the generate stage completes.
	Answer string

	// Stage is the current state.
	Stage Stage

	// CacheHit records whether Docs came from the query cache.
	CacheHit bool
}

// NewPipelineState starts a pipeline run for question.
func NewPipelineState(question string) PipelineState {
	return PipelineState{Question: question, Stage: StageStart}
}
