package loop

import "promptopt/internal/runner"

// DefaultPrompt is the starting template; {context} and {question} are filled per question.
const DefaultPrompt = "Answer the following question based on the provided context:\nContext:\n{context}\n\nQuestion:\n{question}"

// Phase names a state of the optimization loop.
type Phase string

const (
	PhaseEvaluating Phase = "evaluating"
	PhaseDeciding   Phase = "deciding"
	PhaseOptimizing Phase = "optimizing"
	PhaseTerminated Phase = "terminated"
)

// Termination names how a loop finished. It is empty while running or after a fatal error.
type Termination string

const (
	TerminationNone       Termination = ""
	TerminationSuccess    Termination = "success"
	TerminationMaxRetries Termination = "max_retries_exceeded"
)

// State is the only state carried across iterations.
type State struct {
	Prompt   string  `json:"prompt"`
	Feedback string  `json:"feedback,omitempty"`
	Score    float64 `json:"score"`
	// Valid is true when the latest pass left no failed facts. It is tracked
	// separately from the score threshold used for termination.
	Valid      bool `json:"valid"`
	RetryCount int  `json:"retry_count"`
}

// Iteration records one evaluate/decide round.
type Iteration struct {
	Number   int                     `json:"number"`
	Prompt   string                  `json:"prompt"`
	Score    float64                 `json:"score"`
	Valid    bool                    `json:"valid"`
	Feedback string                  `json:"feedback,omitempty"`
	Decision Decision                `json:"decision"`
	Report   runner.EvaluationReport `json:"report"`
}

// Outcome is what Run returns, including after a fatal error.
type Outcome struct {
	State        State       `json:"state"`
	Termination  Termination `json:"termination"`
	Iterations   []Iteration `json:"iterations"`
	ArtifactPath string      `json:"artifact_path,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// Terminated reports whether the loop reached a terminal state.
func (o Outcome) Terminated() bool {
	return o.Termination != TerminationNone
}

// LastReport returns the report of the final evaluation, if any.
func (o Outcome) LastReport() (runner.EvaluationReport, bool) {
	if len(o.Iterations) == 0 {
		return runner.EvaluationReport{}, false
	}
	return o.Iterations[len(o.Iterations)-1].Report, true
}
