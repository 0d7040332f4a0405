package grading

// FactVerdict is the pass/fail judgment of one required fact against one answer.
type FactVerdict struct {
	Fact   string `json:"fact"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
	// Error is set when the fact was failed because no judgment could be made.
	Error string `json:"error,omitempty"`
}

// QuestionResult holds the graded answer for one benchmark question.
type QuestionResult struct {
	Question     string        `json:"question"`
	Response     string        `json:"response"`
	Score        float64       `json:"score"`
	FactVerdicts []FactVerdict `json:"fact_verdicts"`
	Error        string        `json:"error,omitempty"`
}

// PassedCount returns the number of passed verdicts.
func (r QuestionResult) PassedCount() int {
	count := 0
	for _, verdict := range r.FactVerdicts {
		if verdict.Passed {
			count++
		}
	}
	return count
}

// Failed returns the failed verdicts in fact order.
func (r QuestionResult) Failed() []FactVerdict {
	var failed []FactVerdict
	for _, verdict := range r.FactVerdicts {
		if !verdict.Passed {
			failed = append(failed, verdict)
		}
	}
	return failed
}

// Score returns passed/total, or 1.0 for an empty fact list.
func Score(verdicts []FactVerdict) float64 {
	if len(verdicts) == 0 {
		return 1.0
	}
	passed := 0
	for _, verdict := range verdicts {
		if verdict.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(verdicts))
}
