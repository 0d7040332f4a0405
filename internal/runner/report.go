package runner

import "promptopt/internal/grading"

// FailureReason is one failed fact, flattened out of its question result.
type FailureReason struct {
	Question string `json:"question"`
	Fact     string `json:"fact"`
	Reason   string `json:"reason"`
}

// EvaluationReport aggregates one benchmark pass.
type EvaluationReport struct {
	OverallScore   float64                  `json:"overall_score"`
	FailureReasons []FailureReason          `json:"failure_reasons"`
	Results        []grading.QuestionResult `json:"results"`
	ItemErrors     int                      `json:"item_errors"`
}

// Valid reports whether the pass left no failed facts.
func (r EvaluationReport) Valid() bool {
	return len(r.FailureReasons) == 0
}

// BuildReport averages per-question scores and flattens failures by item then fact.
// An empty result set scores 0.0.
func BuildReport(results []grading.QuestionResult) EvaluationReport {
	report := EvaluationReport{
		FailureReasons: []FailureReason{},
		Results:        results,
	}
	if report.Results == nil {
		report.Results = []grading.QuestionResult{}
	}
	if len(results) == 0 {
		return report
	}
	total := 0.0
	for _, result := range results {
		total += result.Score
		if result.Error != "" {
			report.ItemErrors++
		}
		for _, verdict := range result.FactVerdicts {
			if verdict.Passed {
				continue
			}
			report.FailureReasons = append(report.FailureReasons, FailureReason{
				Question: result.Question,
				Fact:     verdict.Fact,
				Reason:   verdict.Reason,
			})
		}
	}
	report.OverallScore = total / float64(len(results))
	return report
}
