package runner

import "time"

// ItemEventType identifies a benchmark item status update for observers.
type ItemEventType string

const (
	// ItemQueued marks an item selected for the pass but not started.
	ItemQueued ItemEventType = "queued"
	// ItemAnswering marks an active QA call.
	ItemAnswering ItemEventType = "answering"
	// ItemGrading marks fact judgment in progress.
	ItemGrading ItemEventType = "grading"
	// ItemGraded marks an item whose facts were all judged.
	ItemGraded ItemEventType = "graded"
	// ItemFailed marks an item failed by the error policy.
	ItemFailed ItemEventType = "failed"
)

// ItemEvent carries a single status update for a benchmark item.
type ItemEvent struct {
	Type      ItemEventType
	Index     int
	Total     int
	Question  string
	Score     float64
	Passed    int
	Facts     int
	Completed int
	// PassRate is passed facts over judged facts across completed items.
	PassRate  float64
	Error     string
	EmittedAt time.Time
}

// Observer receives benchmark progress. It never affects the returned report.
type Observer interface {
	// OnBenchmarkStart signals the number of items selected for the pass.
	OnBenchmarkStart(total int)
	// OnItemEvent delivers an item status update.
	OnItemEvent(event ItemEvent)
	// OnBenchmarkEnd delivers the finished report.
	OnBenchmarkEnd(report EvaluationReport)
}

// MultiObserver fans events out to every non-nil observer.
type MultiObserver []Observer

func (m MultiObserver) OnBenchmarkStart(total int) {
	for _, o := range m {
		if o != nil {
			o.OnBenchmarkStart(total)
		}
	}
}

func (m MultiObserver) OnItemEvent(event ItemEvent) {
	for _, o := range m {
		if o != nil {
			o.OnItemEvent(event)
		}
	}
}

func (m MultiObserver) OnBenchmarkEnd(report EvaluationReport) {
	for _, o := range m {
		if o != nil {
			o.OnBenchmarkEnd(report)
		}
	}
}
