package runner

import (
	"sync"
	"time"

	"promptopt/internal/benchmark"
	"promptopt/internal/grading"
)

// progressTracker bridges job updates to Observer callbacks and keeps the
// running pass rate. It is safe for concurrent jobs.
type progressTracker struct {
	observer  Observer
	items     []benchmark.Item
	mu        sync.Mutex
	completed int
	passed    int
	judged    int
}

// newProgressTracker returns nil when no observer is set.
func newProgressTracker(observer Observer, items []benchmark.Item) *progressTracker {
	if observer == nil {
		return nil
	}
	return &progressTracker{observer: observer, items: items}
}

func (p *progressTracker) start() {
	if p == nil {
		return
	}
	p.observer.OnBenchmarkStart(len(p.items))
	for index := range p.items {
		p.emit(index, ItemQueued, nil)
	}
}

func (p *progressTracker) emit(index int, eventType ItemEventType, result *grading.QuestionResult) {
	if p == nil || index < 0 || index >= len(p.items) {
		return
	}
	event := ItemEvent{
		Type:      eventType,
		Index:     index,
		Total:     len(p.items),
		Question:  p.items[index].Question,
		EmittedAt: time.Now(),
	}

	// events are delivered under the lock so Completed and PassRate are monotonic
	p.mu.Lock()
	defer p.mu.Unlock()
	if result != nil {
		p.completed++
		p.passed += result.PassedCount()
		p.judged += len(result.FactVerdicts)
		event.Score = result.Score
		event.Passed = result.PassedCount()
		event.Facts = len(result.FactVerdicts)
		event.Error = result.Error
	}
	event.Completed = p.completed
	if p.judged > 0 {
		event.PassRate = float64(p.passed) / float64(p.judged)
	}
	p.observer.OnItemEvent(event)
}

func (p *progressTracker) end(report EvaluationReport) {
	if p == nil {
		return
	}
	p.observer.OnBenchmarkEnd(report)
}
