package config

import (
	"errors"

	"promptopt/internal/benchmark"
)

// issueAdder adds a validation issue to a shared collector.
type issueAdder func(field, message string)

// issueCollector accumulates validation issues, dropping exact repeats so a
// field named by several duplicate entries is reported once.
type issueCollector struct {
	issues []Issue
	seen   map[Issue]struct{}
}

func (c *issueCollector) add(field, message string) {
	issue := Issue{Field: field, Message: message}
	if c.seen == nil {
		c.seen = map[Issue]struct{}{}
	}
	if _, ok := c.seen[issue]; ok {
		return
	}
	c.seen[issue] = struct{}{}
	c.issues = append(c.issues, issue)
}

// addBenchmark folds a benchmark load error into field. Each benchmark issue
// becomes its own entry with the item path in the message.
func addBenchmark(add issueAdder, field string, err error) {
	var benchErr *benchmark.ValidationError
	if !errors.As(err, &benchErr) || len(benchErr.Issues) == 0 {
		add(field, err.Error())
		return
	}
	for _, issue := range benchErr.Issues {
		add(field, issue.Field+": "+issue.Message)
	}
}

func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}
