package benchmark

import (
	"fmt"
	"strings"
)

// Issue captures a validation problem in a benchmark file.
type Issue struct {
	Field   string
	Message string
}

// ValidationError reports one or more validation issues.
type ValidationError struct {
	Issues []Issue
}

func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return fmt.Sprintf("benchmark validation failed: %s", strings.Join(parts, "; "))
}

type issueCollector struct {
	issues []Issue
}

func (collector *issueCollector) add(field, message string) {
	collector.issues = append(collector.issues, Issue{Field: field, Message: message})
}

func (collector *issueCollector) result() error {
	if len(collector.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: collector.issues}
}

// NormalizeSet trims whitespace and validates a benchmark set.
func NormalizeSet(set Set) (Set, error) {
	collector := &issueCollector{}
	if set.Version == 0 {
		collector.add("version", "is required")
	} else if set.Version != 1 {
		collector.add("version", fmt.Sprintf("unsupported version %d", set.Version))
	}
	if len(set.Items) == 0 {
		collector.add("items", "must include at least one entry")
	}

	seen := map[string]struct{}{}
	for i, item := range set.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		item.Question = strings.TrimSpace(item.Question)
		if item.Question == "" {
			collector.add(prefix+".question", "is required")
		} else if _, exists := seen[item.Question]; exists {
			collector.add(prefix+".question", fmt.Sprintf("duplicate question %q", item.Question))
		} else {
			seen[item.Question] = struct{}{}
		}

		facts := make([]string, 0, len(item.RequiredFacts))
		for factIndex, fact := range item.RequiredFacts {
			fact = strings.TrimSpace(fact)
			if fact == "" {
				collector.add(fmt.Sprintf("%s.required_facts[%d]", prefix, factIndex), "is required")
			}
			facts = append(facts, fact)
		}
		if len(facts) == 0 {
			collector.add(prefix+".required_facts", "must include at least one entry")
		}
		item.RequiredFacts = facts
		set.Items[i] = item
	}

	if err := collector.result(); err != nil {
		return Set{}, err
	}
	return set, nil
}
