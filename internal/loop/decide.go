package loop

const (
	// DefaultThreshold is the score a pass must exceed to succeed.
	DefaultThreshold = 0.8
	// DefaultMaxRetries is the retry budget; the loop stops once retry_count exceeds it.
	DefaultMaxRetries = 3
)

// Decision is the outcome of the Deciding phase.
type Decision string

const (
	DecisionSuccess    Decision = "success"
	DecisionMaxRetries Decision = "max_retries_exceeded"
	DecisionOptimize   Decision = "optimize"
)

// Policy holds the termination constants.
type Policy struct {
	Threshold  float64
	MaxRetries int
}

// DefaultPolicy returns threshold 0.8 and a retry budget of 3.
func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, MaxRetries: DefaultMaxRetries}
}

// Decide applies the policy. Both comparisons are strict: a score equal to the
// threshold does not succeed, and retryCount equal to MaxRetries still optimizes.
func Decide(score float64, retryCount int, policy Policy) Decision {
	if score > policy.Threshold {
		return DecisionSuccess
	}
	if retryCount > policy.MaxRetries {
		return DecisionMaxRetries
	}
	return DecisionOptimize
}
