package trigger

import "fmt"

// InvalidEventError reports a trigger event without usable resources.
type InvalidEventError struct {
	Reason string
}

func (e *InvalidEventError) Error() string {
	return e.Reason
}

// MalformedRuleArnError reports a resource identifier without a "rule/<name>" suffix.
type MalformedRuleArnError struct {
	ARN string
}

func (e *MalformedRuleArnError) Error() string {
	return fmt.Sprintf("Invalid rule ARN format. Could not extract rule name from %q.", e.ARN)
}
