package enums

import "fmt"

// OutboxDLQErrorReason explains why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: handlers kept failing with retryable errors.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: a handler rejected the event outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUndecodable: the stored row could not be turned into a
	// delivery, so no handler ever ran.
	OutboxDLQReasonUndecodable OutboxDLQErrorReason = "undecodable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUndecodable:
		return true
	}
	return false
}

// Replayable reports whether an operator can reasonably requeue the event
// once the underlying handler is fixed.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	if r := OutboxDLQErrorReason(value); r.IsValid() {
		return r, nil
	}
	return "", fmt.Errorf("invalid dlq error reason %q", value)
}
