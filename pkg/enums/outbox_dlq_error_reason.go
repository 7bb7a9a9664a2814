package enums

import "fmt"

// OutboxDLQErrorReason explains why an event was parked in the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts       OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable      OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonUnroutable        OutboxDLQErrorReason = "unroutable"
	OutboxDLQReasonInvalidPayload    OutboxDLQErrorReason = "invalid_payload"
	OutboxDLQReasonTopicUnconfigured OutboxDLQErrorReason = "topic_unconfigured"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonUnroutable,
	OutboxDLQReasonInvalidPayload,
	OutboxDLQReasonTopicUnconfigured,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOutboxDLQErrorReason converts raw input into OutboxDLQErrorReason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	r := OutboxDLQErrorReason(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid outbox dlq reason %q", value)
	}
	return r, nil
}
