package enums

import "fmt"

// OutboxDLQErrorReason explains why an outbox event was dead-lettered.
type OutboxDLQErrorReason string

const (
	DLQReasonMaxAttemptsExceeded OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonInvalidPayload      OutboxDLQErrorReason = "invalid_payload"
	DLQReasonNonRetryable        OutboxDLQErrorReason = "non_retryable"
)

var validDLQErrorReasons = []OutboxDLQErrorReason{
	DLQReasonMaxAttemptsExceeded,
	DLQReasonInvalidPayload,
	DLQReasonNonRetryable,
}

// IsValid reports whether the value matches a known OutboxDLQErrorReason.
func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOutboxDLQErrorReason converts raw input into an OutboxDLQErrorReason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	for _, candidate := range validDLQErrorReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dlq error reason %q", value)
}
