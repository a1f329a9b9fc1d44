package chat

import "errors"

// Sentinel errors for pipeline operations. Check with errors.Is.
var (
	// ErrEmptyMessage indicates the request carried no text.
	ErrEmptyMessage = errors.New("empty message")

	// ErrMessageTooLong indicates the message exceeds the accepted length.
	ErrMessageTooLong = errors.New("message too long")

	// ErrHistoryUnavailable indicates conversation history could not be
	// loaded. This is the one mid-pipeline failure that aborts the whole
	// request, since answering without history risks contradicting earlier
	// turns.
	ErrHistoryUnavailable = errors.New("history unavailable")

	// ErrGenerationFailed indicates the model produced no usable answer
	// after retries.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrCircuitOpen indicates the model circuit breaker is rejecting
	// requests after repeated upstream failures.
	ErrCircuitOpen = errors.New("circuit breaker open")
)
