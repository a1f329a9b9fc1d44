package chat

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for the whole package. The
// concurrency tests spawn request goroutines against shared sessions; a
// leak here means a request path that never released its session lock.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
