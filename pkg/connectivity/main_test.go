package connectivity

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that no store, poller or timer goroutine outlives its
// test. Every dispatch loop and polling loop must exit on Close.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
