// Package guard switches binaries into test mode when imported by a test.
// It also supplies a throwaway ticket secret so configuration loads.
package guard

import "os"

func init() {
	if os.Getenv("ODYSSEY_TEST_MODE") == "" {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
	}
	if os.Getenv("TICKET_SECRET") == "" {
		_ = os.Setenv("TICKET_SECRET", "test-ticket-secret")
	}
}
