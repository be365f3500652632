package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	return on
})

// InTestMode reports whether binaries should return before touching
// Postgres, Redis or Kafka. The flag is read once per process.
func InTestMode() bool {
	return testMode()
}
