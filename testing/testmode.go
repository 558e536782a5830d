// Package testing switches the process into test mode when imported from a
// test binary, so guarded start-up paths refuse to run.
package testing

import (
	"os"
	"sync"
)

// EnvTestMode is the variable app.InTestMode inspects.
const EnvTestMode = "ODYSSEY_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(EnvTestMode, "1")
	})
}

func init() {
	ensureTestMode()
}
