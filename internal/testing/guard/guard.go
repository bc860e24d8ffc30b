// Package guard forces test mode when imported for side effects, so binaries
// under test return before dialling Postgres, Redis or SMTP.
package guard

import (
	"os"
	"sync"
)

// EnvVar is the switch read by app.InTestMode.
const EnvVar = "LEKKA_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
