// Package guard forces test mode on for any package that imports it, so
// tests never start servers, workers, or outbound email.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LIT_TEST_MODE") == "" {
			_ = os.Setenv("LIT_TEST_MODE", "1")
		}
	})
}
