// Package testing is blank-imported by test files to force test mode
// before any package init can spin up runtime side effects.
package testing

import (
	"os"
	stdtesting "testing"

	_ "github.com/lit-program/lit-portal/internal/testing/guard"
)

func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
