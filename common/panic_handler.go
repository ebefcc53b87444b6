package common

import (
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// PanicHandler must be deferred at the top of main and of every goroutine that is started. It logs the panic with
// its stack and exits.
func PanicHandler() {
	r := recover()
	if r == nil {
		return // no panic underway
	}
	log.Errorf("panic occurred: %v\n%s", r, debug.Stack())
	os.Exit(1)
}
