//go:build !linux

package rtthread

import (
	"fmt"
	"runtime"
)

// Init is a no-op reporting every RT primitive as unavailable; none of
// mlockall, CPU affinity, or SCHED_FIFO exist as modeled here outside
// Linux.
func Init(cfg Config) Result {
	err := fmt.Errorf("rtthread: RT primitives are unsupported on %s", runtime.GOOS)
	return Result{Errors: []error{err}}
}
