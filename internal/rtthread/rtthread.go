// Package rtthread implements the real-time thread-init routine (spec.md
// §4.10): memory locking, memory pre-faulting, CPU affinity, and SCHED_FIFO
// priority for the pinned goroutines (per-LAN receivers, worker pool,
// retransmit scheduler, validity sweeper, PLC ingester).
package rtthread

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/pcsgw/internal/kernelcaps"
)

// Config describes one pinned thread's requested RT setup.
type Config struct {
	CPU      int // target core, 1..N; core 0 is reserved for the OS/main
	Priority int // SCHED_FIFO priority, 1..99
	LockMemory bool
	StackFaultBytes int // pre-fault this many bytes of a heap buffer in 4KB strides (see prefaultStack)

	// Caps decides whether LockMemory adds MCL_ONFAULT to the mlockall
	// flags (§4.11), so Init doesn't have to learn the answer by trying
	// the syscall and inspecting the error. Priority is not gated by Caps.
	Caps *kernelcaps.Capabilities
}

// Result reports which parts of Init actually succeeded. Every step is
// best-effort (spec.md §4.10 "non-fatal if it fails"; §7 "no fatal runtime
// errors").
type Result struct {
	MemoryLocked    bool
	StackPrefaulted bool
	AffinitySet     bool
	PrioritySet     bool
	Errors          []error
}

// AbsoluteSleepUntil sleeps until deadline using the monotonic clock. The
// scheduler prefers condition-variable waits for responsiveness (spec.md
// §4.10); no other package in this module calls it either.
func AbsoluteSleepUntil(deadline time.Time) {
	if d := time.Until(deadline); d > 0 {
		time.Sleep(d)
	}
}

// Run locks the calling goroutine to its own OS thread, applies the RT
// Config for the given core and SCHED_FIFO priority, logs whichever steps
// didn't take, and then runs fn on that pinned thread until stop is
// closed. It never exits early on a failed Init step (spec.md §4.10 "non-
// fatal if it fails"; §7 "no fatal runtime errors") — fn always runs.
func Run(core, priority int, stop <-chan struct{}, fn func(stop <-chan struct{}), caps *kernelcaps.Capabilities, log *logrus.Logger) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	res := Init(Config{
		CPU:             core,
		Priority:        priority,
		LockMemory:      true,
		StackFaultBytes: 8 << 20,
		Caps:            caps,
	})
	for _, err := range res.Errors {
		log.WithError(err).WithField("core", core).Warn("rtthread: RT setup step failed, continuing degraded")
	}

	fn(stop)
}
