//go:build linux

package rtthread

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

const pageSize = 4096

// Init applies cfg to the calling OS thread. It must run after
// runtime.LockOSThread on the goroutine that is meant to be pinned —
// callers are responsible for that, since rtthread has no way to enforce
// it.
func Init(cfg Config) Result {
	var res Result

	if cfg.LockMemory {
		flags := unix.MCL_CURRENT | unix.MCL_FUTURE
		if cfg.Caps != nil && cfg.Caps.SupportsMlock2 {
			// MCL_ONFAULT (Linux >= 4.4) locks pages on first fault
			// instead of faulting every page in up front, so the
			// mlockall call itself doesn't stall the pinned thread.
			flags |= unix.MCL_ONFAULT
		}
		if err := unix.Mlockall(flags); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("rtthread: mlockall: %w", err))
		} else {
			res.MemoryLocked = true
		}
	}

	if cfg.StackFaultBytes > 0 {
		prefaultStack(cfg.StackFaultBytes)
		res.StackPrefaulted = true
	}

	if cfg.CPU >= 0 {
		if err := setAffinity(cfg.CPU); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("rtthread: set affinity to cpu %d: %w", cfg.CPU, err))
		} else {
			res.AffinitySet = true
		}
	}

	if cfg.Priority > 0 {
		if err := setFIFOPriority(cfg.Priority); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("rtthread: set SCHED_FIFO priority %d: %w", cfg.Priority, err))
		} else {
			res.PrioritySet = true
		}
	}

	return res
}

// prefaultStack allocates an n-byte buffer and writes one byte in every
// pageSize stride, so those pages are faulted in (and, after mlockall with
// MCL_FUTURE, locked) before the hot path runs; runtime.KeepAlive keeps the
// compiler from eliding the writes. The buffer comes from make with a
// runtime size, so it lives on the heap: the goroutine's own stack is
// neither touched nor grown.
func prefaultStack(n int) {
	buf := make([]byte, n)
	for i := 0; i < len(buf); i += pageSize {
		buf[i] = 1
	}
	runtime.KeepAlive(buf)
}

func setAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

func setFIFOPriority(priority int) error {
	return unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: int32(priority)})
}
