//go:build linux

// Package kernelcaps detects the running kernel's version once at startup
// and derives boolean real-time capability flags from it, the same
// table-driven pattern the teacher uses in pkg/linux/init.go to size
// RawTCPInfo per kernel version — here applied to gating RT thread
// primitives instead of a struct layout.
package kernelcaps

import (
	"fmt"

	"github.com/docker/docker/pkg/parsers/kernel"
)

// Capabilities are the RT primitives internal/rtthread may rely on,
// derived from the kernel version detected at startup.
type Capabilities struct {
	Version *kernel.VersionInfo

	// SupportsMlock2 gates adding MCL_ONFAULT to the mlockall call
	// (Linux >= 4.4), which locks pages as they fault instead of all at
	// once; older kernels get the same mlockall without that flag.
	SupportsMlock2 bool
	// SupportsSchedSetattr records whether sched_setattr is available
	// (Linux >= 3.14) for a future reset-on-fork-safe SCHED_FIFO path;
	// rtthread currently always uses plain sched_setscheduler.
	SupportsSchedSetattr bool
}

type versionedCap struct {
	version kernel.VersionInfo
	flag    *bool
}

// Detect parses the running kernel version and returns the derived
// Capabilities. It never panics: a failure to read the version (e.g. in a
// container with a masked /proc) degrades every flag to false rather than
// aborting startup, since RT primitives are all best-effort (spec.md §4.10
// "non-fatal if it fails").
func Detect() (*Capabilities, error) {
	v, err := kernel.GetKernelVersion()
	if err != nil {
		return &Capabilities{}, fmt.Errorf("kernelcaps: get kernel version: %w", err)
	}
	c := &Capabilities{Version: v}

	table := []versionedCap{
		{version: kernel.VersionInfo{Kernel: 3, Major: 14, Minor: 0}, flag: &c.SupportsSchedSetattr},
		{version: kernel.VersionInfo{Kernel: 4, Major: 4, Minor: 0}, flag: &c.SupportsMlock2},
	}
	for _, e := range table {
		if kernel.CompareKernelVersion(*v, e.version) >= 0 {
			*e.flag = true
		}
	}
	return c, nil
}
