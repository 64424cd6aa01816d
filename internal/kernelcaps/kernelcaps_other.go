//go:build !linux

package kernelcaps

import (
	"fmt"
	"runtime"

	"github.com/docker/docker/pkg/parsers/kernel"
)

// Capabilities mirrors the Linux variant's shape so callers compile
// unconditionally; every flag is false off Linux.
type Capabilities struct {
	Version *kernel.VersionInfo

	SupportsMlock2       bool
	SupportsSchedSetattr bool
}

// Detect always reports no RT capabilities on non-Linux platforms, since
// the RT primitives themselves (internal/rtthread) are Linux syscalls.
func Detect() (*Capabilities, error) {
	return &Capabilities{}, fmt.Errorf("kernelcaps: unsupported on %s", runtime.GOOS)
}
