//go:build !linux

package lanio

import (
	"fmt"
	"runtime"

	"github.com/runZeroInc/pcsgw/pkg/bufpool"
)

// AF_PACKET raw sockets are Linux-only; non-Linux builds compile (matching
// the teacher's pkg/tcpinfo/tcpinfo_other.go fallback) but every socket
// call fails with a clear error rather than silently no-opping.

func OpenReceiver(lan LANID, ifaceName string, pool *bufpool.Pool) (*Receiver, error) {
	return nil, fmt.Errorf("lanio: raw GOOSE sockets are unsupported on %s", runtime.GOOS)
}

func OpenTransmitter(lan LANID, ifaceName string) (*Transmitter, error) {
	return nil, fmt.Errorf("lanio: raw GOOSE sockets are unsupported on %s", runtime.GOOS)
}

func rawRead(fd int, buf []byte) (int, error) {
	return 0, fmt.Errorf("lanio: unsupported on %s", runtime.GOOS)
}

func rawWrite(fd int, b []byte) error {
	return fmt.Errorf("lanio: unsupported on %s", runtime.GOOS)
}

func closeFD(fd int) error { return nil }

func isInterrupted(err error) bool { return false }
