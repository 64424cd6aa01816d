//go:build linux

package lanio

import (
	"fmt"
	"net"

	"github.com/runZeroInc/pcsgw/pkg/bufpool"
	"golang.org/x/sys/unix"
)

func htons(v uint16) uint16 { return (v<<8)&0xff00 | v>>8 }

func ifindex(name string) (int, error) {
	ifc, err := net.InterfaceByName(name)
	if err != nil {
		return 0, fmt.Errorf("lanio: resolve interface %q: %w", name, err)
	}
	return ifc.Index, nil
}

// OpenReceiver binds an AF_PACKET/SOCK_RAW socket to ifaceName filtering on
// EtherTypeGOOSE, mirroring the teacher's direct-syscall style for kernel
// structures it does not want net to abstract away (pkg/tcpinfo's
// RawTCPInfo is the same idea applied to kernel memory layout instead of a
// socket family).
func OpenReceiver(lan LANID, ifaceName string, pool *bufpool.Pool) (*Receiver, error) {
	idx, err := ifindex(ifaceName)
	if err != nil {
		return nil, err
	}
	proto := htons(EtherTypeGOOSE)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return nil, fmt.Errorf("lanio: %s socket: %w", lan, err)
	}
	sa := &unix.SockaddrLinklayer{Protocol: proto, Ifindex: idx}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("lanio: %s bind to %s: %w", lan, ifaceName, err)
	}
	return &Receiver{lan: lan, fd: fd, pool: pool}, nil
}

// OpenTransmitter binds a send-only AF_PACKET socket to ifaceName. GOOSE
// transmission always targets a specific interface and never relies on
// routing, so this bypasses the net package entirely (design note:
// "retransmission emission never goes through the Go net stack").
func OpenTransmitter(lan LANID, ifaceName string) (*Transmitter, error) {
	idx, err := ifindex(ifaceName)
	if err != nil {
		return nil, err
	}
	proto := htons(EtherTypeGOOSE)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return nil, fmt.Errorf("lanio: %s socket: %w", lan, err)
	}
	sa := &unix.SockaddrLinklayer{Protocol: proto, Ifindex: idx}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("lanio: %s bind to %s: %w", lan, ifaceName, err)
	}
	return &Transmitter{lan: lan, fd: fd}, nil
}

func rawRead(fd int, buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(fd, buf, 0)
	return n, err
}

func rawWrite(fd int, b []byte) error {
	_, err := unix.Write(fd, b)
	return err
}

func closeFD(fd int) error { return unix.Close(fd) }

func isInterrupted(err error) bool { return err == unix.EINTR }
