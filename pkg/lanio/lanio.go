// Package lanio implements the per-LAN raw-socket receiver (spec.md §4.5)
// and the raw-socket transmitters the retransmit scheduler emits through
// (spec.md §4.7, design note "ownership of raw-socket transmitters").
// Socket construction is platform-specific (socket_linux.go / socket_other.go,
// mirroring the teacher's tcpinfo_linux.go / tcpinfo_other.go build-tag
// split); everything else here is portable.
package lanio

import (
	"fmt"

	"github.com/runZeroInc/pcsgw/pkg/bufpool"
)

// LANID distinguishes the two redundant process-bus segments.
type LANID uint8

const (
	LANA LANID = iota
	LANB
)

func (l LANID) String() string {
	if l == LANA {
		return "LAN-A"
	}
	return "LAN-B"
}

// EtherTypeGOOSE is the fixed GOOSE EtherType the receiver filters on
// before ever touching the buffer pool (spec.md §4.5).
const EtherTypeGOOSE = 0x88B8

// Frame is one accepted raw frame handed from a Receiver to the dispatch
// channel: the buffer it was copied into (its length is Buf.Len()) and
// which LAN it arrived on. The buffer must be released by the consumer.
type Frame struct {
	LAN LANID
	Buf *bufpool.Buffer
}

// looksLikeGOOSE applies the spec.md §4.5 Ethernet pre-filter without any
// allocation: accepts untagged frames with EtherType at [12:14), or
// 802.1Q-tagged frames (TPID 0x8100 at [12:14)) with EtherType at [16:18).
func looksLikeGOOSE(b []byte) bool {
	if len(b) < 14 {
		return false
	}
	if b[12] == 0x81 && b[13] == 0x00 {
		return len(b) >= 18 && b[16] == 0x88 && b[17] == 0xB8
	}
	return b[12] == 0x88 && b[13] == 0xB8
}

// Receiver owns one LAN's raw read socket. It is constructed by OpenReceiver
// (platform-specific) and run on a dedicated, ideally pinned, goroutine.
type Receiver struct {
	lan  LANID
	fd   int
	pool *bufpool.Pool

	dropped        int64
	channelFull    int64
	framesAccepted int64
}

// Stats is a point-in-time snapshot of a Receiver's counters, exported via
// pkg/metrics.
type Stats struct {
	Dropped        int64
	ChannelFull    int64
	FramesAccepted int64
}

func (r *Receiver) Stats() Stats {
	return Stats{Dropped: r.dropped, ChannelFull: r.channelFull, FramesAccepted: r.framesAccepted}
}

// Run blocks reading frames from the raw socket until stop is closed or a
// fatal socket error occurs. Every accepted frame is copied into a
// pool-acquired buffer and pushed non-blockingly onto dispatch; a full
// channel or an exhausted pool both result in a dropped frame, never a
// blocked receiver (spec.md §4.5, §7 transient runtime).
func (r *Receiver) Run(stop <-chan struct{}, dispatch chan<- Frame) error {
	raw := make([]byte, bufpool.MTU)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := rawRead(r.fd, raw)
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			return fmt.Errorf("lanio: %s receive: %w", r.lan, err)
		}
		if n < 14 || !looksLikeGOOSE(raw[:n]) {
			r.dropped++
			continue
		}

		buf, ok := r.pool.Acquire()
		if !ok {
			r.dropped++
			continue
		}
		copy(buf.Bytes(), raw[:n])
		buf.SetLen(n)

		select {
		case dispatch <- Frame{LAN: r.lan, Buf: buf}:
			r.framesAccepted++
		default:
			r.channelFull++
			buf.Release()
		}
	}
}

// Close releases the underlying socket.
func (r *Receiver) Close() error { return closeFD(r.fd) }

// Transmitter owns one LAN's raw send socket, the sole writer for that
// LAN's publisher emissions (design note: "exactly one owner per LAN").
type Transmitter struct {
	lan LANID
	fd  int

	sent   int64
	failed int64
}

// Send writes b as a single raw Ethernet frame. Failures are logged by the
// caller and do not stop emission on the peer LAN (spec.md §7 "send
// failure on one LAN (continue on the other)").
func (t *Transmitter) Send(b []byte) error {
	if err := rawWrite(t.fd, b); err != nil {
		t.failed++
		return fmt.Errorf("lanio: %s send: %w", t.lan, err)
	}
	t.sent++
	return nil
}

func (t *Transmitter) Sent() int64   { return t.sent }
func (t *Transmitter) Failed() int64 { return t.failed }
func (t *Transmitter) LAN() LANID    { return t.lan }
func (t *Transmitter) Close() error  { return closeFD(t.fd) }
