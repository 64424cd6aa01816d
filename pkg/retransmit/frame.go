package retransmit

import (
	"time"

	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
)

// frameState is one per-PCS publisher's retransmission state (spec.md
// §4.7 "Maintains a per-frame state"). All mutation happens under the
// Scheduler's single frames lock.
type frameState struct {
	LogicalID uint16
	Header    goosecodec.EthernetHeader
	GocbRef   string
	DatSet    string
	GoID      string
	ConfRev   uint32
	PCSType   string

	StNum uint32
	SqNum uint32

	CurrentIntervalMS int64
	LastSend          time.Time
	LastDataChange    time.Time
}

// nextDeadline is last_send + current_interval, the moment this frame is
// next due for a timeout retransmission.
func (f *frameState) nextDeadline() time.Time {
	return f.LastSend.Add(time.Duration(f.CurrentIntervalMS) * time.Millisecond)
}
