package pcsstore

import (
	"time"

	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
)

// Outcome reports what the subscription state machine (spec.md §4.4) did
// with one incoming (header, PDU) pair. Events lists every protocol-event
// log line that should accompany the decision — more than one can fire
// together (e.g. a reconfiguration that also happens to carry a decreased
// stNum).
type Outcome struct {
	Accepted bool
	Events   []string
}

const (
	EventRestart              = "restart"
	EventReconfiguration      = "reconfiguration"
	EventMissedStateChanges   = "missed-state-changes"
	EventRetransmission       = "retransmission"
	EventSequenceError        = "sequence-error"
	EventStNumDecreaseFlagged = "stnum-decrease-flagged"
)

// A backward jump in stNum larger than restartGap, from a prior stNum
// above restartFloor, is treated as a publisher restart rather than a
// sequence error (spec.md §4.4 rule 1); a jump of exactly restartGap is not.
const restartFloor = 100
const restartGap = 100

// EvaluateFreshness implements the spec.md §4.4 stNum/sqNum/confRev
// freshness test in isolation from any particular storage shape, so every
// GOOSE subscriber this gateway runs — a PCS record here, a PMS command
// frame's own subscription in pkg/workerpool — applies the identical rule.
// prev* is the subscriber's previously stored state; st1/sq1/cr1 is the
// incoming PDU's.
func EvaluateFreshness(prevStNum, prevSqNum, prevConfRev, st1, sq1, cr1 uint32) (accepted bool, events []string) {
	st0, sq0, cr0 := prevStNum, prevSqNum, prevConfRev

	restart := st0 > restartFloor && st1 < st0 && (st0-st1) > restartGap
	reconfig := cr1 != cr0
	newer := st1 > st0 || (st1 == st0 && sq1 > sq0) || reconfig || restart

	if !newer {
		switch {
		case st1 == st0 && sq1 == sq0:
			events = append(events, EventRetransmission)
		case st1 == st0 && sq1 < sq0:
			events = append(events, EventSequenceError)
		}
		return false, events
	}

	if restart {
		events = append(events, EventRestart)
	}
	if reconfig {
		events = append(events, EventReconfiguration)
	}
	if st1 > st0 && st1-st0 > 1 {
		events = append(events, EventMissedStateChanges)
	}
	if st1 < st0 && !restart {
		events = append(events, EventStNumDecreaseFlagged)
	}
	return true, events
}

// applySubscription implements the freshness test and accept/reject logic
// of spec.md §4.4 against rec, which the caller must already hold the
// owning shard's lock for. now is the wall-clock accept timestamp;
// ttlGrace is added to 2x the PDU's timeAllowedToLive to compute the next
// invalidity deadline.
func applySubscription(rec *Record, hdr goosecodec.EthernetHeader, pdu goosecodec.GoosePDU, now time.Time, ttlGrace time.Duration) Outcome {
	accepted, events := EvaluateFreshness(rec.LastPDU.StNum, rec.LastPDU.SqNum, rec.LastPDU.ConfRev, pdu.StNum, pdu.SqNum, pdu.ConfRev)

	if !accepted {
		if containsEvent(events, EventSequenceError) {
			rec.StateValid = false
		}
		return Outcome{Accepted: false, Events: events}
	}

	rec.LastHeader = hdr
	rec.LastPDU = pdu.Clone()
	rec.LastUpdate = now
	ttl := time.Duration(pdu.TimeAllowedToLive) * time.Millisecond
	rec.InvalidityDeadline = now.Add(2*ttl + ttlGrace)
	rec.StateValid = true

	return Outcome{Accepted: true, Events: events}
}

func containsEvent(events []string, want string) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}
