package workerpool

import (
	"sync"
	"time"

	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
)

// PMSSubscription is spec.md §3's "PMS subscription": per-PMS-APPID
// freshness state tracked independently of any PCS record. A PMS command
// frame's APPID is never a goose_appid a Store's index resolves (spec.md
// §4.6.1), so this subscription carries its own stored PDU, last_update
// and invalidity_deadline rather than piggybacking on pkg/pcsstore.
// ControlledIDs is the sorted list of logical_ids this PMS frame's
// allData addresses; it is set once at construction and read-only
// afterwards.
type PMSSubscription struct {
	ControlledIDs []uint16

	mu                 sync.Mutex
	lastPDU            goosecodec.GoosePDU
	lastUpdate         time.Time
	invalidityDeadline time.Time
	stateValid         bool
}

// PMSSubscriptions is pms_command_pcs_mapping's APPID keys promoted to
// live subscription state, one per PMS APPID for the life of the process
// (spec.md §3 "PMS subscriptions exist for program lifetime").
type PMSSubscriptions map[uint16]*PMSSubscription

// NewPMSSubscriptions builds one PMSSubscription per PMS APPID present in
// pms, each starting with no stored PDU (so its first frame is always
// accepted as an initial update, mirroring pkg/pcsstore's newRecord).
func NewPMSSubscriptions(pms PMSMapping) PMSSubscriptions {
	subs := make(PMSSubscriptions, len(pms))
	for appid, ids := range pms {
		subs[appid] = &PMSSubscription{ControlledIDs: ids}
	}
	return subs
}

// accept runs the same stNum/sqNum/confRev freshness test pkg/pcsstore
// applies to PCS records (spec.md §4.4) against this PMS subscription's
// own stored state, so a stale or out-of-order PMS frame is rejected
// before its commands ever reach applyCommands.
func (p *PMSSubscription) accept(pdu goosecodec.GoosePDU, now time.Time, ttlGrace time.Duration) (accepted bool, events []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	accepted, events = pcsstore.EvaluateFreshness(p.lastPDU.StNum, p.lastPDU.SqNum, p.lastPDU.ConfRev, pdu.StNum, pdu.SqNum, pdu.ConfRev)
	if !accepted {
		if containsEvent(events, pcsstore.EventSequenceError) {
			p.stateValid = false
		}
		return false, events
	}

	p.lastPDU = pdu.Clone()
	p.lastUpdate = now
	ttl := time.Duration(pdu.TimeAllowedToLive) * time.Millisecond
	p.invalidityDeadline = now.Add(2*ttl + ttlGrace)
	p.stateValid = true
	return true, events
}

// Valid reports whether this PMS link has been heard from recently enough
// to still trust its last accepted command (spec.md §3: "a PMS link going
// silent is ... detectable").
func (p *PMSSubscription) Valid(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invalidityDeadline.IsZero() {
		return false
	}
	return now.Before(p.invalidityDeadline) && p.stateValid
}

func containsEvent(events []string, want string) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}
