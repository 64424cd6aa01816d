package pcsstore

import (
	"time"

	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
)

// UpdateFromGoose resolves appid via the index, locks the one matching
// record's shard, and delegates to the subscription state machine
// (spec.md §4.3 "update_from_goose"). ok is false when the APPID is
// unknown (the frame did not match any configured PCS goose_appid; PMS
// command APPIDs are not in this index, so they always report ok=false).
// accepted and events mirror Outcome for the caller to log and count.
func (s *Store) UpdateFromGoose(appid uint16, hdr goosecodec.EthernetHeader, pdu goosecodec.GoosePDU, now time.Time) (logicalID uint16, accepted bool, events []string, ok bool) {
	logicalID, _, found := s.ResolveAPPID(appid)
	if !found {
		return 0, false, nil, false
	}
	var outcome Outcome
	present := s.WithRecord(logicalID, func(rec *Record) {
		outcome = applySubscription(rec, hdr, pdu, now, s.ttlGrace)
		if outcome.Accepted {
			if bp, ok := s.bytePositions[rec.Nameplate.PCSType]; ok {
				applyBytePositions(rec, bp)
			}
		}
	})
	if !present {
		return logicalID, false, nil, false
	}
	return logicalID, outcome.Accepted, outcome.Events, true
}

// CheckValidity scans every record and applies the TTL invalidation rule
// (spec.md §4.8 / §8 "TTL invalidation"): a record becomes invalid once
// now reaches its invalidity_deadline, or — if that deadline is unset but
// last_update is set — once more than defaultStaleAfter has elapsed since
// last_update. A record with neither set (no GOOSE ever accepted) is never
// valid. It returns the logical_ids that transitioned in each direction
// this sweep.
func (s *Store) CheckValidity(now time.Time) (becameInvalid, becameValid []uint16) {
	for _, id := range s.Keys() {
		s.WithRecord(id, func(rec *Record) {
			shouldBeValid := true
			if !rec.InvalidityDeadline.IsZero() {
				shouldBeValid = now.Before(rec.InvalidityDeadline)
			} else if !rec.LastUpdate.IsZero() {
				shouldBeValid = now.Sub(rec.LastUpdate) <= defaultStaleAfter
			} else {
				shouldBeValid = false
			}

			if rec.StateValid && !shouldBeValid {
				rec.StateValid = false
				becameInvalid = append(becameInvalid, id)
			} else if !rec.StateValid && shouldBeValid && !rec.LastUpdate.IsZero() {
				rec.StateValid = true
				becameValid = append(becameValid, id)
			}
		})
	}
	return becameInvalid, becameValid
}

// defaultStaleAfter is the spec.md §4.8 fallback window used when a
// record has a last_update but no invalidity_deadline. applySubscription
// always sets both together, so this path is only reached by a record
// whose fields were set some other way.
const defaultStaleAfter = 10 * time.Second
