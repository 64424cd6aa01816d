package workerpool

import (
	"time"

	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
	"github.com/runZeroInc/pcsgw/pkg/goosevalue"
	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
)

func nowForFrame() time.Time { return time.Now() }

func (p *Pool) bothStores() [2]*pcsstore.Store {
	return [2]*pcsstore.Store{p.storeA, p.storeB}
}

// applyCommands implements spec.md §4.6.1. ids is the sorted list of
// logical_ids this PMS command frame controls (N = len(ids)); pdu.AllData
// must carry 4N entries laid out as N boolean pairs followed by N float32
// pairs. Per §9 open question 1 each controlled record is mutated on both
// LAN stores, since the PLC image unifies them. It reports whether at
// least one record was actually mutated, the trigger condition for
// signalling a reset.
func (p *Pool) applyCommands(ids []uint16, pdu goosecodec.GoosePDU) (mutated bool) {
	n := len(ids)
	want := 4 * n
	if len(pdu.AllData) < want {
		p.log.WithField("have", len(pdu.AllData)).WithField("want", want).
			Warn("workerpool: PMS command frame too short, dropping batch")
		return false
	}

	for i, logicalID := range ids {
		activeEnable, activeEnableOK := boolAt(pdu.AllData, 2*i)
		reactiveEnable, reactiveEnableOK := boolAt(pdu.AllData, 2*i+1)
		activeSetpoint, activeOK := f32At(pdu.AllData, 2*n+2*i)
		reactiveSetpoint, reactiveOK := f32At(pdu.AllData, 2*n+2*i+1)

		for _, store := range p.bothStores() {
			store.WithRecord(logicalID, func(rec *pcsstore.Record) {
				if activeEnableOK {
					rec.ActivePowerEnable = activeEnable
				}
				rec.ActivePowerInvalid = !activeEnableOK || !activeOK
				if activeEnableOK && activeOK {
					if activeEnable {
						rec.ActivePowerFeedback = activeSetpoint
					} else {
						rec.ActivePowerFeedback = 0.0
					}
				}

				if reactiveEnableOK {
					rec.ReactivePowerEnable = reactiveEnable
				}
				rec.ReactivePowerInvalid = !reactiveEnableOK || !reactiveOK
				if reactiveEnableOK && reactiveOK {
					if reactiveEnable {
						rec.ReactivePowerFeedback = reactiveSetpoint
					} else {
						rec.ReactivePowerFeedback = 0.0
					}
				}
				mutated = true
			})
		}
	}
	return mutated
}

func boolAt(vals []goosevalue.Value, i int) (bool, bool) {
	if i < 0 || i >= len(vals) || vals[i].Kind != goosevalue.KindBoolean {
		return false, false
	}
	return vals[i].Bool, true
}

func f32At(vals []goosevalue.Value, i int) (float32, bool) {
	if i < 0 || i >= len(vals) || vals[i].Kind != goosevalue.KindFloat32 {
		return 0, false
	}
	return vals[i].F32, true
}
