// Package workerpool implements the fixed-size GOOSE decode worker pool
// (spec.md §4.6), including PMS command extraction (§4.6.1). Workers are
// the only writers of PCS feedback fields driven by PMS commands; the
// retransmit scheduler only ever reads them.
package workerpool

import (
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
	"github.com/runZeroInc/pcsgw/pkg/lanio"
	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
	"github.com/runZeroInc/pcsgw/pkg/resetsignal"
)

// PMSMapping is pms_command_pcs_mapping from spec.md §4.6.1: GOOSE APPID of
// a PMS command frame -> the sorted list of logical_ids it controls.
type PMSMapping map[uint16][]uint16

// BuildPMSMapping groups nameplates by their PMSAPPID, producing the
// sorted-by-logical_id lists §4.6.1 indexes allData positions by.
func BuildPMSMapping(nameplates []*pcsstore.Nameplate) PMSMapping {
	byAPPID := make(map[uint16][]uint16)
	for _, np := range nameplates {
		if np.PMSAPPID == 0 {
			continue
		}
		byAPPID[np.PMSAPPID] = append(byAPPID[np.PMSAPPID], np.LogicalID)
	}
	for appid := range byAPPID {
		ids := byAPPID[appid]
		for i := 1; i < len(ids); i++ {
			for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
				ids[j-1], ids[j] = ids[j], ids[j-1]
			}
		}
		byAPPID[appid] = ids
	}
	return byAPPID
}

// Pool is the fixed-size decode worker pool. Per spec.md §9 open question
// 1, an accepted PMS command is applied to the controlled logical_id's
// record on BOTH LAN stores, since the PLC image unifies them.
type Pool struct {
	storeA, storeB *pcsstore.Store
	pmsSubs        PMSSubscriptions
	ttlGrace       time.Duration
	reset          *resetsignal.Signal
	log            *logrus.Logger

	workers int
}

// New builds a Pool of the given worker count. pmsSubs is the per-PMS-APPID
// subscription state built by NewPMSSubscriptions; ttlGrace is the same
// grace period pkg/pcsstore applies to PCS records' invalidity_deadline,
// reused here for PMS subscriptions (spec.md §3).
func New(workers int, storeA, storeB *pcsstore.Store, pmsSubs PMSSubscriptions, ttlGrace time.Duration, reset *resetsignal.Signal, log *logrus.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, storeA: storeA, storeB: storeB, pmsSubs: pmsSubs, ttlGrace: ttlGrace, reset: reset, log: log}
}

// Run starts the pool's workers and blocks until stop is closed and every
// worker has drained dispatch and exited.
func (p *Pool) Run(stop <-chan struct{}, dispatch <-chan lanio.Frame) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(stop, dispatch)
		}()
	}
	wg.Wait()
}

func (p *Pool) worker(stop <-chan struct{}, dispatch <-chan lanio.Frame) {
	for {
		select {
		case <-stop:
			return
		case f, ok := <-dispatch:
			if !ok {
				return
			}
			p.handle(f)
		}
	}
}

func (p *Pool) storeFor(lan lanio.LANID) *pcsstore.Store {
	if lan == lanio.LANA {
		return p.storeA
	}
	return p.storeB
}

// handle decodes one frame and routes it to both possible subscribers of
// its APPID. The two routes are independent: a PMS command frame's APPID
// is never a PCS's goose_appid (spec.md §4.6.1), so store.UpdateFromGoose
// resolving nothing for it must never prevent PMS command dispatch, and
// vice versa.
func (p *Pool) handle(f lanio.Frame) {
	defer f.Buf.Release()

	hdr, pdu, err := goosecodec.Decode(f.Buf.Data(), 0)
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{"lan": f.LAN, "correlation_id": xid.New().String()}).Debug("workerpool: malformed GOOSE, dropping")
		return
	}

	if sub, isPMS := p.pmsSubs[hdr.APPID]; isPMS {
		p.handlePMS(f.LAN, hdr, pdu, sub)
	}

	store := p.storeFor(f.LAN)
	logicalID, _, events, ok := store.UpdateFromGoose(hdr.APPID, hdr, pdu, nowForFrame())
	if !ok {
		return
	}
	for _, ev := range events {
		p.log.WithFields(logrus.Fields{"lan": f.LAN, "logical_id": logicalID, "event": ev, "correlation_id": xid.New().String()}).Info("workerpool: protocol event")
	}
}

// handlePMS runs the PMS subscription's own freshness test (spec.md §3/
// §4.4) before extracting and applying its setpoint commands, so a stale
// or out-of-order PMS frame never mutates a PCS record.
func (p *Pool) handlePMS(lan lanio.LANID, hdr goosecodec.EthernetHeader, pdu goosecodec.GoosePDU, sub *PMSSubscription) {
	accepted, events := sub.accept(pdu, nowForFrame(), p.ttlGrace)
	correlationID := xid.New().String()
	for _, ev := range events {
		p.log.WithFields(logrus.Fields{"lan": lan, "appid": hdr.APPID, "event": ev, "correlation_id": correlationID}).Info("workerpool: PMS protocol event")
	}
	if !accepted {
		return
	}
	if p.applyCommands(sub.ControlledIDs, pdu) {
		p.reset.Set()
	}
}
