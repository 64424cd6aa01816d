// Package retransmit implements the per-PCS publisher retransmission
// scheduler (spec.md §4.7 — "the hard core"): the IEC 61850-8-1
// exponential-backoff burst with instant wakeup on data change, emitting
// on both LANs.
package retransmit

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/pcsgw/internal/mapping"
	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
	"github.com/runZeroInc/pcsgw/pkg/lanio"
	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
	"github.com/runZeroInc/pcsgw/pkg/resetsignal"
)

// TMin and TMax bound the exponential backoff (spec.md §4.7).
const (
	TMin = 2 * time.Millisecond
	TMax = 5000 * time.Millisecond
)

// PCSSource is a nameplate-like record the scheduler needs to seed a
// frame; FromNameplates builds it from pkg/pcsstore.Nameplate values.
type PCSSource struct {
	LogicalID uint16
	PCSType   string
	GooseAPPID uint16
	MAC       [6]byte
	TPID      uint16
	TCI       uint16
	GocbRef   string
	DataSet   string
	GoID      string
	ConfRev   uint32
}

// FromNameplates projects a nameplate batch into the PCSSource slice New
// expects, in nameplate order.
func FromNameplates(nameplates []*pcsstore.Nameplate) []PCSSource {
	out := make([]PCSSource, 0, len(nameplates))
	for _, np := range nameplates {
		out = append(out, PCSSource{
			LogicalID:  np.LogicalID,
			PCSType:    np.PCSType,
			GooseAPPID: np.GooseAPPID,
			MAC:        np.MAC,
			TPID:       np.TPID,
			TCI:        np.TCI,
			GocbRef:    np.GocbRef,
			DataSet:    np.DataSet,
			GoID:       np.GoID,
			ConfRev:    np.ConfRev,
		})
	}
	return out
}

// Scheduler owns the full set of per-PCS publisher frames and the two LAN
// transmitters they are emitted through.
type Scheduler struct {
	mu     sync.RWMutex
	frames map[uint16]*frameState

	fieldMap mapping.FieldMap

	// canonicalStore supplies the feedback values encoded into allData.
	// Per design note: publisher frames are not stored inside PCS
	// records, so the scheduler reads the store by key every tick.
	canonicalStore *pcsstore.Store

	txA, txB *lanio.Transmitter
	reset    *resetsignal.Signal
	floor    time.Duration
	log      *logrus.Logger

	lan1Sent, lan2Sent     int64
	lan1Failed, lan2Failed int64
}

// New builds a Scheduler from the nameplate batch. floor is the minimum
// timeAllowedToLive advertised on any emission (spec.md §6.5
// "retransmit_floor_ms").
func New(sources []PCSSource, fieldMap mapping.FieldMap, canonicalStore *pcsstore.Store, txA, txB *lanio.Transmitter, reset *resetsignal.Signal, floor time.Duration, log *logrus.Logger) *Scheduler {
	s := &Scheduler{
		frames:         make(map[uint16]*frameState, len(sources)),
		fieldMap:       fieldMap,
		canonicalStore: canonicalStore,
		txA:            txA,
		txB:            txB,
		reset:          reset,
		floor:          floor,
		log:            log,
	}
	for _, src := range sources {
		s.frames[src.LogicalID] = &frameState{
			LogicalID: src.LogicalID,
			PCSType:   src.PCSType,
			GocbRef:   src.GocbRef,
			DatSet:    src.DataSet,
			GoID:      src.GoID,
			ConfRev:   src.ConfRev,
			Header: goosecodec.EthernetHeader{
				DstMAC: src.MAC,
				TPID:   src.TPID,
				TCI:    src.TCI,
				APPID:  src.GooseAPPID,
			},
			CurrentIntervalMS: TMin.Milliseconds(),
		}
	}
	return s
}

// Stats returns the per-LAN send counters spec.md §8 scenario 3 checks
// (lan1_sent, lan2_sent, and their failure counterparts).
type Stats struct {
	LAN1Sent, LAN2Sent     int64
	LAN1Failed, LAN2Failed int64
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		LAN1Sent:   atomic.LoadInt64(&s.lan1Sent),
		LAN2Sent:   atomic.LoadInt64(&s.lan2Sent),
		LAN1Failed: atomic.LoadInt64(&s.lan1Failed),
		LAN2Failed: atomic.LoadInt64(&s.lan2Failed),
	}
}

// Run blocks until stop is closed. It first waits for the reset signal's
// first firing (spec.md §4.7 "Startup": no GOOSE before the first real
// data), then runs the main backoff loop.
func (s *Scheduler) Run(stop <-chan struct{}) {
	if !s.reset.WaitForFirst(stop, 50*time.Millisecond) {
		return
	}
	for {
		select {
		case <-stop:
			return
		default:
		}
		sleepTarget := s.sleepTarget()
		signalled := s.reset.WaitTimeout(sleepTarget)
		select {
		case <-stop:
			return
		default:
		}
		s.tick(signalled, time.Now())
	}
}

// sleepTarget computes the minimum of all frames' next deadlines relative
// to now (spec.md §4.7 step 1).
func (s *Scheduler) sleepTarget() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	smallest := TMax
	for _, f := range s.frames {
		d := f.nextDeadline().Sub(now)
		if d < 0 {
			d = 0
		}
		if d < smallest {
			smallest = d
		}
	}
	return smallest
}

// tick processes one wakeup. If signalled, every frame is refreshed
// (instant burst reset); otherwise only frames whose deadline has arrived
// emit a timeout retransmission (spec.md §4.7 step 3). Encoding happens
// under the frames lock (bounded, non-blocking); sends happen after the
// lock is released (design note: "suspension across lock holds forbidden"
// — socket I/O must not happen while holding the frames lock).
func (s *Scheduler) tick(signalled bool, now time.Time) {
	type pending struct {
		frame *frameState
		buf   []byte
	}
	var toSend []pending

	s.mu.Lock()
	for _, f := range s.frames {
		due := signalled || !now.Before(f.nextDeadline())
		if !due {
			continue
		}

		if signalled {
			f.StNum++
			f.SqNum = 0
			f.CurrentIntervalMS = TMin.Milliseconds()
			f.LastDataChange = now
		} else {
			f.SqNum++
			next := f.CurrentIntervalMS * 2
			if time.Duration(next)*time.Millisecond > TMax {
				next = TMax.Milliseconds()
			}
			f.CurrentIntervalMS = next
		}

		ttlMS := f.CurrentIntervalMS
		if time.Duration(ttlMS)*time.Millisecond < s.floor {
			ttlMS = s.floor.Milliseconds()
		}

		pdu := goosecodec.GoosePDU{
			GocbRef:           f.GocbRef,
			TimeAllowedToLive: uint32(ttlMS),
			DatSet:            f.DatSet,
			GoID:              f.GoID,
			StNum:             f.StNum,
			SqNum:             f.SqNum,
			ConfRev:           f.ConfRev,
			AllData:           buildAllData(s.fieldMap[f.PCSType], s.currentValues(f.LogicalID)),
		}
		pdu.NumDatSetEntries = uint32(len(pdu.AllData))
		binary.BigEndian.PutUint64(pdu.T[:], uint64(now.UnixMilli()))

		size, err := goosecodec.EncodedSize(f.Header, pdu)
		if err != nil {
			s.log.WithError(err).WithField("logical_id", f.LogicalID).Warn("retransmit: size computation failed, skipping frame")
			continue
		}
		buf := make([]byte, size)
		if _, err := goosecodec.Encode(buf, 0, f.Header, pdu); err != nil {
			s.log.WithError(err).WithField("logical_id", f.LogicalID).Warn("retransmit: encode failed, skipping frame")
			continue
		}
		f.LastSend = now

		toSend = append(toSend, pending{frame: f, buf: buf})
	}
	s.mu.Unlock()

	for _, p := range toSend {
		if s.txA != nil {
			if err := s.txA.Send(p.buf); err != nil {
				atomic.AddInt64(&s.lan1Failed, 1)
				s.log.WithError(err).WithField("logical_id", p.frame.LogicalID).Warn("retransmit: LAN A send failed")
			} else {
				atomic.AddInt64(&s.lan1Sent, 1)
			}
		}
		if s.txB != nil {
			if err := s.txB.Send(p.buf); err != nil {
				atomic.AddInt64(&s.lan2Failed, 1)
				s.log.WithError(err).WithField("logical_id", p.frame.LogicalID).Warn("retransmit: LAN B send failed")
			} else {
				atomic.AddInt64(&s.lan2Sent, 1)
			}
		}
	}
}

// currentValues pulls the current feedback field values for logicalID out
// of the canonical store (spec.md §4.7 step 3 "pull the latest PCS
// state").
func (s *Scheduler) currentValues(logicalID uint16) map[string]any {
	var values map[string]any
	s.canonicalStore.View(logicalID, func(rec *pcsstore.Record) {
		values = rec.FieldValues()
	})
	if values == nil {
		values = map[string]any{}
	}
	return values
}
