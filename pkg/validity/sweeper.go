// Package validity implements the periodic TTL sweep (spec.md §4.8) over
// both LAN PCS stores.
package validity

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
)

// Sweeper periodically invalidates stale records on both LAN stores.
type Sweeper struct {
	storeA, storeB *pcsstore.Store
	interval       time.Duration
	log            *logrus.Logger
}

// New builds a Sweeper with the configured interval (spec.md §6.5
// "validity interval (ms)", default 5000ms).
func New(storeA, storeB *pcsstore.Store, interval time.Duration, log *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5000 * time.Millisecond
	}
	return &Sweeper{storeA: storeA, storeB: storeB, interval: interval, log: log}
}

// Run blocks, sweeping on a fixed interval until stop is closed.
func (s *Sweeper) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.sweep(pcsstoreLAN{s.storeA, "lan-a"}, now)
			s.sweep(pcsstoreLAN{s.storeB, "lan-b"}, now)
		}
	}
}

type pcsstoreLAN struct {
	store *pcsstore.Store
	name  string
}

func (s *Sweeper) sweep(lan pcsstoreLAN, now time.Time) {
	if lan.store == nil {
		return
	}
	becameInvalid, becameValid := lan.store.CheckValidity(now)
	if len(becameInvalid) > 0 {
		s.log.WithField("lan", lan.name).WithField("logical_ids", becameInvalid).Info("validity: records became invalid")
	}
	if len(becameValid) > 0 {
		s.log.WithField("lan", lan.name).WithField("logical_ids", becameValid).Info("validity: records became valid")
	}
}

// SweepOnce runs a single synchronous sweep of both stores, exposed for
// tests and for a manual/administrative trigger.
func (s *Sweeper) SweepOnce(now time.Time) {
	s.sweep(pcsstoreLAN{s.storeA, "lan-a"}, now)
	s.sweep(pcsstoreLAN{s.storeB, "lan-b"}, now)
}
