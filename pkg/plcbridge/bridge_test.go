package plcbridge

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
	"github.com/runZeroInc/pcsgw/pkg/resetsignal"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestApplyBatchUpdatesBothStoresAndSignals(t *testing.T) {
	np := &pcsstore.Nameplate{LogicalID: 1, GooseAPPID: 8, PCSType: "x"}
	storeA := pcsstore.New([]*pcsstore.Nameplate{np}, time.Second, nil)
	storeB := pcsstore.New([]*pcsstore.Nameplate{np}, time.Second, nil)
	reset := resetsignal.New()
	b := &Bridge{storeA: storeA, storeB: storeB, reset: reset, log: testLogger()}

	b.applyBatch([]commandEntry{{LogicalID: 1, CmdProtocol: cmdBothActive, ActivePower: 5, ReactivePower: 6}})

	for _, s := range []*pcsstore.Store{storeA, storeB} {
		s.View(1, func(rec *pcsstore.Record) {
			if !rec.ActivePowerEnable || !rec.ReactivePowerEnable {
				t.Fatal("expected both enables set")
			}
			if rec.ActivePowerFeedback != 5 || rec.ReactivePowerFeedback != 6 {
				t.Fatalf("unexpected feedback values: %+v", rec)
			}
		})
	}
	if !reset.HasFired() {
		t.Fatal("expected reset signal to fire after applying a batch")
	}
}

func TestApplyBatchInactiveClearsFeedback(t *testing.T) {
	np := &pcsstore.Nameplate{LogicalID: 1, GooseAPPID: 8, PCSType: "x"}
	storeA := pcsstore.New([]*pcsstore.Nameplate{np}, time.Second, nil)
	b := &Bridge{storeA: storeA, reset: resetsignal.New(), log: testLogger()}

	b.applyBatch([]commandEntry{{LogicalID: 1, CmdProtocol: 0, ActivePower: 5, ReactivePower: 6}})

	storeA.View(1, func(rec *pcsstore.Record) {
		if rec.ActivePowerEnable || rec.ReactivePowerEnable {
			t.Fatal("expected both enables cleared for inactive cmd_protocol")
		}
		if rec.ActivePowerFeedback != 0 || rec.ReactivePowerFeedback != 0 {
			t.Fatalf("expected feedback cleared, got %+v", rec)
		}
	})
}

func TestSnapshotSortedByLogicalID(t *testing.T) {
	nps := []*pcsstore.Nameplate{
		{LogicalID: 3, GooseAPPID: 30, PCSType: "x"},
		{LogicalID: 1, GooseAPPID: 10, PCSType: "x"},
		{LogicalID: 2, GooseAPPID: 20, PCSType: "x"},
	}
	storeA := pcsstore.New(nps, time.Second, nil)
	b := &Bridge{storeA: storeA, log: testLogger()}
	rows := b.snapshot(storeA)
	if len(rows) != 3 || rows[0].LogicalID != 1 || rows[1].LogicalID != 2 || rows[2].LogicalID != 3 {
		t.Fatalf("expected sorted rows, got %+v", rows)
	}
}
