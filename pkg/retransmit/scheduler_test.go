package retransmit

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/pcsgw/internal/mapping"
	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
	"github.com/runZeroInc/pcsgw/pkg/resetsignal"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestScheduler(t *testing.T) (*Scheduler, *pcsstore.Store) {
	t.Helper()
	np := &pcsstore.Nameplate{LogicalID: 1, GooseAPPID: 8, PCSType: "PCS-100", GocbRef: "ld/LLN0$GO$gcb1", ConfRev: 1}
	store := pcsstore.New([]*pcsstore.Nameplate{np}, time.Second, nil)
	fm := mapping.FieldMap{"PCS-100": {
		{Name: "active_power_enable", Type: mapping.FieldBoolean},
		{Name: "active_power", Type: mapping.FieldFloat},
	}}
	sources := []PCSSource{{LogicalID: 1, PCSType: "PCS-100", GooseAPPID: 8, GocbRef: np.GocbRef, ConfRev: 1}}
	s := New(sources, fm, store, nil, nil, resetsignal.New(), 100*time.Millisecond, testLogger())
	return s, store
}

func TestTickSignalledResetsSqNumAndBumpsStNum(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.frames[1].StNum = 5
	s.frames[1].SqNum = 9
	s.frames[1].CurrentIntervalMS = 256

	s.tick(true, time.Now())

	f := s.frames[1]
	if f.StNum != 6 {
		t.Fatalf("expected stNum incremented to 6, got %d", f.StNum)
	}
	if f.SqNum != 0 {
		t.Fatalf("expected sqNum reset to 0, got %d", f.SqNum)
	}
	if f.CurrentIntervalMS != TMin.Milliseconds() {
		t.Fatalf("expected interval reset to TMin, got %d", f.CurrentIntervalMS)
	}
}

func TestTickTimeoutBacksOffGeometrically(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.frames[1].StNum = 1
	s.frames[1].SqNum = 0
	s.frames[1].CurrentIntervalMS = TMin.Milliseconds()
	s.frames[1].LastSend = time.Now().Add(-time.Second)

	now := time.Now()
	s.tick(false, now)
	if s.frames[1].SqNum != 1 {
		t.Fatalf("expected sqNum incremented, got %d", s.frames[1].SqNum)
	}
	if s.frames[1].StNum != 1 {
		t.Fatalf("expected stNum unchanged on timeout, got %d", s.frames[1].StNum)
	}
	if s.frames[1].CurrentIntervalMS != 4 {
		t.Fatalf("expected interval doubled to 4ms, got %d", s.frames[1].CurrentIntervalMS)
	}
}

func TestTickCapsIntervalAtTMax(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.frames[1].CurrentIntervalMS = TMax.Milliseconds()
	s.frames[1].LastSend = time.Now().Add(-time.Hour)

	s.tick(false, time.Now())
	if s.frames[1].CurrentIntervalMS != TMax.Milliseconds() {
		t.Fatalf("expected interval capped at TMax, got %d", s.frames[1].CurrentIntervalMS)
	}
}

func TestBuildAllDataUsesCurrentFeedback(t *testing.T) {
	s, store := newTestScheduler(t)
	store.WithRecord(1, func(rec *pcsstore.Record) {
		rec.ActivePowerEnable = true
		rec.ActivePowerFeedback = 12.5
	})
	s.frames[1].LastSend = time.Now().Add(-time.Hour)
	s.tick(false, time.Now())
	// tick ran without panicking and encode succeeded silently (nil transmitters
	// are tolerated); verify the frame's sqNum advanced as proof the allData
	// build + encode path executed.
	if s.frames[1].SqNum == 0 {
		t.Fatal("expected tick to have processed the due frame")
	}
	// The allData tick encodes is built from the store's current feedback.
	vals := buildAllData(s.fieldMap["PCS-100"], s.currentValues(1))
	if len(vals) != 2 || !vals[0].Bool || vals[1].F32 != 12.5 {
		t.Fatalf("expected allData [true 12.5] from current feedback, got %+v", vals)
	}
}
