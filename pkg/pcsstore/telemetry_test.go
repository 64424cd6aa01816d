package pcsstore

import (
	"testing"
	"time"

	"github.com/runZeroInc/pcsgw/internal/mapping"
	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
	"github.com/runZeroInc/pcsgw/pkg/goosevalue"
)

func bytePositionStore(t *testing.T) (*Store, *Nameplate) {
	t.Helper()
	np := &Nameplate{LogicalID: 1, PCSType: "PCS-100", GooseAPPID: 8, ConfRev: 1}
	bpm := mapping.BytePositionMap{
		"PCS-100": mapping.BytePositions{
			MaxCharge:               0,
			MaxDischarge:            1,
			MaxInductive:            2,
			MaxCapacitive:           3,
			SOC:                     4,
			Status:                  5,
			ControllableStatusCodes: []uint8{1},
		},
	}
	return New([]*Nameplate{np}, 5*time.Second, bpm), np
}

func TestUpdateFromGooseExtractsBytePositions(t *testing.T) {
	s, np := bytePositionStore(t)
	pdu := pduWith(1, 0, 1, 100)
	pdu.AllData = []goosevalue.Value{
		goosevalue.Float32Value(10),
		goosevalue.Float32Value(20),
		goosevalue.Float32Value(30),
		goosevalue.Float32Value(40),
		goosevalue.Float32Value(55.5),
		goosevalue.Integer(8, 1),
	}
	pdu.NumDatSetEntries = uint32(len(pdu.AllData))

	if _, accepted, _, ok := s.UpdateFromGoose(np.GooseAPPID, goosecodec.EthernetHeader{}, pdu, time.Now()); !ok || !accepted {
		t.Fatal("expected update to be accepted")
	}

	s.View(np.LogicalID, func(rec *Record) {
		if rec.MaxCharge != 10 || rec.MaxDischarge != 20 || rec.MaxInductive != 30 || rec.MaxCapacitive != 40 {
			t.Fatalf("unexpected max* fields: %+v", rec)
		}
		if rec.SOC != 55.5 {
			t.Fatalf("expected SOC 55.5, got %v", rec.SOC)
		}
		if !rec.IsControllable {
			t.Fatal("expected status code 1 to be controllable")
		}
	})
}

func TestUpdateFromGooseOutOfBoundsYieldsInvalidSentinel(t *testing.T) {
	s, np := bytePositionStore(t)
	pdu := pduWith(1, 0, 1, 100)
	pdu.AllData = []goosevalue.Value{goosevalue.Float32Value(10)} // too short for any of the mapped positions beyond MaxCharge
	pdu.NumDatSetEntries = uint32(len(pdu.AllData))

	if _, accepted, _, ok := s.UpdateFromGoose(np.GooseAPPID, goosecodec.EthernetHeader{}, pdu, time.Now()); !ok || !accepted {
		t.Fatal("expected update to be accepted")
	}

	s.View(np.LogicalID, func(rec *Record) {
		if rec.MaxCharge != 10 {
			t.Fatalf("expected in-bounds MaxCharge to decode normally, got %v", rec.MaxCharge)
		}
		if rec.MaxDischarge != mapping.InvalidValue {
			t.Fatalf("expected out-of-bounds MaxDischarge to be the INVALID sentinel, got %v", rec.MaxDischarge)
		}
		if rec.IsControllable {
			t.Fatal("expected missing status position to report not controllable")
		}
	})
}

func TestUpdateFromGooseTypeMismatchYieldsInvalidSentinel(t *testing.T) {
	s, np := bytePositionStore(t)
	pdu := pduWith(1, 0, 1, 100)
	pdu.AllData = []goosevalue.Value{
		goosevalue.Boolean(true), // wrong kind at the MaxCharge position
		goosevalue.Float32Value(20),
		goosevalue.Float32Value(30),
		goosevalue.Float32Value(40),
		goosevalue.Float32Value(50),
		goosevalue.Integer(8, 9), // not in ControllableStatusCodes
	}
	pdu.NumDatSetEntries = uint32(len(pdu.AllData))

	if _, accepted, _, ok := s.UpdateFromGoose(np.GooseAPPID, goosecodec.EthernetHeader{}, pdu, time.Now()); !ok || !accepted {
		t.Fatal("expected update to be accepted")
	}

	s.View(np.LogicalID, func(rec *Record) {
		if rec.MaxCharge != mapping.InvalidValue {
			t.Fatalf("expected type-mismatched MaxCharge to be the INVALID sentinel, got %v", rec.MaxCharge)
		}
		if rec.IsControllable {
			t.Fatal("expected status code 9 to not be controllable")
		}
	})
}

func TestUpdateFromGooseUnmappedPCSTypeLeavesFieldsZero(t *testing.T) {
	np := &Nameplate{LogicalID: 1, PCSType: "unmapped", GooseAPPID: 8, ConfRev: 1}
	s := New([]*Nameplate{np}, 5*time.Second, mapping.BytePositionMap{})

	pdu := pduWith(1, 0, 1, 100)
	pdu.AllData = []goosevalue.Value{goosevalue.Float32Value(10)}
	pdu.NumDatSetEntries = uint32(len(pdu.AllData))

	if _, accepted, _, ok := s.UpdateFromGoose(np.GooseAPPID, goosecodec.EthernetHeader{}, pdu, time.Now()); !ok || !accepted {
		t.Fatal("expected update to be accepted")
	}
	s.View(np.LogicalID, func(rec *Record) {
		if rec.MaxCharge != 0 {
			t.Fatalf("expected unmapped pcs_type to leave MaxCharge untouched, got %v", rec.MaxCharge)
		}
	})
}
