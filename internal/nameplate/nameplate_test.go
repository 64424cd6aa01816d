package nameplate

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io2Discard{})
	return l
}

type io2Discard struct{}

func (io2Discard) Write(p []byte) (int, error) { return len(p), nil }

func TestLoadValidRows(t *testing.T) {
	const doc = "logical_id,goose_appid,pcs_type,feed_line_id\n" +
		"1,8,PCS-100,1\n" +
		"2,9,PCS-100,2\n"
	nps, err := load(strings.NewReader(doc), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nps) != 2 {
		t.Fatalf("expected 2 nameplates, got %d", len(nps))
	}
	if nps[0].ConfRev != 1 {
		t.Fatalf("expected default conf_rev 1, got %d", nps[0].ConfRev)
	}
}

func TestLoadSkipsDuplicateLogicalID(t *testing.T) {
	const doc = "logical_id,goose_appid,pcs_type\n" +
		"1,8,PCS-100\n" +
		"1,9,PCS-100\n"
	nps, err := load(strings.NewReader(doc), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nps) != 1 {
		t.Fatalf("expected duplicate row to be skipped, got %d rows", len(nps))
	}
}

func TestLoadSkipsInvalidRow(t *testing.T) {
	const doc = "logical_id,goose_appid,pcs_type\n" +
		"0,8,PCS-100\n" +
		"2,9,PCS-100\n"
	nps, err := load(strings.NewReader(doc), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nps) != 1 || nps[0].LogicalID != 2 {
		t.Fatalf("expected only the valid row to survive, got %+v", nps)
	}
}

func TestLoadMissingRequiredColumn(t *testing.T) {
	const doc = "logical_id,pcs_type\n1,PCS-100\n"
	if _, err := load(strings.NewReader(doc), testLogger()); err == nil {
		t.Fatal("expected error for missing goose_appid column")
	}
}

func TestLoadParsesMACAndVLANFields(t *testing.T) {
	const doc = "logical_id,goose_appid,pcs_type,mac,tpid,tci\n" +
		"1,8,PCS-100,01:0c:cd:01:00:01,33024,32768\n"
	nps, err := load(strings.NewReader(doc), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nps) != 1 {
		t.Fatalf("expected 1 nameplate, got %d", len(nps))
	}
	want := [6]byte{0x01, 0x0c, 0xcd, 0x01, 0x00, 0x01}
	if nps[0].MAC != want {
		t.Fatalf("expected MAC %v, got %v", want, nps[0].MAC)
	}
	if nps[0].TPID != 33024 || nps[0].TCI != 32768 {
		t.Fatalf("expected TPID/TCI 33024/32768, got %d/%d", nps[0].TPID, nps[0].TCI)
	}
}

func TestLoadSkipsRowWithMalformedMAC(t *testing.T) {
	const doc = "logical_id,goose_appid,pcs_type,mac\n" +
		"1,8,PCS-100,not-a-mac\n" +
		"2,9,PCS-100,01:0c:cd:01:00:02\n"
	nps, err := load(strings.NewReader(doc), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nps) != 1 || nps[0].LogicalID != 2 {
		t.Fatalf("expected only the valid row to survive, got %+v", nps)
	}
}
