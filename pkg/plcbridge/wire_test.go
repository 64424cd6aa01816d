package plcbridge

import (
	"encoding/binary"
	"testing"
)

func buildIngress(entries []commandEntry) []byte {
	buf := make([]byte, ingressHeaderSize+len(entries)*ingressEntrySize)
	buf[0] = ingressProtocol
	binary.LittleEndian.PutUint16(buf[9:11], uint16(len(entries)))
	pos := ingressHeaderSize
	for _, e := range entries {
		binary.LittleEndian.PutUint16(buf[pos:pos+2], e.LogicalID)
		buf[pos+2] = e.CmdProtocol
		binary.LittleEndian.PutUint32(buf[pos+3:pos+7], bitsFromFloat32(e.ActivePower))
		binary.LittleEndian.PutUint32(buf[pos+7:pos+11], bitsFromFloat32(e.ReactivePower))
		pos += ingressEntrySize
	}
	return buf
}

func TestDecodeIngressRoundTrip(t *testing.T) {
	want := []commandEntry{
		{LogicalID: 1, CmdProtocol: cmdBothActive, ActivePower: 1.5, ReactivePower: -2.5},
		{LogicalID: 2, CmdProtocol: cmdActiveOnly, ActivePower: 3.25, ReactivePower: 0},
	}
	got, err := decodeIngress(buildIngress(want))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, want)
	}
}

func TestDecodeIngressRejectsWrongProtocol(t *testing.T) {
	b := buildIngress(nil)
	b[0] = 99
	if _, err := decodeIngress(b); err != errWrongProtocol {
		t.Fatalf("expected errWrongProtocol, got %v", err)
	}
}

func TestDecodeIngressRejectsSizeMismatch(t *testing.T) {
	b := buildIngress([]commandEntry{{LogicalID: 1}})
	b = b[:len(b)-1]
	if _, err := decodeIngress(b); err != errSizeMismatch {
		t.Fatalf("expected errSizeMismatch, got %v", err)
	}
}

func TestDecodeIngressRejectsTooShort(t *testing.T) {
	if _, err := decodeIngress(make([]byte, 5)); err != errTooShort {
		t.Fatalf("expected errTooShort, got %v", err)
	}
}

func TestEncodeEgressLayout(t *testing.T) {
	lanA := []imageEntry{{LogicalID: 1, IsValid: true, ActivePower: 10}}
	lanB := []imageEntry{{LogicalID: 2, IsValid: false, ActivePower: 20}}
	buf := encodeEgress(42, lanA, lanB)

	if buf[0] != egressProtocol {
		t.Fatalf("expected protocol byte %d, got %d", egressProtocol, buf[0])
	}
	if got := binary.LittleEndian.Uint16(buf[1:3]); got != 2 {
		t.Fatalf("expected number_of_pcs=2, got %d", got)
	}
	if got := binary.LittleEndian.Uint64(buf[3:11]); got != 42 {
		t.Fatalf("expected lifecounter=42, got %d", got)
	}
	if len(buf) != egressHeaderSize+2*egressEntrySize {
		t.Fatalf("unexpected total length %d", len(buf))
	}

	secondRowID := binary.LittleEndian.Uint16(buf[egressHeaderSize+egressEntrySize : egressHeaderSize+egressEntrySize+2])
	if secondRowID != 2 {
		t.Fatalf("expected LAN B row to follow LAN A row, got logical_id %d", secondRowID)
	}
}
