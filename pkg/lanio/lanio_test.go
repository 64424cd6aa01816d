package lanio

import "testing"

func TestLooksLikeGOOSEUntagged(t *testing.T) {
	b := make([]byte, 20)
	b[12], b[13] = 0x88, 0xB8
	if !looksLikeGOOSE(b) {
		t.Fatal("expected untagged GOOSE frame to match")
	}
}

func TestLooksLikeGOOSEVLANTagged(t *testing.T) {
	b := make([]byte, 22)
	b[12], b[13] = 0x81, 0x00
	b[16], b[17] = 0x88, 0xB8
	if !looksLikeGOOSE(b) {
		t.Fatal("expected 802.1Q-tagged GOOSE frame to match")
	}
}

func TestLooksLikeGOOSERejectsOtherEtherType(t *testing.T) {
	b := make([]byte, 20)
	b[12], b[13] = 0x08, 0x00 // IPv4
	if looksLikeGOOSE(b) {
		t.Fatal("expected non-GOOSE EtherType to be rejected")
	}
}

func TestLooksLikeGOOSERejectsShortFrame(t *testing.T) {
	if looksLikeGOOSE(make([]byte, 10)) {
		t.Fatal("expected frame shorter than 14 bytes to be rejected")
	}
}

func TestLANIDString(t *testing.T) {
	if LANA.String() != "LAN-A" {
		t.Fatalf("unexpected LANA string: %s", LANA.String())
	}
	if LANB.String() != "LAN-B" {
		t.Fatalf("unexpected LANB string: %s", LANB.String())
	}
}
