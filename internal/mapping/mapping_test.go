package mapping

import (
	"strings"
	"testing"
)

func TestDecodeFieldMap(t *testing.T) {
	const doc = `{
		"PCS-100": [
			{"field_name": "active_power_enable", "type_tag": "boolean"},
			{"field_name": "active_power", "type_tag": "float"}
		]
	}`
	fm, err := decodeFieldMap(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx := fm.IndexOf("PCS-100", "active_power"); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if idx := fm.IndexOf("PCS-100", "missing"); idx != -1 {
		t.Fatalf("expected -1 for missing field, got %d", idx)
	}
	if idx := fm.IndexOf("unknown-type", "x"); idx != -1 {
		t.Fatalf("expected -1 for unknown pcs_type, got %d", idx)
	}
}

func TestDecodeFieldMapRejectsUnknownTypeTag(t *testing.T) {
	const doc = `{"PCS-100": [{"field_name": "x", "type_tag": "string"}]}`
	if _, err := decodeFieldMap(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for unknown type_tag")
	}
}

func TestDecodeFieldMapRejectsEmptyFieldList(t *testing.T) {
	const doc = `{"PCS-100": []}`
	if _, err := decodeFieldMap(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for empty field list")
	}
}

func TestBytePositionsIsControllable(t *testing.T) {
	bp := BytePositions{ControllableStatusCodes: []uint8{1, 3, 5}}
	if !bp.IsControllable(3) {
		t.Fatal("expected status 3 to be controllable")
	}
	if bp.IsControllable(4) {
		t.Fatal("expected status 4 to be non-controllable")
	}
}
