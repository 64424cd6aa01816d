// Package mapping loads the two JSON configuration surfaces that translate
// between a PCS's allData layout and its named fields (spec.md §6.5): the
// field-order mapping consumed by the GOOSE codec's callers, and the
// byte-position mapping consumed by pkg/pcsstore, which extracts the
// telemetry fields the PLC image builder (§6.3) reads.
package mapping

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// FieldType is the allData scalar type a mapped field decodes as.
type FieldType string

const (
	FieldBoolean FieldType = "boolean"
	FieldFloat   FieldType = "float"
	FieldInt     FieldType = "int"
)

// Field is one ordered entry of a pcs_type's allData layout.
type Field struct {
	Name string    `json:"field_name"`
	Type FieldType `json:"type_tag"`
}

// FieldMap is the field-order mapping: pcs_type -> ordered field list. Order
// is significant and defines allData positions (spec.md §6.5).
type FieldMap map[string][]Field

// LoadFieldMap reads the JSON field-order mapping file.
func LoadFieldMap(path string) (FieldMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open field map %s: %w", path, err)
	}
	defer f.Close()
	return decodeFieldMap(f)
}

func decodeFieldMap(r io.Reader) (FieldMap, error) {
	var fm FieldMap
	if err := json.NewDecoder(r).Decode(&fm); err != nil {
		return nil, fmt.Errorf("mapping: decode field map: %w", err)
	}
	for pcsType, fields := range fm {
		if len(fields) == 0 {
			return nil, fmt.Errorf("mapping: pcs_type %q has no fields", pcsType)
		}
		for _, f := range fields {
			switch f.Type {
			case FieldBoolean, FieldFloat, FieldInt:
			default:
				return nil, fmt.Errorf("mapping: pcs_type %q field %q: unknown type_tag %q", pcsType, f.Name, f.Type)
			}
		}
	}
	return fm, nil
}

// InvalidValue is substituted for a byte-position extraction that fails
// type-checking or falls outside allData's bounds (spec.md §7 "INVALID
// sentinel"), so a malformed or short PDU reports as conspicuously invalid
// rather than as a plausible-looking zero.
const InvalidValue float32 = 999999.0

// BytePositions is one pcs_type's positional index set into its allData
// slice (spec.md §6.5 "byte-position mapping"), plus the set of status
// codes considered controllable.
type BytePositions struct {
	ActivePower   int `json:"active_power"`
	ReactivePower int `json:"reactive_power"`
	MaxCharge     int `json:"max_charge"`
	MaxDischarge  int `json:"max_discharge"`
	MaxInductive  int `json:"max_inductive"`
	MaxCapacitive int `json:"max_capacitive"`
	SOC           int `json:"soc"`
	Status        int `json:"status"`

	ControllableStatusCodes []uint8 `json:"controllable_status_codes"`
}

// IsControllable reports whether statusCode is one of this pcs_type's
// controllable codes.
func (b BytePositions) IsControllable(statusCode uint8) bool {
	for _, c := range b.ControllableStatusCodes {
		if c == statusCode {
			return true
		}
	}
	return false
}

// BytePositionMap is pcs_type -> BytePositions.
type BytePositionMap map[string]BytePositions

// LoadBytePositionMap reads the JSON byte-position mapping file.
func LoadBytePositionMap(path string) (BytePositionMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open byte-position map %s: %w", path, err)
	}
	defer f.Close()
	var bpm BytePositionMap
	if err := json.NewDecoder(f).Decode(&bpm); err != nil {
		return nil, fmt.Errorf("mapping: decode byte-position map: %w", err)
	}
	return bpm, nil
}

// IndexOf returns the position of name within pcs_type's ordered field
// list, or -1 if pcs_type is unmapped or name is absent.
func (fm FieldMap) IndexOf(pcsType, name string) int {
	for i, f := range fm[pcsType] {
		if f.Name == name {
			return i
		}
	}
	return -1
}
