package retransmit

import (
	"github.com/runZeroInc/pcsgw/internal/mapping"
	"github.com/runZeroInc/pcsgw/pkg/goosevalue"
)

// buildAllData renders values into allData positions using pcsType's
// ordered field list (spec.md §6.5 field-order mapping, §4.7 "Copy current
// PCS feedback values into allData slots according to the type mapping").
// A mapped field missing from values, or present with the wrong Go type,
// encodes as that type's zero value rather than aborting the frame — the
// type-mismatch handling of spec.md §7 is about decode (command
// extraction), but the same tolerance is applied here for symmetry.
func buildAllData(fields []mapping.Field, values map[string]any) []goosevalue.Value {
	out := make([]goosevalue.Value, 0, len(fields))
	for _, f := range fields {
		switch f.Type {
		case mapping.FieldBoolean:
			b, _ := values[f.Name].(bool)
			out = append(out, goosevalue.Boolean(b))
		case mapping.FieldFloat:
			v, ok := values[f.Name].(float32)
			if !ok {
				if v64, ok64 := values[f.Name].(float64); ok64 {
					v = float32(v64)
				}
			}
			out = append(out, goosevalue.Float32Value(v))
		case mapping.FieldInt:
			switch n := values[f.Name].(type) {
			case int64:
				out = append(out, goosevalue.Integer(32, n))
			case int:
				out = append(out, goosevalue.Integer(32, int64(n)))
			case uint16:
				out = append(out, goosevalue.Integer(32, int64(n)))
			default:
				out = append(out, goosevalue.Integer(32, 0))
			}
		}
	}
	return out
}
