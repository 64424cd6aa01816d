package pcsstore

import (
	"github.com/runZeroInc/pcsgw/internal/mapping"
	"github.com/runZeroInc/pcsgw/pkg/goosevalue"
)

// applyBytePositions extracts the charge/discharge/reactive limits, SOC,
// and controllable-status flag a PCS carries in its own allData (spec.md
// §6.3/§6.5), using bp's pcs_type-specific byte positions, and stores them
// on rec for pkg/plcbridge's egress snapshot to read. A position that
// falls outside allData, or whose value is the wrong GOOSE kind, yields
// mapping.InvalidValue (spec.md §7) rather than a silent zero.
func applyBytePositions(rec *Record, bp mapping.BytePositions) {
	vals := rec.LastPDU.AllData
	rec.MaxCharge = floatAt(vals, bp.MaxCharge)
	rec.MaxDischarge = floatAt(vals, bp.MaxDischarge)
	rec.MaxInductive = floatAt(vals, bp.MaxInductive)
	rec.MaxCapacitive = floatAt(vals, bp.MaxCapacitive)
	rec.SOC = floatAt(vals, bp.SOC)

	code, ok := statusAt(vals, bp.Status)
	rec.IsControllable = ok && bp.IsControllable(code)
}

func floatAt(vals []goosevalue.Value, pos int) float32 {
	if pos < 0 || pos >= len(vals) {
		return mapping.InvalidValue
	}
	switch v := vals[pos]; v.Kind {
	case goosevalue.KindFloat32:
		return v.F32
	case goosevalue.KindFloat64:
		return float32(v.F64)
	default:
		return mapping.InvalidValue
	}
}

func statusAt(vals []goosevalue.Value, pos int) (uint8, bool) {
	if pos < 0 || pos >= len(vals) {
		return 0, false
	}
	switch v := vals[pos]; v.Kind {
	case goosevalue.KindInteger:
		return uint8(v.Int), true
	case goosevalue.KindUnsigned:
		return uint8(v.Uint), true
	default:
		return 0, false
	}
}
