package pcsstore

import (
	"time"

	"github.com/runZeroInc/pcsgw/pkg/goosecodec"
)

// Record is the per-logical-id runtime state held by one Store (one LAN).
// spec.md §3 "PCS record" — two Records exist per logical_id, one per LAN,
// living in the two independent Store instances.
type Record struct {
	Nameplate *Nameplate

	LastHeader goosecodec.EthernetHeader
	LastPDU    goosecodec.GoosePDU

	LastUpdate         time.Time
	InvalidityDeadline time.Time
	StateValid         bool

	ActivePowerFeedback   float32
	ReactivePowerFeedback float32
	ActivePowerEnable     bool
	ReactivePowerEnable   bool
	ActivePowerInvalid    bool
	ReactivePowerInvalid  bool

	// Populated from the byte-position mapping (spec.md §6.5) each time
	// allData is decoded; consumed by pkg/plcbridge when it builds the
	// egress image (spec.md §6.3).
	IsControllable bool
	MaxCharge      float32
	MaxDischarge   float32
	MaxInductive   float32
	MaxCapacitive  float32
	SOC            float32
}

// FieldValues exposes the record's named scalar fields for the
// field-mapping-driven allData encoder (internal/mapping, pkg/retransmit),
// mirroring the teacher's RawTCPInfo.ToMap() conversion from a fixed
// struct into a name-indexed map.
func (r *Record) FieldValues() map[string]any {
	return map[string]any{
		"active_power_enable":   r.ActivePowerEnable,
		"reactive_power_enable": r.ReactivePowerEnable,
		"active_power":          r.ActivePowerFeedback,
		"reactive_power":        r.ReactivePowerFeedback,
		"max_charge":            r.MaxCharge,
		"max_discharge":         r.MaxDischarge,
		"max_inductive":         r.MaxInductive,
		"max_capacitive":        r.MaxCapacitive,
		"soc":                   r.SOC,
		"is_controllable":       r.IsControllable,
		"state_valid":           r.StateValid,
	}
}

func newRecord(np *Nameplate) *Record {
	return &Record{
		Nameplate: np,
		LastPDU: goosecodec.GoosePDU{
			GocbRef: np.GocbRef,
			DatSet:  np.DataSet,
			GoID:    np.GoID,
			ConfRev: np.ConfRev,
		},
		StateValid: false,
	}
}
