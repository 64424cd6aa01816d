package pcsstore

// Nameplate is a PCS's static configuration (spec.md §3 "Nameplate"),
// loaded once at boot by internal/nameplate from the CSV file named in
// spec.md §6.5 and never mutated afterwards.
type Nameplate struct {
	LogicalID  uint16 // 1..=65535, globally unique
	DeviceID   string // optional
	FeedLineID uint16 // optional, >0 when present; 0 means unset
	PCSType    string // required, non-empty

	GooseAPPID uint16 // 1..=65535, globally unique
	MAC        [6]byte
	TPID       uint16
	TCI        uint16
	GocbRef    string
	DataSet    string
	GoID       string
	Simulation bool
	ConfRev    uint32
	NdsCom     bool

	PMSAPPID uint16 // optional: APPID of the PMS frame controlling this PCS, 0 = unset
}

// Validate applies the acceptance rules from spec.md §6.5: unique non-zero
// logical_id and goose_appid (checked by the loader across the whole
// batch), non-empty pcs_type. It reports the first violation found, if
// any.
func (n Nameplate) Validate() error {
	if n.LogicalID == 0 {
		return errLogicalIDZero
	}
	if n.GooseAPPID == 0 {
		return errAPPIDZero
	}
	if n.PCSType == "" {
		return errPCSTypeEmpty
	}
	return nil
}
