package pcsstore

import "errors"

var (
	errLogicalIDZero = errors.New("pcsstore: logical_id must be non-zero")
	errAPPIDZero     = errors.New("pcsstore: goose_appid must be non-zero")
	errPCSTypeEmpty  = errors.New("pcsstore: pcs_type must be non-empty")
	errDuplicateID   = errors.New("pcsstore: duplicate logical_id")
	errDuplicateAPPID = errors.New("pcsstore: duplicate goose_appid")
)
