package plcbridge

import "errors"

var (
	errTooShort       = errors.New("plcbridge: datagram shorter than header")
	errWrongProtocol  = errors.New("plcbridge: unexpected protocol byte")
	errSizeMismatch   = errors.New("plcbridge: datagram size does not match declared entry count")
)
