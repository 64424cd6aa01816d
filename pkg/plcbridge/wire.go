// Package plcbridge implements the PLC UDP ingress/egress bridge (spec.md
// §4.9): applying PLC setpoint commands to both LAN stores and snapshotting
// both stores into the PLC telemetry image.
package plcbridge

import "encoding/binary"

const (
	ingressProtocol = 20
	egressProtocol  = 10

	ingressHeaderSize = 1 + 8 + 2 + 16 // protocol + nanotimer + count + spare
	ingressEntrySize  = 2 + 1 + 4 + 4 + 16

	egressHeaderSize = 1 + 2 + 8 + 16 // protocol + count + lifecounter + spare
	egressEntrySize  = 2 + 1 + 1 + 1 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 16
)

// cmdProtocol values from spec.md §6.4.
const (
	cmdActiveOnly   = 10
	cmdReactiveOnly = 20
	cmdBothActive   = 30
)

// commandEntry is one decoded PLC setpoint command (spec.md §6.4).
type commandEntry struct {
	LogicalID     uint16
	CmdProtocol   uint8
	ActivePower   float32
	ReactivePower float32
}

// decodeIngress parses a PLC command datagram. It validates the protocol
// byte and size coherence per spec.md §4.9; any failure returns an error
// and the datagram is dropped by the caller with a log entry.
func decodeIngress(b []byte) ([]commandEntry, error) {
	if len(b) < ingressHeaderSize {
		return nil, errTooShort
	}
	if b[0] != ingressProtocol {
		return nil, errWrongProtocol
	}
	count := binary.LittleEndian.Uint16(b[9:11])
	want := ingressHeaderSize + int(count)*ingressEntrySize
	if len(b) != want {
		return nil, errSizeMismatch
	}

	out := make([]commandEntry, count)
	pos := ingressHeaderSize
	for i := range out {
		e := commandEntry{
			LogicalID:   binary.LittleEndian.Uint16(b[pos : pos+2]),
			CmdProtocol: b[pos+2],
		}
		e.ActivePower = float32FromBits(binary.LittleEndian.Uint32(b[pos+3 : pos+7]))
		e.ReactivePower = float32FromBits(binary.LittleEndian.Uint32(b[pos+7 : pos+11]))
		out[i] = e
		pos += ingressEntrySize
	}
	return out, nil
}

// imageEntry is one PCS's row in the egress image (spec.md §6.3).
type imageEntry struct {
	LogicalID      uint16
	IsValid        bool
	FeedLineID     uint8
	IsControllable bool
	ActivePower    float32
	ReactivePower  float32
	MaxCharge      float32
	MaxDischarge   float32
	MaxInductive   float32
	MaxCapacitive  float32
	SOC            float32
}

// encodeEgress serializes the PLC telemetry image (spec.md §6.3): LAN A's
// rows sorted by logical_id, then LAN B's.
func encodeEgress(lifecounter uint64, lanA, lanB []imageEntry) []byte {
	total := len(lanA) + len(lanB)
	buf := make([]byte, egressHeaderSize+total*egressEntrySize)
	buf[0] = egressProtocol
	binary.LittleEndian.PutUint16(buf[1:3], uint16(total))
	binary.LittleEndian.PutUint64(buf[3:11], lifecounter)

	pos := egressHeaderSize
	for _, rows := range [][]imageEntry{lanA, lanB} {
		for _, e := range rows {
			binary.LittleEndian.PutUint16(buf[pos:pos+2], e.LogicalID)
			buf[pos+2] = boolToByte(e.IsValid)
			buf[pos+3] = e.FeedLineID
			buf[pos+4] = boolToByte(e.IsControllable)
			binary.LittleEndian.PutUint32(buf[pos+5:pos+9], bitsFromFloat32(e.ActivePower))
			binary.LittleEndian.PutUint32(buf[pos+9:pos+13], bitsFromFloat32(e.ReactivePower))
			binary.LittleEndian.PutUint32(buf[pos+13:pos+17], bitsFromFloat32(e.MaxCharge))
			binary.LittleEndian.PutUint32(buf[pos+17:pos+21], bitsFromFloat32(e.MaxDischarge))
			binary.LittleEndian.PutUint32(buf[pos+21:pos+25], bitsFromFloat32(e.MaxInductive))
			binary.LittleEndian.PutUint32(buf[pos+25:pos+29], bitsFromFloat32(e.MaxCapacitive))
			binary.LittleEndian.PutUint32(buf[pos+29:pos+33], bitsFromFloat32(e.SOC))
			pos += egressEntrySize
		}
	}
	return buf
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
