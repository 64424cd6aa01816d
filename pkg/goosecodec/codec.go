// Package goosecodec implements bit-exact BER/ASN.1 encode and decode of
// Ethernet+GOOSE frames per IEC 61850-8-1, grounded on the teacher's
// struct-layout-matches-the-wire discipline in pkg/linux/tcpinfo.go (there
// a C struct; here a BER TLV sequence) and its never-panic decode contract.
package goosecodec

import (
	"fmt"

	"github.com/runZeroInc/pcsgw/pkg/goosevalue"
)

// EtherType is the fixed GOOSE EtherType (spec.md §3, §6.1).
const EtherType = 0x88B8

// TPID8021Q marks the presence of an 802.1Q tag in EthernetHeader.TPID.
const TPID8021Q = 0x8100

// reservedFieldBytes is the width of each of reservedA/reservedB.
const reservedFieldBytes = 2

// EthernetHeader is the caller-facing view of the Ethernet+GOOSE framing
// fields (spec.md §3 "Ethernet/GOOSE header"). TPID == 0 means no 802.1Q
// tag is emitted/was present; TCI is ignored in that case.
type EthernetHeader struct {
	DstMAC [6]byte
	SrcMAC [6]byte
	TPID   uint16
	TCI    uint16
	APPID  uint16
}

func (h EthernetHeader) tagged() bool { return h.TPID != 0 }

func (h EthernetHeader) headerLen() int {
	if h.tagged() {
		return 18 // dst+src (12) + TPID+TCI (4) + EtherType (2)
	}
	return 14 // dst+src (12) + EtherType (2)
}

// GoosePDU is the decoded GOOSE APDU (spec.md §3 "GOOSE PDU").
type GoosePDU struct {
	GocbRef           string
	TimeAllowedToLive uint32
	DatSet            string
	GoID              string
	T                 [8]byte
	StNum             uint32
	SqNum             uint32
	Simulation        bool
	ConfRev           uint32
	NdsCom            bool
	NumDatSetEntries  uint32
	AllData           []goosevalue.Value
}

// Clone deep-copies AllData so the PDU may outlive a pooled receive buffer.
func (p GoosePDU) Clone() GoosePDU {
	out := p
	out.AllData = goosevalue.CloneAll(p.AllData)
	return out
}

func uintValTLVSize(v uint32) int {
	return 1 + berLengthSize(len(minimalUnsignedBytes(uint64(v)))) + len(minimalUnsignedBytes(uint64(v)))
}

func strValTLVSize(s string) int {
	return 1 + berLengthSize(len(s)) + len(s)
}

func boolValTLVSize() int { return 1 + 1 + 1 }

func timeValTLVSize() int { return 1 + 1 + 8 }

// apduContentSize computes the byte length of the APDU's content (the
// concatenation of its 12 field TLVs), and the content size of allData
// alone (needed to size the allData TLV header).
func apduContentSize(pdu GoosePDU) (total int, allDataContentSize int, err error) {
	total += strValTLVSize(pdu.GocbRef)
	total += uintValTLVSize(pdu.TimeAllowedToLive)
	total += strValTLVSize(pdu.DatSet)
	total += strValTLVSize(pdu.GoID)
	total += timeValTLVSize()
	total += uintValTLVSize(pdu.StNum)
	total += uintValTLVSize(pdu.SqNum)
	total += boolValTLVSize()
	total += uintValTLVSize(pdu.ConfRev)
	total += boolValTLVSize()
	total += uintValTLVSize(pdu.NumDatSetEntries)

	for _, v := range pdu.AllData {
		sz, verr := tlvSize(v)
		if verr != nil {
			return 0, 0, verr
		}
		allDataContentSize += sz
	}
	total += 1 + berLengthSize(allDataContentSize) + allDataContentSize
	return total, allDataContentSize, nil
}

// EncodedSize returns the total number of bytes Encode would write for hdr
// and pdu, letting callers size/validate a destination buffer up front.
func EncodedSize(hdr EthernetHeader, pdu GoosePDU) (int, error) {
	apduContent, _, err := apduContentSize(pdu)
	if err != nil {
		return 0, err
	}
	apduTLV := 1 + berLengthSize(apduContent) + apduContent
	return hdr.headerLen() + 2 + 2 + reservedFieldBytes*2 + apduTLV, nil
}

// Encode writes an Ethernet+GOOSE frame into dst starting at offset and
// returns the number of bytes written. numDatSetEntries must already equal
// len(pdu.AllData); callers constructing publisher frames are expected to
// keep that invariant (spec.md §3 "GOOSE PDU" invariant).
func Encode(dst []byte, offset int, hdr EthernetHeader, pdu GoosePDU) (int, error) {
	if int(pdu.NumDatSetEntries) != len(pdu.AllData) {
		return 0, fmt.Errorf("%w: numDatSetEntries=%d but len(allData)=%d", ErrDecode, pdu.NumDatSetEntries, len(pdu.AllData))
	}
	size, err := EncodedSize(hdr, pdu)
	if err != nil {
		return 0, err
	}
	if offset+size > len(dst) {
		return 0, ErrBufferTooSmall
	}
	pos := offset

	copy(dst[pos:pos+6], hdr.DstMAC[:])
	pos += 6
	copy(dst[pos:pos+6], hdr.SrcMAC[:])
	pos += 6
	if hdr.tagged() {
		dst[pos] = byte(hdr.TPID >> 8)
		dst[pos+1] = byte(hdr.TPID)
		dst[pos+2] = byte(hdr.TCI >> 8)
		dst[pos+3] = byte(hdr.TCI)
		pos += 4
	}
	dst[pos] = byte(EtherType >> 8)
	dst[pos+1] = byte(EtherType & 0xFF)
	pos += 2

	dst[pos] = byte(hdr.APPID >> 8)
	dst[pos+1] = byte(hdr.APPID)
	pos += 2
	lengthFieldPos := pos
	pos += 2 // filled in below once the APDU is known
	dst[pos], dst[pos+1] = 0, 0
	pos += 2
	dst[pos], dst[pos+1] = 0, 0
	pos += 2

	apduStart := pos
	apduContent, allDataContentSize, err := apduContentSize(pdu)
	if err != nil {
		return 0, err
	}
	dst[pos] = tagAPDU
	pos++
	pos += berLength(dst[pos:], apduContent)

	pos, err = writeStrField(dst, pos, tagGocbRef, pdu.GocbRef)
	if err != nil {
		return 0, err
	}
	pos = writeUintField(dst, pos, tagTimeAllowedToLive, pdu.TimeAllowedToLive)
	pos, err = writeStrField(dst, pos, tagDatSet, pdu.DatSet)
	if err != nil {
		return 0, err
	}
	pos, err = writeStrField(dst, pos, tagGoID, pdu.GoID)
	if err != nil {
		return 0, err
	}
	dst[pos] = tagT
	dst[pos+1] = 8
	copy(dst[pos+2:pos+10], pdu.T[:])
	pos += 10
	pos = writeUintField(dst, pos, tagStNum, pdu.StNum)
	pos = writeUintField(dst, pos, tagSqNum, pdu.SqNum)
	pos = writeBoolField(dst, pos, tagSimulation, pdu.Simulation)
	pos = writeUintField(dst, pos, tagConfRev, pdu.ConfRev)
	pos = writeBoolField(dst, pos, tagNdsCom, pdu.NdsCom)
	pos = writeUintField(dst, pos, tagNumDatSetEntries, pdu.NumDatSetEntries)

	dst[pos] = tagAllData
	pos++
	pos += berLength(dst[pos:], allDataContentSize)
	for _, v := range pdu.AllData {
		pos, err = writeValue(dst, pos, v)
		if err != nil {
			return 0, err
		}
	}

	apduTotal := pos - apduStart
	expectedAPDUTotal := 1 + berLengthSize(apduContent) + apduContent
	if apduTotal != expectedAPDUTotal {
		return 0, fmt.Errorf("%w: internal size mismatch (got %d want %d)", ErrDecode, apduTotal, expectedAPDUTotal)
	}

	length := 2 + 2 + reservedFieldBytes*2 + apduTotal
	dst[lengthFieldPos] = byte(length >> 8)
	dst[lengthFieldPos+1] = byte(length)

	return pos - offset, nil
}

func writeStrField(dst []byte, pos int, tag byte, s string) (int, error) {
	dst[pos] = tag
	pos++
	pos += berLength(dst[pos:], len(s))
	pos += copy(dst[pos:], s)
	return pos, nil
}

func writeUintField(dst []byte, pos int, tag byte, v uint32) int {
	b := minimalUnsignedBytes(uint64(v))
	dst[pos] = tag
	pos++
	pos += berLength(dst[pos:], len(b))
	pos += copy(dst[pos:], b)
	return pos
}

func writeBoolField(dst []byte, pos int, tag byte, v bool) int {
	dst[pos] = tag
	dst[pos+1] = 1
	if v {
		dst[pos+2] = 0x01
	} else {
		dst[pos+2] = 0x00
	}
	return pos + 3
}

// Decode parses an Ethernet+GOOSE frame from buf starting at offset. It
// accepts both untagged and 802.1Q-tagged Ethernet, verifies the EtherType,
// and rejects any structural defect (truncated length, numDatSetEntries
// mismatch, unknown tag) with an error satisfying errors.Is(err,
// ErrDecode) — it never panics on malformed input.
func Decode(buf []byte, offset int) (EthernetHeader, GoosePDU, error) {
	var hdr EthernetHeader
	var pdu GoosePDU

	if offset+14 > len(buf) {
		return hdr, pdu, fmt.Errorf("%w: frame shorter than minimum Ethernet header", ErrDecode)
	}
	pos := offset
	copy(hdr.DstMAC[:], buf[pos:pos+6])
	pos += 6
	copy(hdr.SrcMAC[:], buf[pos:pos+6])
	pos += 6

	if buf[pos] == 0x81 && buf[pos+1] == 0x00 {
		if offset+18 > len(buf) {
			return hdr, pdu, fmt.Errorf("%w: truncated 802.1Q tag", ErrDecode)
		}
		hdr.TPID = uint16(buf[pos])<<8 | uint16(buf[pos+1])
		hdr.TCI = uint16(buf[pos+2])<<8 | uint16(buf[pos+3])
		pos += 4
	}

	if pos+2 > len(buf) {
		return hdr, pdu, fmt.Errorf("%w: truncated EtherType", ErrDecode)
	}
	etherType := uint16(buf[pos])<<8 | uint16(buf[pos+1])
	pos += 2
	if etherType != EtherType {
		return hdr, pdu, fmt.Errorf("%w: EtherType 0x%04X != 0x88B8", ErrDecode, etherType)
	}

	if pos+8 > len(buf) {
		return hdr, pdu, fmt.Errorf("%w: truncated GOOSE header (APPID/length/reserved)", ErrDecode)
	}
	appidStart := pos
	hdr.APPID = uint16(buf[pos])<<8 | uint16(buf[pos+1])
	pos += 2
	length := int(uint16(buf[pos])<<8 | uint16(buf[pos+1]))
	pos += 2
	pos += reservedFieldBytes * 2 // reservedA, reservedB (ignored, must be present)

	frameEnd := appidStart + length
	if frameEnd < pos {
		return hdr, pdu, fmt.Errorf("%w: length %d shorter than APPID+length+reserved header", ErrDecode, length)
	}
	if frameEnd > len(buf) {
		return hdr, pdu, fmt.Errorf("%w: declared length %d extends past buffer", ErrDecode, length)
	}

	if pos >= len(buf) || buf[pos] != tagAPDU {
		return hdr, pdu, fmt.Errorf("%w: missing APDU tag 0x61", ErrDecode)
	}
	pos++
	apduLen, consumed, err := readBERLength(buf, pos)
	if err != nil {
		return hdr, pdu, err
	}
	pos += consumed
	if pos+apduLen > len(buf) || pos+apduLen > frameEnd {
		return hdr, pdu, fmt.Errorf("%w: APDU length %d extends past declared frame", ErrDecode, apduLen)
	}
	apduEnd := pos + apduLen

	fields := []struct {
		tag      byte
		required bool
	}{
		{tagGocbRef, true}, {tagTimeAllowedToLive, true}, {tagDatSet, true},
		{tagGoID, true}, {tagT, true}, {tagStNum, true}, {tagSqNum, true},
		{tagSimulation, true}, {tagConfRev, true}, {tagNdsCom, true},
		{tagNumDatSetEntries, true}, {tagAllData, true},
	}

	for _, f := range fields {
		if pos >= apduEnd {
			return hdr, pdu, fmt.Errorf("%w: missing PDU field 0x%02X", ErrDecode, f.tag)
		}
		tag := buf[pos]
		if tag != f.tag {
			return hdr, pdu, fmt.Errorf("%w: expected field tag 0x%02X, got 0x%02X", ErrDecode, f.tag, tag)
		}
		pos++
		flen, fconsumed, ferr := readBERLength(buf, pos)
		if ferr != nil {
			return hdr, pdu, ferr
		}
		pos += fconsumed
		if pos+flen > apduEnd {
			return hdr, pdu, fmt.Errorf("%w: field 0x%02X length %d extends past APDU", ErrDecode, tag, flen)
		}
		content := buf[pos : pos+flen]

		switch tag {
		case tagGocbRef:
			pdu.GocbRef = string(content)
		case tagTimeAllowedToLive:
			pdu.TimeAllowedToLive = uint32(decodeUnsignedBytes(content))
		case tagDatSet:
			pdu.DatSet = string(content)
		case tagGoID:
			pdu.GoID = string(content)
		case tagT:
			if flen != 8 {
				return hdr, pdu, fmt.Errorf("%w: t field length %d != 8", ErrDecode, flen)
			}
			copy(pdu.T[:], content)
		case tagStNum:
			pdu.StNum = uint32(decodeUnsignedBytes(content))
		case tagSqNum:
			pdu.SqNum = uint32(decodeUnsignedBytes(content))
		case tagSimulation:
			if flen != 1 {
				return hdr, pdu, fmt.Errorf("%w: simulation field length %d != 1", ErrDecode, flen)
			}
			pdu.Simulation = content[0] != 0x00
		case tagConfRev:
			pdu.ConfRev = uint32(decodeUnsignedBytes(content))
		case tagNdsCom:
			if flen != 1 {
				return hdr, pdu, fmt.Errorf("%w: ndsCom field length %d != 1", ErrDecode, flen)
			}
			pdu.NdsCom = content[0] != 0x00
		case tagNumDatSetEntries:
			pdu.NumDatSetEntries = uint32(decodeUnsignedBytes(content))
		case tagAllData:
			allDataEnd := pos + flen
			p := pos
			for p < allDataEnd {
				var v goosevalue.Value
				var verr error
				v, p, verr = readValue(buf, p, allDataEnd)
				if verr != nil {
					return hdr, pdu, verr
				}
				pdu.AllData = append(pdu.AllData, v)
			}
		}
		pos += flen
	}

	if int(pdu.NumDatSetEntries) != len(pdu.AllData) {
		return hdr, pdu, fmt.Errorf("%w: numDatSetEntries=%d but decoded %d allData entries", ErrDecode, pdu.NumDatSetEntries, len(pdu.AllData))
	}

	return hdr, pdu, nil
}
