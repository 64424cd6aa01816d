package goosecodec

import (
	"fmt"
	"math"

	"github.com/runZeroInc/pcsgw/pkg/goosevalue"
)

// contentSize returns the length of v's TLV content (excluding its own tag
// and length octets), recursing into Array/Structure children.
func contentSize(v goosevalue.Value) (int, error) {
	switch v.Kind {
	case goosevalue.KindBoolean:
		return 1, nil
	case goosevalue.KindInteger:
		return len(minimalSignedBytes(v.Int)), nil
	case goosevalue.KindUnsigned:
		return len(minimalUnsignedBytes(v.Uint)), nil
	case goosevalue.KindFloat32:
		return 5, nil // 1 exponent-width byte + 4 bytes IEEE-754
	case goosevalue.KindFloat64:
		return 9, nil // 1 exponent-width byte + 8 bytes IEEE-754
	case goosevalue.KindVisibleString, goosevalue.KindMMSString:
		return len(v.Str), nil
	case goosevalue.KindBitString:
		return 1 + len(v.Bits.Bits), nil
	case goosevalue.KindOctetString:
		return len(v.Octets), nil
	case goosevalue.KindUTCTime:
		return 8, nil
	case goosevalue.KindArray, goosevalue.KindStructure:
		total := 0
		for _, child := range v.Seq {
			sz, err := tlvSize(child)
			if err != nil {
				return 0, err
			}
			total += sz
		}
		return total, nil
	default:
		return 0, fmt.Errorf("%w: unknown value kind %v", ErrBufferTooSmall, v.Kind)
	}
}

// tlvSize returns the full on-wire size of v including its tag and length
// octets.
func tlvSize(v goosevalue.Value) (int, error) {
	cs, err := contentSize(v)
	if err != nil {
		return 0, err
	}
	return 1 + berLengthSize(cs) + cs, nil
}

// writeValue encodes v as a TLV at dst[pos:] and returns the position
// immediately after it.
func writeValue(dst []byte, pos int, v goosevalue.Value) (int, error) {
	tag, _ := valueTag(v.Kind)
	if tag == 0 {
		return 0, fmt.Errorf("%w: unknown value kind %v", ErrBufferTooSmall, v.Kind)
	}
	cs, err := contentSize(v)
	if err != nil {
		return 0, err
	}
	dst[pos] = tag
	pos++
	pos += berLength(dst[pos:], cs)

	switch v.Kind {
	case goosevalue.KindBoolean:
		if v.Bool {
			dst[pos] = 0x01
		} else {
			dst[pos] = 0x00
		}
		pos++
	case goosevalue.KindInteger:
		b := minimalSignedBytes(v.Int)
		pos += copy(dst[pos:], b)
	case goosevalue.KindUnsigned:
		b := minimalUnsignedBytes(v.Uint)
		pos += copy(dst[pos:], b)
	case goosevalue.KindFloat32:
		dst[pos] = floatExp32
		pos++
		bits := math.Float32bits(v.F32)
		dst[pos] = byte(bits >> 24)
		dst[pos+1] = byte(bits >> 16)
		dst[pos+2] = byte(bits >> 8)
		dst[pos+3] = byte(bits)
		pos += 4
	case goosevalue.KindFloat64:
		dst[pos] = floatExp64
		pos++
		bits := math.Float64bits(v.F64)
		for i := 0; i < 8; i++ {
			dst[pos+i] = byte(bits >> (56 - 8*i))
		}
		pos += 8
	case goosevalue.KindVisibleString, goosevalue.KindMMSString:
		pos += copy(dst[pos:], v.Str)
	case goosevalue.KindBitString:
		dst[pos] = v.Bits.Pad
		pos++
		pos += copy(dst[pos:], v.Bits.Bits)
	case goosevalue.KindOctetString:
		pos += copy(dst[pos:], v.Octets)
	case goosevalue.KindUTCTime:
		pos += copy(dst[pos:], v.UTCTime[:])
	case goosevalue.KindArray, goosevalue.KindStructure:
		for _, child := range v.Seq {
			var werr error
			pos, werr = writeValue(dst, pos, child)
			if werr != nil {
				return 0, werr
			}
		}
	}
	return pos, nil
}

// readValue decodes one value TLV at buf[pos:end] (end bounds the
// enclosing container so truncated/oversized claims are rejected without
// reading past a parent's own content).
func readValue(buf []byte, pos, end int) (goosevalue.Value, int, error) {
	if pos >= end {
		return goosevalue.Value{}, 0, fmt.Errorf("%w: truncated value tag", ErrDecode)
	}
	tag := buf[pos]
	pos++
	length, consumed, err := readBERLength(buf, pos)
	if err != nil {
		return goosevalue.Value{}, 0, err
	}
	pos += consumed
	if pos+length > end {
		return goosevalue.Value{}, 0, fmt.Errorf("%w: value length %d extends past container", ErrDecode, length)
	}
	content := buf[pos : pos+length]
	contentEnd := pos + length

	switch tag {
	case valTagBoolean:
		if length != 1 {
			return goosevalue.Value{}, 0, fmt.Errorf("%w: boolean length %d != 1", ErrDecode, length)
		}
		return goosevalue.Boolean(content[0] != 0x00), contentEnd, nil
	case valTagInteger:
		return goosevalue.Integer(widthForByteLen(length), decodeSignedBytes(content)), contentEnd, nil
	case valTagUnsigned:
		return goosevalue.Unsigned(widthForByteLen(length), decodeUnsignedBytes(content)), contentEnd, nil
	case valTagFloat:
		if length == 5 && content[0] == floatExp32 {
			bits := uint32(content[1])<<24 | uint32(content[2])<<16 | uint32(content[3])<<8 | uint32(content[4])
			return goosevalue.Float32Value(math.Float32frombits(bits)), contentEnd, nil
		}
		if length == 9 && content[0] == floatExp64 {
			var bits uint64
			for i := 0; i < 8; i++ {
				bits = bits<<8 | uint64(content[1+i])
			}
			return goosevalue.Float64Value(math.Float64frombits(bits)), contentEnd, nil
		}
		return goosevalue.Value{}, 0, fmt.Errorf("%w: unrecognized float encoding (len=%d)", ErrDecode, length)
	case valTagVisibleString:
		return goosevalue.VisibleString(string(content)), contentEnd, nil
	case valTagMMSString:
		return goosevalue.MMSString(string(content)), contentEnd, nil
	case valTagBitString:
		if length < 1 {
			return goosevalue.Value{}, 0, fmt.Errorf("%w: bit-string missing padding byte", ErrDecode)
		}
		bits := append([]byte(nil), content[1:]...)
		return goosevalue.BitStringValue(content[0], bits), contentEnd, nil
	case valTagOctetString:
		return goosevalue.OctetString(append([]byte(nil), content...)), contentEnd, nil
	case valTagUTCTime:
		if length != 8 {
			return goosevalue.Value{}, 0, fmt.Errorf("%w: utc-time length %d != 8", ErrDecode, length)
		}
		var raw [8]byte
		copy(raw[:], content)
		return goosevalue.UTCTime(raw), contentEnd, nil
	case valTagArray, valTagStructure:
		var children []goosevalue.Value
		p := pos
		for p < contentEnd {
			var child goosevalue.Value
			var err error
			child, p, err = readValue(buf, p, contentEnd)
			if err != nil {
				return goosevalue.Value{}, 0, err
			}
			children = append(children, child)
		}
		if tag == valTagArray {
			return goosevalue.Array(children...), contentEnd, nil
		}
		return goosevalue.Structure(children...), contentEnd, nil
	default:
		return goosevalue.Value{}, 0, fmt.Errorf("%w: unrecognized value tag 0x%02X", ErrDecode, tag)
	}
}
