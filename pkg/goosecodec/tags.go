package goosecodec

import "github.com/runZeroInc/pcsgw/pkg/goosevalue"

// PDU field tags, context-class, in the fixed order mandated by
// IEC 61850-8-1 (spec.md §6.1). Index i is field i's tag byte.
const (
	tagGocbRef           = 0x80
	tagTimeAllowedToLive = 0x81
	tagDatSet            = 0x82
	tagGoID              = 0x83
	tagT                 = 0x84
	tagStNum             = 0x85
	tagSqNum             = 0x86
	tagSimulation        = 0x87
	tagConfRev           = 0x88
	tagNdsCom            = 0x89
	tagNumDatSetEntries  = 0x8A
	tagAllData           = 0xAB
	tagAPDU              = 0x61
)

// allData value tags (spec.md §6.2), a distinct tag namespace from the PDU
// field tags above — both happen to reuse small integers, but a value tag
// is only ever read while parsing inside an allData (or nested
// array/structure) content region.
const (
	valTagBoolean       = 0x83
	valTagBitString     = 0x84
	valTagInteger       = 0x85
	valTagUnsigned      = 0x86
	valTagFloat         = 0x87
	valTagOctetString   = 0x89
	valTagVisibleString = 0x8A
	valTagMMSString     = 0x90
	valTagUTCTime       = 0x91
	valTagArray         = 0xA1
	valTagStructure     = 0xA2
)

const (
	floatExp32 = 0x08
	floatExp64 = 0x0B
)

func valueTag(k goosevalue.Kind) (byte, bool) {
	switch k {
	case goosevalue.KindBoolean:
		return valTagBoolean, false
	case goosevalue.KindBitString:
		return valTagBitString, false
	case goosevalue.KindInteger:
		return valTagInteger, false
	case goosevalue.KindUnsigned:
		return valTagUnsigned, false
	case goosevalue.KindFloat32, goosevalue.KindFloat64:
		return valTagFloat, false
	case goosevalue.KindOctetString:
		return valTagOctetString, false
	case goosevalue.KindVisibleString:
		return valTagVisibleString, false
	case goosevalue.KindMMSString:
		return valTagMMSString, false
	case goosevalue.KindUTCTime:
		return valTagUTCTime, false
	case goosevalue.KindArray:
		return valTagArray, true
	case goosevalue.KindStructure:
		return valTagStructure, true
	default:
		return 0, false
	}
}
