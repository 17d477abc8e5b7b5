package videox

// Package videox deals with the H264 elementary streams that rpicam-vid emits.
// We never decode video here. The only consumers are the stream diagnostics
// (NAL unit inspection), so everything in this package is pure Go.

import (
	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
)

type AbstractNALUType int

const (
	AbstractNALUTypeOther         AbstractNALUType = iota // Any other NALU type
	AbstractNALUTypeEssentialMeta                         // SPS, PPS. Required before we can decode a frame.
	AbstractNALUTypeIDR                                   // Keyframe (Instantaneous Decoder Refresh)
	AbstractNALUTypeNonIDR                                // Visual frame, but not a keyframe
)

func ReadNaluTypeH264(firstByte byte) h264.NALUType {
	return h264.NALUType(firstByte & 31)
}

func H264ToAbstractType(firstByte byte) AbstractNALUType {
	switch ReadNaluTypeH264(firstByte) {
	case h264.NALUTypeNonIDR:
		return AbstractNALUTypeNonIDR
	case h264.NALUTypeIDR:
		return AbstractNALUTypeIDR
	case h264.NALUTypeSPS:
		fallthrough
	case h264.NALUTypePPS:
		return AbstractNALUTypeEssentialMeta
	default:
		return AbstractNALUTypeOther
	}
}

func (t AbstractNALUType) IsVisual() bool {
	return t == AbstractNALUTypeNonIDR || t == AbstractNALUTypeIDR
}

// Human readable descriptions of the H264 NALU types
var naluTypeDescriptions = map[h264.NALUType]string{
	0:  "Unspecified",
	1:  "Coded slice (non-IDR)",
	2:  "Coded slice data partition A",
	3:  "Coded slice data partition B",
	4:  "Coded slice data partition C",
	5:  "Coded slice (IDR)",
	6:  "SEI (Supplemental enhancement information)",
	7:  "SPS (Sequence parameter set)",
	8:  "PPS (Picture parameter set)",
	9:  "Access unit delimiter",
	10: "End of sequence",
	11: "End of stream",
	12: "Filler data",
	13: "SPS extension",
	14: "Prefix NAL unit",
	15: "Subset SPS",
	19: "Auxiliary coded picture",
	20: "Coded slice extension",
	21: "Depth/3D-AVC coded slice extension",
}

// Return a human readable description of the NALU type
func NALUTypeDescription(t h264.NALUType) string {
	if desc, ok := naluTypeDescriptions[t]; ok {
		return desc
	}
	return "Reserved"
}
