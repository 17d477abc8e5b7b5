package videox

import (
	"testing"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/stretchr/testify/require"
)

// Build a stream of NALUs with the given types, alternating 4 and 3 byte start codes
func buildStream(types ...h264.NALUType) []byte {
	stream := []byte{}
	for i, t := range types {
		scLen := 4
		if i%2 == 1 {
			scLen = 3
		}
		stream = append(stream, NALUStartCode(scLen)...)
		stream = append(stream, byte(t)&31, 0x11, 0x22, 0x33)
	}
	return stream
}

func TestSplitAnnexB(t *testing.T) {
	stream := buildStream(h264.NALUTypeSPS, h264.NALUTypePPS, h264.NALUTypeIDR, h264.NALUTypeNonIDR)
	nalus := SplitAnnexB(stream)
	require.Len(t, nalus, 4)
	require.Equal(t, h264.NALUTypeSPS, nalus[0].Type())
	require.Equal(t, h264.NALUTypePPS, nalus[1].Type())
	require.Equal(t, h264.NALUTypeIDR, nalus[2].Type())
	require.Equal(t, h264.NALUTypeNonIDR, nalus[3].Type())
	require.Equal(t, 4, nalus[0].StartCodeLen())
	require.Equal(t, 3, nalus[1].StartCodeLen())

	require.Empty(t, SplitAnnexB([]byte{}))
	require.Empty(t, SplitAnnexB([]byte{0x65, 0x11, 0x22}))
}

func TestAnalyzeH264Stream(t *testing.T) {
	stream := buildStream(h264.NALUTypeSPS, h264.NALUTypePPS, h264.NALUTypeIDR, h264.NALUTypeNonIDR, h264.NALUTypeNonIDR)
	info := AnalyzeH264Stream(stream)
	require.True(t, info.HasSPS)
	require.True(t, info.HasPPS)
	require.True(t, info.HasIDR)
	require.True(t, info.IsDecodable())
	require.Equal(t, 5, len(info.NALUs))
	require.Equal(t, 2, info.CountByType[h264.NALUTypeNonIDR])
	require.Equal(t, 1, info.CountByType[h264.NALUTypeIDR])

	// Offsets and sizes: each NALU is start code + 4 payload bytes
	require.Equal(t, 0, info.NALUs[0].Offset)
	require.Equal(t, 4, info.NALUs[0].Size)
	require.Equal(t, 8, info.NALUs[1].Offset)
	require.Equal(t, 4, info.NALUs[1].Size)

	// A stream with no SPS/PPS is not decodable
	info = AnalyzeH264Stream(buildStream(h264.NALUTypeNonIDR, h264.NALUTypeNonIDR))
	require.False(t, info.IsDecodable())
}

func TestNALUTypeDescription(t *testing.T) {
	require.Equal(t, "SPS (Sequence parameter set)", NALUTypeDescription(h264.NALUTypeSPS))
	require.Equal(t, "Coded slice (IDR)", NALUTypeDescription(h264.NALUTypeIDR))
	require.Equal(t, "Reserved", NALUTypeDescription(h264.NALUType(17)))
}

func TestHexDump(t *testing.T) {
	require.Equal(t, "00 00 01 67", HexDump([]byte{0, 0, 1, 0x67}, 16))
	require.Equal(t, "00 00 ...", HexDump([]byte{0, 0, 1, 0x67}, 2))
	require.Equal(t, "", HexDump(nil, 16))
}
