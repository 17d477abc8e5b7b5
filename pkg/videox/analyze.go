package videox

import (
	"fmt"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
)

// NALUInfo describes one NAL unit found in an H264 elementary stream
type NALUInfo struct {
	Offset       int            `json:"offset"`       // Byte offset of the start code in the stream
	StartCodeLen int            `json:"startCodeLen"` // 3 or 4
	Type         h264.NALUType  `json:"type"`
	Size         int            `json:"size"` // Payload size, excluding the start code
}

// StreamInfo is the result of scanning an H264 elementary stream
type StreamInfo struct {
	NALUs       []NALUInfo            `json:"nalus"`
	CountByType map[h264.NALUType]int `json:"countByType"`
	HasSPS      bool                  `json:"hasSPS"`
	HasPPS      bool                  `json:"hasPPS"`
	HasIDR      bool                  `json:"hasIDR"`
	Width       int                   `json:"width"`  // From the SPS. 0 if no SPS found, or SPS parse failed.
	Height      int                   `json:"height"` // From the SPS
}

// A stream is decodable from the top if we've seen SPS, PPS and a keyframe
func (s *StreamInfo) IsDecodable() bool {
	return s.HasSPS && s.HasPPS && s.HasIDR
}

// Find the offset of the next Annex-B start code at or after 'from'.
// Returns the offset and the start code length, or (-1, 0) if there are no more.
func NextStartCode(stream []byte, from int) (offset, startCodeLen int) {
	for i := from; i+2 < len(stream); i++ {
		if stream[i] == 0 && stream[i+1] == 0 {
			if stream[i+2] == 1 {
				return i, 3
			}
			if i+3 < len(stream) && stream[i+2] == 0 && stream[i+3] == 1 {
				return i, 4
			}
		}
	}
	return -1, 0
}

// Split an Annex-B elementary stream into NALUs.
// Each returned NALU includes its start code, and references the input buffer
// without copying.
func SplitAnnexB(stream []byte) []NALU {
	nalus := []NALU{}
	pos, scLen := NextStartCode(stream, 0)
	for pos != -1 {
		next, nextLen := NextStartCode(stream, pos+scLen)
		end := len(stream)
		if next != -1 {
			end = next
		}
		nalus = append(nalus, NALU{
			Payload:         stream[pos:end],
			PayloadIsAnnexB: true,
		})
		pos, scLen = next, nextLen
	}
	return nalus
}

// Scan an H264 elementary stream, and report what's in it.
// This is the workhorse of stream diagnostics: when a camera produces video that
// won't decode, the first question is whether the stream contains SPS/PPS and
// keyframes at all.
func AnalyzeH264Stream(stream []byte) *StreamInfo {
	info := &StreamInfo{
		CountByType: map[h264.NALUType]int{},
	}
	pos, scLen := NextStartCode(stream, 0)
	for pos != -1 {
		next, nextLen := NextStartCode(stream, pos+scLen)
		end := len(stream)
		if next != -1 {
			end = next
		}
		nalu := NALU{
			Payload:         stream[pos:end],
			PayloadIsAnnexB: true,
		}
		t := nalu.Type()
		info.NALUs = append(info.NALUs, NALUInfo{
			Offset:       pos,
			StartCodeLen: scLen,
			Type:         t,
			Size:         end - pos - scLen,
		})
		info.CountByType[t]++
		switch t {
		case h264.NALUTypeSPS:
			info.HasSPS = true
			if info.Width == 0 {
				// SPS.Unmarshal removes the emulation prevention bytes itself,
				// so we hand it the escaped payload.
				sps := h264.SPS{}
				if err := sps.Unmarshal(nalu.PayloadOnly()); err == nil {
					info.Width = sps.Width()
					info.Height = sps.Height()
				}
			}
		case h264.NALUTypePPS:
			info.HasPPS = true
		case h264.NALUTypeIDR:
			info.HasIDR = true
		}
		pos, scLen = next, nextLen
	}
	return info
}

// Format a short hex dump of the first bytes of a NALU, the way you'd want to
// see it when eyeballing a broken stream.
func HexDump(payload []byte, maxBytes int) string {
	n := min(len(payload), maxBytes)
	s := ""
	for i := 0; i < n; i++ {
		if i != 0 {
			s += " "
		}
		s += fmt.Sprintf("%02x", payload[i])
	}
	if len(payload) > maxBytes {
		s += " ..."
	}
	return s
}
