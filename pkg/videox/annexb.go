package videox

// Flags that control how EncodeAnnexB works
type AnnexBEncodeFlags int

const (
	AnnexBEncodeFlagNone                        AnnexBEncodeFlags = 0 // This is nonsensical - it is simply a memcpy
	AnnexBEncodeFlagAddEmulationPreventionBytes AnnexBEncodeFlags = 1 // Add emulation prevention bytes (0x03) where necessary
)

func NALUStartCode(length int) []byte {
	if length == 0 {
		return nil
	} else if length == 3 {
		return []byte{0, 0, 1}
	} else if length == 4 {
		return []byte{0, 0, 0, 1}
	} else {
		panic("Invalid NALU start code length")
	}
}

// Encode an RBSP (Raw Byte Sequence Payload) into Annex-B format, optionally adding
// a 3 or 4 byte start code (00.00.01 or 00.00.00.01) to the beginning of the encoded
// byte stream. If the relevant flag is set, then we add the "emulation prevention
// byte" (0x03) wherever two zero bytes are followed by a byte <= 3.
// If startCodeLen is zero, then we do not add a start code.
func EncodeAnnexB(raw []byte, startCodeLen int, flags AnnexBEncodeFlags) []byte {
	if startCodeLen != 0 && startCodeLen != 3 && startCodeLen != 4 {
		panic("Invalid startCodeLen. Must be one of 0,3,4")
	}
	// assume 1% expansion. +8 is for small SPS/PPS NALs.
	dst := make([]byte, 0, startCodeLen+8+len(raw)*101/100)
	dst = append(dst, NALUStartCode(startCodeLen)...)
	if flags&AnnexBEncodeFlagAddEmulationPreventionBytes == 0 {
		return append(dst, raw...)
	}
	zeros := 0
	for _, b := range raw {
		if zeros == 2 && b <= 3 {
			dst = append(dst, 3)
			zeros = 0
		}
		dst = append(dst, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return dst
}

// Decode an Annex-B encoded packet into a Raw Byte Sequence Payload (RBSP).
// We assume that you're handling the 3 or 4 byte NALU prefix outside of this function.
func DecodeAnnexB(encoded []byte) []byte {
	dst := make([]byte, 0, len(encoded))
	zeros := 0
	for i := 0; i < len(encoded); i++ {
		b := encoded[i]
		if zeros == 2 && b == 3 && i+1 < len(encoded) && encoded[i+1] <= 3 {
			// emulation prevention byte
			zeros = 0
			continue
		}
		dst = append(dst, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return dst
}

// Return the index of the first thing that looks like an emulation prevention byte,
// or -1 if there are none. This function is for analysis of camera streams.
func FirstLikelyAnnexBEncodedIndex(encoded []byte) int {
	if len(encoded) < 3 {
		return -1
	}
	// Look for 00.00.03.XX where XX is one of 00,01,02,03
	sum := int(encoded[0]) + int(encoded[1]) + int(encoded[2])
	for i := 3; i < len(encoded)-1; i++ {
		sum = sum - int(encoded[i-3]) + int(encoded[i])
		if sum == 3 && encoded[i-2] == 0 && encoded[i-1] == 0 && encoded[i+1] <= 3 {
			return i - 2
		}
	}
	return -1
}

// Return the worst case size of an Annex-B encoded packet, given the size of the raw packet
func AnnexBWorstSize(startCodeLen, rawLen int) int {
	return startCodeLen + rawLen*3/2
}
