package navdec

// parityMask holds the six LNAV parity-check masks (D25..D30), applied to
// bits 29..6 (0-indexed from the word's MSB) of each 30-bit word, per
// IS-GPS-200 Table 20-XIV. Ported from
// original_source/src/navigation.rs's nav_test_lnav_parity.
var parityMask = [6]uint32{
	0x2EC7CD2,
	0x1763E69,
	0x2BB1F34,
	0x15D8F9A,
	0x1AEC7CD,
	0x22DEA27,
}

// invertMask flips the 24 data bits (and the non-parity reserved bits) of a
// word whose previous word ended in D30* = 1, per IS-GPS-200 20.3.5.2.
const invertMask = 0x3FFFFFC0

// testLNAVParity checks the parity of a 300-bit (10-word) LNAV subframe and,
// if it passes, extracts the 24 data bits of each word into a 300-bit
// nav_data buffer with the trailing 6 (now-redundant) parity bits of each
// word zeroed. bits must hold exactly NavBitsPerSubframe entries.
//
// data is a rolling 32-bit shift register carried across words on purpose:
// after each word's 30 bits are shifted in, its top two bits are exactly
// D29*/D30* of the word just completed, which is what the next word's
// inversion test needs. This mirrors nav_test_lnav_parity exactly rather
// than threading D29/D30 through as explicit state.
func testLNAVParity(bits []uint8) (bool, []uint8) {
	navData := make([]uint8, len(bits))

	var data uint32
	for i := 0; i < 10; i++ {
		for j := 0; j < 30; j++ {
			data = (data << 1) | uint32(bits[i*30+j]&1)
		}
		if data&(1<<30) != 0 {
			data ^= invertMask
		}
		for j := 0; j < 6; j++ {
			v0 := (data >> 6) & parityMask[j]
			v1 := uint8((data >> uint(5-j)) & 1)
			if xorBits(v0) != v1 {
				return false, navData
			}
		}
		setbitu(navData, 30*i, 24, (data>>6)&0xFFFFFF)
	}
	return true, navData
}
