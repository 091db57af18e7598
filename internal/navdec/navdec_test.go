package navdec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
	"github.com/gnssrcv/l1ca-core/internal/gtime"
)

// setField ORs a length-bit value into word's local bit range
// [localPos, localPos+length), counting from word's MSB (bit 0 of a
// 24-bit word), matching the MSB-first convention getbitu/setbitu use
// throughout this package.
func setField(word uint32, localPos, length int, value uint32) uint32 {
	shift := uint(24 - (localPos + length))
	mask := uint32(1)<<uint(length) - 1
	return word | ((value & mask) << shift)
}

// encodeSubframe builds a parity-valid 300-bit LNAV subframe from 10
// 24-bit source words, threading the D29*/D30* parity-dependent
// inversion exactly as testLNAVParity expects to unwind it. initD29/30
// are the previous word's last two parity bits (0,0 for a subframe with
// no known predecessor); it returns the bits along with the final word's
// D29/D30 for chaining into a following subframe.
func encodeSubframe(words [10]uint32, initD29, initD30 uint8) ([]uint8, uint8, uint8) {
	bits := make([]uint8, gnssconst.NavBitsPerSubframe)
	prevD29, prevD30 := initD29, initD30
	for i := 0; i < 10; i++ {
		data := words[i] & 0xFFFFFF
		transmitted := data
		if prevD30 == 1 {
			transmitted ^= 0xFFFFFF
		}
		// Parity is computed over the source data bits, not the
		// (possibly inverted) transmitted ones.
		combined := (uint32(prevD29) << 25) | (uint32(prevD30) << 24) | data

		var d [6]uint8
		for j := 0; j < 6; j++ {
			d[j] = xorBits(combined & parityMask[j])
		}
		for b := 0; b < 24; b++ {
			bits[i*30+b] = uint8((transmitted >> uint(23-b)) & 1)
		}
		for b := 0; b < 6; b++ {
			bits[i*30+24+b] = d[b]
		}
		prevD29, prevD30 = d[4], d[5]
	}
	return bits, prevD29, prevD30
}

func buildSF1Words(weekRaw, towCount, tgdRaw uint32, iodcLSB, tocRaw, af1Raw, af0Raw uint32) [10]uint32 {
	var w [10]uint32
	w[0] = setField(0, 0, 8, 0x8B)
	w[1] = setField(0, 0, 17, towCount)
	w[1] = setField(w[1], 19, 3, 1) // subframe id 1
	w[2] = setField(0, 0, 10, weekRaw)
	w[2] = setField(w[2], 22, 2, 1) // iodc msb = 1
	w[6] = setField(0, 16, 8, tgdRaw)
	w[7] = setField(0, 0, 8, iodcLSB)
	w[7] = setField(w[7], 8, 16, tocRaw)
	w[8] = setField(0, 8, 16, af1Raw)
	w[9] = setField(0, 0, 22, af0Raw)
	return w
}

func TestTestLNAVParity_GoldenSubframe1(t *testing.T) {
	words := buildSF1Words(100, 16800, 5, 0x34, 1000, 100, 2000)
	bits, _, _ := encodeSubframe(words, 0, 0)

	ok, navData := testLNAVParity(bits)
	require.True(t, ok)

	var eph Ephemeris
	eph.decodeSubframe1(navData)

	assert.Equal(t, 100+gnssconst.GPSWeekRolloverOffset, eph.Week)
	assert.InDelta(t, 5*gnssconst.P2_31, eph.TGD, 1e-20)
	assert.Equal(t, 1<<8|0x34, eph.IODC)
	assert.InDelta(t, 1000*16, eph.Toc, 1e-9)
	assert.InDelta(t, 100*gnssconst.P2_43, eph.Af1, 1e-25)
	assert.InDelta(t, 2000*gnssconst.P2_31, eph.Af0, 1e-20)
	assert.True(t, eph.HasSF1)

	assert.InDelta(t, 16800*6, howTOW(navData), 1e-9)
}

func TestTestLNAVParity_DetectsSingleBitFlip(t *testing.T) {
	words := buildSF1Words(100, 16800, 5, 0x34, 1000, 100, 2000)
	bits, _, _ := encodeSubframe(words, 0, 0)

	bits[10] ^= 1 // flip a data bit well inside word 1

	ok, _ := testLNAVParity(bits)
	assert.False(t, ok)
}

func TestEphemeris_TOWArithmetic(t *testing.T) {
	eph := &Ephemeris{Week: 2048, TOW: 604800, Toe: 604800, Toc: 604800}
	eph.refreshEpochs()

	want := gtime.FromGPSTSeconds(2048*float64(gnssconst.SecondsPerGPSWeek) + 604800)
	assert.Equal(t, want, eph.TowGpst)
	assert.Equal(t, want, eph.ToeGpst)
}

func TestEphemeris_Complete(t *testing.T) {
	eph := &Ephemeris{HasSF1: true, HasSF2: true, HasSF3: true, IODE2: 5, IODE3: 5, IODC: 0x105}
	assert.True(t, eph.Complete())

	eph.IODE3 = 6
	assert.False(t, eph.Complete())
}

func TestBitSync_LocksOntoAlignedChunkBoundaries(t *testing.T) {
	b := newBitSync()
	sign := 1.0
	locked := false
	for chunk := 0; chunk < 80; chunk++ {
		sign = -sign // flip once per 20-sample chunk so every transition falls on a chunk boundary
		for s := 0; s < gnssconst.NavSymbolsPerBit; s++ {
			locked = b.observe(sign)
		}
	}
	require.True(t, locked)
	assert.Equal(t, 0, b.phase)
}

func TestDecoder_TrySync_DecodesChainedSubframes(t *testing.T) {
	sf1 := buildSF1Words(100, 16800, 5, 0x34, 1000, 100, 2000)
	// Choose word 10's two trailing data bits so that its D29/D30 are 0,
	// as IS-GPS-200 does; otherwise the next subframe's preamble is sent
	// inverted.
	for tBits := uint32(0); tBits < 4; tBits++ {
		trial := sf1
		trial[9] |= tBits
		if _, e29, e30 := encodeSubframe(trial, 0, 0); e29 == 0 && e30 == 0 {
			sf1 = trial
			break
		}
	}
	bits1, d29, d30 := encodeSubframe(sf1, 0, 0)

	var sf2 [10]uint32
	sf2[0] = setField(0, 0, 8, 0x8B)
	sf2[1] = setField(0, 19, 3, 2) // subframe id 2
	bits2, _, _ := encodeSubframe(sf2, d29, d30)

	stream := append(bits1, bits2...)

	dec := NewDecoder(1, nil)
	var events []*DecodedEvent
	for i, b := range stream {
		dec.bits = append(dec.bits, b)
		if ev := dec.trySync(float64(i) * 0.001); ev != nil {
			events = append(events, ev)
		}
	}

	require.NotEmpty(t, events)
	first := events[0]
	assert.True(t, first.FrameSyncChanged)
	assert.Equal(t, SyncNormal, first.FrameSync)
	assert.Equal(t, 1, first.SubframeID)
	assert.True(t, dec.Eph.HasSF1)
}

func TestIsSBAS(t *testing.T) {
	assert.True(t, IsSBAS(120))
	assert.True(t, IsSBAS(158))
	assert.False(t, IsSBAS(119))
	assert.False(t, IsSBAS(32))
}
