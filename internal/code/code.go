// Package code generates and caches GPS L1 C/A Gold codes and their
// pre-computed FFTs.
//
// Grounded on original_source/src/code.rs (gen_l1ca_code: two 10-stage
// LFSRs combined through the G2 delay table), kept as a direct chip-for-chip
// port since the algorithm is a fixed IS-GPS-200 table lookup with no room
// for idiomatic variation; the caching layer around it follows the
// teacher's pattern of a mutex-guarded struct wrapping a plain map
// (pkg/gnssgo/stream's guarded-state style).
package code

import (
	"fmt"
	"sync"

	"github.com/gnssrcv/l1ca-core/internal/gdsp"
	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
)

// ErrUnsupportedSignal is returned by GenCode for any signal name other
// than "L1CA".
var ErrUnsupportedSignal = fmt.Errorf("code: unsupported signal")

// g2Delay holds the L1 C/A G2 shift-register delay for PRNs 1-210 (index
// prn-1), per IS-GPS-200 Table 3-Ia/Ib.
var g2Delay = [210]int{
	5, 6, 7, 8, 17, 18, 139, 140, 141, 251,
	252, 254, 255, 256, 257, 258, 469, 470, 471, 472,
	473, 474, 509, 512, 513, 514, 515, 516, 859, 860,
	861, 862, 863, 950, 947, 948, 950, 67, 103, 91,
	19, 679, 225, 625, 946, 638, 161, 1001, 554, 280,
	710, 709, 775, 864, 558, 220, 397, 55, 898, 759,
	367, 299, 1018, 729, 695, 780, 801, 788, 732, 34,
	320, 327, 389, 407, 525, 405, 221, 761, 260, 326,
	955, 653, 699, 422, 188, 438, 959, 539, 879, 677,
	586, 153, 792, 814, 446, 264, 1015, 278, 536, 819,
	156, 957, 159, 712, 885, 461, 248, 713, 126, 807,
	279, 122, 197, 693, 632, 771, 467, 647, 203, 145,
	175, 52, 21, 237, 235, 886, 657, 634, 762, 355,
	1012, 176, 603, 130, 359, 595, 68, 386, 797, 456,
	499, 883, 307, 127, 211, 121, 118, 163, 628, 853,
	484, 289, 811, 202, 1021, 463, 568, 904, 670, 230,
	911, 684, 309, 644, 932, 12, 314, 891, 212, 185,
	675, 503, 150, 395, 345, 846, 798, 992, 357, 995,
	877, 112, 144, 476, 193, 109, 445, 291, 87, 399,
	292, 901, 339, 208, 711, 189, 263, 537, 663, 942,
	173, 900, 30, 500, 935, 556, 373, 85, 652, 310,
}

// GenL1CA generates the length-1023 +1/-1 Gold code for the given PRN
// (1-210) by combining two maximal-length 10-stage LFSRs (G1, G2) with the
// G2 tap delayed by g2Delay[prn-1] chips.
func GenL1CA(prn int) ([]int8, error) {
	if prn < 1 || prn > len(g2Delay) {
		return nil, fmt.Errorf("code: prn %d out of range [1,%d]", prn, len(g2Delay))
	}

	var r1, r2 [10]int8
	for i := range r1 {
		r1[i] = -1
		r2[i] = -1
	}

	var g1, g2 [gnssconst.L1CACodeLen]int8
	for i := 0; i < gnssconst.L1CACodeLen; i++ {
		g1[i] = r1[9]
		g2[i] = r2[9]

		c1 := r1[2] * r1[9]
		c2 := r2[1] * r2[2] * r2[5] * r2[7] * r2[8] * r2[9]

		shiftRight(&r1, c1)
		shiftRight(&r2, c2)
	}

	out := make([]int8, gnssconst.L1CACodeLen)
	j := gnssconst.L1CACodeLen - g2Delay[prn-1]
	for i := 0; i < gnssconst.L1CACodeLen; i++ {
		idx := ((j % gnssconst.L1CACodeLen) + gnssconst.L1CACodeLen) % gnssconst.L1CACodeLen
		out[i] = -g1[i] * g2[idx]
		j++
	}
	return out, nil
}

func shiftRight(r *[10]int8, feedback int8) {
	for i := 9; i > 0; i-- {
		r[i] = r[i-1]
	}
	r[0] = feedback
}

// GenCode generates the code sequence for sig/prn. Only "L1CA" is
// implemented; any other signal name yields ErrUnsupportedSignal.
func GenCode(sig string, prn int) ([]int8, error) {
	switch sig {
	case "L1CA":
		return GenL1CA(prn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSignal, sig)
	}
}

// CodePeriod returns the code repetition period in seconds for sig.
func CodePeriod(sig string) (float64, error) {
	if sig != "L1CA" {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedSignal, sig)
	}
	return gnssconst.L1CACodePeriod, nil
}

// CodeLen returns the chip count per code period for sig.
func CodeLen(sig string) (int, error) {
	if sig != "L1CA" {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedSignal, sig)
	}
	return gnssconst.L1CACodeLen, nil
}

// CarrierFreq returns the nominal carrier frequency in Hz for sig.
func CarrierFreq(sig string) (float64, error) {
	if sig != "L1CA" {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedSignal, sig)
	}
	return gnssconst.L1CACarrierHz, nil
}

// entry is one cached PRN artifact: the raw +1/-1 chip sequence and the
// forward FFT of that sequence resampled to n complex128 samples, ready
// for gdsp.CalcCorrelation.
type entry struct {
	chips []int8
	fft   []complex128
}

// Cache memoizes generated codes and their FFTs, keyed by (sig, prn, n)
// where n is the resampled length the caller needs (samples per code
// period at the receiver's sample rate). Acquisition re-resamples the
// same PRN at the same n many times per run, so this cache avoids
// regenerating the LFSR output and refitting the FFT on every call.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]entry
}

type cacheKey struct {
	sig string
	prn int
	n   int
}

// NewCache returns an empty code cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]entry)}
}

// FFT returns the forward FFT of sig/prn resampled to n complex samples,
// generating and caching it on first use.
func (c *Cache) FFT(sig string, prn, n int) ([]complex128, error) {
	key := cacheKey{sig, prn, n}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.fft, nil
	}
	c.mu.Unlock()

	chips, err := GenCode(sig, prn)
	if err != nil {
		return nil, err
	}
	resampled := Resample(chips, n)
	fft := gdsp.ForwardFFT(resampled)

	c.mu.Lock()
	c.entries[key] = entry{chips: chips, fft: fft}
	c.mu.Unlock()

	return fft, nil
}

// Resample nearest-neighbor-resamples a length-1023 chip sequence to n
// complex samples, matching the sample rate of an acquisition search
// window.
func Resample(chips []int8, n int) []complex128 {
	out := make([]complex128, n)
	codeLen := len(chips)
	for i := 0; i < n; i++ {
		idx := i * codeLen / n
		if idx >= codeLen {
			idx = codeLen - 1
		}
		out[i] = complex(float64(chips[idx]), 0)
	}
	return out
}
