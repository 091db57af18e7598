package acq

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnssrcv/l1ca-core/internal/code"
	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
)

// buildSyntheticWindow builds ACQ_MS of a Doppler-shifted, code-phase
// shifted L1 C/A signal for prn, optionally adding noise to approximate
// a target correlation SNR, per spec.md §8 item 4.
func buildSyntheticWindow(t *testing.T, fs float64, prn, shiftSamples int, dopplerHz float64, noiseAmp float64) []complex128 {
	t.Helper()
	n := int(fs * gnssconst.L1CACodePeriod)
	numMs := gnssconst.AcqWindowMS

	chips, err := code.GenL1CA(prn)
	require.NoError(t, err)
	resampled := code.Resample(chips, n)

	rng := rand.New(rand.NewSource(1))
	out := make([]complex128, n*numMs)
	for gi := range out {
		codeIdx := ((gi-shiftSamples)%n + n) % n
		theta := 2 * math.Pi * dopplerHz * float64(gi) / fs
		sig := resampled[codeIdx] * complex(math.Cos(theta), math.Sin(theta))
		noise := complex(noiseAmp*(rng.Float64()*2-1), noiseAmp*(rng.Float64()*2-1))
		out[gi] = sig + noise
	}
	return out
}

func TestAcquire_RecallsShiftedDopplerPRN(t *testing.T) {
	fs := 2046000.0 // yields 2046 samples/ms, per spec.md §4.3
	window := buildSyntheticWindow(t, fs, 5, 137, 2500, 0.05)

	cache := code.NewCache()
	results := Acquire(Window{IQ: window, Fs: fs}, []int{5}, cache, nil)

	require.Contains(t, results, 5)
	p := results[5]
	assert.InDelta(t, 137, p.PhaseOffset, 1)
	assert.InDelta(t, 2500, float64(p.DopplerHz), 80)
	assert.GreaterOrEqual(t, p.SNRdB, gnssconst.AcqSNRThresholdDB)
}

func TestAcquire_Determinism(t *testing.T) {
	fs := 2046000.0
	window := buildSyntheticWindow(t, fs, 7, 500, -1800, 0.05)

	cache1 := code.NewCache()
	cache2 := code.NewCache()

	r1 := Acquire(Window{IQ: window, Fs: fs}, []int{1, 7, 12}, cache1, nil)
	r2 := Acquire(Window{IQ: window, Fs: fs}, []int{1, 7, 12}, cache2, nil)

	assert.Equal(t, r1, r2)
}

func TestAcquire_AbsentSatelliteIsMissing(t *testing.T) {
	fs := 2046000.0
	window := buildSyntheticWindow(t, fs, 5, 137, 2500, 0.05)

	cache := code.NewCache()
	results := Acquire(Window{IQ: window, Fs: fs}, []int{9}, cache, nil)

	assert.NotContains(t, results, 9)
}
