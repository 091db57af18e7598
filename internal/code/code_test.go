package code

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gnssrcv/l1ca-core/internal/gdsp"
	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
)

func TestGenL1CA_PRN1GoldenChips(t *testing.T) {
	g, err := GenL1CA(1)
	require.NoError(t, err)
	require.Len(t, g, gnssconst.L1CACodeLen)

	want := []int8{1, 1, -1, -1, 1, -1, -1, -1, -1, -1}
	assert.Equal(t, want, g[:len(want)])
}

func TestGenL1CA_ChipsAreBipolar(t *testing.T) {
	for prn := 1; prn <= 32; prn++ {
		g, err := GenL1CA(prn)
		require.NoError(t, err)
		for i, c := range g {
			require.Containsf(t, []int8{-1, 1}, c, "prn %d chip %d = %d", prn, i, c)
		}
	}
}

func TestGenL1CA_OutOfRangePRN(t *testing.T) {
	_, err := GenL1CA(0)
	assert.Error(t, err)
	_, err = GenL1CA(211)
	assert.Error(t, err)
}

func TestGenCode_UnsupportedSignal(t *testing.T) {
	_, err := GenCode("L2C", 1)
	assert.ErrorIs(t, err, ErrUnsupportedSignal)
}

// TestSignalMetadata_DispatchesByTag exercises the per-signal metadata
// accessors spec.md §9 describes as a tagged-variant dispatch alongside
// gen_code: code length, period, and carrier frequency all key off the
// same signal-id string and fail the same way for an unsupported tag.
func TestSignalMetadata_DispatchesByTag(t *testing.T) {
	n, err := CodeLen("L1CA")
	require.NoError(t, err)
	assert.Equal(t, gnssconst.L1CACodeLen, n)

	period, err := CodePeriod("L1CA")
	require.NoError(t, err)
	assert.Equal(t, gnssconst.L1CACodePeriod, period)

	carrier, err := CarrierFreq("L1CA")
	require.NoError(t, err)
	assert.Equal(t, gnssconst.L1CACarrierHz, carrier)

	_, err = CodeLen("L2C")
	assert.ErrorIs(t, err, ErrUnsupportedSignal)
	_, err = CodePeriod("L2C")
	assert.ErrorIs(t, err, ErrUnsupportedSignal)
	_, err = CarrierFreq("L2C")
	assert.ErrorIs(t, err, ErrUnsupportedSignal)
}

// Autocorrelation of an L1 C/A code with itself, at zero lag, is N (the
// code length): a weak form of the two-valued autocorrelation property
// that makes Gold codes usable for CDMA acquisition.
func TestGenL1CA_ZeroLagAutocorrelation(t *testing.T) {
	for prn := 1; prn <= 32; prn++ {
		g, err := GenL1CA(prn)
		require.NoError(t, err)

		var energy float64
		for _, c := range g {
			energy += float64(c) * float64(c)
		}
		assert.InDelta(t, float64(gnssconst.L1CACodeLen), energy, 1e-9)
	}
}

// calc_correlation(x, FFT(x))[0] approximates sum|x[i]|^2/N for an
// arbitrary complex vector, the FFT correlation round-trip property.
func TestCalcCorrelation_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(4, 64).Draw(rt, "n")
		x := make([]complex128, n)
		var energy float64
		for i := range x {
			re := rapid.Float64Range(-10, 10).Draw(rt, "re")
			im := rapid.Float64Range(-10, 10).Draw(rt, "im")
			x[i] = complex(re, im)
			energy += re*re + im*im
		}

		xFFT := gdsp.ForwardFFT(x)
		corr := gdsp.CalcCorrelation(x, xFFT)

		want := energy / float64(n)
		got := cmplx.Abs(corr[0])
		if diff := got - want; diff > 1e-6 || diff < -1e-6 {
			rt.Fatalf("corr[0] = %v, want %v (energy=%v n=%d)", got, want, energy, n)
		}
	})
}

func TestCache_FFTIsMemoized(t *testing.T) {
	c := NewCache()
	a, err := c.FFT("L1CA", 1, 2046)
	require.NoError(t, err)
	b, err := c.FFT("L1CA", 1, 2046)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResample_NearestNeighbor(t *testing.T) {
	chips := []int8{1, -1, 1, -1}
	out := Resample(chips, 8)
	require.Len(t, out, 8)
	for i, c := range chips {
		assert.Equal(t, complex(float64(c), 0), out[2*i])
	}
}
