package gdsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDopplerWipe_RemovesKnownCarrier(t *testing.T) {
	fs := 1000.0
	fd := 50.0
	n := 100
	iq := make([]complex128, n)
	for i := range iq {
		theta := 2 * math.Pi * fd * float64(i) / fs
		iq[i] = cmplx.Rect(1, theta)
	}

	wiped := DopplerWipe(iq, fd, 0, 0, fs)
	for _, s := range wiped {
		assert.InDelta(t, 1.0, real(s), 1e-9)
		assert.InDelta(t, 0.0, imag(s), 1e-9)
	}
}

func TestGetMaxWithIdx_TreatsNegativesAsZero(t *testing.T) {
	idx, max := GetMaxWithIdx([]float64{-5, 2, -1, 7, 3})
	assert.Equal(t, 3, idx)
	assert.Equal(t, 7.0, max)
}

func TestGetSecondMax_SkipsSamplesNearThePeak(t *testing.T) {
	v := make([]float64, 200)
	v[100] = 10
	v[101] = 9 // within the 50-sample guard band of the peak, must be skipped
	v[170] = 5
	second := GetSecondMax(v, 50)
	assert.Equal(t, 5.0, second)
}

func TestSNRdB_MatchesFormula(t *testing.T) {
	got := SNRdB(10, 2)
	want := 10 * math.Log10((10.0-2.0)/2.0)
	assert.InDelta(t, want, got, 1e-9)
}

func TestSNRdB_InfiniteWhenNoSecondPeak(t *testing.T) {
	assert.True(t, math.IsInf(SNRdB(10, 0), 1))
}

func TestVectorMeanAndStdDev(t *testing.T) {
	v := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, VectorMean(v), 1e-9)
	assert.InDelta(t, 2.1380899, VectorStdDev(v), 1e-6)
}

func TestNormSquare_SumsMagnitudeSquares(t *testing.T) {
	v := []complex128{complex(3, 4), complex(0, 1)}
	assert.InDelta(t, 26.0, NormSquare(v), 1e-9)
}
