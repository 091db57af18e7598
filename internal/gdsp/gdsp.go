// Package gdsp is the utility DSP layer shared by acquisition and
// tracking: FFT-based cyclic correlation, Doppler-wipe carrier
// generation, and the peak/statistics helpers used to score a
// correlation result.
//
// Grounded on original_source/src/util.rs (calc_correlation,
// doppler_shift, get_max_with_idx, get_2nd_max, vector_mean*), ported
// from rustfft to gonum.org/v1/gonum/dsp/fourier — the FFT library
// named in the rjboer/GoSDR and cwsl/ka9q_ubersdr go.mod manifests,
// the only SDR-adjacent repos in the retrieval pack that pull in an
// FFT dependency.
package gdsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// CalcCorrelation computes the cyclic cross-correlation of a against the
// pre-computed FFT of b (bFFT), per spec.md §4.2: forward-FFT a,
// multiply element-wise by the conjugate of bFFT, inverse-FFT, and
// divide by N. c[k] is indexed so that it corresponds to a cyclic shift
// of b by k samples.
func CalcCorrelation(a []complex128, bFFT []complex128) []complex128 {
	n := len(a)
	if len(bFFT) != n {
		panic("gdsp: CalcCorrelation: length mismatch between a and bFFT")
	}

	fft := fourier.NewCmplxFFT(n)
	coefA := fft.Coefficients(nil, a)

	prod := make([]complex128, n)
	for i := range prod {
		prod[i] = coefA[i] * cmplx.Conj(bFFT[i])
	}

	// fft.Sequence is unnormalized: one factor of 1/N makes it the
	// inverse FFT, the second is the division by N.
	out := fft.Sequence(nil, prod)
	inv := 1 / (float64(n) * float64(n))
	for i := range out {
		out[i] *= complex(inv, 0)
	}
	return out
}

// ForwardFFT computes the unnormalized forward FFT of seq, the form
// cached per-PRN alongside each Gold code (spec.md §3, "PRN code
// artifact").
func ForwardFFT(seq []complex128) []complex128 {
	fft := fourier.NewCmplxFFT(len(seq))
	return fft.Coefficients(nil, seq)
}

// DopplerWipe returns a new slice holding each sample of iq multiplied by
// exp(-j(2*pi*fd*(n/fs+t0) - phi0)), removing a candidate carrier Doppler
// and initial phase; iq itself is not modified. Phase is computed
// per-sample from (n, t0) rather than by accumulating a running phase, so
// rounding errors do not build up from sample to sample. The full phase
// argument is passed to the trig evaluation without first being reduced
// modulo 2*pi.
func DopplerWipe(iq []complex128, fdHz float64, phi0 float64, t0Sec float64, fs float64) []complex128 {
	out := make([]complex128, len(iq))
	w := -2 * math.Pi * fdHz
	for n := range iq {
		theta := w*(float64(n)/fs+t0Sec) + phi0
		out[n] = iq[n] * cmplx.Rect(1, theta)
	}
	return out
}

// GetMaxWithIdx returns the index and value of the largest element of v,
// treating negative values as if they were zero (spec.md §4.2).
func GetMaxWithIdx(v []float64) (idx int, max float64) {
	for i, x := range v {
		if x < 0 {
			x = 0
		}
		if x > max {
			max = x
			idx = i
		}
	}
	return idx, max
}

// GetSecondMax returns the largest element of v that is more than delta
// samples (cyclically is not accounted for; a plain index distance,
// matching the original) away from the peak, so that the second-highest
// sample of the same correlation lobe is not mistaken for a distinct peak.
func GetSecondMax(v []float64, delta int) float64 {
	peakIdx, peakVal := GetMaxWithIdx(v)

	var second float64
	for i, x := range v {
		if x > second && x < peakVal && (i > peakIdx+delta || i < peakIdx-delta) {
			second = x
		}
	}
	return second
}

// SNRdB computes the acquisition SNR metric defined in spec.md §3:
// 10*log10((peak-second)/second).
func SNRdB(peak, second float64) float64 {
	if second == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10((peak-second)/second)
}

// VectorMean returns the arithmetic mean of v.
func VectorMean(v []float64) float64 {
	return stat.Mean(v, nil)
}

// VectorStdDev returns the sample standard deviation of v (normalized by
// len(v)-1).
func VectorStdDev(v []float64) float64 {
	return stat.StdDev(v, nil)
}

// NormSquare returns sum(|v[i]|^2), the energy of a complex vector.
func NormSquare(v []complex128) float64 {
	var sum float64
	for _, x := range v {
		sum += real(x)*real(x) + imag(x)*imag(x)
	}
	return sum
}
