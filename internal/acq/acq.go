// Package acq implements the acquisition engine of spec.md §4.4: a
// coarse 2-D search over (Doppler, code-phase) via FFT-based cyclic
// correlation, run per-satellite in parallel, with hierarchical
// Doppler refinement.
//
// Grounded on original_source/src/receiver.rs's use of rayon's
// par_iter_mut for the per-SV fan-out (spec.md §9 "Per-SV parallel
// acquisition"), re-expressed with a bounded goroutine pool since no
// data-parallel library appears anywhere in the retrieval pack.
package acq

import (
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gnssrcv/l1ca-core/internal/code"
	"github.com/gnssrcv/l1ca-core/internal/gdsp"
	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
)

// Param is the acquisition output for one satellite, per spec.md §3's
// "Correlation parameter record".
type Param struct {
	DopplerHz   int32
	PhaseOffset int
	SNRdB       float64
	CorrEnergy  float64
}

// Window is the input to Acquire: the most recent ACQ_MS milliseconds
// of IQ samples and the sample rate they were captured at.
type Window struct {
	IQ []complex128
	Fs float64
}

// Acquire searches window for each candidate PRN in satIDs and returns
// the acquisition parameters for every PRN whose final SNR clears
// gnssconst.AcqSNRThresholdDB. Absent PRNs are simply not present in
// the returned map (AcquisitionMiss is silent, per spec.md §7).
//
// Acquire is deterministic given the same window and satIDs: the
// per-satellite search is embarrassingly parallel and each goroutine
// only touches its own local state and the read-only, write-once code
// cache (spec.md §5), so parallelism never changes results.
func Acquire(window Window, satIDs []int, cache *code.Cache, logger logrus.FieldLogger) map[int]Param {
	results := make(map[int]Param, len(satIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, workerCount())
	for _, prn := range satIDs {
		prn := prn
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			p, ok := acquireOne("L1CA", prn, window.IQ, window.Fs, cache)
			if !ok {
				if logger != nil {
					logger.WithField("prn", prn).Info("acquisition: not present")
				}
				return
			}
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"prn": prn, "doppler_hz": p.DopplerHz, "phase_offset": p.PhaseOffset, "snr_db": p.SNRdB,
				}).Info("acquisition: hit")
			}
			mu.Lock()
			results[prn] = p
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func workerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// acquireOne runs the hierarchical Doppler/code-phase search of
// spec.md §4.4 steps 1-5 for a single PRN.
func acquireOne(sig string, prn int, window []complex128, fs float64, cache *code.Cache) (Param, bool) {
	n := int(fs * gnssconst.L1CACodePeriod)
	if n <= 0 || len(window) < n {
		return Param{}, false
	}
	numMs := len(window) / n

	bFFT, err := cache.FFT(sig, prn, n)
	if err != nil {
		return Param{}, false
	}

	centerHz := 0.0
	halfWidth := float64(gnssconst.AcqDopplerHalfWidth)
	bins := gnssconst.AcqDopplerBins

	best := searchStage(window[:numMs*n], fs, n, numMs, bFFT, centerHz, halfWidth, bins)
	prevSNR := best.SNRdB

	for {
		halfWidth /= float64(bins)
		stage := searchStage(window[:numMs*n], fs, n, numMs, bFFT, float64(best.DopplerHz), halfWidth, bins)
		if stage.SNRdB <= prevSNR {
			break
		}
		prevSNR = stage.SNRdB
		best = stage
	}

	if best.SNRdB >= gnssconst.AcqSNRThresholdDB {
		return best, true
	}
	return Param{}, false
}

// searchStage sweeps bins+1 Doppler trials spaced 2*halfWidth/bins apart
// over [center-halfWidth, center+halfWidth], both ends included, and
// returns the trial with the
// largest non-coherent correlation energy (spec.md §4.4 steps 2-3).
func searchStage(window []complex128, fs float64, n, numMs int, bFFT []complex128, center, halfWidth float64, bins int) Param {
	var best Param
	bestEnergy := math.Inf(-1)

	step := 2 * halfWidth / float64(bins)
	for b := 0; b <= bins; b++ {
		f := center - halfWidth + float64(b)*step

		bCorr := make([]float64, n)
		for ms := 0; ms < numMs; ms++ {
			seg := window[ms*n : (ms+1)*n]
			wiped := gdsp.DopplerWipe(seg, f, 0, float64(ms)*gnssconst.L1CACodePeriod, fs)
			corr := gdsp.CalcCorrelation(wiped, bFFT)
			for i, c := range corr {
				bCorr[i] += cmplx.Abs(c)
			}
		}

		var energy float64
		for _, v := range bCorr {
			energy += v * v
		}

		if energy > bestEnergy {
			idx, peak := gdsp.GetMaxWithIdx(bCorr)
			second := gdsp.GetSecondMax(bCorr, gnssconst.AcqSecondPeakGuard)
			bestEnergy = energy
			best = Param{
				DopplerHz:   int32(math.Round(f)),
				PhaseOffset: idx,
				SNRdB:       gdsp.SNRdB(peak, second),
				CorrEnergy:  energy,
			}
		}
	}
	return best
}
