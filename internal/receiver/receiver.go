// Package receiver is the driver loop that wires the IQ sample source,
// acquisition, per-channel tracking, and navigation decoding together
// into one running receiver (spec.md §2 data flow, §5 concurrency),
// publishing its results into a pubstate.State.
//
// Grounded on original_source/src/receiver.rs's Receiver: the same
// fetch_samples_msec rolling-cache shape, the same process_step/
// compute_fix cadence split, generalized to also run the periodic
// acquisition sweep and channel lifecycle (create/drop) that
// original_source's missing channel.rs would have driven internally.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gnssrcv/l1ca-core/internal/acq"
	"github.com/gnssrcv/l1ca-core/internal/code"
	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
	"github.com/gnssrcv/l1ca-core/internal/gtime"
	"github.com/gnssrcv/l1ca-core/internal/iq"
	"github.com/gnssrcv/l1ca-core/internal/navdec"
	"github.com/gnssrcv/l1ca-core/internal/pubstate"
	"github.com/gnssrcv/l1ca-core/internal/track"
)

// ErrNoSatellites is returned by New when Config.SatIDs is empty.
var ErrNoSatellites = errors.New("receiver: no satellite IDs configured")

// MissLimit is the number of consecutive acquisition misses a tracked
// satellite tolerates before its channel is dropped (spec.md §8 item 11).
const MissLimit = 2

// FixIntervalSec is the minimum wall-clock-equivalent spacing between fix
// attempts, matching original_source's compute_fix (`elapsed < 2.0`).
const FixIntervalSec = 2.0

// Config configures a Receiver.
type Config struct {
	Fs  float64 // sample rate, Hz
	Fi  float64 // front-end intermediate frequency folded into each channel's initial Doppler, Hz
	Sig string  // signal id, e.g. "L1CA"

	SatIDs []int // satellites to search for and track

	AcquireIntervalMS int // how often (ms of processed samples) to re-run acquisition; 0 re-runs it every AcqWindowMS only while some configured satellite has no channel
}

// Receiver owns the rolling sample caches, one track.Channel and
// navdec.Decoder pair per currently-tracked satellite, and the published
// state those channels feed.
type Receiver struct {
	cfg    Config
	source iq.Source
	cache  *code.Cache
	logger logrus.FieldLogger
	state  *pubstate.State

	runID uuid.UUID

	periodSP   int
	offSamples int

	cachedIQ        []complex128
	cachedTsSecTail float64

	acqBuf []complex128

	channels map[int]*track.Channel
	decoders map[int]*navdec.Decoder
	misses   map[int]int

	sinceAcquireMS int

	lastFixTsSec    float64
	haveFix         bool
	onFixReady      func(tsSec float64)
}

// New builds a Receiver reading from source, per cfg.
func New(cfg Config, source iq.Source, logger logrus.FieldLogger) (*Receiver, error) {
	if len(cfg.SatIDs) == 0 {
		return nil, ErrNoSatellites
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	periodSP := int(gnssconst.L1CACodePeriod * cfg.Fs)
	if periodSP <= 0 {
		return nil, fmt.Errorf("receiver: sample rate %.0f too low for a %gs code period", cfg.Fs, gnssconst.L1CACodePeriod)
	}
	return &Receiver{
		cfg:      cfg,
		source:   source,
		cache:    code.NewCache(),
		logger:   logger,
		state:    pubstate.New(),
		runID:    uuid.New(),
		periodSP: periodSP,
		channels: make(map[int]*track.Channel),
		decoders: make(map[int]*navdec.Decoder),
		misses:   make(map[int]int),
	}, nil
}

// State returns the receiver's published state for external consumers.
func (r *Receiver) State() *pubstate.State { return r.state }

// RunID is a per-run correlation id, attached to log fields so multiple
// receiver runs can be told apart downstream.
func (r *Receiver) RunID() uuid.UUID { return r.runID }

// OnFixReady registers the callback invoked whenever FixReady's cadence
// gate opens, instead of this package computing a PVT fix itself
// (spec.md's PVT solving non-goal; SPEC_FULL.md §4's FixReady hook).
func (r *Receiver) OnFixReady(f func(tsSec float64)) { r.onFixReady = f }

// FixReady reports whether at least FixIntervalSec has elapsed (in
// receiver sample-time) since the last time it returned true.
func (r *Receiver) FixReady(tsSec float64) bool {
	if r.haveFix && tsSec-r.lastFixTsSec < FixIntervalSec {
		return false
	}
	r.lastFixTsSec = tsSec
	r.haveFix = true
	return true
}

// fetchSamplesMsec implements original_source's fetch_samples_msec: the
// first call primes a 2*period_sp cache, every later call appends one
// fresh period_sp (1ms) and trims the cache back down to 2*period_sp from
// the front. The returned timestamp corresponds to the start of the last
// code period in the window.
func (r *Receiver) fetchSamplesMsec() ([]complex128, float64, error) {
	numSamples := r.periodSP
	if len(r.cachedIQ) == 0 {
		numSamples = 2 * r.periodSP
	}

	sample, err := r.source.Read(r.offSamples, numSamples)
	if err != nil {
		return nil, 0, err
	}
	r.offSamples += numSamples
	r.cachedIQ = append(r.cachedIQ, sample.IQ...)
	r.cachedTsSecTail += float64(numSamples) / (1000.0 * float64(r.periodSP))

	if len(r.cachedIQ) > 2*r.periodSP {
		drop := len(r.cachedIQ) - 2*r.periodSP
		r.cachedIQ = r.cachedIQ[drop:]
	}

	window := make([]complex128, 2*r.periodSP)
	copy(window, r.cachedIQ)
	return window, r.cachedTsSecTail - gnssconst.L1CACodePeriod, nil
}

// ProcessStep advances the receiver by one code period: it fetches the
// next window, runs a periodic acquisition sweep, advances every active
// tracking channel and its navigation decoder, and offers a fix attempt.
func (r *Receiver) ProcessStep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	window, tsSec, err := r.fetchSamplesMsec()
	if err != nil {
		return err
	}

	r.feedAcquisitionBuffer(window)
	r.sinceAcquireMS++
	if r.readyToAcquire() {
		r.runAcquisitionSweep(window, tsSec)
		r.sinceAcquireMS = 0
	}

	r.trackChannels(window, tsSec)

	if r.onFixReady != nil && r.FixReady(tsSec) {
		r.onFixReady(tsSec)
	}
	return nil
}

func (r *Receiver) readyToAcquire() bool {
	acqWindowSamples := gnssconst.AcqWindowMS * r.periodSP
	if len(r.acqBuf) < acqWindowSamples {
		return false
	}
	if r.cfg.AcquireIntervalMS == 0 {
		return len(r.channels) < len(r.cfg.SatIDs) && r.sinceAcquireMS >= gnssconst.AcqWindowMS
	}
	return r.sinceAcquireMS >= r.cfg.AcquireIntervalMS
}

// feedAcquisitionBuffer keeps a rolling AcqWindowMS-long buffer (longer
// than the 2-period tracking window) since acquisition integrates across
// several code periods.
func (r *Receiver) feedAcquisitionBuffer(window []complex128) {
	fresh := window[len(window)-r.periodSP:]
	r.acqBuf = append(r.acqBuf, fresh...)
	acqWindowSamples := gnssconst.AcqWindowMS * r.periodSP
	if len(r.acqBuf) > acqWindowSamples {
		r.acqBuf = r.acqBuf[len(r.acqBuf)-acqWindowSamples:]
	}
}

func (r *Receiver) runAcquisitionSweep(window []complex128, tsSec float64) {
	searchIDs := make([]int, 0, len(r.cfg.SatIDs))
	for _, sv := range r.cfg.SatIDs {
		if navdec.IsSBAS(sv) {
			continue
		}
		searchIDs = append(searchIDs, sv)
	}

	results := acq.Acquire(acq.Window{IQ: r.acqBuf, Fs: r.cfg.Fs}, searchIDs, r.cache, r.logger)

	for _, sv := range searchIDs {
		param, found := results[sv]
		if !found {
			r.recordMiss(sv, tsSec)
			continue
		}
		r.misses[sv] = 0
		if _, tracked := r.channels[sv]; tracked {
			continue
		}
		r.startChannel(sv, param, tsSec)
	}
}

func (r *Receiver) recordMiss(sv int, tsSec float64) {
	if _, tracked := r.channels[sv]; !tracked {
		return
	}
	r.misses[sv]++
	r.logger.WithFields(logrus.Fields{"sv": sv, "misses": r.misses[sv], "run_id": r.runID}).Info("receiver: acquisition miss")
	if r.misses[sv] >= MissLimit {
		r.dropChannel(sv)
	}
}

func (r *Receiver) startChannel(sv int, param acq.Param, tsSec float64) {
	initDoppler := r.cfg.Fi + float64(param.DopplerHz)
	// PhaseOffset is the sample at which a code period starts in the
	// acquisition window; the channel wants the chip under sample 0.
	startSample := (r.periodSP - param.PhaseOffset%r.periodSP) % r.periodSP
	initCodePhase := float64(startSample) * float64(gnssconst.L1CACodeLen) / float64(r.periodSP)
	ch, err := track.New(sv, r.cfg.Sig, r.cfg.Fs, initDoppler, initCodePhase)
	if err != nil {
		r.logger.WithFields(logrus.Fields{"sv": sv, "err": err}).Warn("receiver: failed to start channel")
		return
	}
	r.channels[sv] = ch
	r.decoders[sv] = navdec.NewDecoder(sv, r.logger)
	r.misses[sv] = 0
	r.logger.WithFields(logrus.Fields{"sv": sv, "snr_db": param.SNRdB, "run_id": r.runID}).Info("receiver: channel acquired")

	r.state.SetChannel(sv, pubstate.ChannelState{State: track.StateAcquisition, DopplerHz: initDoppler})
	_ = tsSec
}

func (r *Receiver) dropChannel(sv int) {
	delete(r.channels, sv)
	delete(r.decoders, sv)
	delete(r.misses, sv)
	r.state.RemoveChannel(sv)
	r.logger.WithFields(logrus.Fields{"sv": sv, "run_id": r.runID}).Info("receiver: channel dropped after consecutive misses")
}

// trackChannels advances every active channel with a bounded goroutine
// pool (spec.md §5, mirroring original_source's rayon par_iter_mut over
// channels, re-expressed with Go's stdlib concurrency primitives since no
// data-parallel library appears anywhere in the retrieval pack).
func (r *Receiver) trackChannels(window []complex128, tsSec float64) {
	type result struct {
		sv    int
		step  track.Step
		event *navdec.DecodedEvent
	}

	sem := make(chan struct{}, workerCount())
	var wg sync.WaitGroup
	results := make(chan result, len(r.channels))

	for sv, ch := range r.channels {
		sv, ch := sv, ch
		dec := r.decoders[sv]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			step := ch.Update(window, tsSec)
			var ev *navdec.DecodedEvent
			if dec != nil {
				ev = dec.Step(step.IP, step.QP, tsSec)
			}
			results <- result{sv: sv, step: step, event: ev}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		r.applyTrackResult(res.sv, res.step)
		if res.event != nil {
			r.applyDecodedEvent(res.sv, res.event)
		}
	}
}

func (r *Receiver) applyTrackResult(sv int, step track.Step) {
	r.state.Update(func(st *pubstate.State) {
		cs := st.Channels[sv]
		cs.State = step.State
		cs.DopplerHz = r.channels[sv].DopplerHz
		cs.CodeIdx = r.channels[sv].CodePhase
		cs.Phi = r.channels[sv].CarrierPhase
		cs.CN0 = step.LockIndicator
		st.Channels[sv] = cs
	})
}

func (r *Receiver) applyDecodedEvent(sv int, ev *navdec.DecodedEvent) {
	r.state.Update(func(st *pubstate.State) {
		if ev.Ephemeris != nil {
			cs := st.Channels[sv]
			cs.HasEph = true
			st.Channels[sv] = cs
			st.TowGPST = ev.Ephemeris.TowGpst
		}
		if ev.Almanac != nil && ev.Almanac.SV >= 1 && ev.Almanac.SV <= 32 {
			st.Almanac[ev.Almanac.SV-1] = *ev.Almanac
		}
		if ev.IonoUTC != nil {
			st.IonoUTC = *ev.IonoUTC
			st.IonAdj = true
			st.UTCAdj = true
		}
	})
	if ev.FrameSyncChanged {
		r.logger.WithFields(logrus.Fields{"sv": sv, "sync": ev.FrameSync.String(), "run_id": r.runID}).Info("receiver: frame sync changed")
	}
}

// Now returns the wall-clock Epoch the receiver would stamp a log entry
// with; split out so tests can avoid depending on real time.
func Now() gtime.Epoch { return gtime.Now() }

// workerCount bounds the per-step tracking goroutine pool to the
// available CPUs, the same bounded-pool idiom internal/acq uses (spec.md
// §5, original_source's rayon par_iter_mut re-expressed with Go's stdlib
// concurrency primitives).
func workerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}
