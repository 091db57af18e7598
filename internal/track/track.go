// Package track implements the per-channel tracking pipeline of
// spec.md §4.5: one Channel per acquired satellite, maintaining
// phase-coherent carrier and code NCOs at the sample rate via a Costas
// PLL and early/prompt/late DLL.
//
// Grounded on original_source's Channel::process_samples (kept in
// channel.rs, not part of the files the retrieval pack preserved, but
// referenced throughout navigation.rs and receiver.rs). A Channel holds no
// lock of its own: the receiver gives one goroutine exclusive use of a
// channel for the duration of a step.
package track

import (
	"math"
	"math/cmplx"

	"github.com/gnssrcv/l1ca-core/internal/code"
	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
)

// State is the tracking channel state machine (spec.md §4.5):
// Acquisition -> PullIn -> Tracking -> Lost.
type State int

const (
	StateAcquisition State = iota
	StatePullIn
	StateTracking
	StateLost
)

func (s State) String() string {
	switch s {
	case StateAcquisition:
		return "Acquisition"
	case StatePullIn:
		return "PullIn"
	case StateTracking:
		return "Tracking"
	case StateLost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// Step is the result of one Channel.Update call: the prompt correlator
// output and the loop diagnostics a navigation decoder and published
// state need.
type Step struct {
	IP, QP        float64
	LockIndicator float64
	State         State
	NumTrkSamples int
	TsSec         float64
}

// Channel is one per-satellite tracking pipeline (spec.md §3 "Channel").
type Channel struct {
	SV  int
	Sig string
	Fs  float64

	chips []int8 // cached bipolar PRN chips for this SV

	CarrierPhase float64 // phi, radians
	DopplerHz    float64 // f_d
	CodePhase    float64 // tau, chips
	CodeRateHz   float64 // nominal chip rate, chips/sec

	CorrHistory []complex128 // ring of recent prompt correlator outputs
	histHead    int

	NumTrkSamples int
	TsSec         float64

	State State

	lockIndicator float64

	dll *filter
	pll *filter
}

// New creates a Channel for sv, seeded with the Doppler and code-phase
// estimate acquisition produced.
func New(sv int, sig string, fs, initDopplerHz, initCodePhaseChips float64) (*Channel, error) {
	chips, err := code.GenCode(sig, sv)
	if err != nil {
		return nil, err
	}
	return &Channel{
		SV:          sv,
		Sig:         sig,
		Fs:          fs,
		chips:       chips,
		DopplerHz:   initDopplerHz,
		CodePhase:   initCodePhaseChips,
		CodeRateHz:  float64(len(chips)) / gnssconst.L1CACodePeriod,
		CorrHistory: make([]complex128, gnssconst.TrackCorrHistoryDepth),
		State:       StateAcquisition,
		dll:         newFilter(calcLoopCoef(gnssconst.TrackDLLNoiseBandwidthHz, gnssconst.TrackLoopDamping, 1.0)),
		pll:         newFilter(calcLoopCoef(gnssconst.TrackPLLNoiseBandwidthHz, gnssconst.TrackLoopDamping, 0.25)),
	}, nil
}

// Update consumes one code-period window (spec.md §4.5: 2x period_sp
// samples so the current code period lies fully inside it) and advances
// the carrier/code NCOs by one step.
func (c *Channel) Update(window []complex128, tsSec float64) Step {
	pdi := gnssconst.L1CACodePeriod
	periodSP := len(window) / 2

	wiped := c.carrierWipe(window)

	ie, ip, il := c.correlate(wiped[:periodSP], periodSP)

	codeErr := DLLDiscriminator(ie, il)
	codeCorr := c.dll.Update(codeErr, pdi)
	c.CodeRateHz = float64(len(c.chips))/gnssconst.L1CACodePeriod + codeCorr

	chipsPerSample := c.CodeRateHz / c.Fs
	n := float64(len(c.chips))
	c.CodePhase = math.Mod(c.CodePhase+float64(periodSP)*chipsPerSample, n)
	if c.CodePhase < 0 {
		c.CodePhase += n
	}

	carrErr := CostasDiscriminator(real(ip), imag(ip))
	carrCorr := c.pll.Update(carrErr, pdi)
	c.DopplerHz += carrCorr

	c.pushCorr(ip)

	ipVal, qpVal := real(ip), imag(ip)
	power := ipVal*ipVal + qpVal*qpVal
	var normalized float64
	if power > 0 {
		normalized = ipVal * ipVal / power
	}
	c.lockIndicator += gnssconst.TrackLockIndicatorAlpha * (normalized - c.lockIndicator)

	c.advanceState()

	c.NumTrkSamples++
	c.TsSec = tsSec

	return Step{
		IP: ipVal, QP: qpVal,
		LockIndicator: c.lockIndicator,
		State:         c.State,
		NumTrkSamples: c.NumTrkSamples,
		TsSec:         tsSec,
	}
}

func (c *Channel) advanceState() {
	switch c.State {
	case StateAcquisition:
		c.State = StatePullIn
	case StatePullIn:
		if c.lockIndicator >= gnssconst.TrackPullInThreshold {
			c.State = StateTracking
		}
	case StateTracking:
		if c.lockIndicator < gnssconst.TrackLossThreshold {
			c.State = StateLost
		}
	}
}

// carrierWipe multiplies window by the local carrier at the channel's
// current Doppler/phase estimate and advances CarrierPhase by the phase
// elapsed over one code period (half the window, the amount the
// receiver slides the window per step), matching gdsp.DopplerWipe's per-sample phase formula
// but with a channel-local running phase accumulator (an NCO) rather
// than recomputing from an absolute sample index, since tracking runs
// indefinitely and must stay numerically stable.
func (c *Channel) carrierWipe(window []complex128) []complex128 {
	out := make([]complex128, len(window))
	w := 2 * math.Pi * c.DopplerHz / c.Fs
	phase := c.CarrierPhase
	for i, s := range window {
		out[i] = s * cmplx.Rect(1, -phase)
		phase += w
	}
	c.CarrierPhase = math.Mod(c.CarrierPhase+w*float64(len(window)/2), 2*math.Pi)
	return out
}

// correlate computes the early/prompt/late correlators by dot-producting
// the (already carrier-wiped) window against local PRN replicas offset
// by -delta, 0, +delta chips (spec.md §4.5 steps 2-3).
func (c *Channel) correlate(window []complex128, periodSP int) (e, p, l complex128) {
	delta := gnssconst.TrackCodeSpacingChips
	e = c.dotProduct(window, periodSP, -delta)
	p = c.dotProduct(window, periodSP, 0)
	l = c.dotProduct(window, periodSP, delta)
	return e, p, l
}

func (c *Channel) dotProduct(window []complex128, periodSP int, offsetChips float64) complex128 {
	n := len(c.chips)
	chipsPerSample := c.CodeRateHz / c.Fs
	var sum complex128
	for i := 0; i < periodSP; i++ {
		chipPos := c.CodePhase + offsetChips + float64(i)*chipsPerSample
		idx := int(math.Floor(chipPos))
		idx = ((idx % n) + n) % n
		sum += window[i] * complex(float64(c.chips[idx]), 0)
	}
	return sum
}

func (c *Channel) pushCorr(ip complex128) {
	c.CorrHistory[c.histHead] = ip
	c.histHead = (c.histHead + 1) % len(c.CorrHistory)
}

// RecentCorr returns the last n pushed prompt correlator samples,
// oldest first. It panics if n exceeds the ring's capacity.
func (c *Channel) RecentCorr(n int) []complex128 {
	if n > len(c.CorrHistory) {
		panic("track: RecentCorr: n exceeds history depth")
	}
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		idx := (c.histHead - n + i + len(c.CorrHistory)*2) % len(c.CorrHistory)
		out[i] = c.CorrHistory[idx]
	}
	return out
}
