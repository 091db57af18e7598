// Package gnssconst holds the fixed scale factors and physical constants
// used to decode GPS L1 C/A signals and LNAV messages, per IS-GPS-200.
package gnssconst

// IS-GPS-200 power-of-two scale factors, named the way the interface
// control document names them (P2_<n> = 2^-n).
const (
	P2_5  = 0.03125                  // 2^-5
	P2_11 = 4.8828125e-4             // 2^-11
	P2_19 = 1.9073486328125e-6       // 2^-19
	P2_20 = 9.5367431640625e-7       // 2^-20
	P2_21 = 4.76837158203125e-7      // 2^-21
	P2_23 = 1.19209289550781e-7      // 2^-23
	P2_24 = 5.960464477539063e-8     // 2^-24
	P2_27 = 7.450580596923828e-9     // 2^-27
	P2_29 = 1.862645149230957e-9     // 2^-29
	P2_30 = 9.313225746154785e-10    // 2^-30
	P2_31 = 4.656612873077393e-10    // 2^-31
	P2_33 = 1.164153218269348e-10    // 2^-33
	P2_38 = 3.63797880709171e-12     // 2^-38
	P2_43 = 1.13686837721616e-13     // 2^-43
	P2_50 = 8.881784197001252e-16    // 2^-50
	P2_55 = 2.775557561562891e-17    // 2^-55
)

// SC2RAD is the IS-GPS semi-circle to radian conversion factor.
const SC2RAD = 3.1415926535898

const (
	SpeedOfLight       = 299792458.0   // m/s
	EarthMuGPS         = 3.9860058e14  // earth gravitational constant, m^3/s^2
	EarthRotationRate  = 7.2921151467e-5 // rad/s
)

// L1 C/A signal parameters (spec.md §4.1).
const (
	L1CACodeLen    = 1023          // chips per code period
	L1CACodePeriod = 1e-3          // seconds
	L1CACarrierHz  = 1575.42e6     // nominal L1 carrier frequency
)

// SecondsPerGPSWeek is used throughout TOW/TOE/TOC arithmetic.
const SecondsPerGPSWeek = 7 * 24 * 60 * 60

// GPSWeekRolloverOffset accounts for the 10-bit week-number rollover in
// LNAV subframe 1; it is added to the transmitted (mod-1024) week so that
// decoded weeks land in the current GPS week epoch rather than 1980.
const GPSWeekRolloverOffset = 2048

// Acquisition and tracking tunables (spec.md §4.4, §4.5, §4.6).
const (
	AcqWindowMS        = 10     // ACQ_MS: window length fed to acquire(), in ms
	AcqDopplerHalfWidth = 8000  // initial Doppler half-width S, Hz
	AcqDopplerBins     = 10     // B: number of Doppler trial bins per stage
	AcqSNRThresholdDB  = 3.0    // SNR_THRESHOLD
	AcqSecondPeakGuard = 50     // Δ: samples excluded around the main peak when finding the second peak

	TrackCodeSpacingChips = 0.5 // δ: early/late correlator spacing, in chips

	NavBitThresholdSync = 0.4  // THRESHOLD_SYNC
	NavBitThresholdLost = 0.03 // THRESHOLD_LOST
	NavSymbolsPerBit    = 20   // 20 ms per nav bit at 50 bps
	NavMaxSymbols       = 18000 // capacity of the bits FIFO
	NavPreambleLen      = 8
	NavWordsPerSubframe = 10
	NavBitsPerWord      = 30
	NavBitsPerSubframe  = NavWordsPerSubframe * NavBitsPerWord // 300
)

// NavPreamble is the fixed LNAV preamble bit pattern, MSB first.
var NavPreamble = [NavPreambleLen]uint8{1, 0, 0, 0, 1, 0, 1, 1}

// Tracking loop parameters (spec.md §4.5, §9): standard Kaplan/Hegarty
// noise bandwidths and damping for the Costas PLL and the DLL, both of
// which run the same 2nd-order loop filter, since the source does not pin
// concrete numbers.
const (
	TrackPLLNoiseBandwidthHz = 10.0  // B_L,PLL
	TrackDLLNoiseBandwidthHz = 1.0   // B_L,DLL
	TrackLoopDamping         = 0.707 // zeta

	// TrackLockIndicatorAlpha is the EMA weight applied to each new
	// IP^2/(IP^2+QP^2) sample when updating the running lock indicator.
	TrackLockIndicatorAlpha = 0.01
	// TrackPullInThreshold and TrackLossThreshold bound the Tracking
	// state machine transitions (spec.md §4.5): the lock indicator must
	// rise above the pull-in threshold to enter Tracking, and fall below
	// the loss threshold to be declared Lost.
	TrackPullInThreshold = 0.8
	TrackLossThreshold   = 0.3

	// TrackCorrHistoryDepth is the minimum ring depth for a channel's
	// prompt correlator history (spec.md §3 Channel data model).
	TrackCorrHistoryDepth = 64
)
