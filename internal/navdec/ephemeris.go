package navdec

import (
	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
	"github.com/gnssrcv/l1ca-core/internal/gtime"
)

// Ephemeris accumulates the broadcast orbit/clock parameters of one
// satellite across LNAV subframes 1, 2, and 3 (spec.md §4.6). Field
// offsets are measured in the parity-checked, padded nav_data layout (30
// bits per word, 24 data bits followed by 6 zeroed bits), derived from the
// IS-GPS-200 word layout and cross-checked against
// _examples/FengXuebin-gnssgo/src/rcvraw.go's DecodeFrameEph (which
// operates on the unpadded 24-bit/word RTKLIB layout; every offset below
// is that layout's offset plus 6*wordIndex).
type Ephemeris struct {
	SV int

	Week    int
	URA     int
	Health  int
	IODC    int
	TGD     float64
	Toc     float64
	Af0     float64
	Af1     float64
	Af2     float64
	TLM     uint32

	IODE2       int
	Crs         float64
	DeltaN      float64
	M0          float64
	Cuc         float64
	Ecc         float64
	Cus         float64
	SqrtA       float64
	Toe         float64
	FitInterval bool

	IODE3    int
	Cic      float64
	Omega0   float64
	Cis      float64
	I0       float64
	Crc      float64
	Omega    float64
	OmegaDot float64
	IDot     float64

	TOW float64 // seconds of week, most recently decoded HOW

	HasSF1, HasSF2, HasSF3 bool

	TowGpst, ToeGpst, TocGpst gtime.Epoch
}

// howTOW reads the truncated TOW-count common to every LNAV subframe's
// hand-over word (bits 30..47 of the padded subframe) and scales it to
// seconds-of-week (spec.md §4.6).
func howTOW(buf []uint8) float64 {
	return float64(getbitu(buf, 30, 17)) * 6
}

func (e *Ephemeris) decodeSubframe1(buf []uint8) {
	e.TLM = getbitu(buf, 8, 14)
	e.Week = int(getbitu(buf, 60, 10)) + gnssconst.GPSWeekRolloverOffset
	e.URA = int(getbitu(buf, 72, 4))
	e.Health = int(getbitu(buf, 76, 6))
	iodcMSB := getbitu(buf, 82, 2)
	e.TGD = float64(getbits(buf, 196, 8)) * gnssconst.P2_31
	iodcLSB := getbitu(buf, 210, 8)
	e.IODC = int(iodcMSB)<<8 | int(iodcLSB)
	e.Toc = float64(getbitu(buf, 218, 16)) * 16
	e.Af2 = float64(getbits(buf, 240, 8)) * gnssconst.P2_55
	e.Af1 = float64(getbits(buf, 248, 16)) * gnssconst.P2_43
	e.Af0 = float64(getbits(buf, 270, 22)) * gnssconst.P2_31
	e.HasSF1 = true
}

func (e *Ephemeris) decodeSubframe2(buf []uint8) {
	e.IODE2 = int(getbitu(buf, 60, 8))
	e.Crs = float64(getbits(buf, 68, 16)) * gnssconst.P2_5
	e.DeltaN = float64(getbits(buf, 90, 16)) * gnssconst.P2_43 * gnssconst.SC2RAD
	e.M0 = float64(getbits2(buf, 106, 8, 120, 24)) * gnssconst.P2_31 * gnssconst.SC2RAD
	e.Cuc = float64(getbits(buf, 150, 16)) * gnssconst.P2_29
	e.Ecc = float64(getbitu2(buf, 166, 8, 180, 24)) * gnssconst.P2_33
	e.Cus = float64(getbits(buf, 210, 16)) * gnssconst.P2_29
	e.SqrtA = float64(getbitu2(buf, 226, 8, 240, 24)) * gnssconst.P2_19
	e.Toe = float64(getbitu(buf, 270, 16)) * 16
	e.FitInterval = getbitu(buf, 286, 1) == 1
	e.HasSF2 = true
}

func (e *Ephemeris) decodeSubframe3(buf []uint8) {
	e.Cic = float64(getbits(buf, 60, 16)) * gnssconst.P2_29
	e.Omega0 = float64(getbits2(buf, 76, 8, 90, 24)) * gnssconst.P2_31 * gnssconst.SC2RAD
	e.Cis = float64(getbits(buf, 120, 16)) * gnssconst.P2_29
	e.I0 = float64(getbits2(buf, 136, 8, 150, 24)) * gnssconst.P2_31 * gnssconst.SC2RAD
	e.Crc = float64(getbits(buf, 180, 16)) * gnssconst.P2_5
	e.Omega = float64(getbits2(buf, 196, 8, 210, 24)) * gnssconst.P2_31 * gnssconst.SC2RAD
	e.OmegaDot = float64(getbits(buf, 240, 24)) * gnssconst.P2_43 * gnssconst.SC2RAD
	e.IODE3 = int(getbitu(buf, 270, 8))
	e.IDot = float64(getbits(buf, 278, 14)) * gnssconst.P2_43 * gnssconst.SC2RAD
	e.HasSF3 = true
}

// Complete reports whether SF1-3 have all arrived and their issue-of-data
// fields are mutually consistent, per the IODE/IODC cross-check every LNAV
// decoder performs before trusting an ephemeris set.
func (e *Ephemeris) Complete() bool {
	return e.HasSF1 && e.HasSF2 && e.HasSF3 &&
		e.IODE2 == e.IODE3 &&
		e.IODE2 == (e.IODC&0xFF)
}

// refreshEpochs recomputes the GPST wall-clock times derived from the
// decoded week number once it is known (spec.md §8 item 10's TOW
// arithmetic: week*SecondsPerGPSWeek + seconds-of-week).
func (e *Ephemeris) refreshEpochs() {
	if e.Week == 0 {
		return
	}
	base := float64(e.Week) * gnssconst.SecondsPerGPSWeek
	e.TowGpst = gtime.FromGPSTSeconds(base + e.TOW)
	e.ToeGpst = gtime.FromGPSTSeconds(base + e.Toe)
	e.TocGpst = gtime.FromGPSTSeconds(base + e.Toc)
}
