package navdec

import "github.com/gnssrcv/l1ca-core/internal/gnssconst"

// AlmanacEntry is the reduced-precision long-term orbit a subframe 4 or 5
// almanac page carries for one satellite (spec.md's supplemented almanac
// feature, carried over from original_source's alm_t-shaped struct since
// the distilled spec.md only names ephemeris decoding explicitly).
type AlmanacEntry struct {
	SV       int
	Health   int
	Config   int // AS/anti-spoof configuration nibble, page-25 SV config+health pages only
	Week     int
	Toa      float64
	Ecc      float64
	DeltaI   float64 // inclination offset from the 0.3 semicircle reference
	OmegaDot float64
	SqrtA    float64
	Omega0   float64
	Omega    float64
	M0       float64
	Af0      float64
	Af1      float64
}

// IonoUTC holds the subframe-4 page-18 ionospheric correction and UTC
// offset parameters (spec.md's supplemented almanac feature).
type IonoUTC struct {
	IonAlpha [4]float64
	IonBeta  [4]float64
	UTCA0    float64
	UTCA1    float64
	UTCTot   float64
	UTCWeek  int
	LeapSec  int
	Valid    bool
}

// decodeAlmanacSV decodes one satellite's almanac page, present in every
// subframe-4/5 word 3 onward (spec.md §4.6 supplement). Offsets follow the
// standard IS-GPS-200 almanac word layout (dataID/SVID in word 3, then E,
// toa, delta-i, Omega-dot, health, sqrtA, Omega0, omega, M0 and the split
// af0/af1 clock terms in words 4-10), translated into the padded
// 30-bit-per-word coordinates the rest of this package uses.
func decodeAlmanacSV(buf []uint8) AlmanacEntry {
	var a AlmanacEntry
	a.SV = int(getbitu(buf, 62, 6))
	a.Ecc = float64(getbitu(buf, 68, 16)) * gnssconst.P2_21
	a.Toa = float64(getbitu(buf, 90, 8)) * 4096
	a.DeltaI = float64(getbits(buf, 98, 16)) * gnssconst.P2_19 * gnssconst.SC2RAD
	a.OmegaDot = float64(getbits(buf, 120, 16)) * gnssconst.P2_38 * gnssconst.SC2RAD
	a.Health = int(getbitu(buf, 136, 8))
	a.SqrtA = float64(getbitu(buf, 150, 24)) * gnssconst.P2_11
	a.Omega0 = float64(getbits(buf, 180, 24)) * gnssconst.P2_23 * gnssconst.SC2RAD
	a.Omega = float64(getbits(buf, 210, 24)) * gnssconst.P2_23 * gnssconst.SC2RAD
	a.M0 = float64(getbits(buf, 240, 24)) * gnssconst.P2_23 * gnssconst.SC2RAD
	af0msb := getbitu(buf, 270, 8)
	a.Af1 = float64(getbits(buf, 278, 11)) * gnssconst.P2_38
	af0lsb := getbitu(buf, 289, 3)
	af0 := (af0msb << 3) | af0lsb
	if af0&(1<<10) != 0 {
		a.Af0 = float64(int32(af0)-(1<<11)) * gnssconst.P2_20
	} else {
		a.Af0 = float64(af0) * gnssconst.P2_20
	}
	return a
}

// decodeIonoUTC decodes subframe 4 page 18's ionospheric/UTC parameters,
// per navigation.rs's nav_decode_lnav_subframe4 page-18 layout: A1 at bits
// 150..174 scaled 2^-50, DeltaTLS (leap seconds) at bits 226..234
// unscaled.
func decodeIonoUTC(buf []uint8) IonoUTC {
	var u IonoUTC
	u.IonAlpha[0] = float64(getbits(buf, 68, 8)) * gnssconst.P2_30
	u.IonAlpha[1] = float64(getbits(buf, 76, 8)) * gnssconst.P2_27
	u.IonAlpha[2] = float64(getbits(buf, 90, 8)) * gnssconst.P2_24
	u.IonAlpha[3] = float64(getbits(buf, 98, 8)) * gnssconst.P2_24
	u.IonBeta[0] = float64(getbits(buf, 106, 8)) * 2048
	u.IonBeta[1] = float64(getbits(buf, 120, 8)) * 16384
	u.IonBeta[2] = float64(getbits(buf, 128, 8)) * 65536
	u.IonBeta[3] = float64(getbits(buf, 136, 8)) * 65536
	u.UTCA0 = float64(getbits2(buf, 180, 24, 210, 8)) * gnssconst.P2_30
	u.UTCA1 = float64(getbits(buf, 150, 24)) * gnssconst.P2_50
	u.UTCTot = float64(getbitu(buf, 218, 8)) * 4096
	u.UTCWeek = int(getbitu(buf, 240, 8)) + gnssconst.GPSWeekRolloverOffset
	u.LeapSec = int(getbits(buf, 226, 8))
	u.Valid = true
	return u
}

// page25Health extracts the subframe-4/5 page-25 SV-health/AS-config
// table: 8 six-bit health fields per subframe. The index passed to these
// functions is the 0-based SV index (sv-1), matching the
// ARRAY_SVH_IDX[sv-1] convention original_source/navigation.rs uses (the
// spec.md open question this repo resolves toward: index by sv-1, not the
// raw PRN, since a PRN-indexed table would run one past the 0..31 array).
func page25Health(buf []uint8, svIndex int) int {
	pos := 60 + svIndex*6
	return int(getbitu(buf, pos, 6))
}

// page25Config reads the subframe-5 page-25 AS/anti-spoof configuration
// nibble for svIndex (0-based).
func page25Config(buf []uint8, svIndex int) int {
	pos := 60 + svIndex*4
	return int(getbitu(buf, pos, 4))
}
