// Package navdec turns a tracking channel's prompt correlator stream into
// decoded LNAV navigation data: bit synchronization, subframe/preamble
// framing, parity checking, and ephemeris/almanac/iono-UTC extraction
// (spec.md §4.6).
//
// navdec does not import the track package (spec.md §9's message-passing
// note): a receiver feeds it (IP, QP, timestamp) triples explicitly via
// Step, and Step returns the events the receiver should fold into
// published state, rather than navdec reaching into a Channel or into
// pubstate itself.
package navdec

import (
	"github.com/sirupsen/logrus"

	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
)

// SyncState is the frame-sync state of a Decoder: whether a preamble has
// been found, and whether the bit stream is running at the recovered
// carrier's natural polarity or inverted (spec.md §4.6).
type SyncState int

const (
	SyncNone SyncState = iota
	SyncNormal
	SyncReversed
)

func (s SyncState) String() string {
	switch s {
	case SyncNormal:
		return "Normal"
	case SyncReversed:
		return "Reversed"
	default:
		return "None"
	}
}

// IsSBAS reports whether prn falls in the SBAS PRN range (120-158): SBAS
// satellites broadcast a different message format and this package's LNAV
// decoder does not apply to them (spec.md §4.6 Non-goals).
func IsSBAS(prn int) bool {
	return prn >= 120 && prn <= 158
}

// bitSync recovers the 20ms navigation-bit boundary from a 1kHz stream of
// prompt correlator samples, via a histogram of sign changes: over many
// samples, a genuine polarity flip should concentrate at one phase out of
// 20 (the true bit edge) while correlator noise disperses across the rest.
type bitSync struct {
	transitions [gnssconst.NavSymbolsPerBit]int
	samples     int
	phase       int
	locked      bool
	prevSign    int
	havePrev    bool
}

func newBitSync() *bitSync {
	return &bitSync{}
}

// observe feeds one 1ms prompt-I sample and reports whether the phase is
// currently locked.
func (b *bitSync) observe(ip float64) bool {
	sign := 1
	if ip < 0 {
		sign = -1
	}
	if b.havePrev && sign != b.prevSign {
		b.transitions[b.samples%gnssconst.NavSymbolsPerBit]++
	}
	b.prevSign = sign
	b.havePrev = true
	b.samples++

	total := 0
	best, bestCount := 0, -1
	for p, c := range b.transitions {
		total += c
		if c > bestCount {
			best, bestCount = p, c
		}
	}
	if total == 0 {
		return b.locked
	}

	if !b.locked {
		if float64(bestCount)/float64(total) >= gnssconst.NavBitThresholdSync {
			b.phase = best
			b.locked = true
		}
		return b.locked
	}

	if float64(b.transitions[b.phase])/float64(total) < gnssconst.NavBitThresholdLost {
		b.locked = false
		b.transitions = [gnssconst.NavSymbolsPerBit]int{}
		b.samples = 0
	}
	return b.locked
}

// DecodedEvent carries whatever new fact a single Step call produced, for
// the receiver to fold into published state. All pointer fields are nil
// except the one relevant to this event.
type DecodedEvent struct {
	SV int

	FrameSyncChanged bool
	FrameSync        SyncState

	SubframeID int
	Ephemeris  *Ephemeris
	Almanac    *AlmanacEntry
	IonoUTC    *IonoUTC
}

// Decoder is the per-satellite LNAV decode pipeline: bit sync, frame sync,
// parity check, and subframe dispatch.
type Decoder struct {
	SV     int
	logger logrus.FieldLogger

	bsync       *bitSync
	sampleIndex int

	bitAccum float64
	bits     []uint8

	FrameSync      SyncState
	nextSubframeAt int

	Eph     Ephemeris
	Almanac [32]AlmanacEntry
	IonoUTC IonoUTC
}

// NewDecoder constructs a Decoder for sv. Callers should not construct one
// for an SV where IsSBAS(sv) is true.
func NewDecoder(sv int, logger logrus.FieldLogger) *Decoder {
	return &Decoder{
		SV:     sv,
		logger: logger,
		bsync:  newBitSync(),
		Eph:    Ephemeris{SV: sv},
	}
}

// Step feeds one tracking update's (IP, QP) into the decoder. It returns
// nil on most calls (bit sync not locked, still integrating a bit, or
// nothing new to report) and a DecodedEvent whenever frame sync locks or
// is dropped, or a subframe is successfully decoded. Changes of bit-sync
// lock produce no event.
func (d *Decoder) Step(ip, qp, tsSec float64) *DecodedEvent {
	d.sampleIndex++
	locked := d.bsync.observe(ip)
	if !locked {
		d.bitAccum = 0
		return nil
	}

	d.bitAccum += ip
	if (d.sampleIndex-d.bsync.phase)%gnssconst.NavSymbolsPerBit != 0 {
		return nil
	}

	var bit uint8
	if d.bitAccum >= 0 {
		bit = 1
	}
	d.bitAccum = 0
	d.bits = append(d.bits, bit)
	if len(d.bits) > gnssconst.NavMaxSymbols {
		d.bits = d.bits[len(d.bits)-gnssconst.NavMaxSymbols:]
	}

	return d.trySync(tsSec)
}

// trySync looks for the LNAV preamble (or its complement) at two
// 300-bit-separated 8-bit windows -- every subframe's first word starts
// with the same preamble, so a match 300 bits apart confirms the framing
// of the subframe between them -- then, once frame sync is established,
// decodes one subframe every 300 bits.
func (d *Decoder) trySync(tsSec float64) *DecodedEvent {
	n := len(d.bits)

	if d.FrameSync == SyncNone {
		lookback := gnssconst.NavBitsPerSubframe + gnssconst.NavPreambleLen
		if n < lookback {
			return nil
		}
		subframeStart := n - lookback
		win1 := d.bits[subframeStart : subframeStart+gnssconst.NavPreambleLen]
		win2 := d.bits[n-gnssconst.NavPreambleLen:]

		var reversed bool
		switch {
		case bitsEqual(win1, gnssconst.NavPreamble[:]) && bitsEqual(win2, gnssconst.NavPreamble[:]):
			reversed = false
		case bitsOpposed(win1, gnssconst.NavPreamble[:]) && bitsOpposed(win2, gnssconst.NavPreamble[:]):
			reversed = true
		default:
			return nil
		}

		subBits := make([]uint8, gnssconst.NavBitsPerSubframe)
		copy(subBits, d.bits[subframeStart:subframeStart+gnssconst.NavBitsPerSubframe])
		if reversed {
			invertBits(subBits)
		}
		ok, navData := testLNAVParity(subBits)
		if !ok {
			return nil
		}

		if reversed {
			d.FrameSync = SyncReversed
		} else {
			d.FrameSync = SyncNormal
		}
		d.nextSubframeAt = subframeStart + 2*gnssconst.NavBitsPerSubframe
		if d.logger != nil {
			d.logger.WithField("sv", d.SV).WithField("sync", d.FrameSync.String()).Info("navdec: frame sync acquired")
		}

		ev := d.dispatchSubframe(navData, tsSec)
		ev.FrameSyncChanged = true
		ev.FrameSync = d.FrameSync
		return ev
	}

	if n < d.nextSubframeAt {
		return nil
	}

	subBits := make([]uint8, gnssconst.NavBitsPerSubframe)
	copy(subBits, d.bits[n-gnssconst.NavBitsPerSubframe:n])
	if d.FrameSync == SyncReversed {
		invertBits(subBits)
	}
	d.nextSubframeAt = n + gnssconst.NavBitsPerSubframe

	ok, navData := testLNAVParity(subBits)
	if !ok {
		d.FrameSync = SyncNone
		if d.logger != nil {
			d.logger.WithField("sv", d.SV).Warn("navdec: parity failure, dropping frame sync")
		}
		return &DecodedEvent{SV: d.SV, FrameSyncChanged: true, FrameSync: SyncNone}
	}

	return d.dispatchSubframe(navData, tsSec)
}

func invertBits(bits []uint8) {
	for i, b := range bits {
		bits[i] = 1 - b
	}
}

// dispatchSubframe decodes the subframe-specific payload of a
// parity-checked, 24-bits-per-word nav_data buffer.
func (d *Decoder) dispatchSubframe(navData []uint8, tsSec float64) *DecodedEvent {
	tow := howTOW(navData)
	subframeID := int(getbitu(navData, 49, 3))

	d.Eph.TOW = tow

	ev := &DecodedEvent{SV: d.SV, SubframeID: subframeID}

	switch subframeID {
	case 1:
		d.Eph.decodeSubframe1(navData)
	case 2:
		d.Eph.decodeSubframe2(navData)
	case 3:
		d.Eph.decodeSubframe3(navData)
		if d.Eph.Complete() {
			d.Eph.refreshEpochs()
			ephCopy := d.Eph
			ev.Ephemeris = &ephCopy
		}
	case 4, 5:
		d.dispatchAlmanacPage(subframeID, navData, ev)
	default:
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"sv": d.SV, "subframe_id": subframeID}).Warn("navdec: unknown subframe id")
		}
	}
	return ev
}

// dispatchAlmanacPage decodes a subframe 4 or 5 page. Per IS-GPS-200, the
// page's SVID field doubles as a page selector: SVID 63 on subframe 4 is
// the page-25 SV config+health table for PRNs 25-32 (spec.md §4.6 "pages
// 25 (SV config + health for PRN 25–32)"), SVID 51 on subframe 5 is the
// page-25 SV health table for PRNs 1-24 (plus week/toa), SVID 56 on
// subframe 4 is the page-18 iono/UTC page, and SVIDs 57-62 are reserved
// AS/configuration pages this decoder does not model further. Every other
// SVID in 1-32 is an ordinary almanac page.
func (d *Decoder) dispatchAlmanacPage(subframeID int, navData []uint8, ev *DecodedEvent) {
	page := decodeAlmanacSV(navData)

	switch {
	case page.SV == 56 && subframeID == 4:
		d.IonoUTC = decodeIonoUTC(navData)
		iuCopy := d.IonoUTC
		ev.IonoUTC = &iuCopy
	case page.SV == 63 && subframeID == 4:
		for i := 0; i < 8; i++ {
			sv := 25 + i
			d.Almanac[sv-1].SV = sv
			d.Almanac[sv-1].Health = page25Health(navData, i)
			d.Almanac[sv-1].Config = page25Config(navData, i)
		}
	case page.SV == 51 && subframeID == 5:
		for i := 0; i < 24; i++ {
			d.Almanac[i].SV = i + 1
			d.Almanac[i].Health = page25Health(navData, i)
		}
	case page.SV >= 57 && page.SV <= 62:
		// Reserved AS-config/special pages; not modeled (spec.md Non-goal).
	case page.SV >= 1 && page.SV <= 32:
		d.Almanac[page.SV-1] = page
		pCopy := page
		ev.Almanac = &pCopy
	}
}
