// Package gtime provides GPS-time handling for the receiver core.
//
// Adapted from the teacher's pkg/gnssgo/gtime package: same Gtime
// (time_t + fractional-second) representation and the same UTC/GPST
// conversion shape, generalized to also expose the GPST-seconds-since-epoch
// constructor the navigation decoder needs (spec.md "Epoch::from_gpst_seconds").
package gtime

import (
	"fmt"
	"time"

	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
)

// Epoch represents an instant in time, stored as whole seconds since the
// Unix epoch plus a fractional-second remainder, mirroring the teacher's
// Gtime type.
type Epoch struct {
	Time int64   // whole seconds (Unix time_t)
	Sec  float64 // fractional part of the second, in [0, 1)
}

// GPSEpoch is the GPS time reference epoch, 1980-01-06T00:00:00 UTC,
// expressed as a Unix timestamp.
const GPSEpoch = 315964800

// FromGPSTSeconds builds an Epoch from a count of seconds since the GPS
// time epoch (week*604800 + tow), matching Epoch::from_gpst_seconds in the
// original receiver.
func FromGPSTSeconds(gpstSeconds float64) Epoch {
	whole := int64(gpstSeconds)
	return Epoch{
		Time: whole + GPSEpoch,
		Sec:  gpstSeconds - float64(whole),
	}
}

// Now returns the current instant, normalized through Epoch2Time the same
// way the teacher's TimeGet does.
func Now() Epoch {
	t := time.Now().UTC()
	return Epoch2Time([6]float64{
		float64(t.Year()), float64(t.Month()), float64(t.Day()),
		float64(t.Hour()), float64(t.Minute()), float64(t.Second()) + float64(t.Nanosecond())/1e9,
	})
}

// Epoch2Time converts a 6-element [Y,M,D,h,m,s] epoch to an Epoch.
func Epoch2Time(ep [6]float64) Epoch {
	days := (int64(ep[0])-1970)*365 + (int64(ep[0])-1969)/4 + int64(ep[2]) - 1
	for m := 1; m < int(ep[1]); m++ {
		days += int64(daysInMonth(int(ep[0]), m))
	}
	sec := float64(days)*86400 + ep[3]*3600 + ep[4]*60 + ep[5]
	whole := int64(sec)
	return Epoch{Time: whole, Sec: sec - float64(whole)}
}

func daysInMonth(year, month int) int {
	switch month {
	case 2:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// Utc2GpsT shifts a UTC-based Epoch onto the GPS time axis.
func Utc2GpsT(t Epoch) Epoch {
	return Epoch{Time: t.Time + GPSEpoch, Sec: t.Sec}
}

// ToGPSTOW returns the GPS time-of-week (seconds) and week number for t.
func ToGPSTOW(t Epoch) (tow float64, week int) {
	sec := float64(t.Time-GPSEpoch) + t.Sec
	week = int(sec / gnssconst.SecondsPerGPSWeek)
	return sec - float64(week)*gnssconst.SecondsPerGPSWeek, week
}

// String renders the epoch as an ISO-ish timestamp, matching the
// precision the teacher's TimeStr gives callers for logging.
func (e Epoch) String() string {
	if e.Time == 0 {
		return "0000-00-00T00:00:00Z"
	}
	t := time.Unix(e.Time, int64(e.Sec*1e9)).UTC()
	return t.Format("2006-01-02T15:04:05.000000000Z")
}

// GoString supports %#v / debug printing in logrus fields.
func (e Epoch) GoString() string {
	return fmt.Sprintf("gtime.Epoch{Time:%d, Sec:%f}", e.Time, e.Sec)
}
