// Package pubstate holds the state a receiver publishes for external
// consumers: the current GPST time-of-week, per-satellite channel
// status, and the shared almanac/iono/UTC tables every channel's
// navigation decoder contributes to (spec.md §3 "Shared/published
// state", grounded on original_source/src/state.rs's GnssState).
//
// Tracking and navigation decoding each update their own private state
// (track.Channel, navdec.Decoder); the receiver folds the results into
// one State here after releasing its lock, rather than track or navdec
// reaching into this package directly -- this is the other half of
// spec.md §9's message-passing design (see internal/navdec's package
// doc), so State has no knowledge of how a value was derived, only what
// the latest value is.
package pubstate

import (
	"sync"

	"github.com/gnssrcv/l1ca-core/internal/gtime"
	"github.com/gnssrcv/l1ca-core/internal/navdec"
	"github.com/gnssrcv/l1ca-core/internal/track"
)

// ChannelState is the externally-visible status of one satellite's
// tracking channel, mirroring original_source's ChannelState.
type ChannelState struct {
	State     track.State
	CN0       float64
	DopplerHz float64
	CodeIdx   float64
	Phi       float64
	HasEph    bool
}

// State is the full published snapshot: GPST time, the shared almanac
// and ionosphere/UTC tables, and one ChannelState per satellite
// currently being tracked.
type State struct {
	mu sync.Mutex

	TowGPST  gtime.Epoch
	Almanac  [32]navdec.AlmanacEntry
	IonoUTC  navdec.IonoUTC
	IonAdj   bool
	UTCAdj   bool
	Channels map[int]ChannelState

	onUpdate func()
}

// New returns an empty published State with no channels and no
// registered update hook.
func New() *State {
	return &State{
		Channels: make(map[int]ChannelState),
		onUpdate: func() {},
	}
}

// OnUpdate registers the function called after every Update, once the
// lock protecting State has been released -- matching
// GnssState::set_update_func in original_source, which an external PVT
// consumer uses to know a new snapshot is ready without polling.
func (s *State) OnUpdate(f func()) {
	s.mu.Lock()
	if f == nil {
		f = func() {}
	}
	s.onUpdate = f
	s.mu.Unlock()
}

// Update atomically applies mutate to the published state, then invokes
// the registered update hook (if any) after the lock is released.
func (s *State) Update(mutate func(*State)) {
	s.mu.Lock()
	mutate(s)
	hook := s.onUpdate
	s.mu.Unlock()
	hook()
}

// Channel returns a copy of the current ChannelState for sv, and whether
// one exists.
func (s *State) Channel(sv int) (ChannelState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.Channels[sv]
	return cs, ok
}

// SetChannel records (or replaces) sv's channel status.
func (s *State) SetChannel(sv int, cs ChannelState) {
	s.Update(func(st *State) {
		st.Channels[sv] = cs
	})
}

// RemoveChannel drops sv from the published channel table, e.g. once
// acquisition has missed it for two consecutive attempts (spec.md §8
// item 11).
func (s *State) RemoveChannel(sv int) {
	s.Update(func(st *State) {
		delete(st.Channels, sv)
	})
}

// Snapshot returns a deep-enough copy of the published almanac and
// ionosphere/UTC tables for a caller that wants to read them without
// holding the lock.
func (s *State) Snapshot() (almanac [32]navdec.AlmanacEntry, ionoUTC navdec.IonoUTC, tow gtime.Epoch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Almanac, s.IonoUTC, s.TowGPST
}
