package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnssrcv/l1ca-core/internal/gnssconst"
)

func newTestChannel(t *testing.T) *Channel {
	t.Helper()
	ch, err := New(1, "L1CA", 2046000, 0, 0)
	require.NoError(t, err)
	return ch
}

func TestNew_SeedsStateMachineAtAcquisition(t *testing.T) {
	ch := newTestChannel(t)
	assert.Equal(t, StateAcquisition, ch.State)
	assert.Len(t, ch.CorrHistory, gnssconst.TrackCorrHistoryDepth)
}

func TestUpdate_AdvancesSampleCounterAndTimestamp(t *testing.T) {
	ch := newTestChannel(t)
	n := int(ch.Fs * gnssconst.L1CACodePeriod)
	window := make([]complex128, 2*n)
	for i := range window {
		window[i] = complex(float64(ch.chips[i%len(ch.chips)]), 0)
	}

	step := ch.Update(window, 0.001)
	assert.Equal(t, 1, step.NumTrkSamples)
	assert.Equal(t, 0.001, step.TsSec)
	assert.Equal(t, StatePullIn, ch.State)
}

func TestUpdate_PushesPromptCorrelatorIntoHistory(t *testing.T) {
	ch := newTestChannel(t)
	n := int(ch.Fs * gnssconst.L1CACodePeriod)
	window := make([]complex128, 2*n)
	for i := range window {
		window[i] = complex(float64(ch.chips[i%len(ch.chips)]), 0)
	}

	for i := 0; i < 5; i++ {
		ch.Update(window, float64(i)*0.001)
	}
	recent := ch.RecentCorr(5)
	require.Len(t, recent, 5)
}

func TestDLLDiscriminator_ZeroWhenBalanced(t *testing.T) {
	assert.Equal(t, 0.0, DLLDiscriminator(complex(1, 0), complex(1, 0)))
}

func TestCostasDiscriminator_ZeroWhenAligned(t *testing.T) {
	assert.Equal(t, 0.0, CostasDiscriminator(1, 0))
}

func TestRecentCorr_PanicsWhenExceedingDepth(t *testing.T) {
	ch := newTestChannel(t)
	assert.Panics(t, func() {
		ch.RecentCorr(gnssconst.TrackCorrHistoryDepth + 1)
	})
}
