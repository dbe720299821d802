package gesturebrainz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hyp(t GestureType, conf float64, at time.Time) *GestureHypothesis {
	return &GestureHypothesis{
		Type:       t,
		StartedAt:  at,
		Confidence: conf,
		Priority:   t.BasePriority(),
		matured:    true,
	}
}

func TestGestureTypePriorityBands(t *testing.T) {
	t.Parallel()

	assert.Greater(t, GestureLongPress.BasePriority(), GesturePinchZoom.BasePriority())
	assert.Greater(t, GesturePinchZoom.BasePriority(), GestureDoubleTap.BasePriority())
	assert.Greater(t, GestureDoubleTap.BasePriority(), GestureSingleTap.BasePriority())
	assert.Greater(t, GestureSingleTap.BasePriority(), GestureHorizontalSeek.BasePriority())

	// The swipe family shares one band.
	assert.Equal(t, GestureHorizontalSeek.BasePriority(), GestureVerticalVolume.BasePriority())
	assert.Equal(t, GestureHorizontalSeek.BasePriority(), GestureVerticalBrightness.BasePriority())

	assert.Equal(t, 0, GestureType("nonsense").BasePriority())
	assert.False(t, GestureType("nonsense").Valid())
	assert.True(t, GestureLongPress.Valid())
}

func TestParseGestureType(t *testing.T) {
	t.Parallel()

	got, err := ParseGestureType("long_press")
	require.NoError(t, err)
	assert.Equal(t, GestureLongPress, got)

	_, err = ParseGestureType("triple_tap")
	assert.Error(t, err)
}

func TestHypothesisScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 50, hyp(GestureLongPress, 0, testBase).Score())
	assert.Equal(t, 60, hyp(GestureLongPress, 1, testBase).Score())
	assert.Equal(t, 27, hyp(GestureSingleTap, 0.75, testBase).Score())

	// Confidence outside [0, 1] is clamped before scoring.
	assert.Equal(t, 30, hyp(GestureSingleTap, 7, testBase).Score())
	assert.Equal(t, 20, hyp(GestureSingleTap, -3, testBase).Score())
}

func TestHypothesisMatured(t *testing.T) {
	t.Parallel()

	// A scheduled candidate has not fired yet; the helper builds fired ones.
	scheduled := &GestureHypothesis{Type: GestureSingleTap}
	assert.False(t, scheduled.Matured())
	assert.True(t, hyp(GestureLongPress, 1, testBase).Matured())
}

func TestActiveGestureSetOnePerType(t *testing.T) {
	t.Parallel()

	set := NewActiveGestureSet()
	first := hyp(GestureSingleTap, 0.4, testBase)
	second := hyp(GestureSingleTap, 0.9, testBase.Add(time.Millisecond))

	set.Put(first)
	set.Put(second)

	require.Equal(t, 1, set.Len())
	got, ok := set.Get(GestureSingleTap)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestActiveGestureSetOrdering(t *testing.T) {
	t.Parallel()

	set := NewActiveGestureSet()
	set.Put(hyp(GestureVerticalVolume, 0.5, testBase))
	set.Put(hyp(GestureLongPress, 1, testBase))
	set.Put(hyp(GestureSingleTap, 0.5, testBase))

	assert.Equal(t,
		[]GestureType{GestureLongPress, GestureSingleTap, GestureVerticalVolume},
		set.Types())

	all := set.All()
	require.Len(t, all, 3)
	assert.Equal(t, GestureLongPress, all[0].Type)
	assert.Equal(t, GestureVerticalVolume, all[2].Type)
}

func TestActiveGestureSetRetainOnly(t *testing.T) {
	t.Parallel()

	set := NewActiveGestureSet()
	set.Put(hyp(GestureLongPress, 1, testBase))
	set.Put(hyp(GestureSingleTap, 0.5, testBase))
	set.Put(hyp(GestureDoubleTap, 0.3, testBase))

	set.RetainOnly(GestureLongPress)

	require.Equal(t, 1, set.Len())
	_, ok := set.Get(GestureLongPress)
	assert.True(t, ok)

	set.Clear()
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Types())
}
