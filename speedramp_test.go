package gesturebrainz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedLadderValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultSpeedLadder().Validate())

	tests := []struct {
		name   string
		ladder SpeedLadder
	}{
		{"empty", SpeedLadder{}},
		{"mismatched lengths", SpeedLadder{
			Levels:     []float64{1, 2},
			Thresholds: []time.Duration{0},
		}},
		{"first threshold not zero", SpeedLadder{
			Levels:     []float64{1, 2},
			Thresholds: []time.Duration{time.Second, 2 * time.Second},
		}},
		{"thresholds not strictly increasing", SpeedLadder{
			Levels:     []float64{1, 2, 4},
			Thresholds: []time.Duration{0, time.Second, time.Second},
		}},
		{"non-positive level", SpeedLadder{
			Levels:     []float64{1, 0},
			Thresholds: []time.Duration{0, time.Second},
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, tt.ladder.Validate())
		})
	}
}

func TestSpeedLadderLevelAt(t *testing.T) {
	t.Parallel()

	l := DefaultSpeedLadder()

	tests := []struct {
		held time.Duration
		want int
	}{
		{0, 0},
		{999 * time.Millisecond, 0},
		{time.Second, 1},
		{1999 * time.Millisecond, 1},
		{2 * time.Second, 2},
		{3499 * time.Millisecond, 2},
		{3500 * time.Millisecond, 3},
		{time.Minute, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.LevelAt(tt.held), "held %s", tt.held)
	}
}

func TestSpeedLadderMultiplierClamps(t *testing.T) {
	t.Parallel()

	l := DefaultSpeedLadder()
	assert.Equal(t, 1.0, l.Multiplier(-5))
	assert.Equal(t, 8.0, l.Multiplier(99))
	assert.Equal(t, 4.0, l.Multiplier(2))
	assert.Equal(t, 3, l.MaxLevel())

	empty := SpeedLadder{}
	assert.Equal(t, 1.0, empty.Multiplier(0))
	assert.Equal(t, 0, empty.MaxLevel())
}

func TestSpeedProgressionAdvance(t *testing.T) {
	t.Parallel()

	p := NewSpeedProgression(DefaultSpeedLadder(), DirectionForward, testBase)

	lvl, changed := p.AdvanceTo(testBase.Add(500 * time.Millisecond))
	assert.Equal(t, 0, lvl)
	assert.False(t, changed)

	lvl, changed = p.AdvanceTo(testBase.Add(time.Second))
	assert.Equal(t, 1, lvl)
	assert.True(t, changed)
	assert.Equal(t, 2.0, p.Multiplier())

	// Same instant again: no second transition.
	_, changed = p.AdvanceTo(testBase.Add(time.Second))
	assert.False(t, changed)

	// A fast-forwarded clock jumps straight to the implied level.
	lvl, changed = p.AdvanceTo(testBase.Add(4 * time.Second))
	assert.Equal(t, 3, lvl)
	assert.True(t, changed)

	// The ladder never steps down.
	lvl, changed = p.AdvanceTo(testBase.Add(2 * time.Second))
	assert.Equal(t, 3, lvl)
	assert.False(t, changed)
}

func TestSpeedProgressionReversePreservesLevel(t *testing.T) {
	t.Parallel()

	p := NewSpeedProgression(DefaultSpeedLadder(), DirectionForward, testBase)
	_, _ = p.AdvanceTo(testBase.Add(3600 * time.Millisecond))
	require.Equal(t, 3, p.Level())

	flipAt := testBase.Add(3700 * time.Millisecond)
	p.Reverse(DirectionBackward, flipAt)

	assert.Equal(t, DirectionBackward, p.Direction())
	assert.Equal(t, 3, p.Level(), "reversal keeps the ladder level")
	assert.Equal(t, 8.0, p.Multiplier())

	now := testBase.Add(4 * time.Second)
	assert.Equal(t, 4*time.Second, p.Elapsed(now))
	assert.Equal(t, 300*time.Millisecond, p.SinceReversal(now))
}

func TestMovementMultiplierBands(t *testing.T) {
	t.Parallel()

	const band = 80.0

	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{79, 1},
		{80, 1.5},
		{159, 1.5},
		{160, 2},
		{239, 2},
		{240, 3},
		{319, 3},
		{320, 4},
		{5000, 4},
		{-200, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MovementMultiplier(tt.distance, band), "distance %g", tt.distance)
	}

	assert.Equal(t, 1.0, MovementMultiplier(500, 0), "degenerate band width")
}

func TestSeekDeltaMs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1500), SeekDeltaMs(1000, 1.5, DirectionForward))
	assert.Equal(t, int64(-1500), SeekDeltaMs(1000, 1.5, DirectionBackward))
	assert.Equal(t, int64(0), SeekDeltaMs(1000, 1.5, DirectionNone))
	assert.Equal(t, int64(500), SeekDeltaMs(333, 1.5, DirectionForward), "rounds half away from zero")
	assert.Equal(t, int64(8000), SeekDeltaMs(1000, 8, DirectionForward))
}
