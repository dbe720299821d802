package gesturebrainz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectionChangeIntensity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.3, DirectionChangeIntensity(0), 1e-9)
	assert.InDelta(t, 0.65, DirectionChangeIntensity(0.5), 1e-9)
	assert.InDelta(t, 1.0, DirectionChangeIntensity(1), 1e-9)

	// Malformed confidences still land in [0, 1].
	assert.Equal(t, 1.0, DirectionChangeIntensity(3))
	assert.Equal(t, 0.0, DirectionChangeIntensity(-10))
}

func TestSpeedLevelIntensity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.2, SpeedLevelIntensity(0, 3), 1e-9)
	assert.InDelta(t, 0.2+0.8/3, SpeedLevelIntensity(1, 3), 1e-9)
	assert.InDelta(t, 0.2+1.6/3, SpeedLevelIntensity(2, 3), 1e-9)
	assert.InDelta(t, 1.0, SpeedLevelIntensity(3, 3), 1e-9)

	// A single-level ladder always cues at the floor.
	assert.InDelta(t, 0.2, SpeedLevelIntensity(0, 0), 1e-9)
	assert.InDelta(t, 0.2, SpeedLevelIntensity(5, 0), 1e-9)
}
