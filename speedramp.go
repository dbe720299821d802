package gesturebrainz

import (
	"fmt"
	"math"
	"time"
)

// SpeedLadder maps how long a scrub has been held to a seek-speed
// multiplier. Levels and Thresholds pair by index: the ladder sits at
// the greatest level whose threshold has been reached.
type SpeedLadder struct {
	Levels     []float64
	Thresholds []time.Duration
}

// DefaultSpeedLadder returns the stock four-step ladder: 1x at once,
// 2x after 1s, 4x after 2s, 8x after 3.5s.
func DefaultSpeedLadder() SpeedLadder {
	return SpeedLadder{
		Levels:     []float64{1, 2, 4, 8},
		Thresholds: []time.Duration{0, time.Second, 2 * time.Second, 3500 * time.Millisecond},
	}
}

// Validate checks the ladder shape: equal-length non-empty slices,
// positive multipliers, thresholds starting at 0 and strictly
// increasing.
func (l SpeedLadder) Validate() error {
	if len(l.Levels) == 0 {
		return fmt.Errorf("speed ladder needs at least one level")
	}
	if len(l.Levels) != len(l.Thresholds) {
		return fmt.Errorf("speed ladder has %d levels but %d thresholds", len(l.Levels), len(l.Thresholds))
	}
	if l.Thresholds[0] != 0 {
		return fmt.Errorf("first speed threshold must be 0, got %s", l.Thresholds[0])
	}
	for i := 1; i < len(l.Thresholds); i++ {
		if l.Thresholds[i] <= l.Thresholds[i-1] {
			return fmt.Errorf("speed thresholds must be strictly increasing (threshold %d: %s <= %s)",
				i, l.Thresholds[i], l.Thresholds[i-1])
		}
	}
	for i, lv := range l.Levels {
		if lv <= 0 {
			return fmt.Errorf("speed level %d must be positive, got %g", i, lv)
		}
	}
	return nil
}

// LevelAt returns the ladder level for a hold time: the greatest index
// whose threshold is at or below held.
func (l SpeedLadder) LevelAt(held time.Duration) int {
	level := 0
	for i, th := range l.Thresholds {
		if held < th {
			break
		}
		level = i
	}
	return level
}

// Multiplier returns the multiplier at a level, clamped into range.
func (l SpeedLadder) Multiplier(level int) float64 {
	if len(l.Levels) == 0 {
		return 1
	}
	if level < 0 {
		level = 0
	}
	if level >= len(l.Levels) {
		level = len(l.Levels) - 1
	}
	return l.Levels[level]
}

// MaxLevel returns the highest level index.
func (l SpeedLadder) MaxLevel() int {
	if len(l.Levels) == 0 {
		return 0
	}
	return len(l.Levels) - 1
}

// SpeedProgression tracks one scrub's position on the ladder together
// with its current direction. Reversing direction keeps both the level
// and the running hold time, so a scrub that flips at 4x continues at
// 4x the other way.
type SpeedProgression struct {
	ladder         SpeedLadder
	direction      Direction
	levelIndex     int
	startedAt      time.Time
	lastReversalAt time.Time
}

// NewSpeedProgression starts a progression at level 0.
func NewSpeedProgression(ladder SpeedLadder, direction Direction, at time.Time) *SpeedProgression {
	return &SpeedProgression{
		ladder:         ladder,
		direction:      direction,
		startedAt:      at,
		lastReversalAt: at,
	}
}

// AdvanceTo moves the progression to the level implied by now and
// reports whether the level changed. The level never steps down.
func (p *SpeedProgression) AdvanceTo(now time.Time) (int, bool) {
	lvl := p.ladder.LevelAt(now.Sub(p.startedAt))
	if lvl <= p.levelIndex {
		return p.levelIndex, false
	}
	p.levelIndex = lvl
	return lvl, true
}

// Reverse flips the scrub direction, preserving the ladder level and
// the hold time.
func (p *SpeedProgression) Reverse(dir Direction, at time.Time) {
	p.direction = dir
	p.lastReversalAt = at
}

// Direction returns the current scrub direction.
func (p *SpeedProgression) Direction() Direction { return p.direction }

// Level returns the current ladder level index.
func (p *SpeedProgression) Level() int { return p.levelIndex }

// Multiplier returns the multiplier at the current level.
func (p *SpeedProgression) Multiplier() float64 { return p.ladder.Multiplier(p.levelIndex) }

// Elapsed returns the total hold time at now.
func (p *SpeedProgression) Elapsed(now time.Time) time.Duration { return now.Sub(p.startedAt) }

// SinceReversal returns the time since the last direction flip, or
// since the start if the scrub never flipped.
func (p *SpeedProgression) SinceReversal(now time.Time) time.Duration {
	return now.Sub(p.lastReversalAt)
}

// MovementMultiplier maps a horizontal drag distance to a seek-speed
// multiplier in fixed bands of bandPx: 1x inside the first band, then
// 1.5x, 2x, 3x, and 4x beyond the fourth.
func MovementMultiplier(distancePx, bandPx float64) float64 {
	if bandPx <= 0 {
		return 1
	}
	switch d := math.Abs(distancePx); {
	case d < bandPx:
		return 1
	case d < 2*bandPx:
		return 1.5
	case d < 3*bandPx:
		return 2
	case d < 4*bandPx:
		return 3
	default:
		return 4
	}
}

// SeekDeltaMs returns the signed seek step for one seek tick:
// round(baseMs x multiplier) in the scrub direction. The result is not
// clamped; bounding against media duration is the player's business.
func SeekDeltaMs(baseMs int64, multiplier float64, dir Direction) int64 {
	return int64(math.Round(float64(baseMs)*multiplier)) * int64(dir.Sign())
}
