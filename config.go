package gesturebrainz

import (
	"fmt"
	"time"
)

// Defaults for every engine tunable. DefaultConfig and withDefaults
// both draw from these.
const (
	defaultHistoryCapacity = 20
	defaultVelocityWindow  = 5

	defaultTapSlopPx          = 20.0
	defaultSwipeMinDistancePx = 20.0
	defaultReversalMinPx      = 20.0
	defaultDirectionDeltaPx   = 30.0
	defaultMovementBandPx     = 80.0

	defaultSmoothDirectionGate   = 0.7
	defaultReversalDirectionGate = 0.8

	defaultDoubleTapWindow   = 300 * time.Millisecond
	defaultLongPressDuration = 500 * time.Millisecond

	defaultBaseSeekUnitMs   = 1000
	defaultSeekTickInterval = 100 * time.Millisecond
)

// Config carries every tunable of the recognition engine. Zero values
// mean "use the default"; NewEngine fills them in. Validate rejects
// combinations that cannot work before they reach a running engine.
type Config struct {
	// HistoryCapacity bounds the per-contact movement ring.
	HistoryCapacity int
	// VelocityWindow is how many trailing samples feed velocity.
	VelocityWindow int

	// TapSlopPx is how far a contact may wander and still count as a
	// tap or long-press.
	TapSlopPx float64
	// SwipeMinDistancePx is the travel needed before a swipe
	// hypothesis fires.
	SwipeMinDistancePx float64
	// ReversalMinMagnitudePx is the per-half travel the out-and-back
	// detector requires.
	ReversalMinMagnitudePx float64
	// DirectionDeltaPx is the displacement at which the direction
	// classifier leaves None.
	DirectionDeltaPx float64
	// MovementBandPx is the band width for drag-distance speed
	// multipliers.
	MovementBandPx float64

	// SmoothDirectionGate is the confidence needed for an in-scrub
	// direction change driven by the classifier.
	SmoothDirectionGate float64
	// ReversalDirectionGate is the confidence needed when the
	// out-and-back detector reports a flip.
	ReversalDirectionGate float64

	// DoubleTapWindow runs from the first tap's Down; a second Down
	// inside it makes a double-tap.
	DoubleTapWindow time.Duration
	// LongPressDuration is how long a still contact must hold before
	// long-press fires.
	LongPressDuration time.Duration

	// Ladder is the hold-time speed ladder for scrubs.
	Ladder SpeedLadder

	// Strategy settles conflicts between competing hypotheses.
	Strategy ResolutionStrategy

	// BaseSeekUnitMs is the unscaled seek step per seek tick.
	BaseSeekUnitMs int64
	// SeekTickInterval is how often a resolved scrub emits seek
	// updates.
	SeekTickInterval time.Duration

	// Sensitivity multipliers applied to seek steps and to vertical
	// volume/brightness deltas.
	SeekSensitivity       float64
	VolumeSensitivity     float64
	BrightnessSensitivity float64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity:        defaultHistoryCapacity,
		VelocityWindow:         defaultVelocityWindow,
		TapSlopPx:              defaultTapSlopPx,
		SwipeMinDistancePx:     defaultSwipeMinDistancePx,
		ReversalMinMagnitudePx: defaultReversalMinPx,
		DirectionDeltaPx:       defaultDirectionDeltaPx,
		MovementBandPx:         defaultMovementBandPx,
		SmoothDirectionGate:    defaultSmoothDirectionGate,
		ReversalDirectionGate:  defaultReversalDirectionGate,
		DoubleTapWindow:        defaultDoubleTapWindow,
		LongPressDuration:      defaultLongPressDuration,
		Ladder:                 DefaultSpeedLadder(),
		Strategy:               StrategyPriority,
		BaseSeekUnitMs:         defaultBaseSeekUnitMs,
		SeekTickInterval:       defaultSeekTickInterval,
		SeekSensitivity:        1,
		VolumeSensitivity:      1,
		BrightnessSensitivity:  1,
	}
}

// withDefaults fills zero-valued fields from the stock tuning.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = d.VelocityWindow
	}
	if c.TapSlopPx <= 0 {
		c.TapSlopPx = d.TapSlopPx
	}
	if c.SwipeMinDistancePx <= 0 {
		c.SwipeMinDistancePx = d.SwipeMinDistancePx
	}
	if c.ReversalMinMagnitudePx <= 0 {
		c.ReversalMinMagnitudePx = d.ReversalMinMagnitudePx
	}
	if c.DirectionDeltaPx <= 0 {
		c.DirectionDeltaPx = d.DirectionDeltaPx
	}
	if c.MovementBandPx <= 0 {
		c.MovementBandPx = d.MovementBandPx
	}
	if c.SmoothDirectionGate <= 0 {
		c.SmoothDirectionGate = d.SmoothDirectionGate
	}
	if c.ReversalDirectionGate <= 0 {
		c.ReversalDirectionGate = d.ReversalDirectionGate
	}
	if c.DoubleTapWindow <= 0 {
		c.DoubleTapWindow = d.DoubleTapWindow
	}
	if c.LongPressDuration <= 0 {
		c.LongPressDuration = d.LongPressDuration
	}
	if len(c.Ladder.Levels) == 0 && len(c.Ladder.Thresholds) == 0 {
		c.Ladder = d.Ladder
	}
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	if c.BaseSeekUnitMs <= 0 {
		c.BaseSeekUnitMs = d.BaseSeekUnitMs
	}
	if c.SeekTickInterval <= 0 {
		c.SeekTickInterval = d.SeekTickInterval
	}
	if c.SeekSensitivity <= 0 {
		c.SeekSensitivity = d.SeekSensitivity
	}
	if c.VolumeSensitivity <= 0 {
		c.VolumeSensitivity = d.VolumeSensitivity
	}
	if c.BrightnessSensitivity <= 0 {
		c.BrightnessSensitivity = d.BrightnessSensitivity
	}
	return c
}

// Validate checks the configuration for values the engine cannot run
// with. It does not fill defaults; call it on the config you intend to
// use.
func (c Config) Validate() error {
	if c.HistoryCapacity < 4 {
		return fmt.Errorf("history_capacity must be at least 4, got %d", c.HistoryCapacity)
	}
	if c.VelocityWindow < 2 {
		return fmt.Errorf("velocity_window must be at least 2, got %d", c.VelocityWindow)
	}
	if c.VelocityWindow > c.HistoryCapacity {
		return fmt.Errorf("velocity_window (%d) cannot exceed history_capacity (%d)", c.VelocityWindow, c.HistoryCapacity)
	}
	if c.TapSlopPx <= 0 {
		return fmt.Errorf("tap_slop_px must be positive, got %g", c.TapSlopPx)
	}
	if c.SwipeMinDistancePx <= 0 {
		return fmt.Errorf("swipe_min_distance_px must be positive, got %g", c.SwipeMinDistancePx)
	}
	if c.ReversalMinMagnitudePx <= 0 {
		return fmt.Errorf("reversal_min_magnitude_px must be positive, got %g", c.ReversalMinMagnitudePx)
	}
	if c.DirectionDeltaPx <= 0 {
		return fmt.Errorf("direction_delta_px must be positive, got %g", c.DirectionDeltaPx)
	}
	if c.MovementBandPx <= 0 {
		return fmt.Errorf("movement_band_px must be positive, got %g", c.MovementBandPx)
	}
	if c.SmoothDirectionGate < 0 || c.SmoothDirectionGate > 1 {
		return fmt.Errorf("smooth_direction_gate must be in [0, 1], got %g", c.SmoothDirectionGate)
	}
	if c.ReversalDirectionGate < 0 || c.ReversalDirectionGate > 1 {
		return fmt.Errorf("reversal_direction_gate must be in [0, 1], got %g", c.ReversalDirectionGate)
	}
	if c.DoubleTapWindow <= 0 {
		return fmt.Errorf("double_tap_window must be positive, got %s", c.DoubleTapWindow)
	}
	if c.LongPressDuration <= 0 {
		return fmt.Errorf("long_press_duration must be positive, got %s", c.LongPressDuration)
	}
	if err := c.Ladder.Validate(); err != nil {
		return err
	}
	if _, err := ParseResolutionStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if c.BaseSeekUnitMs <= 0 {
		return fmt.Errorf("base_seek_unit_ms must be positive, got %d", c.BaseSeekUnitMs)
	}
	if c.SeekTickInterval <= 0 {
		return fmt.Errorf("seek_tick_interval must be positive, got %s", c.SeekTickInterval)
	}
	if c.SeekSensitivity <= 0 {
		return fmt.Errorf("seek_sensitivity must be positive, got %g", c.SeekSensitivity)
	}
	if c.VolumeSensitivity <= 0 {
		return fmt.Errorf("volume_sensitivity must be positive, got %g", c.VolumeSensitivity)
	}
	if c.BrightnessSensitivity <= 0 {
		return fmt.Errorf("brightness_sensitivity must be positive, got %g", c.BrightnessSensitivity)
	}
	return nil
}
