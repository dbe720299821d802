package gesturebrainz

// FeedbackKind names the cue a FeedbackIntent asks the host to play.
// The engine only ever emits intents; rendering them (haptics, sound,
// OSD flash) is the caller's business.
type FeedbackKind string

const (
	FeedbackGestureStart    FeedbackKind = "gesture_start"
	FeedbackGestureEnd      FeedbackKind = "gesture_end"
	FeedbackDirectionChange FeedbackKind = "direction_change"
	FeedbackSpeedLevel      FeedbackKind = "speed_level"
)

// Fixed intensities for the lifecycle cues.
const (
	gestureStartIntensity = 0.3
	gestureEndIntensity   = 0.2
)

// DirectionChangeIntensity scales a direction-change cue with the
// classifier's confidence: 0.3 at no confidence, 1.0 at full.
func DirectionChangeIntensity(confidence float64) float64 {
	return clamp01(confidence*0.7 + 0.3)
}

// SpeedLevelIntensity scales a speed-level cue with the position on the
// ladder: 0.2 at level 0, 1.0 at the top level. A single-level ladder
// always cues at 0.2.
func SpeedLevelIntensity(level, maxLevel int) float64 {
	if maxLevel <= 0 {
		return 0.2
	}
	return clamp01(float64(level)/float64(maxLevel)*0.8 + 0.2)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
