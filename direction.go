package gesturebrainz

import "math"

// Direction is the horizontal sense of a scrub or seek motion.
type Direction string

const (
	DirectionNone     Direction = "none"
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Sign returns +1 for forward, -1 for backward and 0 otherwise.
func (d Direction) Sign() int {
	switch d {
	case DirectionForward:
		return 1
	case DirectionBackward:
		return -1
	default:
		return 0
	}
}

// Opposite returns the reversed direction. None stays None.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionForward:
		return DirectionBackward
	case DirectionBackward:
		return DirectionForward
	default:
		return DirectionNone
	}
}

// ClassifyDirection maps a horizontal displacement to a direction.
// Displacements whose magnitude does not exceed thresholdPx classify
// as None.
func ClassifyDirection(deltaPx, thresholdPx float64) Direction {
	switch {
	case deltaPx > thresholdPx:
		return DirectionForward
	case deltaPx < -thresholdPx:
		return DirectionBackward
	default:
		return DirectionNone
	}
}

// DirectionConfidence scores how decisive a horizontal displacement is,
// in [0, 1]: 0 at rest, 0.5 at the classification threshold, saturating
// at twice the threshold. The score is monotone in the displacement
// magnitude.
func DirectionConfidence(deltaPx, thresholdPx float64) float64 {
	mag := math.Abs(deltaPx)
	if thresholdPx <= 0 {
		if mag > 0 {
			return 1
		}
		return 0
	}
	return math.Min(1, mag/(2*thresholdPx))
}
