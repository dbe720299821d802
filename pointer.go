package gesturebrainz

import (
	"fmt"
	"math"
	"time"
)

// Phase describes where a pointer sample sits in the contact lifecycle.
type Phase string

const (
	PhaseDown   Phase = "down"
	PhaseMove   Phase = "move"
	PhaseUp     Phase = "up"
	PhaseCancel Phase = "cancel"
)

// ParsePhase converts a wire/config string into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseDown, PhaseMove, PhaseUp, PhaseCancel:
		return Phase(s), nil
	default:
		return "", fmt.Errorf("unknown pointer phase %q (valid: down, move, up, cancel)", s)
	}
}

// Point is a position on the interaction surface in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the euclidean distance between two points in pixels.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Velocity is a pointer velocity in pixels per second.
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Magnitude returns the speed in pixels per second.
func (v Velocity) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

// PointerSample is one observed pointer state. Samples arrive from the
// platform input layer (or synthetically over IPC) already stamped with
// the host clock; the engine never calls time.Now itself.
type PointerSample struct {
	Position Point     `json:"position"`
	Phase    Phase     `json:"phase"`
	At       time.Time `json:"at"`
}
