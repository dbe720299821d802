package gesturebrainz

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Events
//
// Events are the engine's only output. Each pointer sample or tick may
// produce zero or more of them, in emission order. The engine never
// touches the player, the screen or the speaker itself; callers map
// events onto whatever surfaces they drive.
//
// Every event carries the id of the session that produced it and the
// host-clock instant it was emitted at.
// ============================================================================

// Event is implemented by every engine output.
type Event interface {
	eventMarker()
}

// GestureStarted reports that a gesture won its session and is now the
// sole driver until the contact lifts.
type GestureStarted struct {
	SessionID uuid.UUID   `json:"session_id"`
	Type      GestureType `json:"type"`
	Position  Point       `json:"position"`
	Zone      Zone        `json:"zone"`
	At        time.Time   `json:"at"`
}

// GestureEnded reports that a resolved gesture finished. Success is
// false when the contact was cancelled by the platform rather than
// lifted.
type GestureEnded struct {
	SessionID uuid.UUID   `json:"session_id"`
	Type      GestureType `json:"type"`
	Success   bool        `json:"success"`
	At        time.Time   `json:"at"`
}

// GestureConflict reports a conflict the configured strategy declined
// to settle. Types lists the contenders in priority order.
type GestureConflict struct {
	SessionID uuid.UUID     `json:"session_id"`
	Types     []GestureType `json:"types"`
	At        time.Time     `json:"at"`
}

// SeekUpdate is one scrub step: the signed step for this tick and the
// absolute position the accumulated scrub points at. TargetPositionMs
// is not clamped to the media duration.
type SeekUpdate struct {
	SessionID        uuid.UUID `json:"session_id"`
	DeltaMs          int64     `json:"delta_ms"`
	TargetPositionMs int64     `json:"target_position_ms"`
	Velocity         Velocity  `json:"velocity"`
	Direction        Direction `json:"direction"`
	At               time.Time `json:"at"`
}

// VolumeDelta is a relative volume change from a vertical swipe on the
// volume side. Delta is a fraction of full scale, positive upward.
type VolumeDelta struct {
	SessionID uuid.UUID   `json:"session_id"`
	Delta     float64     `json:"delta"`
	Side      SurfaceSide `json:"side"`
	At        time.Time   `json:"at"`
}

// BrightnessDelta is a relative brightness change from a vertical swipe
// on the brightness side. Delta is a fraction of full scale, positive
// upward.
type BrightnessDelta struct {
	SessionID uuid.UUID   `json:"session_id"`
	Delta     float64     `json:"delta"`
	Side      SurfaceSide `json:"side"`
	At        time.Time   `json:"at"`
}

// DirectionChanged reports an in-scrub direction flip.
type DirectionChanged struct {
	SessionID  uuid.UUID `json:"session_id"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// SpeedLevelChanged reports a ladder transition, including the level 0
// entry when a scrub starts.
type SpeedLevelChanged struct {
	SessionID  uuid.UUID `json:"session_id"`
	Level      int       `json:"level"`
	Multiplier float64   `json:"multiplier"`
	At         time.Time `json:"at"`
}

// FeedbackIntent asks the host to play a cue at the given intensity.
type FeedbackIntent struct {
	SessionID uuid.UUID    `json:"session_id"`
	Kind      FeedbackKind `json:"kind"`
	Intensity float64      `json:"intensity"`
	At        time.Time    `json:"at"`
}

func (GestureStarted) eventMarker()    {}
func (GestureEnded) eventMarker()      {}
func (GestureConflict) eventMarker()   {}
func (SeekUpdate) eventMarker()        {}
func (VolumeDelta) eventMarker()       {}
func (BrightnessDelta) eventMarker()   {}
func (DirectionChanged) eventMarker()  {}
func (SpeedLevelChanged) eventMarker() {}
func (FeedbackIntent) eventMarker()    {}

// EventEnvelope is the wire form of an event: a type tag plus the
// event's own fields.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EventType returns the envelope type tag for an event, or "" for a
// value that is not a known event.
func EventType(ev Event) string {
	switch ev.(type) {
	case GestureStarted:
		return "gesture_started"
	case GestureEnded:
		return "gesture_ended"
	case GestureConflict:
		return "gesture_conflict"
	case SeekUpdate:
		return "seek_update"
	case VolumeDelta:
		return "volume_delta"
	case BrightnessDelta:
		return "brightness_delta"
	case DirectionChanged:
		return "direction_changed"
	case SpeedLevelChanged:
		return "speed_level_changed"
	case FeedbackIntent:
		return "feedback_intent"
	default:
		return ""
	}
}

// MarshalEvent encodes an event into its envelope form.
func MarshalEvent(ev Event) ([]byte, error) {
	t := EventType(ev)
	if t == "" {
		return nil, fmt.Errorf("cannot marshal unknown event type %T", ev)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return json.Marshal(EventEnvelope{Type: t, Data: data})
}

// UnmarshalEvent decodes an envelope back into a typed event.
func UnmarshalEvent(b []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	switch env.Type {
	case "gesture_started":
		var ev GestureStarted
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode gesture_started: %w", err)
		}
		return ev, nil
	case "gesture_ended":
		var ev GestureEnded
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode gesture_ended: %w", err)
		}
		return ev, nil
	case "gesture_conflict":
		var ev GestureConflict
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode gesture_conflict: %w", err)
		}
		return ev, nil
	case "seek_update":
		var ev SeekUpdate
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode seek_update: %w", err)
		}
		return ev, nil
	case "volume_delta":
		var ev VolumeDelta
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode volume_delta: %w", err)
		}
		return ev, nil
	case "brightness_delta":
		var ev BrightnessDelta
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode brightness_delta: %w", err)
		}
		return ev, nil
	case "direction_changed":
		var ev DirectionChanged
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode direction_changed: %w", err)
		}
		return ev, nil
	case "speed_level_changed":
		var ev SpeedLevelChanged
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode speed_level_changed: %w", err)
		}
		return ev, nil
	case "feedback_intent":
		var ev FeedbackIntent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode feedback_intent: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
