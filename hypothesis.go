package gesturebrainz

import (
	"fmt"
	"time"
)

// GestureType names one recognizable gesture.
type GestureType string

const (
	GestureSingleTap          GestureType = "single_tap"
	GestureDoubleTap          GestureType = "double_tap"
	GestureLongPress          GestureType = "long_press"
	GestureHorizontalSeek     GestureType = "horizontal_seek"
	GestureVerticalVolume     GestureType = "vertical_volume"
	GestureVerticalBrightness GestureType = "vertical_brightness"
	GesturePinchZoom          GestureType = "pinch_zoom"
)

// gestureTypeOrder lists every gesture type from highest to lowest base
// priority. It doubles as the deterministic iteration order wherever a
// set of types is reported.
var gestureTypeOrder = []GestureType{
	GestureLongPress,
	GesturePinchZoom,
	GestureDoubleTap,
	GestureSingleTap,
	GestureHorizontalSeek,
	GestureVerticalVolume,
	GestureVerticalBrightness,
}

// Base priorities. The swipe family shares one band: within it the
// resolver falls back to confidence and tie-break order.
var gestureBasePriority = map[GestureType]int{
	GestureLongPress:          50,
	GesturePinchZoom:          40,
	GestureDoubleTap:          30,
	GestureSingleTap:          20,
	GestureHorizontalSeek:     10,
	GestureVerticalVolume:     10,
	GestureVerticalBrightness: 10,
}

// BasePriority returns the fixed priority band for the gesture type.
// Unknown types rank below every known one.
func (t GestureType) BasePriority() int {
	return gestureBasePriority[t]
}

// Valid reports whether t is one of the known gesture types.
func (t GestureType) Valid() bool {
	_, ok := gestureBasePriority[t]
	return ok
}

// ParseGestureType converts a wire/config string into a GestureType.
func ParseGestureType(s string) (GestureType, error) {
	t := GestureType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown gesture type %q", s)
	}
	return t, nil
}

// typeOrdinal is the position in gestureTypeOrder, used as the final
// tie-break so resolution never depends on map iteration order.
func typeOrdinal(t GestureType) int {
	for i, o := range gestureTypeOrder {
		if o == t {
			return i
		}
	}
	return len(gestureTypeOrder)
}

// GestureHypothesis is one candidate interpretation of the current
// contact. Hypotheses accumulate in the session's active set and
// compete for resolution; at most one per type exists at a time.
type GestureHypothesis struct {
	Type            GestureType `json:"type"`
	StartPosition   Point       `json:"start_position"`
	CurrentPosition Point       `json:"current_position"`
	StartedAt       time.Time   `json:"started_at"`
	Velocity        Velocity    `json:"velocity"`
	Confidence      float64     `json:"confidence"`
	Priority        int         `json:"priority"`

	// matured marks a hypothesis whose triggering condition has fully
	// fired, as opposed to one merely scheduled (a tap candidate still
	// waiting out its window).
	matured bool
}

// Matured reports whether the hypothesis has fired.
func (h *GestureHypothesis) Matured() bool { return h.matured }

// Score is the resolution score: the base priority band plus a 0..10
// confidence bonus. Confidence can promote a hypothesis to the top of
// its band but never across more than one band boundary.
func (h *GestureHypothesis) Score() int {
	return h.Priority + int(clamp01(h.Confidence)*10)
}

// ActiveGestureSet holds the live hypotheses of one session, at most
// one per gesture type.
type ActiveGestureSet struct {
	byType map[GestureType]*GestureHypothesis
}

// NewActiveGestureSet returns an empty set.
func NewActiveGestureSet() *ActiveGestureSet {
	return &ActiveGestureSet{byType: make(map[GestureType]*GestureHypothesis)}
}

// Put inserts h, replacing any previous hypothesis of the same type.
func (s *ActiveGestureSet) Put(h *GestureHypothesis) {
	s.byType[h.Type] = h
}

// Get returns the hypothesis of the given type, if present.
func (s *ActiveGestureSet) Get(t GestureType) (*GestureHypothesis, bool) {
	h, ok := s.byType[t]
	return h, ok
}

// Remove drops the hypothesis of the given type, if present.
func (s *ActiveGestureSet) Remove(t GestureType) {
	delete(s.byType, t)
}

// Len returns the number of live hypotheses.
func (s *ActiveGestureSet) Len() int { return len(s.byType) }

// All returns the live hypotheses in priority order.
func (s *ActiveGestureSet) All() []*GestureHypothesis {
	out := make([]*GestureHypothesis, 0, len(s.byType))
	for _, t := range gestureTypeOrder {
		if h, ok := s.byType[t]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Types returns the live hypothesis types in priority order.
func (s *ActiveGestureSet) Types() []GestureType {
	out := make([]GestureType, 0, len(s.byType))
	for _, t := range gestureTypeOrder {
		if _, ok := s.byType[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// RetainOnly drops every hypothesis except the one of the given type.
func (s *ActiveGestureSet) RetainOnly(t GestureType) {
	for k := range s.byType {
		if k != t {
			delete(s.byType, k)
		}
	}
}

// Clear drops every hypothesis.
func (s *ActiveGestureSet) Clear() {
	clear(s.byType)
}
