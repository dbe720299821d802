package gesturebrainz

import (
	"time"

	"github.com/google/uuid"
)

// sessionPhase tracks where a session sits in its lifecycle. There is
// no "ended" value: an ended session is simply dropped from the engine.
type sessionPhase string

const (
	sessionPending  sessionPhase = "pending"
	sessionResolved sessionPhase = "resolved"
)

// session is the per-contact state: everything between one pointer-Down
// and the matching Up or Cancel. A fresh session starts at every Down
// and nothing of it survives the end of the contact, with the single
// exception of the tap chain below.
type session struct {
	id    uuid.UUID
	phase sessionPhase

	startPos Point
	startAt  time.Time
	lastPos  Point
	lastAt   time.Time

	history *MovementHistory
	set     *ActiveGestureSet
	winner  *GestureHypothesis

	// lastConflict is the signature of the most recently reported
	// conflict set, so an unresolved standoff is reported once rather
	// than on every re-fire.
	lastConflict string

	// movedPastSlop flips once the contact wanders beyond the tap
	// slop; it never flips back.
	movedPastSlop bool
	// longPressFired guards the long-press check so it runs at most
	// once per session.
	longPressFired bool
	// longPressAt is when a still-pending, stationary contact turns
	// into a long-press.
	longPressAt time.Time
	// tapDeadline closes the double-tap window opened by this Down.
	tapDeadline time.Time

	// Scrub state, set once a long-press or horizontal-seek wins.
	ramp       *SpeedProgression
	timeLadder bool
	dirAnchorX float64
	anchorMs   int64
	accumMs    int64
	lastSeekAt time.Time
}

func newSession(cfg Config, s PointerSample) *session {
	sess := &session{
		id:          uuid.New(),
		phase:       sessionPending,
		startPos:    s.Position,
		startAt:     s.At,
		lastPos:     s.Position,
		lastAt:      s.At,
		history:     NewMovementHistory(cfg.HistoryCapacity),
		set:         NewActiveGestureSet(),
		longPressAt: s.At.Add(cfg.LongPressDuration),
		tapDeadline: s.At.Add(cfg.DoubleTapWindow),
	}
	sess.history.Append(s)
	return sess
}

// travel returns the displacement of p from the contact origin.
func (s *session) travel(p Point) (dx, dy float64) {
	return p.X - s.startPos.X, p.Y - s.startPos.Y
}

// hasSwipeHypothesis reports whether any swipe-family hypothesis is
// live, fired or not.
func (s *session) hasSwipeHypothesis() bool {
	for _, t := range []GestureType{GestureHorizontalSeek, GestureVerticalVolume, GestureVerticalBrightness} {
		if _, ok := s.set.Get(t); ok {
			return true
		}
	}
	return false
}

// tapChain remembers a finished candidate tap while its double-tap
// window runs out. It is the only recognition state that outlives a
// session: a second Down landing on it in time becomes a double-tap,
// and its expiry retroactively confirms the single tap.
type tapChain struct {
	sessionID uuid.UUID
	pos       Point
	zone      Zone
	deadline  time.Time
}
