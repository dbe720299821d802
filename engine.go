package gesturebrainz

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Engine
//
// The engine turns pointer samples and periodic ticks into gesture
// events. It owns no goroutines and never reads the wall clock: time
// enters exclusively through sample timestamps and Tick, which also
// makes every scenario replayable in tests.
//
// All methods are intended to be called only by the single goroutine
// driving the engine (single-owner). In the shipped daemon that is the
// brain loop in cmd/gesturebrainz.
// ============================================================================

// Seed confidences for the tap candidates spawned at pointer-Down,
// before any evidence beyond the contact itself exists.
const (
	singleTapSeedConfidence = 0.5
	doubleTapSeedConfidence = 0.3
)

// Engine is the gesture recognition core.
type Engine struct {
	cfg      Config
	pending  *Config
	geometry GeometryFunc
	logger   *slog.Logger

	sess  *session
	chain *tapChain

	playbackMs int64
}

// NewEngine returns an engine with zero config fields filled from the
// defaults. A nil geometry func reports a degenerate surface; a nil
// logger discards.
func NewEngine(cfg Config, geometry GeometryFunc, logger *slog.Logger) *Engine {
	if geometry == nil {
		geometry = func() Geometry { return Geometry{} }
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{cfg: cfg.withDefaults(), geometry: geometry, logger: logger}
}

// Config returns the currently effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// SetConfig validates and applies a new configuration. While a session
// is active the update is staged and takes effect at the next
// pointer-Down; the running session keeps the tuning it started with.
func (e *Engine) SetConfig(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if e.sess != nil {
		e.pending = &cfg
		e.logger.Info("config update staged until the active session ends")
		return nil
	}
	e.cfg = cfg
	e.pending = nil
	return nil
}

// SetPlaybackPosition anchors scrub targets at the player's current
// position, in milliseconds. A scrub captures the anchor once when it
// starts; updates during a scrub apply to the next one.
func (e *Engine) SetPlaybackPosition(ms int64) { e.playbackMs = ms }

// HandlePointer feeds one pointer sample through the state machine and
// returns the events it produced, in emission order.
func (e *Engine) HandlePointer(s PointerSample) []Event {
	switch s.Phase {
	case PhaseDown:
		return e.handleDown(s)
	case PhaseMove:
		return e.handleMove(s)
	case PhaseUp:
		return e.handleUp(s)
	case PhaseCancel:
		return e.handleCancel(s)
	default:
		e.logger.Warn("dropping pointer sample with unknown phase", "phase", s.Phase)
		return nil
	}
}

func (e *Engine) handleDown(s PointerSample) []Event {
	if e.sess != nil {
		e.logger.Warn("pointer down during active session, sample rejected",
			"session_id", e.sess.id)
		return nil
	}
	if e.pending != nil {
		e.cfg = *e.pending
		e.pending = nil
		e.logger.Info("staged config applied")
	}
	g := e.geometry()

	var events []Event
	if c := e.chain; c != nil {
		switch {
		case !s.At.Before(c.deadline):
			// The window already closed; settle the parked tap before
			// opening the new session.
			events = append(events, e.chainTapEvents(c, s.At)...)
			e.chain = nil
		case s.Position.DistanceTo(c.pos) <= e.cfg.TapSlopPx:
			// Second tap, in time and on target.
			e.chain = nil
			sess := newSession(e.cfg, s)
			e.sess = sess
			h := &GestureHypothesis{
				Type:            GestureDoubleTap,
				StartPosition:   s.Position,
				CurrentPosition: s.Position,
				StartedAt:       s.At,
				Confidence:      1,
				Priority:        GestureDoubleTap.BasePriority(),
				matured:         true,
			}
			return append(events, e.resolveFiring(sess, h, s.At, g)...)
		default:
			// A tap somewhere else: the parked tap stays single.
			events = append(events, e.chainTapEvents(c, s.At)...)
			e.chain = nil
		}
	}

	sess := newSession(e.cfg, s)
	e.sess = sess
	sess.set.Put(&GestureHypothesis{
		Type:            GestureSingleTap,
		StartPosition:   s.Position,
		CurrentPosition: s.Position,
		StartedAt:       s.At,
		Confidence:      singleTapSeedConfidence,
		Priority:        GestureSingleTap.BasePriority(),
	})
	sess.set.Put(&GestureHypothesis{
		Type:            GestureDoubleTap,
		StartPosition:   s.Position,
		CurrentPosition: s.Position,
		StartedAt:       s.At,
		Confidence:      doubleTapSeedConfidence,
		Priority:        GestureDoubleTap.BasePriority(),
	})
	e.logger.Debug("session started",
		"session_id", sess.id, "x", s.Position.X, "y", s.Position.Y)
	return events
}

func (e *Engine) handleMove(s PointerSample) []Event {
	sess := e.sess
	if sess == nil {
		e.logger.Debug("pointer move without active session, ignored")
		return nil
	}
	prev := sess.lastPos
	sess.history.Append(s)
	sess.lastPos, sess.lastAt = s.Position, s.At
	g := e.geometry()

	var events []Event
	dx, dy := sess.travel(s.Position)
	dist := sess.startPos.DistanceTo(s.Position)

	if !sess.movedPastSlop && dist > e.cfg.TapSlopPx {
		sess.movedPastSlop = true
		if sess.phase == sessionPending {
			sess.set.Remove(GestureSingleTap)
			sess.set.Remove(GestureDoubleTap)
			e.logger.Debug("contact left tap slop, tap candidates dropped",
				"session_id", sess.id, "distance_px", dist)
		}
	}

	if sess.phase == sessionPending && sess.movedPastSlop &&
		!sess.hasSwipeHypothesis() && dist >= e.cfg.SwipeMinDistancePx {
		events = append(events, e.fireSwipe(sess, s, g, dx, dy)...)
	}

	if sess.phase == sessionResolved {
		switch sess.winner.Type {
		case GestureLongPress, GestureHorizontalSeek:
			sess.winner.CurrentPosition = s.Position
			events = append(events, e.maybeReverse(sess, s)...)
		case GestureVerticalVolume:
			if d := verticalDelta(prev.Y, s.Position.Y, g.Height, e.cfg.VolumeSensitivity); d != 0 {
				events = append(events, VolumeDelta{
					SessionID: sess.id, Delta: d, Side: g.SideAt(sess.startPos), At: s.At,
				})
			}
		case GestureVerticalBrightness:
			if d := verticalDelta(prev.Y, s.Position.Y, g.Height, e.cfg.BrightnessSensitivity); d != 0 {
				events = append(events, BrightnessDelta{
					SessionID: sess.id, Delta: d, Side: g.SideAt(sess.startPos), At: s.At,
				})
			}
		}
	}
	return events
}

func (e *Engine) handleUp(s PointerSample) []Event {
	sess := e.sess
	if sess == nil {
		e.logger.Debug("pointer up without active session, ignored")
		return nil
	}
	sess.history.Append(s)
	sess.lastPos, sess.lastAt = s.Position, s.At
	g := e.geometry()

	var events []Event
	if sess.phase == sessionPending {
		if !s.At.Before(sess.tapDeadline) {
			sess.set.Remove(GestureDoubleTap)
		}
		if h, ok := sess.set.Get(GestureSingleTap); ok {
			if s.At.Before(sess.tapDeadline) {
				// Park the candidate: a second Down makes it a
				// double-tap, the deadline makes it a single.
				e.chain = &tapChain{
					sessionID: sess.id,
					pos:       sess.startPos,
					zone:      g.ZoneAt(sess.startPos),
					deadline:  sess.tapDeadline,
				}
				e.logger.Debug("tap parked for double-tap window",
					"session_id", sess.id, "deadline", sess.tapDeadline)
				e.sess = nil
				return events
			}
			h.Confidence = 1
			h.matured = true
			h.CurrentPosition = s.Position
			h.Velocity = sess.history.Velocity(e.cfg.VelocityWindow)
			events = append(events, e.resolveFiring(sess, h, s.At, g)...)
		}
	}

	if sess.phase == sessionResolved {
		events = append(events,
			GestureEnded{SessionID: sess.id, Type: sess.winner.Type, Success: true, At: s.At},
			FeedbackIntent{SessionID: sess.id, Kind: FeedbackGestureEnd, Intensity: gestureEndIntensity, At: s.At},
		)
		e.logger.Info("gesture ended", "session_id", sess.id, "type", sess.winner.Type)
	} else {
		e.logger.Debug("session ended with no recognized gesture", "session_id", sess.id)
	}
	e.sess = nil
	return events
}

func (e *Engine) handleCancel(s PointerSample) []Event {
	sess := e.sess
	if sess == nil {
		e.logger.Debug("pointer cancel without active session, ignored")
		return nil
	}
	sess.history.Append(s)

	var events []Event
	if sess.phase == sessionResolved {
		events = append(events, GestureEnded{
			SessionID: sess.id, Type: sess.winner.Type, Success: false, At: s.At,
		})
	}
	e.logger.Debug("session cancelled", "session_id", sess.id)
	e.sess = nil
	return events
}

// Tick advances session timers to now. The daemon calls it from its
// ticker; tests call it directly with synthetic clocks.
func (e *Engine) Tick(now time.Time) []Event {
	var events []Event
	if c := e.chain; c != nil && !now.Before(c.deadline) {
		events = append(events, e.chainTapEvents(c, now)...)
		e.chain = nil
	}
	sess := e.sess
	if sess == nil {
		return events
	}

	if sess.phase == sessionPending {
		if _, ok := sess.set.Get(GestureDoubleTap); ok && !now.Before(sess.tapDeadline) {
			sess.set.Remove(GestureDoubleTap)
			e.logger.Debug("double-tap window closed", "session_id", sess.id)
		}
		if !sess.movedPastSlop && !sess.longPressFired && !now.Before(sess.longPressAt) {
			sess.longPressFired = true
			// The ramp anchors at the deadline, not at the tick that
			// observed it.
			at := sess.longPressAt
			h := &GestureHypothesis{
				Type:            GestureLongPress,
				StartPosition:   sess.startPos,
				CurrentPosition: sess.lastPos,
				StartedAt:       at,
				Velocity:        sess.history.Velocity(e.cfg.VelocityWindow),
				Confidence:      1,
				Priority:        GestureLongPress.BasePriority(),
				matured:         true,
			}
			events = append(events, e.resolveFiring(sess, h, at, e.geometry())...)
		}
	}

	if sess.phase == sessionResolved && sess.ramp != nil {
		if sess.timeLadder {
			if lvl, changed := sess.ramp.AdvanceTo(now); changed {
				events = append(events,
					SpeedLevelChanged{
						SessionID: sess.id, Level: lvl, Multiplier: sess.ramp.Multiplier(), At: now,
					},
					FeedbackIntent{
						SessionID: sess.id, Kind: FeedbackSpeedLevel,
						Intensity: SpeedLevelIntensity(lvl, e.cfg.Ladder.MaxLevel()), At: now,
					},
				)
				e.logger.Debug("speed level changed",
					"session_id", sess.id, "level", lvl, "multiplier", sess.ramp.Multiplier())
			}
		}
		if now.Sub(sess.lastSeekAt) >= e.cfg.SeekTickInterval {
			sess.lastSeekAt = now
			events = append(events, e.seekStep(sess, now)...)
		}
	}
	return events
}

// InjectHypothesis submits an externally detected gesture (multi-touch
// pinch, hover, hardware button chord) into the active session, where
// it competes under the same resolution rules as the built-in
// detectors. Zero-valued fields are filled from the session.
func (e *Engine) InjectHypothesis(h GestureHypothesis) []Event {
	sess := e.sess
	if sess == nil {
		e.logger.Warn("hypothesis injected with no active session", "type", h.Type)
		return nil
	}
	if !h.Type.Valid() {
		e.logger.Warn("ignoring injected hypothesis of unknown type", "type", h.Type)
		return nil
	}
	if h.Priority == 0 {
		h.Priority = h.Type.BasePriority()
	}
	h.Confidence = clamp01(h.Confidence)
	if h.StartedAt.IsZero() {
		h.StartedAt = sess.lastAt
	}
	if h.StartPosition == (Point{}) {
		h.StartPosition = sess.startPos
	}
	if h.CurrentPosition == (Point{}) {
		h.CurrentPosition = sess.lastPos
	}
	h.matured = true
	return e.resolveFiring(sess, &h, h.StartedAt, e.geometry())
}

// fireSwipe classifies a contact that travelled past the swipe
// threshold and submits the matching hypothesis. The axis with the
// larger displacement wins; vertical swipes split into volume on the
// right half of the surface and brightness on the left.
func (e *Engine) fireSwipe(sess *session, s PointerSample, g Geometry, dx, dy float64) []Event {
	adx, ady := math.Abs(dx), math.Abs(dy)
	typ := GestureHorizontalSeek
	if ady > adx {
		if g.SideAt(sess.startPos) == SideRight {
			typ = GestureVerticalVolume
		} else {
			typ = GestureVerticalBrightness
		}
	}

	// Confidence is the dominant axis share of the total travel, so a
	// clean axis-aligned swipe scores 1 and a perfect diagonal 0.5.
	conf := 1.0
	if sum := adx + ady; sum > 0 {
		conf = math.Max(adx, ady) / sum
	}

	h := &GestureHypothesis{
		Type:            typ,
		StartPosition:   sess.startPos,
		CurrentPosition: s.Position,
		StartedAt:       s.At,
		Velocity:        sess.history.Velocity(e.cfg.VelocityWindow),
		Confidence:      conf,
		Priority:        typ.BasePriority(),
		matured:         true,
	}
	e.logger.Debug("swipe hypothesis fired",
		"session_id", sess.id, "type", typ, "dx", dx, "dy", dy)
	return e.resolveFiring(sess, h, s.At, g)
}

// resolveFiring submits a fired hypothesis to the resolver and applies
// the outcome to the session.
func (e *Engine) resolveFiring(sess *session, firing *GestureHypothesis, at time.Time, g Geometry) []Event {
	if sess.phase == sessionResolved {
		e.logger.Debug("hypothesis fired after resolution, dropped",
			"session_id", sess.id, "type", firing.Type)
		return nil
	}
	sess.set.Put(firing)
	res := Resolve(sess.set, firing, e.cfg.Strategy)

	var events []Event
	if len(res.Conflict) > 0 {
		if key := conflictKey(res.Conflict); key != sess.lastConflict {
			sess.lastConflict = key
			events = append(events, GestureConflict{SessionID: sess.id, Types: res.Conflict, At: at})
		}
	}
	if res.Deferred {
		e.logger.Info("gesture conflict deferred to caller",
			"session_id", sess.id, "types", res.Conflict)
		return events
	}
	for _, l := range res.Losers {
		e.logger.Debug("hypothesis lost resolution",
			"session_id", sess.id, "type", l.Type, "score", l.Score())
	}
	sess.set.RetainOnly(res.Winner.Type)
	sess.winner = res.Winner
	sess.phase = sessionResolved
	e.logger.Info("gesture resolved",
		"session_id", sess.id, "type", res.Winner.Type, "score", res.Winner.Score())

	events = append(events,
		GestureStarted{
			SessionID: sess.id, Type: res.Winner.Type,
			Position: sess.startPos, Zone: g.ZoneAt(sess.startPos), At: at,
		},
		FeedbackIntent{
			SessionID: sess.id, Kind: FeedbackGestureStart,
			Intensity: gestureStartIntensity, At: at,
		},
	)

	switch res.Winner.Type {
	case GestureLongPress:
		events = append(events, e.startScrub(sess, DirectionForward, at, true)...)
	case GestureHorizontalSeek:
		dir := ClassifyDirection(sess.lastPos.X-sess.startPos.X, e.cfg.DirectionDeltaPx)
		if dir == DirectionNone {
			if sess.lastPos.X >= sess.startPos.X {
				dir = DirectionForward
			} else {
				dir = DirectionBackward
			}
		}
		events = append(events, e.startScrub(sess, dir, at, false)...)
	}
	return events
}

// startScrub arms the seek machinery for a winning long-press or
// horizontal drag. Only the time-ladder flavor announces its level.
func (e *Engine) startScrub(sess *session, dir Direction, at time.Time, timeLadder bool) []Event {
	sess.ramp = NewSpeedProgression(e.cfg.Ladder, dir, at)
	sess.timeLadder = timeLadder
	sess.dirAnchorX = sess.lastPos.X
	sess.anchorMs = e.playbackMs
	sess.accumMs = 0
	sess.lastSeekAt = at
	if !timeLadder {
		return nil
	}
	return []Event{
		SpeedLevelChanged{
			SessionID: sess.id, Level: 0, Multiplier: e.cfg.Ladder.Multiplier(0), At: at,
		},
		FeedbackIntent{
			SessionID: sess.id, Kind: FeedbackSpeedLevel,
			Intensity: SpeedLevelIntensity(0, e.cfg.Ladder.MaxLevel()), At: at,
		},
	}
}

// maybeReverse checks both direction-change paths for a live scrub:
// the classifier over displacement since the last anchor, and the
// out-and-back history detector at its stricter gate.
func (e *Engine) maybeReverse(sess *session, s PointerSample) []Event {
	ramp := sess.ramp
	if ramp == nil {
		return nil
	}
	delta := s.Position.X - sess.dirAnchorX
	if dir := ClassifyDirection(delta, e.cfg.DirectionDeltaPx); dir != DirectionNone && dir != ramp.Direction() {
		if conf := DirectionConfidence(delta, e.cfg.DirectionDeltaPx); conf >= e.cfg.SmoothDirectionGate {
			return e.applyReversal(sess, dir, conf, s.At)
		}
	}
	if sess.history.HasDirectionReversal(e.cfg.ReversalMinMagnitudePx) {
		_, second, ok := sess.history.halfDeltas()
		if !ok {
			return nil
		}
		dir := ClassifyDirection(second, e.cfg.DirectionDeltaPx)
		conf := DirectionConfidence(second, e.cfg.DirectionDeltaPx)
		if dir != DirectionNone && dir != ramp.Direction() && conf >= e.cfg.ReversalDirectionGate {
			return e.applyReversal(sess, dir, conf, s.At)
		}
	}
	return nil
}

func (e *Engine) applyReversal(sess *session, dir Direction, conf float64, at time.Time) []Event {
	sess.ramp.Reverse(dir, at)
	sess.dirAnchorX = sess.lastPos.X
	e.logger.Debug("scrub direction changed",
		"session_id", sess.id, "direction", dir, "confidence", conf, "level", sess.ramp.Level())
	return []Event{
		DirectionChanged{SessionID: sess.id, Direction: dir, Confidence: conf, At: at},
		FeedbackIntent{
			SessionID: sess.id, Kind: FeedbackDirectionChange,
			Intensity: DirectionChangeIntensity(conf), At: at,
		},
	}
}

// seekStep emits one seek update for a live scrub. Long-press scrubs
// take their multiplier from the hold-time ladder, drag scrubs from
// the drag-distance bands.
func (e *Engine) seekStep(sess *session, now time.Time) []Event {
	dir := sess.ramp.Direction()
	if dir == DirectionNone {
		return nil
	}
	mult := sess.ramp.Multiplier()
	if !sess.timeLadder {
		dx, _ := sess.travel(sess.lastPos)
		mult = MovementMultiplier(dx, e.cfg.MovementBandPx)
	}
	base := int64(math.Round(float64(e.cfg.BaseSeekUnitMs) * e.cfg.SeekSensitivity))
	delta := SeekDeltaMs(base, mult, dir)
	if delta == 0 {
		return nil
	}
	sess.accumMs += delta
	return []Event{SeekUpdate{
		SessionID:        sess.id,
		DeltaMs:          delta,
		TargetPositionMs: sess.anchorMs + sess.accumMs,
		Velocity:         sess.history.Velocity(e.cfg.VelocityWindow),
		Direction:        dir,
		At:               now,
	}}
}

// conflictKey builds the dedup signature for a reported conflict set.
func conflictKey(types []GestureType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

// chainTapEvents reports the parked tap as a completed single tap.
func (e *Engine) chainTapEvents(c *tapChain, at time.Time) []Event {
	e.logger.Info("gesture resolved", "session_id", c.sessionID, "type", GestureSingleTap)
	return []Event{
		GestureStarted{SessionID: c.sessionID, Type: GestureSingleTap, Position: c.pos, Zone: c.zone, At: at},
		FeedbackIntent{SessionID: c.sessionID, Kind: FeedbackGestureStart, Intensity: gestureStartIntensity, At: at},
		GestureEnded{SessionID: c.sessionID, Type: GestureSingleTap, Success: true, At: at},
		FeedbackIntent{SessionID: c.sessionID, Kind: FeedbackGestureEnd, Intensity: gestureEndIntensity, At: at},
	}
}

// verticalDelta converts one vertical move increment into a fraction
// of full scale, positive when the contact moves up the surface.
func verticalDelta(prevY, y, height, sensitivity float64) float64 {
	if height <= 0 {
		return 0
	}
	return (prevY - y) / height * sensitivity
}

// SessionSnapshot is a point-in-time view of the active session.
type SessionSnapshot struct {
	ID         uuid.UUID     `json:"id"`
	Phase      string        `json:"phase"`
	StartedAt  time.Time     `json:"started_at"`
	Winner     GestureType   `json:"winner,omitempty"`
	Hypotheses []GestureType `json:"hypotheses,omitempty"`
	SpeedLevel int           `json:"speed_level"`
	Direction  Direction     `json:"direction,omitempty"`
}

// EngineSnapshot is a point-in-time view of the whole engine, shaped
// for state broadcasts.
type EngineSnapshot struct {
	Session            *SessionSnapshot `json:"session,omitempty"`
	PlaybackPositionMs int64            `json:"playback_position_ms"`
}

// ActiveSession reports the ID of the in-flight session, if any.
func (e *Engine) ActiveSession() (uuid.UUID, bool) {
	if e.sess == nil {
		return uuid.UUID{}, false
	}
	return e.sess.id, true
}

// Snapshot captures the engine state for observers.
func (e *Engine) Snapshot() EngineSnapshot {
	snap := EngineSnapshot{PlaybackPositionMs: e.playbackMs}
	if sess := e.sess; sess != nil {
		ss := &SessionSnapshot{
			ID:         sess.id,
			Phase:      string(sess.phase),
			StartedAt:  sess.startAt,
			Hypotheses: sess.set.Types(),
		}
		if sess.winner != nil {
			ss.Winner = sess.winner.Type
		}
		if sess.ramp != nil {
			ss.SpeedLevel = sess.ramp.Level()
			ss.Direction = sess.ramp.Direction()
		}
		snap.Session = ss
	}
	return snap
}
