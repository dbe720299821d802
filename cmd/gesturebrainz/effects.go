package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"gesturebrainz"
)

// ============================================================================
// Effects - engine events to player commands
// ============================================================================
// The brain loop is the only place that executes side effects. Events the
// engine emits are applied to the player here and broadcast to WebSocket
// clients by the brain; the engine itself never touches the player.
// ============================================================================

// BindingAction is a player action a zone can be bound to.
type BindingAction string

const (
	ActionNone         BindingAction = "none"
	ActionPlayPause    BindingAction = "play_pause"
	ActionSeekForward  BindingAction = "seek_forward"
	ActionSeekBackward BindingAction = "seek_backward"
)

// parseBindingAction converts a config string to a BindingAction.
func parseBindingAction(s string) (BindingAction, error) {
	switch BindingAction(s) {
	case ActionNone, ActionPlayPause, ActionSeekForward, ActionSeekBackward:
		return BindingAction(s), nil
	default:
		return "", fmt.Errorf("invalid binding action: %q (must be none, play_pause, seek_forward, or seek_backward)", s)
	}
}

// Scale factors from engine deltas (fraction of full swipe) to mpv
// property ranges: volume spans 0..100, brightness -100..100.
const (
	mpvVolumeScale     = 100.0
	mpvBrightnessScale = 200.0
)

// speedOSDDurationMs is how long the speed multiplier stays on screen.
const speedOSDDurationMs = 800

// effectRunner applies engine events to the player.
//
// It keeps one piece of state: the zone each session started in, because
// GestureEnded does not repeat it and tap bindings are zone-addressed.
// It is owned by the brain goroutine and is not safe for concurrent use.
type effectRunner struct {
	player   PlayerClient
	bindings ResolvedBindings
	logger   *slog.Logger

	zones map[uuid.UUID]gesturebrainz.Zone
}

func newEffectRunner(player PlayerClient, bindings ResolvedBindings, logger *slog.Logger) *effectRunner {
	return &effectRunner{
		player:   player,
		bindings: bindings,
		logger:   logger,
		zones:    make(map[uuid.UUID]gesturebrainz.Zone),
	}
}

// setBindings swaps the zone bindings, used on config reload.
func (r *effectRunner) setBindings(b ResolvedBindings) {
	r.bindings = b
}

// run executes the side effect for a single engine event.
func (r *effectRunner) run(ev gesturebrainz.Event) {
	switch e := ev.(type) {
	case gesturebrainz.GestureStarted:
		r.zones[e.SessionID] = e.Zone
		r.logger.Debug("gesture started", "type", e.Type, "zone", e.Zone, "session", e.SessionID)

	case gesturebrainz.GestureEnded:
		zone := r.zones[e.SessionID]
		delete(r.zones, e.SessionID)

		if !e.Success {
			r.logger.Debug("gesture cancelled", "type", e.Type, "session", e.SessionID)
			return
		}

		switch e.Type {
		case gesturebrainz.GestureSingleTap:
			r.try("show-progress", r.player.ShowProgress())
		case gesturebrainz.GestureDoubleTap:
			r.runBinding(r.bindings.DoubleTap[zone])
		}

	case gesturebrainz.GestureConflict:
		r.logger.Debug("gesture conflict", "types", e.Types, "session", e.SessionID)

	case gesturebrainz.SeekUpdate:
		r.try("seek", r.player.SeekAbsoluteMs(e.TargetPositionMs))

	case gesturebrainz.VolumeDelta:
		r.try("volume", r.player.AddVolume(e.Delta*mpvVolumeScale))

	case gesturebrainz.BrightnessDelta:
		r.try("brightness", r.player.AddBrightness(e.Delta*mpvBrightnessScale))

	case gesturebrainz.SpeedLevelChanged:
		r.try("speed osd", r.player.ShowText(fmt.Sprintf("%gx", e.Multiplier), speedOSDDurationMs))

	case gesturebrainz.DirectionChanged:
		r.logger.Debug("scrub direction changed", "direction", e.Direction, "session", e.SessionID)

	case gesturebrainz.FeedbackIntent:
		// No haptics on this hardware; WebSocket clients render the cue.
		r.logger.Debug("feedback intent", "kind", e.Kind, "intensity", e.Intensity)
	}
}

// runBinding executes a zone-bound tap action.
func (r *effectRunner) runBinding(action BindingAction) {
	switch action {
	case ActionPlayPause:
		r.try("play/pause", r.player.CyclePause())
	case ActionSeekForward:
		r.try("skip forward", r.player.SeekRelativeMs(r.bindings.SkipStep.Milliseconds()))
	case ActionSeekBackward:
		r.try("skip backward", r.player.SeekRelativeMs(-r.bindings.SkipStep.Milliseconds()))
	case ActionNone:
	}
}

// try logs a failed player call. Player errors never stop the daemon.
func (r *effectRunner) try(op string, err error) {
	if err != nil {
		r.logger.Warn("player command failed", "op", op, "error", err)
	}
}
