package main

import (
	"context"
	"log/slog"
	"time"

	"gesturebrainz"
)

// ============================================================================
// Central Daemon Loop - the "Daemon Brain"
// ============================================================================
//
// Design rules enforced here:
//   - The engine performs no I/O and computes: next state + events.
//   - The brain loop is the only goroutine that touches the engine, and
//     the only place that executes side effects (player calls, WS frames).
//   - Input readers, the IPC server, the position poller and the config
//     watcher all feed this loop through one message channel.
//
// ============================================================================

// brainMsg is a message for the brain loop. All daemon inputs funnel
// through this union.
type brainMsg interface {
	brainMsgMarker()
}

// pointerMsg carries one pointer sample from a touch device or IPC.
type pointerMsg struct {
	Sample gesturebrainz.PointerSample
}

// playbackMsg refreshes the engine's seek anchor.
type playbackMsg struct {
	PositionMs int64
}

// injectMsg carries an externally detected gesture hypothesis.
type injectMsg struct {
	Hypothesis gesturebrainz.GestureHypothesis
}

// configMsg swaps the gesture tuning and bindings after a reload.
type configMsg struct {
	Engine   gesturebrainz.Config
	Bindings ResolvedBindings
	Surface  SurfaceConfig
}

// geometryMsg resizes the touch surface (display rotation).
type geometryMsg struct {
	Width, Height float64
}

// snapshotMsg requests a point-in-time engine snapshot.
type snapshotMsg struct {
	Reply chan gesturebrainz.EngineSnapshot
}

func (pointerMsg) brainMsgMarker()  {}
func (playbackMsg) brainMsgMarker() {}
func (injectMsg) brainMsgMarker()   {}
func (configMsg) brainMsgMarker()   {}
func (geometryMsg) brainMsgMarker() {}
func (snapshotMsg) brainMsgMarker() {}

// runBrain owns the engine and runs the daemon's central loop: it feeds
// pointer samples and ticks into the engine, applies the emitted events
// to the player and broadcasts them to WebSocket clients.
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the message channel is closed
func runBrain(
	ctx context.Context,
	msgs <-chan brainMsg,
	player PlayerClient,
	hub *Hub,
	cfg Config,
	logger *slog.Logger,
) error {
	// The geometry closure reads a brain-local variable so geometry
	// updates never race engine calls.
	geom := gesturebrainz.Geometry{Width: cfg.Surface.Width, Height: cfg.Surface.Height}

	eng := gesturebrainz.NewEngine(cfg.ToEngineConfig(), func() gesturebrainz.Geometry { return geom }, logger)
	effects := newEffectRunner(player, cfg.ToBindings(), logger)

	// Configure tick cadence.
	updateInterval := time.Second / time.Duration(cfg.Input.UpdateHz)
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	// Execute side effects and fan out one batch of engine events.
	dispatch := func(events []gesturebrainz.Event) {
		for _, ev := range events {
			effects.run(ev)

			frame, err := gesturebrainz.MarshalEvent(ev)
			if err != nil {
				logger.Warn("event marshal failed", "error", err)
				continue
			}
			if hub != nil {
				hub.BroadcastBytes(frame)
			}
		}
	}

	handle := func(m brainMsg) {
		switch msg := m.(type) {
		case pointerMsg:
			dispatch(eng.HandlePointer(msg.Sample))

		case playbackMsg:
			eng.SetPlaybackPosition(msg.PositionMs)

		case injectMsg:
			dispatch(eng.InjectHypothesis(msg.Hypothesis))

		case configMsg:
			if err := eng.SetConfig(msg.Engine); err != nil {
				logger.Warn("engine config rejected", "error", err)
				return
			}
			effects.setBindings(msg.Bindings)
			if msg.Surface.Width > 0 && msg.Surface.Height > 0 {
				geom = gesturebrainz.Geometry{Width: msg.Surface.Width, Height: msg.Surface.Height}
			}
			logger.Info("gesture tuning updated")

		case geometryMsg:
			geom = gesturebrainz.Geometry{Width: msg.Width, Height: msg.Height}
			logger.Info("surface geometry updated", "width", msg.Width, "height", msg.Height)

		case snapshotMsg:
			// Never block the brain on a slow requester.
			select {
			case msg.Reply <- eng.Snapshot():
			default:
				logger.Warn("snapshot reply channel not ready; dropping snapshot")
			}
		}
	}

	logger.Info("brain starting", "update_hz", cfg.Input.UpdateHz)

	for {
		select {
		case <-ctx.Done():
			logger.Info("brain stopping (context canceled)")
			return nil

		case m, ok := <-msgs:
			if !ok {
				logger.Info("brain stopping (message channel closed)")
				return nil
			}
			handle(m)

		case now := <-ticker.C:
			dispatch(eng.Tick(now))
		}
	}
}
