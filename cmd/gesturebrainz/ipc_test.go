package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gesturebrainz"
)

var decodeNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// TestDecodeControlMessage_PointerSample tests decoding a pointer sample
// stamped with arrival time
func TestDecodeControlMessage_PointerSample(t *testing.T) {
	line := `{"type":"pointer_sample","data":{"x":0.5,"y":0.25,"phase":"down"}}`

	m, err := decodeControlMessage([]byte(line), decodeNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pm, ok := m.(pointerMsg)
	if !ok {
		t.Fatalf("expected pointerMsg, got %T", m)
	}
	if pm.Sample.Phase != gesturebrainz.PhaseDown {
		t.Errorf("expected down phase, got %s", pm.Sample.Phase)
	}
	if pm.Sample.Position.X != 0.5 || pm.Sample.Position.Y != 0.25 {
		t.Errorf("expected position (0.5, 0.25), got (%g, %g)", pm.Sample.Position.X, pm.Sample.Position.Y)
	}
	if !pm.Sample.At.Equal(decodeNow) {
		t.Errorf("expected arrival timestamp %s, got %s", decodeNow, pm.Sample.At)
	}
}

// TestDecodeControlMessage_PointerSamplePinnedTime tests that at_ms
// overrides the arrival timestamp for replayed traces
func TestDecodeControlMessage_PointerSamplePinnedTime(t *testing.T) {
	line := `{"type":"pointer_sample","data":{"x":1,"y":2,"phase":"move","at_ms":1700000000123}}`

	m, err := decodeControlMessage([]byte(line), decodeNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pm := m.(pointerMsg)
	want := time.UnixMilli(1700000000123)
	if !pm.Sample.At.Equal(want) {
		t.Errorf("expected pinned timestamp %s, got %s", want, pm.Sample.At)
	}
	if pm.Sample.Phase != gesturebrainz.PhaseMove {
		t.Errorf("expected move phase, got %s", pm.Sample.Phase)
	}
}

// TestDecodeControlMessage_PointerSampleBadPhase tests rejection of
// unknown pointer phases
func TestDecodeControlMessage_PointerSampleBadPhase(t *testing.T) {
	line := `{"type":"pointer_sample","data":{"x":0,"y":0,"phase":"hover"}}`

	if _, err := decodeControlMessage([]byte(line), decodeNow); err == nil {
		t.Fatal("expected error for unknown phase, got nil")
	}
}

// TestDecodeControlMessage_PlaybackPosition tests decoding a position report
func TestDecodeControlMessage_PlaybackPosition(t *testing.T) {
	line := `{"type":"playback_position","data":{"position_ms":61500}}`

	m, err := decodeControlMessage([]byte(line), decodeNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pm, ok := m.(playbackMsg)
	if !ok {
		t.Fatalf("expected playbackMsg, got %T", m)
	}
	if pm.PositionMs != 61500 {
		t.Errorf("expected position 61500, got %d", pm.PositionMs)
	}
}

// TestDecodeControlMessage_InjectGesture tests decoding an external
// gesture hypothesis
func TestDecodeControlMessage_InjectGesture(t *testing.T) {
	line := `{"type":"inject_gesture","data":{"type":"pinch_zoom","confidence":0.9}}`

	m, err := decodeControlMessage([]byte(line), decodeNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	im, ok := m.(injectMsg)
	if !ok {
		t.Fatalf("expected injectMsg, got %T", m)
	}
	if im.Hypothesis.Type != gesturebrainz.GesturePinchZoom {
		t.Errorf("expected pinch_zoom, got %s", im.Hypothesis.Type)
	}
	if im.Hypothesis.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %g", im.Hypothesis.Confidence)
	}
}

// TestDecodeControlMessage_InjectGestureBadType tests rejection of
// unknown gesture types
func TestDecodeControlMessage_InjectGestureBadType(t *testing.T) {
	line := `{"type":"inject_gesture","data":{"type":"triple_tap","confidence":0.9}}`

	if _, err := decodeControlMessage([]byte(line), decodeNow); err == nil {
		t.Fatal("expected error for unknown gesture type, got nil")
	}
}

// TestDecodeControlMessage_SetGeometry tests decoding a geometry update
func TestDecodeControlMessage_SetGeometry(t *testing.T) {
	line := `{"type":"set_geometry","data":{"width":1920,"height":1080}}`

	m, err := decodeControlMessage([]byte(line), decodeNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gm, ok := m.(geometryMsg)
	if !ok {
		t.Fatalf("expected geometryMsg, got %T", m)
	}
	if gm.Width != 1920 || gm.Height != 1080 {
		t.Errorf("expected 1920x1080, got %gx%g", gm.Width, gm.Height)
	}
}

// TestDecodeControlMessage_SetGeometryRejectsZero tests that degenerate
// surfaces are rejected
func TestDecodeControlMessage_SetGeometryRejectsZero(t *testing.T) {
	for _, line := range []string{
		`{"type":"set_geometry","data":{"width":0,"height":720}}`,
		`{"type":"set_geometry","data":{"width":1280,"height":-1}}`,
	} {
		if _, err := decodeControlMessage([]byte(line), decodeNow); err == nil {
			t.Errorf("expected error for %s, got nil", line)
		}
	}
}

// TestDecodeControlMessage_UnknownType tests rejection of unknown
// message types
func TestDecodeControlMessage_UnknownType(t *testing.T) {
	line := `{"type":"self_destruct","data":{}}`

	_, err := decodeControlMessage([]byte(line), decodeNow)
	if err == nil {
		t.Fatal("expected error for unknown message type, got nil")
	}
	if !strings.Contains(err.Error(), "self_destruct") {
		t.Errorf("expected error to name the bad type, got %v", err)
	}
}

// TestDecodeControlMessage_MalformedJSON tests rejection of garbage input
func TestDecodeControlMessage_MalformedJSON(t *testing.T) {
	if _, err := decodeControlMessage([]byte(`{"type": "pointer`), decodeNow); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

// TestIPCServer_RoundTrip exercises the socket server end to end: an
// acknowledged message reaches the brain channel, a rejected one reports
// its error in the response, and cancel shuts the server down cleanly.
func TestIPCServer_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sock := filepath.Join(t.TempDir(), "ipc.sock")
	msgs := make(chan brainMsg, 8)
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	done := make(chan error, 1)
	go func() { done <- runIPCServer(ctx, sock, msgs, logger) }()

	waitUntil(t, 2*time.Second, func() bool {
		_, err := os.Stat(sock)
		return err == nil
	}, "socket never appeared")

	if err := SendControlMessage(sock, "playback_position", playbackPayload{PositionMs: 5000}); err != nil {
		t.Fatalf("send playback_position: %v", err)
	}

	select {
	case m := <-msgs:
		pm, ok := m.(playbackMsg)
		if !ok {
			t.Fatalf("expected playbackMsg, got %T", m)
		}
		if pm.PositionMs != 5000 {
			t.Errorf("expected position 5000, got %d", pm.PositionMs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the brain channel")
	}

	if err := SendControlMessage(sock, "inject_gesture", injectPayload{Type: "triple_tap"}); err == nil {
		t.Fatal("expected error response for unknown gesture type, got nil")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
