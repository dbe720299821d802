package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gesturebrainz"
)

// writeConfigFile writes a YAML config into a temp dir and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

// TestLoadConfigFile_Full tests parsing a config that sets every section
func TestLoadConfigFile_Full(t *testing.T) {
	path := writeConfigFile(t, `
input:
  devices:
    - /dev/input/event3
    - /dev/input/event4
  update_hz: 60
surface:
  width: 1920
  height: 1080
gestures:
  double_tap_window_ms: 250
  long_press_duration_ms: 400
  conflict_strategy: defer
player:
  socket_path: /tmp/mpv-test.sock
  timeout_ms: 2000
bindings:
  double_tap:
    left: play_pause
    center: none
    right: seek_forward
  skip_step_ms: 5000
ipc:
  socket_path: /run/gb-test.sock
ws:
  addr: ":9999"
  path: /state
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Input.Devices) != 2 || cfg.Input.Devices[0] != "/dev/input/event3" {
		t.Errorf("unexpected devices: %v", cfg.Input.Devices)
	}
	if cfg.Input.UpdateHz != 60 {
		t.Errorf("expected update_hz=60, got %d", cfg.Input.UpdateHz)
	}
	if cfg.Surface.Width != 1920 || cfg.Surface.Height != 1080 {
		t.Errorf("unexpected surface: %gx%g", cfg.Surface.Width, cfg.Surface.Height)
	}
	if cfg.Gestures.DoubleTapWindowMS != 250 {
		t.Errorf("expected double_tap_window_ms=250, got %d", cfg.Gestures.DoubleTapWindowMS)
	}
	if cfg.Gestures.ConflictStrategy != "defer" {
		t.Errorf("expected conflict_strategy=defer, got %s", cfg.Gestures.ConflictStrategy)
	}
	if cfg.Player.SocketPath != "/tmp/mpv-test.sock" || cfg.Player.TimeoutMS != 2000 {
		t.Errorf("unexpected player config: %+v", cfg.Player)
	}
	if cfg.Bindings.DoubleTap.Left != "play_pause" || cfg.Bindings.DoubleTap.Center != "none" {
		t.Errorf("unexpected bindings: %+v", cfg.Bindings.DoubleTap)
	}
	if cfg.Bindings.SkipStepMS != 5000 {
		t.Errorf("expected skip_step_ms=5000, got %d", cfg.Bindings.SkipStepMS)
	}
	if cfg.WS.Addr != ":9999" || cfg.WS.Path != "/state" {
		t.Errorf("unexpected ws config: %+v", cfg.WS)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level=debug, got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("full config should validate, got %v", err)
	}
}

// TestLoadConfigFile_PartialKeepsDefaults tests that untouched sections
// keep their defaults
func TestLoadConfigFile_PartialKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
input:
  devices:
    - /dev/input/event7
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def := DefaultConfig()
	if cfg.Input.Devices[0] != "/dev/input/event7" {
		t.Errorf("expected overridden device, got %v", cfg.Input.Devices)
	}
	if cfg.Input.UpdateHz != def.Input.UpdateHz {
		t.Errorf("expected default update_hz=%d, got %d", def.Input.UpdateHz, cfg.Input.UpdateHz)
	}
	if cfg.Player.SocketPath != def.Player.SocketPath {
		t.Errorf("expected default player socket, got %s", cfg.Player.SocketPath)
	}
	if cfg.Gestures.TapSlopPx != def.Gestures.TapSlopPx {
		t.Errorf("expected default tap slop %g, got %g", def.Gestures.TapSlopPx, cfg.Gestures.TapSlopPx)
	}
	if cfg.Bindings.DoubleTap.Center != string(ActionPlayPause) {
		t.Errorf("expected default center binding, got %s", cfg.Bindings.DoubleTap.Center)
	}
}

// TestLoadConfigFile_RejectsUnknownField tests that typos are caught
func TestLoadConfigFile_RejectsUnknownField(t *testing.T) {
	path := writeConfigFile(t, `
input:
  devcies:
    - /dev/input/event0
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

// TestLoadConfigFile_RejectsTrailingDocument tests that extra YAML
// documents after the config are rejected
func TestLoadConfigFile_RejectsTrailingDocument(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: info
---
logging:
  level: debug
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected error for trailing document, got nil")
	}
}

// TestLoadConfigFile_MissingFile tests the error for a nonexistent path
func TestLoadConfigFile_MissingFile(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// TestFlagOverrides_Apply tests that only non-nil overrides are applied
func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	dev := "/dev/input/event9"
	hz := 120
	strategy := "first_detected"

	o := FlagOverrides{
		InputDevice:      &dev,
		UpdateHz:         &hz,
		ConflictStrategy: &strategy,
	}
	o.Apply(&cfg)

	if len(cfg.Input.Devices) != 1 || cfg.Input.Devices[0] != dev {
		t.Errorf("expected device override, got %v", cfg.Input.Devices)
	}
	if cfg.Input.UpdateHz != 120 {
		t.Errorf("expected update_hz=120, got %d", cfg.Input.UpdateHz)
	}
	if cfg.Gestures.ConflictStrategy != "first_detected" {
		t.Errorf("expected strategy override, got %s", cfg.Gestures.ConflictStrategy)
	}

	// Untouched fields keep their values.
	def := DefaultConfig()
	if cfg.Surface.Width != def.Surface.Width {
		t.Errorf("surface width should be untouched, got %g", cfg.Surface.Width)
	}
	if cfg.Player.SocketPath != def.Player.SocketPath {
		t.Errorf("player socket should be untouched, got %s", cfg.Player.SocketPath)
	}
}

// TestConfigValidate_Defaults tests that the stock config is valid
func TestConfigValidate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

// TestConfigValidate_Rejections tests individual validation failures
func TestConfigValidate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"no devices", func(c *Config) { c.Input.Devices = nil }, "input.devices"},
		{"empty device", func(c *Config) { c.Input.Devices = []string{""} }, "input.devices[0]"},
		{"zero hz", func(c *Config) { c.Input.UpdateHz = 0 }, "update_hz"},
		{"huge hz", func(c *Config) { c.Input.UpdateHz = 2000 }, "update_hz"},
		{"zero surface", func(c *Config) { c.Surface.Width = 0 }, "surface"},
		{"bad gesture gate", func(c *Config) { c.Gestures.SmoothDirectionGate = 2 }, "gestures:"},
		{"bad strategy", func(c *Config) { c.Gestures.ConflictStrategy = "coin_flip" }, "gestures:"},
		{"empty player socket", func(c *Config) { c.Player.SocketPath = "" }, "player.socket_path"},
		{"zero player timeout", func(c *Config) { c.Player.TimeoutMS = 0 }, "player.timeout_ms"},
		{"bad binding action", func(c *Config) { c.Bindings.DoubleTap.Left = "explode" }, "bindings.double_tap.left"},
		{"zero skip step", func(c *Config) { c.Bindings.SkipStepMS = 0 }, "skip_step_ms"},
		{"empty ipc socket", func(c *Config) { c.IPC.SocketPath = "" }, "ipc.socket_path"},
		{"empty ws addr", func(c *Config) { c.WS.Addr = "" }, "ws.addr"},
		{"relative ws path", func(c *Config) { c.WS.Path = "ws" }, "ws.path"},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, "logging.level"},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantSub) {
			t.Errorf("%s: expected error mentioning %q, got %v", tc.name, tc.wantSub, err)
		}
	}
}

// TestToEngineConfig_DefaultsMatchEngine tests that the YAML defaults
// convert back into exactly the engine's stock tuning
func TestToEngineConfig_DefaultsMatchEngine(t *testing.T) {
	cfg := DefaultConfig()
	got := cfg.ToEngineConfig()
	want := gesturebrainz.DefaultConfig()

	if !reflect.DeepEqual(got, want) {
		t.Errorf("converted defaults diverge from engine defaults:\ngot:  %+v\nwant: %+v", got, want)
	}
}

// TestToBindings tests conversion into the typed binding map
func TestToBindings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bindings.DoubleTap.Left = "none"
	cfg.Bindings.DoubleTap.Center = "seek_backward"
	cfg.Bindings.DoubleTap.Right = "play_pause"
	cfg.Bindings.SkipStepMS = 15000

	b := cfg.ToBindings()

	if b.DoubleTap[gesturebrainz.ZoneLeft] != ActionNone {
		t.Errorf("expected none for left, got %s", b.DoubleTap[gesturebrainz.ZoneLeft])
	}
	if b.DoubleTap[gesturebrainz.ZoneCenter] != ActionSeekBackward {
		t.Errorf("expected seek_backward for center, got %s", b.DoubleTap[gesturebrainz.ZoneCenter])
	}
	if b.DoubleTap[gesturebrainz.ZoneRight] != ActionPlayPause {
		t.Errorf("expected play_pause for right, got %s", b.DoubleTap[gesturebrainz.ZoneRight])
	}
	if b.SkipStep != 15*time.Second {
		t.Errorf("expected skip step 15s, got %s", b.SkipStep)
	}
}

// TestExpandPath tests tilde expansion
func TestExpandPath(t *testing.T) {
	if got := ExpandPath("/etc/config.yaml"); got != "/etc/config.yaml" {
		t.Errorf("absolute path should pass through, got %s", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("empty path should pass through, got %s", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := ExpandPath("~"); got != home {
		t.Errorf("expected %s, got %s", home, got)
	}
	if got := ExpandPath("~/gb/config.yaml"); got != filepath.Join(home, "gb/config.yaml") {
		t.Errorf("expected home-joined path, got %s", got)
	}
}
