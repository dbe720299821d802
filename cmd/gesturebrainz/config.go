package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gesturebrainz"
)

// Config is the top-level YAML configuration for the gesturebrainz daemon.
//
// This is intentionally user-facing and stable-ish. Keep defaults and validation
// centralized so the rest of the code can assume a well-formed config.
//
// Design goals:
// - Make config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is awkward.
// - Keep the gestures section aligned with the engine's own defaults.
type Config struct {
	// Touch input configuration
	Input InputConfig `yaml:"input"`

	// Touch surface dimensions in pixels, used for zone and side mapping
	Surface SurfaceConfig `yaml:"surface"`

	// Gesture recognition tuning (maps onto the engine Config)
	Gestures GestureFileConfig `yaml:"gestures"`

	// Player (mpv JSON IPC) configuration
	Player PlayerConfig `yaml:"player"`

	// Zone-to-action bindings for resolved taps
	Bindings BindingsConfig `yaml:"bindings"`

	// IPC configuration (control socket for tools and tests)
	IPC IPCConfig `yaml:"ipc"`

	// State WebSocket server configuration
	WS WSConfig `yaml:"ws"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type InputConfig struct {
	Devices  []string `yaml:"devices"`   // Touch input devices to monitor
	UpdateHz int      `yaml:"update_hz"` // Engine tick frequency
}

type SurfaceConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type PlayerConfig struct {
	SocketPath string `yaml:"socket_path"`
	TimeoutMS  int    `yaml:"timeout_ms"`
}

type BindingsConfig struct {
	// DoubleTap maps the zone of a completed double-tap to a player action.
	DoubleTap ZoneBindings `yaml:"double_tap"`

	// SkipStepMS is the seek distance used by seek_forward / seek_backward.
	SkipStepMS int `yaml:"skip_step_ms"`
}

type ZoneBindings struct {
	Left   string `yaml:"left"`
	Center string `yaml:"center"`
	Right  string `yaml:"right"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type WSConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// GestureFileConfig is the user-facing gesture tuning as represented in YAML.
//
// It maps 1:1 to the engine Config but uses YAML-friendly types (durations are
// represented in milliseconds, the speed ladder as parallel arrays).
type GestureFileConfig struct {
	HistoryCapacity int `yaml:"history_capacity"`
	VelocityWindow  int `yaml:"velocity_window"`

	TapSlopPx              float64 `yaml:"tap_slop_px"`
	SwipeMinDistancePx     float64 `yaml:"swipe_min_distance_px"`
	ReversalMinMagnitudePx float64 `yaml:"reversal_min_magnitude_px"`
	DirectionDeltaPx       float64 `yaml:"direction_delta_px"`
	MovementBandPx         float64 `yaml:"movement_band_px"`

	SmoothDirectionGate   float64 `yaml:"smooth_direction_gate"`
	ReversalDirectionGate float64 `yaml:"reversal_direction_gate"`

	DoubleTapWindowMS   int `yaml:"double_tap_window_ms"`
	LongPressDurationMS int `yaml:"long_press_duration_ms"`

	// Speed ladder: multiplier i applies once the scrub has been held for
	// SpeedThresholdsMS[i] milliseconds.
	SpeedLevels       []float64 `yaml:"speed_levels"`
	SpeedThresholdsMS []int     `yaml:"speed_thresholds_ms"`

	ConflictStrategy string `yaml:"conflict_strategy"`

	BaseSeekUnitMS     int64 `yaml:"base_seek_unit_ms"`
	SeekTickIntervalMS int   `yaml:"seek_tick_interval_ms"`

	SeekSensitivity       float64 `yaml:"seek_sensitivity"`
	VolumeSensitivity     float64 `yaml:"volume_sensitivity"`
	BrightnessSensitivity float64 `yaml:"brightness_sensitivity"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// The gestures section is derived from the engine defaults so the two
// never drift apart.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Devices:  []string{defaultInputDevice},
			UpdateHz: defaultUpdateHz,
		},
		Surface: SurfaceConfig{
			Width:  defaultSurfaceWidth,
			Height: defaultSurfaceHeight,
		},
		Gestures: defaultGestureFileConfig(),
		Player: PlayerConfig{
			SocketPath: defaultMPVSocket,
			TimeoutMS:  1000,
		},
		Bindings: BindingsConfig{
			DoubleTap: ZoneBindings{
				Left:   string(ActionSeekBackward),
				Center: string(ActionPlayPause),
				Right:  string(ActionSeekForward),
			},
			SkipStepMS: defaultSkipStepMs,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		WS: WSConfig{
			Addr: defaultWSAddr,
			Path: defaultWSPath,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}

// defaultGestureFileConfig converts the engine's stock tuning into the
// YAML representation.
func defaultGestureFileConfig() GestureFileConfig {
	ec := gesturebrainz.DefaultConfig()

	thresholds := make([]int, len(ec.Ladder.Thresholds))
	for i, th := range ec.Ladder.Thresholds {
		thresholds[i] = int(th / time.Millisecond)
	}

	return GestureFileConfig{
		HistoryCapacity:        ec.HistoryCapacity,
		VelocityWindow:         ec.VelocityWindow,
		TapSlopPx:              ec.TapSlopPx,
		SwipeMinDistancePx:     ec.SwipeMinDistancePx,
		ReversalMinMagnitudePx: ec.ReversalMinMagnitudePx,
		DirectionDeltaPx:       ec.DirectionDeltaPx,
		MovementBandPx:         ec.MovementBandPx,
		SmoothDirectionGate:    ec.SmoothDirectionGate,
		ReversalDirectionGate:  ec.ReversalDirectionGate,
		DoubleTapWindowMS:      int(ec.DoubleTapWindow / time.Millisecond),
		LongPressDurationMS:    int(ec.LongPressDuration / time.Millisecond),
		SpeedLevels:            ec.Ladder.Levels,
		SpeedThresholdsMS:      thresholds,
		ConflictStrategy:       string(ec.Strategy),
		BaseSeekUnitMS:         ec.BaseSeekUnitMs,
		SeekTickIntervalMS:     int(ec.SeekTickInterval / time.Millisecond),
		SeekSensitivity:        ec.SeekSensitivity,
		VolumeSensitivity:      ec.VolumeSensitivity,
		BrightnessSensitivity:  ec.BrightnessSensitivity,
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
//   - Paths inside the config are expanded lazily at the call sites.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if the pointer
// is non-nil. main.go decides which flags exist; keeping the mechanism
// separate avoids conditionals spreading through the code.
type FlagOverrides struct {
	InputDevice *string
	UpdateHz    *int

	SurfaceWidth  *float64
	SurfaceHeight *float64

	PlayerSocketPath *string
	PlayerTimeoutMS  *int

	ConflictStrategy *string

	IPCSocketPath *string
	WSAddr        *string

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		cfg.Input.Devices = []string{*o.InputDevice}
	}
	if o.UpdateHz != nil {
		cfg.Input.UpdateHz = *o.UpdateHz
	}

	if o.SurfaceWidth != nil {
		cfg.Surface.Width = *o.SurfaceWidth
	}
	if o.SurfaceHeight != nil {
		cfg.Surface.Height = *o.SurfaceHeight
	}

	if o.PlayerSocketPath != nil {
		cfg.Player.SocketPath = *o.PlayerSocketPath
	}
	if o.PlayerTimeoutMS != nil {
		cfg.Player.TimeoutMS = *o.PlayerTimeoutMS
	}

	if o.ConflictStrategy != nil {
		cfg.Gestures.ConflictStrategy = *o.ConflictStrategy
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.WSAddr != nil {
		cfg.WS.Addr = *o.WSAddr
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks the merged config and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Input
	if len(c.Input.Devices) == 0 {
		return errors.New("input.devices must not be empty")
	}
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.UpdateHz <= 0 || c.Input.UpdateHz > 1000 {
		return errors.New("input.update_hz must be between 1 and 1000")
	}

	// Surface
	if c.Surface.Width <= 0 || c.Surface.Height <= 0 {
		return errors.New("surface.width and surface.height must be > 0")
	}

	// Gestures: validated by the engine so the two never disagree.
	if err := c.ToEngineConfig().Validate(); err != nil {
		return fmt.Errorf("gestures: %w", err)
	}

	// Player
	if c.Player.SocketPath == "" {
		return errors.New("player.socket_path must not be empty")
	}
	if c.Player.TimeoutMS <= 0 {
		return errors.New("player.timeout_ms must be > 0")
	}

	// Bindings
	for zone, action := range map[string]string{
		"bindings.double_tap.left":   c.Bindings.DoubleTap.Left,
		"bindings.double_tap.center": c.Bindings.DoubleTap.Center,
		"bindings.double_tap.right":  c.Bindings.DoubleTap.Right,
	} {
		if _, err := parseBindingAction(action); err != nil {
			return fmt.Errorf("%s: %w", zone, err)
		}
	}
	if c.Bindings.SkipStepMS <= 0 {
		return errors.New("bindings.skip_step_ms must be > 0")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// WS
	if c.WS.Addr == "" {
		return errors.New("ws.addr must not be empty")
	}
	if !strings.HasPrefix(c.WS.Path, "/") {
		return errors.New("ws.path must start with /")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// ToEngineConfig converts the gestures section into the engine's Config.
func (c *Config) ToEngineConfig() gesturebrainz.Config {
	g := c.Gestures

	thresholds := make([]time.Duration, len(g.SpeedThresholdsMS))
	for i, ms := range g.SpeedThresholdsMS {
		thresholds[i] = time.Duration(ms) * time.Millisecond
	}

	return gesturebrainz.Config{
		HistoryCapacity:        g.HistoryCapacity,
		VelocityWindow:         g.VelocityWindow,
		TapSlopPx:              g.TapSlopPx,
		SwipeMinDistancePx:     g.SwipeMinDistancePx,
		ReversalMinMagnitudePx: g.ReversalMinMagnitudePx,
		DirectionDeltaPx:       g.DirectionDeltaPx,
		MovementBandPx:         g.MovementBandPx,
		SmoothDirectionGate:    g.SmoothDirectionGate,
		ReversalDirectionGate:  g.ReversalDirectionGate,
		DoubleTapWindow:        time.Duration(g.DoubleTapWindowMS) * time.Millisecond,
		LongPressDuration:      time.Duration(g.LongPressDurationMS) * time.Millisecond,
		Ladder: gesturebrainz.SpeedLadder{
			Levels:     g.SpeedLevels,
			Thresholds: thresholds,
		},
		Strategy:              gesturebrainz.ResolutionStrategy(g.ConflictStrategy),
		BaseSeekUnitMs:        g.BaseSeekUnitMS,
		SeekTickInterval:      time.Duration(g.SeekTickIntervalMS) * time.Millisecond,
		SeekSensitivity:       g.SeekSensitivity,
		VolumeSensitivity:     g.VolumeSensitivity,
		BrightnessSensitivity: g.BrightnessSensitivity,
	}
}

// ResolvedBindings is the validated, typed form of BindingsConfig.
type ResolvedBindings struct {
	DoubleTap map[gesturebrainz.Zone]BindingAction
	SkipStep  time.Duration
}

// ToBindings converts the bindings section into its typed form.
// Call Validate first; unknown actions degrade to ActionNone here.
func (c *Config) ToBindings() ResolvedBindings {
	parse := func(s string) BindingAction {
		a, err := parseBindingAction(s)
		if err != nil {
			return ActionNone
		}
		return a
	}
	return ResolvedBindings{
		DoubleTap: map[gesturebrainz.Zone]BindingAction{
			gesturebrainz.ZoneLeft:   parse(c.Bindings.DoubleTap.Left),
			gesturebrainz.ZoneCenter: parse(c.Bindings.DoubleTap.Center),
			gesturebrainz.ZoneRight:  parse(c.Bindings.DoubleTap.Right),
		},
		SkipStep: time.Duration(c.Bindings.SkipStepMS) * time.Millisecond,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
