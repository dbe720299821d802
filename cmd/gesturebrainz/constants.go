package main

import "time"

// Linux input-event codes consumed by the touch reader. Values match
// include/uapi/linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	btnTouch = 0x14a

	absX            = 0x00
	absY            = 0x01
	absMTSlot       = 0x2f
	absMTPositionX  = 0x35
	absMTPositionY  = 0x36
	absMTTrackingID = 0x39
)

// Daemon defaults. The config file and flags override all of these.
const (
	defaultConfigPath  = "/etc/gesturebrainz/config.yaml"
	defaultSocketPath  = "/run/gesturebrainz.sock"
	defaultInputDevice = "/dev/input/event0"
	defaultMPVSocket   = "/tmp/mpvsocket"
	defaultWSAddr      = ":8090"
	defaultWSPath      = "/ws"
	defaultLogLevel    = "info"
	defaultUpdateHz    = 30

	defaultSurfaceWidth  = 1280.0
	defaultSurfaceHeight = 720.0

	// How often the player position poller refreshes the seek anchor.
	positionPollInterval = 500 * time.Millisecond

	// Base step for zone-bound double-tap skips.
	defaultSkipStepMs = 10_000
)
