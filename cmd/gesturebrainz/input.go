package main

import (
	"time"

	"gesturebrainz"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// touchAssembler turns raw evdev events into pointer samples.
//
// It follows multitouch protocol B for slot 0 only: ABS_MT_TRACKING_ID >= 0
// opens a contact, -1 ends it, and coordinates accumulate until SYN_REPORT
// closes the frame. BTN_TOUCH covers single-touch devices that never report
// tracking IDs. Secondary slots are ignored; multi-finger recognition comes
// in through injected hypotheses instead.
//
// Samples are stamped with the daemon clock at frame completion rather than
// the kernel event time, so they share a timeline with the engine tick.
type touchAssembler struct {
	slot     int32
	tracking bool

	x, y         float64
	haveX, haveY bool

	pendingDown bool
	pendingUp   bool
	moved       bool
}

// feed consumes one raw event. It returns a completed pointer sample on
// the SYN_REPORT that closes a frame, and false otherwise.
func (a *touchAssembler) feed(ev inputEvent, at time.Time) (gesturebrainz.PointerSample, bool) {
	switch ev.Type {
	case evAbs:
		a.feedAbs(ev)

	case evKey:
		if ev.Code != btnTouch {
			break
		}
		if ev.Value != 0 && !a.tracking {
			a.tracking = true
			a.pendingDown = true
		} else if ev.Value == 0 && a.tracking {
			a.tracking = false
			a.pendingUp = true
		}

	case evSyn:
		if ev.Code == synReport {
			return a.closeFrame(at)
		}
	}

	return gesturebrainz.PointerSample{}, false
}

func (a *touchAssembler) feedAbs(ev inputEvent) {
	if ev.Code == absMTSlot {
		a.slot = ev.Value
		return
	}
	// Only the first contact drives the engine.
	if a.slot != 0 {
		return
	}

	switch ev.Code {
	case absMTTrackingID:
		if ev.Value >= 0 && !a.tracking {
			a.tracking = true
			a.pendingDown = true
		} else if ev.Value < 0 && a.tracking {
			a.tracking = false
			a.pendingUp = true
		}
	case absMTPositionX, absX:
		a.x = float64(ev.Value)
		a.haveX = true
		a.moved = true
	case absMTPositionY, absY:
		a.y = float64(ev.Value)
		a.haveY = true
		a.moved = true
	}
}

// closeFrame flushes the state accumulated since the last SYN_REPORT.
// At most one sample is produced per frame; a Down absorbs any movement
// reported in the same frame.
func (a *touchAssembler) closeFrame(at time.Time) (gesturebrainz.PointerSample, bool) {
	pos := gesturebrainz.Point{X: a.x, Y: a.y}

	switch {
	case a.pendingDown:
		// Wait for coordinates if the opening frame carried none.
		if !a.haveX || !a.haveY {
			a.moved = false
			return gesturebrainz.PointerSample{}, false
		}
		a.pendingDown = false
		a.moved = false
		return gesturebrainz.PointerSample{Position: pos, Phase: gesturebrainz.PhaseDown, At: at}, true

	case a.pendingUp:
		a.pendingUp = false
		a.moved = false
		return gesturebrainz.PointerSample{Position: pos, Phase: gesturebrainz.PhaseUp, At: at}, true

	case a.moved && a.tracking:
		a.moved = false
		return gesturebrainz.PointerSample{Position: pos, Phase: gesturebrainz.PhaseMove, At: at}, true
	}

	a.moved = false
	return gesturebrainz.PointerSample{}, false
}
