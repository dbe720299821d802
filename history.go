package gesturebrainz

import (
	"math"
	"time"
)

// MovementHistory is a bounded ring of pointer samples for one contact.
// Appending beyond capacity evicts the oldest sample. Indexing is
// oldest-first: At(0) is the earliest retained sample.
//
// MovementHistory is not safe for concurrent use. It is owned by the
// engine and touched only from the goroutine driving it.
type MovementHistory struct {
	samples []PointerSample
	head    int
	size    int
}

// NewMovementHistory returns an empty history holding at most capacity
// samples. Non-positive capacities fall back to the default.
func NewMovementHistory(capacity int) *MovementHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &MovementHistory{samples: make([]PointerSample, capacity)}
}

// Append records one sample, evicting the oldest if the ring is full.
func (h *MovementHistory) Append(s PointerSample) {
	tail := (h.head + h.size) % len(h.samples)
	h.samples[tail] = s
	if h.size < len(h.samples) {
		h.size++
		return
	}
	h.head = (h.head + 1) % len(h.samples)
}

// Len returns the number of retained samples.
func (h *MovementHistory) Len() int { return h.size }

// Cap returns the ring capacity.
func (h *MovementHistory) Cap() int { return len(h.samples) }

// At returns the i-th retained sample, oldest first.
func (h *MovementHistory) At(i int) PointerSample {
	if i < 0 || i >= h.size {
		panic("gesturebrainz: movement history index out of range")
	}
	return h.samples[(h.head+i)%len(h.samples)]
}

// Latest returns the most recent sample, if any.
func (h *MovementHistory) Latest() (PointerSample, bool) {
	if h.size == 0 {
		return PointerSample{}, false
	}
	return h.At(h.size - 1), true
}

// Clear drops all retained samples.
func (h *MovementHistory) Clear() {
	h.head = 0
	h.size = 0
}

// Velocity returns the average pointer velocity over the most recent
// window samples, in pixels per second. It returns the zero velocity
// when fewer than two samples fall in the window or when the window
// spans no time.
func (h *MovementHistory) Velocity(window int) Velocity {
	n := window
	if n > h.size {
		n = h.size
	}
	if n < 2 {
		return Velocity{}
	}
	first := h.At(h.size - n)
	last := h.At(h.size - 1)
	dt := last.At.Sub(first.At)
	if dt <= 0 {
		return Velocity{}
	}
	secs := dt.Seconds()
	return Velocity{
		X: (last.Position.X - first.Position.X) / secs,
		Y: (last.Position.Y - first.Position.Y) / secs,
	}
}

// halfDeltas splits the retained samples in two and returns the
// horizontal displacement of each half. ok is false below four
// samples, where the split is meaningless.
func (h *MovementHistory) halfDeltas() (first, second float64, ok bool) {
	if h.size < 4 {
		return 0, 0, false
	}
	mid := h.size / 2
	first = h.At(mid-1).Position.X - h.At(0).Position.X
	second = h.At(h.size-1).Position.X - h.At(mid).Position.X
	return first, second, true
}

// HasDirectionReversal reports whether the retained samples describe a
// horizontal out-and-back motion: each half of the history moved at
// least minPx horizontally, in opposite directions. Fewer than four
// samples can never report a reversal.
func (h *MovementHistory) HasDirectionReversal(minPx float64) bool {
	if minPx <= 0 {
		return false
	}
	first, second, ok := h.halfDeltas()
	if !ok {
		return false
	}
	if math.Abs(first) < minPx || math.Abs(second) < minPx {
		return false
	}
	return first*second < 0
}

// Span returns the time covered by the retained samples.
func (h *MovementHistory) Span() time.Duration {
	if h.size < 2 {
		return 0
	}
	return h.At(h.size - 1).At.Sub(h.At(0).At)
}
