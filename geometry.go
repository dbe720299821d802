package gesturebrainz

// Zone is a horizontal third of the interaction surface. Zoned gestures
// (double-tap skip back / toggle / skip forward) report the zone of the
// pointer position so the caller can bind per-zone actions.
type Zone string

const (
	ZoneLeft   Zone = "left"
	ZoneCenter Zone = "center"
	ZoneRight  Zone = "right"
)

// SurfaceSide is a vertical half of the interaction surface. Vertical
// swipes on the right half adjust volume, on the left half brightness.
type SurfaceSide string

const (
	SideLeft  SurfaceSide = "left"
	SideRight SurfaceSide = "right"
)

// Zone boundaries as fractions of the surface width.
const (
	zoneLeftEdge  = 0.3
	zoneRightEdge = 0.7
)

// Geometry is the current size of the interaction surface in pixels.
// It is queried through a GeometryFunc on every decision that needs it
// rather than cached, so rotation and resize take effect immediately.
type Geometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GeometryFunc reports the current surface geometry.
type GeometryFunc func() Geometry

// ZoneAt returns the horizontal zone containing p. A degenerate surface
// (zero or negative width) maps everything to the center zone.
func (g Geometry) ZoneAt(p Point) Zone {
	if g.Width <= 0 {
		return ZoneCenter
	}
	switch frac := p.X / g.Width; {
	case frac < zoneLeftEdge:
		return ZoneLeft
	case frac > zoneRightEdge:
		return ZoneRight
	default:
		return ZoneCenter
	}
}

// SideAt returns the vertical half containing p. A degenerate surface
// maps everything to the right side.
func (g Geometry) SideAt(p Point) SurfaceSide {
	if g.Width <= 0 || p.X >= g.Width/2 {
		return SideRight
	}
	return SideLeft
}
