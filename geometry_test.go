package gesturebrainz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeometryZones(t *testing.T) {
	t.Parallel()

	g := Geometry{Width: 1000, Height: 600}

	assert.Equal(t, ZoneLeft, g.ZoneAt(Point{X: 0}))
	assert.Equal(t, ZoneLeft, g.ZoneAt(Point{X: 299}))
	assert.Equal(t, ZoneCenter, g.ZoneAt(Point{X: 300}), "boundary belongs to the center")
	assert.Equal(t, ZoneCenter, g.ZoneAt(Point{X: 500}))
	assert.Equal(t, ZoneCenter, g.ZoneAt(Point{X: 700}), "boundary belongs to the center")
	assert.Equal(t, ZoneRight, g.ZoneAt(Point{X: 701}))
	assert.Equal(t, ZoneRight, g.ZoneAt(Point{X: 999}))
}

func TestGeometrySides(t *testing.T) {
	t.Parallel()

	g := Geometry{Width: 1000, Height: 600}

	assert.Equal(t, SideLeft, g.SideAt(Point{X: 0}))
	assert.Equal(t, SideLeft, g.SideAt(Point{X: 499}))
	assert.Equal(t, SideRight, g.SideAt(Point{X: 500}), "midline counts as right")
	assert.Equal(t, SideRight, g.SideAt(Point{X: 999}))
}

func TestGeometryDegenerate(t *testing.T) {
	t.Parallel()

	var g Geometry
	assert.Equal(t, ZoneCenter, g.ZoneAt(Point{X: 50}))
	assert.Equal(t, SideRight, g.SideAt(Point{X: 50}))
}
