package methods

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitSquare(minX, minY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {minX + 1, minY}, {minX + 1, minY + 1}, {minX, minY + 1}, {minX, minY},
	}}
}

func TestGeomIsEmpty(t *testing.T) {
	assert.True(t, GeomIsEmpty(nil))
	assert.True(t, GeomIsEmpty(orb.Polygon{}))
	assert.True(t, GeomIsEmpty(orb.LineString{}))
	assert.True(t, GeomIsEmpty(orb.MultiPolygon{orb.Polygon{}}))
	assert.False(t, GeomIsEmpty(orb.Point{1, 2}))
	assert.False(t, GeomIsEmpty(unitSquare(0, 0)))
}

func TestRoundGeometry(t *testing.T) {
	geom, changed := RoundGeometry(orb.Point{1.23456789, 2.0}, 6)
	pt, ok := geom.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, 1.234568, pt[0])
	assert.Equal(t, 2.0, pt[1])
	assert.Equal(t, 1, changed)

	// 已经在精度内的坐标不计数
	_, changed = RoundGeometry(unitSquare(0, 0), 6)
	assert.Equal(t, 0, changed)
}

func TestUnionAll(t *testing.T) {
	t.Run("two adjacent squares merge", func(t *testing.T) {
		merged := UnionAll([]orb.Geometry{unitSquare(0, 0), unitSquare(1, 0)})
		require.NotNil(t, merged)
		assert.InDelta(t, 2.0, GeomArea(merged), 1e-9)
	})

	t.Run("single polygon passes through", func(t *testing.T) {
		merged := UnionAll([]orb.Geometry{unitSquare(0, 0)})
		require.NotNil(t, merged)
		assert.InDelta(t, 1.0, GeomArea(merged), 1e-9)
	})

	t.Run("no polygonal input", func(t *testing.T) {
		assert.Nil(t, UnionAll([]orb.Geometry{orb.Point{0, 0}}))
		assert.Nil(t, UnionAll(nil))
	})
}

func TestIntersectionGeom(t *testing.T) {
	inter := IntersectionGeom(unitSquare(0, 0), unitSquare(0.5, 0))
	require.NotNil(t, inter)
	assert.InDelta(t, 0.5, GeomArea(inter), 1e-9)

	assert.Nil(t, IntersectionGeom(unitSquare(0, 0), nil))
}

func TestRepresentativePoint(t *testing.T) {
	pt, ok := RepresentativePoint(unitSquare(0, 0))
	require.True(t, ok)
	assert.True(t, ContainsOrTouches(unitSquare(0, 0), pt))

	_, ok = RepresentativePoint(orb.Polygon{})
	assert.False(t, ok)
}

func TestSegmentIntersection(t *testing.T) {
	pt, ok := SegmentIntersection(orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0})
	require.True(t, ok)
	assert.InDelta(t, 1.0, pt[0], 1e-9)
	assert.InDelta(t, 1.0, pt[1], 1e-9)

	_, ok = SegmentIntersection(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{0, 1}, orb.Point{1, 1})
	assert.False(t, ok)
}

func TestGeomMD5(t *testing.T) {
	a := GeomMD5(unitSquare(0, 0))
	b := GeomMD5(unitSquare(0, 0))
	c := GeomMD5(unitSquare(1, 0))
	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Empty(t, GeomMD5(nil))
}
