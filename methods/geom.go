package methods

import (
	"math"
	"sort"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 纯Go几何工具集, 面运算基于polygol(Martinez裁剪算法)

func GeomIsEmpty(g orb.Geometry) bool {
	if g == nil {
		return true
	}
	switch v := g.(type) {
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(v) == 0
	case orb.Polygon:
		for _, r := range v {
			if len(r) > 0 {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		for _, p := range v {
			if !GeomIsEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, item := range v {
			if !GeomIsEmpty(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// EachPoint 遍历几何体的全部坐标点
func EachPoint(g orb.Geometry, fn func(orb.Point)) {
	if g == nil {
		return
	}
	switch v := g.(type) {
	case orb.Point:
		fn(v)
	case orb.MultiPoint:
		for _, p := range v {
			fn(p)
		}
	case orb.LineString:
		for _, p := range v {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range v {
			for _, p := range ls {
				fn(p)
			}
		}
	case orb.Ring:
		for _, p := range v {
			fn(p)
		}
	case orb.Polygon:
		for _, r := range v {
			for _, p := range r {
				fn(p)
			}
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			for _, r := range poly {
				for _, p := range r {
					fn(p)
				}
			}
		}
	case orb.Collection:
		for _, item := range v {
			EachPoint(item, fn)
		}
	}
}

func roundVal(v float64, scale float64) float64 {
	return math.Round(v*scale) / scale
}

// RoundGeometry 坐标保留digits位小数, 返回被修改的坐标值个数
func RoundGeometry(g orb.Geometry, digits int) (orb.Geometry, int) {
	if g == nil {
		return nil, 0
	}
	scale := math.Pow(10, float64(digits))
	changed := 0
	roundPoint := func(p orb.Point) orb.Point {
		x := roundVal(p[0], scale)
		y := roundVal(p[1], scale)
		if x != p[0] {
			changed++
		}
		if y != p[1] {
			changed++
		}
		return orb.Point{x, y}
	}
	roundLine := func(ls orb.LineString) orb.LineString {
		out := make(orb.LineString, len(ls))
		for i, p := range ls {
			out[i] = roundPoint(p)
		}
		return out
	}
	roundRing := func(r orb.Ring) orb.Ring {
		out := make(orb.Ring, len(r))
		for i, p := range r {
			out[i] = roundPoint(p)
		}
		return out
	}
	roundPoly := func(poly orb.Polygon) orb.Polygon {
		out := make(orb.Polygon, len(poly))
		for i, r := range poly {
			out[i] = roundRing(r)
		}
		return out
	}

	switch v := g.(type) {
	case orb.Point:
		return roundPoint(v), changed
	case orb.MultiPoint:
		out := make(orb.MultiPoint, len(v))
		for i, p := range v {
			out[i] = roundPoint(p)
		}
		return out, changed
	case orb.LineString:
		return roundLine(v), changed
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(v))
		for i, ls := range v {
			out[i] = roundLine(ls)
		}
		return out, changed
	case orb.Ring:
		return roundRing(v), changed
	case orb.Polygon:
		return roundPoly(v), changed
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(v))
		for i, poly := range v {
			out[i] = roundPoly(poly)
		}
		return out, changed
	case orb.Collection:
		out := make(orb.Collection, len(v))
		for i, item := range v {
			sub, n := RoundGeometry(item, digits)
			changed += n
			out[i] = sub
		}
		return out, changed
	default:
		return g, 0
	}
}

func GeomArea(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	return math.Abs(planar.Area(g))
}

func GeomLength(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	return planar.Length(g)
}

func GeomCentroid(g orb.Geometry) orb.Point {
	if g == nil {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(g)
	return c
}

// ContainsOrTouches 质心包含判断, 落在边界上也算包含
func ContainsOrTouches(g orb.Geometry, pt orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, pt)
	case orb.Ring:
		return planar.RingContains(v, pt)
	case orb.Collection:
		for _, item := range v {
			if ContainsOrTouches(item, pt) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// RepresentativePoint 取一定落在面内部的代表点, 质心在外时沿质心纬度扫描取最宽区间中点
func RepresentativePoint(g orb.Geometry) (orb.Point, bool) {
	if g == nil || GeomIsEmpty(g) {
		return orb.Point{}, false
	}
	switch v := g.(type) {
	case orb.Point:
		return v, true
	case orb.MultiPoint:
		return v[0], true
	case orb.LineString:
		return v[len(v)/2], true
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) > 0 {
				return ls[len(ls)/2], true
			}
		}
		return orb.Point{}, false
	case orb.Polygon, orb.MultiPolygon:
		c := GeomCentroid(v)
		if ContainsOrTouches(v, c) {
			return c, true
		}
		return scanlinePoint(v, c[1])
	case orb.Collection:
		for _, item := range v {
			if p, ok := RepresentativePoint(item); ok {
				return p, true
			}
		}
		return orb.Point{}, false
	default:
		return orb.Point{}, false
	}
}

// scanlinePoint 水平扫描线与面边界求交, 取最宽内部区间的中点
func scanlinePoint(g orb.Geometry, y float64) (orb.Point, bool) {
	var rings []orb.Ring
	switch v := g.(type) {
	case orb.Polygon:
		rings = append(rings, v...)
	case orb.MultiPolygon:
		for _, poly := range v {
			rings = append(rings, poly...)
		}
	default:
		return orb.Point{}, false
	}

	var xs []float64
	for _, ring := range rings {
		for i := 0; i < len(ring)-1; i++ {
			p1, p2 := ring[i], ring[i+1]
			if (p1[1] <= y && p2[1] > y) || (p2[1] <= y && p1[1] > y) {
				t := (y - p1[1]) / (p2[1] - p1[1])
				xs = append(xs, p1[0]+t*(p2[0]-p1[0]))
			}
		}
	}
	if len(xs) < 2 {
		return GeomCentroid(g), true
	}
	sort.Float64s(xs)
	bestWidth := -1.0
	var bestMid float64
	for i := 0; i+1 < len(xs); i += 2 {
		width := xs[i+1] - xs[i]
		if width > bestWidth {
			bestWidth = width
			bestMid = (xs[i] + xs[i+1]) / 2
		}
	}
	if bestWidth < 0 {
		return GeomCentroid(g), true
	}
	return orb.Point{bestMid, y}, true
}

// SegmentIntersection 两线段求交点, 含端点接触
func SegmentIntersection(a1, a2, b1, b2 orb.Point) (orb.Point, bool) {
	d1x, d1y := a2[0]-a1[0], a2[1]-a1[1]
	d2x, d2y := b2[0]-b1[0], b2[1]-b1[1]
	denom := d1x*d2y - d1y*d2x
	if denom == 0 {
		return orb.Point{}, false
	}
	t := ((b1[0]-a1[0])*d2y - (b1[1]-a1[1])*d2x) / denom
	u := ((b1[0]-a1[0])*d1y - (b1[1]-a1[1])*d1x) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return orb.Point{}, false
	}
	return orb.Point{a1[0] + t*d1x, a1[1] + t*d1y}, true
}

func pointSegmentDistance(p, a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return planar.Distance(p, a)
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lengthSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return planar.Distance(p, orb.Point{a[0] + t*dx, a[1] + t*dy})
}

// SegmentDistance 两线段最小距离
func SegmentDistance(a1, a2, b1, b2 orb.Point) float64 {
	if _, ok := SegmentIntersection(a1, a2, b1, b2); ok {
		return 0
	}
	d := pointSegmentDistance(a1, b1, b2)
	if v := pointSegmentDistance(a2, b1, b2); v < d {
		d = v
	}
	if v := pointSegmentDistance(b1, a1, a2); v < d {
		d = v
	}
	if v := pointSegmentDistance(b2, a1, a2); v < d {
		d = v
	}
	return d
}

// geomSegments 提取几何体的全部线段
func geomSegments(g orb.Geometry) [][2]orb.Point {
	var segs [][2]orb.Point
	appendLine := func(pts []orb.Point) {
		for i := 0; i+1 < len(pts); i++ {
			segs = append(segs, [2]orb.Point{pts[i], pts[i+1]})
		}
	}
	switch v := g.(type) {
	case orb.LineString:
		appendLine(v)
	case orb.MultiLineString:
		for _, ls := range v {
			appendLine(ls)
		}
	case orb.Ring:
		appendLine(v)
	case orb.Polygon:
		for _, r := range v {
			appendLine(r)
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			for _, r := range poly {
				appendLine(r)
			}
		}
	case orb.Collection:
		for _, item := range v {
			segs = append(segs, geomSegments(item)...)
		}
	}
	return segs
}

// LineIntersectsPolygon 线与面是否相交(含边界接触)
func LineIntersectsPolygon(line orb.Geometry, area orb.Geometry) bool {
	if line == nil || area == nil {
		return false
	}
	hit := false
	EachPoint(line, func(p orb.Point) {
		if !hit && ContainsOrTouches(area, p) {
			hit = true
		}
	})
	if hit {
		return true
	}
	lineSegs := geomSegments(line)
	areaSegs := geomSegments(area)
	for _, ls := range lineSegs {
		for _, as := range areaSegs {
			if _, ok := SegmentIntersection(ls[0], ls[1], as[0], as[1]); ok {
				return true
			}
		}
	}
	return false
}

// LineToPolygonBoundaryDistance 线到面边界的最小距离
func LineToPolygonBoundaryDistance(line orb.Geometry, area orb.Geometry) float64 {
	lineSegs := geomSegments(line)
	areaSegs := geomSegments(area)
	if len(lineSegs) == 0 || len(areaSegs) == 0 {
		return math.Inf(1)
	}
	best := math.Inf(1)
	for _, ls := range lineSegs {
		for _, as := range areaSegs {
			if d := SegmentDistance(ls[0], ls[1], as[0], as[1]); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

// ToPolygolGeom orb面几何转polygol输入
func ToPolygolGeom(g orb.Geometry) polygol.Geom {
	ringOut := func(r orb.Ring) [][]float64 {
		out := make([][]float64, len(r))
		for i, p := range r {
			out[i] = []float64{p[0], p[1]}
		}
		return out
	}
	polyOut := func(poly orb.Polygon) [][][]float64 {
		out := make([][][]float64, len(poly))
		for i, r := range poly {
			out[i] = ringOut(r)
		}
		return out
	}
	switch v := g.(type) {
	case orb.Polygon:
		return polygol.Geom{polyOut(v)}
	case orb.MultiPolygon:
		out := make(polygol.Geom, len(v))
		for i, poly := range v {
			out[i] = polyOut(poly)
		}
		return out
	case orb.Ring:
		return polygol.Geom{polyOut(orb.Polygon{v})}
	default:
		return polygol.Geom{}
	}
}

// FromPolygolGeom polygol结果转orb, 单面降级为Polygon
func FromPolygolGeom(pg polygol.Geom) orb.Geometry {
	var mp orb.MultiPolygon
	for _, rawPoly := range pg {
		var poly orb.Polygon
		for _, rawRing := range rawPoly {
			ring := make(orb.Ring, 0, len(rawRing))
			for _, coord := range rawRing {
				if len(coord) >= 2 {
					ring = append(ring, orb.Point{coord[0], coord[1]})
				}
			}
			if len(ring) > 0 {
				poly = append(poly, ring)
			}
		}
		if len(poly) > 0 {
			mp = append(mp, poly)
		}
	}
	if len(mp) == 0 {
		return nil
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

// UnionAll 多面合并, 失败时退化为MultiPolygon拼接
func UnionAll(geoms []orb.Geometry) orb.Geometry {
	var inputs []polygol.Geom
	var fallback orb.MultiPolygon
	for _, g := range geoms {
		switch v := g.(type) {
		case orb.Polygon:
			if !GeomIsEmpty(v) {
				inputs = append(inputs, ToPolygolGeom(v))
				fallback = append(fallback, v)
			}
		case orb.MultiPolygon:
			if !GeomIsEmpty(v) {
				inputs = append(inputs, ToPolygolGeom(v))
				fallback = append(fallback, v...)
			}
		}
	}
	if len(inputs) == 0 {
		return nil
	}
	if len(inputs) == 1 {
		return FromPolygolGeom(inputs[0])
	}
	merged, err := polygol.Union(inputs[0], inputs[1:]...)
	if err != nil {
		if len(fallback) == 1 {
			return fallback[0]
		}
		return fallback
	}
	out := FromPolygolGeom(merged)
	if out == nil {
		if len(fallback) == 1 {
			return fallback[0]
		}
		return fallback
	}
	return out
}

// IntersectionGeom 两面求交, 失败或不相交返回nil
func IntersectionGeom(a, b orb.Geometry) orb.Geometry {
	ga := ToPolygolGeom(a)
	gb := ToPolygolGeom(b)
	if len(ga) == 0 || len(gb) == 0 {
		return nil
	}
	result, err := polygol.Intersection(ga, gb)
	if err != nil {
		return nil
	}
	return FromPolygolGeom(result)
}

// PolygonsIntersect 两面是否有公共区域或边界接触
func PolygonsIntersect(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if inter := IntersectionGeom(a, b); inter != nil && GeomArea(inter) > 0 {
		return true
	}
	// 面心落入对方也算相交, 捕捉完全包含的情形
	ca := GeomCentroid(a)
	if ContainsOrTouches(b, ca) {
		return true
	}
	cb := GeomCentroid(b)
	if ContainsOrTouches(a, cb) {
		return true
	}
	// 边界接触
	hit := false
	EachPoint(a, func(p orb.Point) {
		if !hit && ContainsOrTouches(b, p) {
			hit = true
		}
	})
	return hit
}
