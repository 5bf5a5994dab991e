package Transformer

import (
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/paulmach/orb"
)

// closePolygonRings 补齐未闭合的环并统计修复数
func closePolygonRings(g orb.Geometry, summary *models.CleanupSummary) orb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		out := make(orb.Polygon, 0, len(geom))
		for _, ring := range geom {
			closed, fixed := CloseRing(ring)
			if fixed {
				summary.RingsClosed++
			}
			out = append(out, closed)
		}
		return out
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(geom))
		for _, poly := range geom {
			out = append(out, closePolygonRings(poly, summary).(orb.Polygon))
		}
		return out
	default:
		return g
	}
}

// orientPolygon 外环逆时针, 内环顺时针, 返回是否发生翻转
func orientPolygon(p orb.Polygon) (orb.Polygon, bool) {
	changed := false
	out := make(orb.Polygon, 0, len(p))
	for i, ring := range p {
		want := orb.CCW
		if i > 0 {
			want = orb.CW
		}
		if len(ring) >= 4 && ring.Orientation() != want {
			reversed := make(orb.Ring, len(ring))
			copy(reversed, ring)
			reversed.Reverse()
			out = append(out, reversed)
			changed = true
		} else {
			out = append(out, ring)
		}
	}
	return out, changed
}

func orientGeometry(g orb.Geometry, summary *models.CleanupSummary) orb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		out, changed := orientPolygon(geom)
		if changed {
			summary.FeaturesReoriented++
		}
		return out
	case orb.MultiPolygon:
		changed := false
		out := make(orb.MultiPolygon, 0, len(geom))
		for _, poly := range geom {
			oriented, flipped := orientPolygon(poly)
			out = append(out, oriented)
			changed = changed || flipped
		}
		if changed {
			summary.FeaturesReoriented++
		}
		return out
	default:
		return g
	}
}

// CleanGeometry 导入清洗管线: 闭环→修复→定向→拆分复面→坐标取整→剔除空几何
// MultiPolygon拆分后一行变多行, 属性由调用方复制
func CleanGeometry(g orb.Geometry, summary *models.CleanupSummary) []orb.Geometry {
	if g == nil {
		summary.EmptyFeaturesDropped++
		return nil
	}
	repaired := MakeValid(closePolygonRings(g, summary))
	if repaired == nil || methods.GeomIsEmpty(repaired) {
		summary.EmptyFeaturesDropped++
		return nil
	}
	repaired = orientGeometry(repaired, summary)

	var exploded []orb.Geometry
	if multi, ok := repaired.(orb.MultiPolygon); ok {
		if len(multi) > 1 {
			summary.MultipolygonsExploded += len(multi) - 1
		}
		for _, poly := range multi {
			exploded = append(exploded, poly)
		}
	} else {
		exploded = []orb.Geometry{repaired}
	}

	var out []orb.Geometry
	for _, geom := range exploded {
		rounded, changed := methods.RoundGeometry(geom, 7)
		summary.CoordinatesRounded += changed
		if rounded == nil || methods.GeomIsEmpty(rounded) {
			summary.EmptyFeaturesDropped++
			continue
		}
		out = append(out, rounded)
	}
	return out
}
