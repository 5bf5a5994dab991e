package Transformer

import (
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
)

// CloseRing 首尾不一致时补上闭合点, 返回是否发生了闭合
func CloseRing(ring orb.Ring) (orb.Ring, bool) {
	if len(ring) < 3 {
		return ring, false
	}
	if ring[0] == ring[len(ring)-1] {
		return ring, false
	}
	closed := make(orb.Ring, 0, len(ring)+1)
	closed = append(closed, ring...)
	closed = append(closed, ring[0])
	return closed, true
}

// ringSelfIntersects 检查环内非相邻线段是否相交
func ringSelfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				// 首尾线段相邻
				continue
			}
			p, ok := methods.SegmentIntersection(ring[i], ring[i+1], ring[j], ring[j+1])
			if !ok {
				continue
			}
			// 共享顶点不算自相交
			if p == ring[i] || p == ring[i+1] || p == ring[j] || p == ring[j+1] {
				continue
			}
			return true
		}
	}
	return false
}

// PolygonIsValid 逐环检查: 点数足够且各环无自相交
// 不含环间包含关系检查, 交给polygol吸收
func PolygonIsValid(p orb.Polygon) bool {
	if len(p) == 0 {
		return false
	}
	for _, ring := range p {
		if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
			return false
		}
		if ringSelfIntersects(ring) {
			return false
		}
	}
	return true
}

func GeometryIsValid(g orb.Geometry) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return PolygonIsValid(geom)
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return false
		}
		for _, poly := range geom {
			if !PolygonIsValid(poly) {
				return false
			}
		}
		return true
	case orb.LineString:
		return len(geom) >= 2
	case orb.MultiLineString:
		for _, line := range geom {
			if len(line) < 2 {
				return false
			}
		}
		return len(geom) > 0
	case nil:
		return false
	default:
		return !methods.GeomIsEmpty(g)
	}
}

// untwistRing 在自交点处把环拆成若干简单子环
func untwistRing(ring orb.Ring) []orb.Ring {
	n := len(ring) - 1
	if n < 3 {
		return nil
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			p, ok := methods.SegmentIntersection(ring[i], ring[i+1], ring[j], ring[j+1])
			if !ok {
				continue
			}
			if p == ring[i] || p == ring[i+1] || p == ring[j] || p == ring[j+1] {
				continue
			}
			// 环A: 起点到i段, 交点, j+1段到终点
			ringA := make(orb.Ring, 0, i+2+(n-j))
			ringA = append(ringA, ring[:i+1]...)
			ringA = append(ringA, p)
			ringA = append(ringA, ring[j+1:]...)
			// 环B: 交点与i+1..j之间的点构成的闭环
			ringB := make(orb.Ring, 0, j-i+2)
			ringB = append(ringB, p)
			ringB = append(ringB, ring[i+1:j+1]...)
			ringB = append(ringB, p)

			out := untwistRing(ringA)
			out = append(out, untwistRing(ringB)...)
			return out
		}
	}
	return []orb.Ring{ring}
}

// 面积为0的退化子环直接丢弃
func simpleRings(ring orb.Ring) []orb.Ring {
	closed, _ := CloseRing(ring)
	var out []orb.Ring
	for _, sub := range untwistRing(closed) {
		if len(sub) < 4 {
			continue
		}
		if methods.GeomArea(orb.Polygon{sub}) <= 0 {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func repairPolygon(p orb.Polygon) orb.Geometry {
	if len(p) == 0 {
		return nil
	}
	var shells []orb.Geometry
	for _, sub := range simpleRings(p[0]) {
		shells = append(shells, orb.Polygon{sub})
	}
	if len(shells) == 0 {
		return nil
	}
	merged := methods.UnionAll(shells)
	// 内环逐个剪掉
	for _, hole := range p[1:] {
		for _, sub := range simpleRings(hole) {
			if merged == nil {
				return nil
			}
			diff, err := polygol.Difference(methods.ToPolygolGeom(merged), methods.ToPolygolGeom(orb.Polygon{sub}))
			if err != nil {
				continue
			}
			merged = methods.FromPolygolGeom(diff)
		}
	}
	return merged
}

// MakeValid 修复非法几何: 闭合环, 自相交环拆分后重新求并
// 合法输入原样返回
func MakeValid(g orb.Geometry) orb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		if PolygonIsValid(geom) {
			return geom
		}
		return repairPolygon(geom)
	case orb.MultiPolygon:
		allValid := len(geom) > 0
		for _, poly := range geom {
			if !PolygonIsValid(poly) {
				allValid = false
				break
			}
		}
		if allValid {
			return geom
		}
		var parts []orb.Geometry
		for _, poly := range geom {
			repaired := MakeValid(poly)
			if repaired != nil && !methods.GeomIsEmpty(repaired) {
				parts = append(parts, repaired)
			}
		}
		if len(parts) == 0 {
			return nil
		}
		return methods.UnionAll(parts)
	case orb.LineString:
		// 去掉相邻重复点
		out := make(orb.LineString, 0, len(geom))
		for i, pt := range geom {
			if i > 0 && pt == geom[i-1] {
				continue
			}
			out = append(out, pt)
		}
		if len(out) < 2 {
			return nil
		}
		return out
	case orb.MultiLineString:
		var out orb.MultiLineString
		for _, line := range geom {
			repaired := MakeValid(line)
			if ls, ok := repaired.(orb.LineString); ok {
				out = append(out, ls)
			}
		}
		if len(out) == 0 {
			return nil
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	case nil:
		return nil
	default:
		return g
	}
}
