package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersects reports whether two areal geometries share any point.
// Supported types are Polygon, MultiPolygon, Ring and Bound; anything else
// never intersects.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	pa := polygons(a)
	pb := polygons(b)
	for _, p := range pa {
		for _, q := range pb {
			if polygonsIntersect(p, q) {
				return true
			}
		}
	}
	return false
}

func polygons(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		return []orb.Polygon(v)
	case orb.Ring:
		return []orb.Polygon{{v}}
	case orb.Bound:
		return []orb.Polygon{v.ToPolygon()}
	default:
		return nil
	}
}

func polygonsIntersect(p, q orb.Polygon) bool {
	if len(p) == 0 || len(q) == 0 {
		return false
	}
	if !p.Bound().Intersects(q.Bound()) {
		return false
	}
	// one polygon wholly inside the other
	for _, pt := range p[0] {
		if planar.PolygonContains(q, pt) {
			return true
		}
	}
	for _, pt := range q[0] {
		if planar.PolygonContains(p, pt) {
			return true
		}
	}
	for _, rp := range p {
		for _, rq := range q {
			if ringsCross(rp, rq) {
				return true
			}
		}
	}
	return false
}

func ringsCross(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func orientation(p, q, r orb.Point) int {
	v := (q[1]-p[1])*(r[0]-q[0]) - (q[0]-p[0])*(r[1]-q[1])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func onSegment(p, q, r orb.Point) bool {
	return q[0] <= max(p[0], r[0]) && q[0] >= min(p[0], r[0]) &&
		q[1] <= max(p[1], r[1]) && q[1] >= min(p[1], r[1])
}

func segmentsIntersect(p1, q1, p2, q2 orb.Point) bool {
	o1 := orientation(p1, q1, p2)
	o2 := orientation(p1, q1, q2)
	o3 := orientation(p2, q2, p1)
	o4 := orientation(p2, q2, q1)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, q1) {
		return true
	}
	if o3 == 0 && onSegment(p2, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(p2, q1, q2) {
		return true
	}
	return false
}
