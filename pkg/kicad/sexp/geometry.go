package sexp

import "math"

// PointSegmentDistance returns the shortest distance from p to segment ab.
func PointSegmentDistance(p, a, b Position) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.DistanceTo(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.DistanceTo(Position{X: a.X + t*dx, Y: a.Y + t*dy})
}

// SegmentsIntersect reports whether segments ab and cd cross or touch.
func SegmentsIntersect(a, b, c, d Position) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(c, d, a)) ||
		(d2 == 0 && onSegment(c, d, b)) ||
		(d3 == 0 && onSegment(a, b, c)) ||
		(d4 == 0 && onSegment(a, b, d))
}

// SegmentDistance returns the shortest distance between segments ab and cd.
func SegmentDistance(a, b, c, d Position) float64 {
	if SegmentsIntersect(a, b, c, d) {
		return 0
	}
	return math.Min(
		math.Min(PointSegmentDistance(a, c, d), PointSegmentDistance(b, c, d)),
		math.Min(PointSegmentDistance(c, a, b), PointSegmentDistance(d, a, b)),
	)
}

// SegmentBoxDistance returns the shortest distance between segment ab and the
// rectangle bb (zero when the segment touches or enters the rectangle).
func SegmentBoxDistance(a, b Position, bb BoundingBox) float64 {
	if bb.Contains(a) || bb.Contains(b) {
		return 0
	}
	corners := bb.Corners()
	best := math.Inf(1)
	for i := range corners {
		d := SegmentDistance(a, b, corners[i], corners[(i+1)%len(corners)])
		if d < best {
			best = d
		}
	}
	return best
}

// PointBoxDistance returns the distance from p to the rectangle bb.
func PointBoxDistance(p Position, bb BoundingBox) float64 {
	dx := math.Max(math.Max(bb.Min.X-p.X, 0), p.X-bb.Max.X)
	dy := math.Max(math.Max(bb.Min.Y-p.Y, 0), p.Y-bb.Max.Y)
	return math.Hypot(dx, dy)
}

// BoxDistance returns the gap between two rectangles (zero if they touch or overlap).
func BoxDistance(a, b BoundingBox) float64 {
	dx := math.Max(math.Max(b.Min.X-a.Max.X, a.Min.X-b.Max.X), 0)
	dy := math.Max(math.Max(b.Min.Y-a.Max.Y, a.Min.Y-b.Max.Y), 0)
	return math.Hypot(dx, dy)
}

// PointInPolygon reports whether p lies inside (or on the edge of) the
// polygon. The polygon may be open or closed.
func PointInPolygon(p Position, poly []Position) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if PointSegmentDistance(p, poly[i], poly[(i+1)%n]) < Epsilon {
			return true
		}
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// PolygonBounds returns the bounding box of a point list.
func PolygonBounds(points []Position) BoundingBox {
	bb := NewBoundingBox()
	for _, p := range points {
		bb.Expand(p)
	}
	return bb
}

func cross(a, b, p Position) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

func onSegment(a, b, p Position) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}
