// Package carve implements the face-carving core of the facade modeler:
// edge classification against a face normal, medians and face metrics,
// re-squaring of distorted rectangular faces, and grid splitting of quad
// wall faces into positioned inner panels.
//
// Coordinates are never compared raw. Edge filtering rounds to 4
// decimals; orientation and split-axis grouping round to 1 decimal. The
// coarse tolerances absorb float noise left on vertices by earlier mesh
// operations, and changing them changes which edges classify together.
//
// Mesh ids are unstable across the mutation primitives, so the splitter
// re-derives its working face from a tracked vertex set (FaceWithVerts)
// at every point where a subdivide or weld may have re-pointed ids.
package carve

import (
	"math"

	"github.com/chazu/facade/pkg/brep"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }

// IsVertical reports whether the edge runs upright relative to a face
// normal: both verts share the rounded coordinate on the axis picked by
// the normal. A y-facing wall groups by x just like a z-facing one.
func IsVertical(m *brep.Mesh, e brep.EdgeID, normal v3.Vec) bool {
	vv := m.EdgeVerts(e)
	p0, p1 := m.VertPos(vv[0]), m.VertPos(vv[1])
	switch {
	case normal.Z != 0:
		return round4(p0.X) == round4(p1.X)
	case normal.Y != 0:
		return round4(p0.X) == round4(p1.X)
	default:
		return round4(p0.Y) == round4(p1.Y)
	}
}

// IsHorizontal reports whether the edge runs level relative to a face
// normal.
func IsHorizontal(m *brep.Mesh, e brep.EdgeID, normal v3.Vec) bool {
	vv := m.EdgeVerts(e)
	p0, p1 := m.VertPos(vv[0]), m.VertPos(vv[1])
	switch {
	case normal.Z != 0:
		return round4(p0.Y) == round4(p1.Y)
	case normal.Y != 0:
		return round4(p0.Z) == round4(p1.Z)
	default:
		return round4(p0.Z) == round4(p1.Z)
	}
}

// FilterVerticalEdges returns the edges that classify as vertical for
// the given normal, preserving input order.
func FilterVerticalEdges(m *brep.Mesh, edges []brep.EdgeID, normal v3.Vec) []brep.EdgeID {
	var out []brep.EdgeID
	for _, e := range edges {
		if IsVertical(m, e, normal) {
			out = append(out, e)
		}
	}
	return out
}

// FilterHorizontalEdges returns the edges that classify as horizontal
// for the given normal, preserving input order.
func FilterHorizontalEdges(m *brep.Mesh, edges []brep.EdgeID, normal v3.Vec) []brep.EdgeID {
	var out []brep.EdgeID
	for _, e := range edges {
		if IsHorizontal(m, e, normal) {
			out = append(out, e)
		}
	}
	return out
}

// EdgeOrient classifies an edge by the principal axis it runs along,
// comparing vert coordinates at 1-decimal tolerance. Flat x or y wins
// first, so axis-aligned horizontal edges also read as uprights; an edge
// with no collapsing coordinate pair is directionless and returns the
// zero vector (callers treat that as "no adjustment applies").
func EdgeOrient(m *brep.Mesh, e brep.EdgeID) v3.Vec {
	vv := m.EdgeVerts(e)
	p0, p1 := m.VertPos(vv[0]), m.VertPos(vv[1])
	xFlat := round1(p0.X) == round1(p1.X)
	yFlat := round1(p0.Y) == round1(p1.Y)
	zFlat := round1(p0.Z) == round1(p1.Z)
	switch {
	case xFlat || yFlat:
		return v3.Vec{Z: 1}
	case zFlat && yFlat:
		return v3.Vec{X: 1}
	case zFlat && xFlat:
		return v3.Vec{Y: 1}
	default:
		return v3.Vec{}
	}
}

// EdgeMedian returns the midpoint of an edge.
func EdgeMedian(m *brep.Mesh, e brep.EdgeID) v3.Vec {
	vv := m.EdgeVerts(e)
	return VertsMedian(m, vv[:])
}

// VertsMedian returns the arithmetic mean of the vertex positions.
// An empty set is a caller bug and panics.
func VertsMedian(m *brep.Mesh, verts []brep.VertID) v3.Vec {
	if len(verts) == 0 {
		panic("carve: median of empty vertex set")
	}
	var sum v3.Vec
	for _, v := range verts {
		sum = sum.Add(m.VertPos(v))
	}
	return sum.DivScalar(float64(len(verts)))
}

// FaceDimensions returns a face's width and height as read off its
// axis-aligned normal: x-facing walls measure width along y, y-facing
// walls along x, diagonal walls between their extreme-x verts, and flat
// top/bottom faces have zero width. Height is the z span in all cases.
func FaceDimensions(m *brep.Mesh, f brep.FaceID) (width, height float64) {
	n := m.FaceNormal(f)
	verts := m.FaceVerts(f)

	switch {
	case n.X != 0 && n.Y == 0:
		width = span(m, verts, func(p v3.Vec) float64 { return p.Y })
	case n.Y != 0 && n.X == 0:
		width = span(m, verts, func(p v3.Vec) float64 { return p.X })
	case n.X != 0 && n.Y != 0:
		lo, hi := verts[0], verts[0]
		for _, v := range verts[1:] {
			if m.VertPos(v).X > m.VertPos(hi).X {
				hi = v
			}
			if m.VertPos(v).X < m.VertPos(lo).X {
				lo = v
			}
		}
		width = m.VertPos(hi).Sub(m.VertPos(lo)).Length()
	}
	height = span(m, verts, func(p v3.Vec) float64 { return p.Z })
	return width, height
}

func span(m *brep.Mesh, verts []brep.VertID, coord func(v3.Vec) float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range verts {
		c := coord(m.VertPos(v))
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	return hi - lo
}
