package carve

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/facade/pkg/brep"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// insetScale converts panel ratios into cut-line scale factors. A cuts=2
// subdivide leaves a middle strip spanning one third of the face, so
// scaling the cut lines by ratio*insetScale makes the inner panel span
// exactly ratio times the face. Scaled ratios at or above insetScale
// (raw ratios >= 1) skip their axis.
const insetScale = 3.0

// weldEpsilon is the merge distance for the inter-pass vertex weld.
const weldEpsilon = 1e-6

// ErrNoInnerFace reports that no mesh face lies inside the tracked
// vertex set during re-resolution after a mutation.
var ErrNoInnerFace = errors.New("no face matches the tracked vertex set")

// FaceWithVerts returns the first face, in id order, whose vertex loop
// lies entirely inside the given vertex set. This is how a face is
// re-identified after subdivision or welding re-points ids.
func FaceWithVerts(m *brep.Mesh, verts []brep.VertID) (brep.FaceID, bool) {
	set := make(map[brep.VertID]bool, len(verts))
	for _, v := range verts {
		set[v] = true
	}
	for _, f := range m.FaceIDs() {
		inside := true
		for _, v := range m.FaceVerts(f) {
			if !set[v] {
				inside = false
				break
			}
		}
		if inside {
			return f, true
		}
	}
	return 0, false
}

// Split carves an inner quad panel out of a rectangular face. The
// svertical and shorizontal ratios give the panel's height and width as
// fractions of the face's; a ratio at or above 1 skips that axis, and
// skipping both returns the face unchanged except for being deselected.
// offx/offy/offz shift the panel from the face center.
//
// The face is carved by two independent subdivide+rescale passes. Each
// pass invalidates ids from before it, so the working face is re-derived
// from the tracked inner vertex set after the inter-pass weld and again
// at the end; failure of either lookup reports ErrNoInnerFace.
func Split(m *brep.Mesh, f brep.FaceID, svertical, shorizontal, offx, offy, offz float64) (brep.FaceID, error) {
	scaledV := svertical * insetScale
	scaledH := shorizontal * insetScale
	doVertical := scaledV < insetScale
	doHorizontal := scaledH < insetScale

	m.SetFaceSelect(f, false)
	median := m.FaceCenter(f)

	if !doHorizontal && !doVertical {
		return f, nil
	}

	space := mgl64.Translate3D(-median.X, -median.Y, -median.Z)
	var inner []brep.VertID

	if doHorizontal {
		normal := m.FaceNormal(f)
		res := m.SubdivideEdges(flatZEdges(m, f), 2)
		inner = res.InnerVerts

		sv := normal.Cross(v3.Vec{Z: 1})
		factors := v3.Vec{X: 1, Y: 1, Z: 1}
		if sv.X != 0 {
			factors.X = math.Abs(sv.X) * scaledH
		}
		if sv.Y != 0 {
			factors.Y = math.Abs(sv.Y) * scaledH
		}
		if sv.Z != 0 {
			factors.Z = math.Abs(sv.Z) * scaledH
		}
		m.ScaleVerts(inner, factors, space)
	}

	if doVertical {
		remap := m.RemoveDoubles(m.VertIDs(), weldEpsilon)
		if doHorizontal {
			for i, v := range inner {
				if to, ok := remap[v]; ok {
					inner[i] = to
				}
			}
			got, ok := FaceWithVerts(m, inner)
			if !ok {
				return 0, fmt.Errorf("re-resolving after weld: %w", ErrNoInnerFace)
			}
			f = got
		} else if !m.FaceAlive(f) {
			return 0, fmt.Errorf("face collapsed by weld: %w", ErrNoInnerFace)
		}

		vertical := complementEdges(m.FaceEdges(f), flatZEdges(m, f))
		res := m.SubdivideEdges(vertical, 2)
		inner = res.InnerVerts
		m.ScaleVerts(inner, v3.Vec{X: 1, Y: 1, Z: scaledV}, space)
	}

	if doHorizontal && doVertical {
		m.TranslateVerts(oneRing(m, inner), v3.Vec{X: offx, Y: offy})
	} else if doHorizontal {
		m.TranslateVerts(inner, v3.Vec{X: offx, Y: offy})
	}
	m.TranslateVerts(inner, v3.Vec{Z: offz})

	got, ok := FaceWithVerts(m, inner)
	if !ok {
		return 0, fmt.Errorf("resolving inner panel: %w", ErrNoInnerFace)
	}
	return got, nil
}

// SplitQuad subdivides the grid edges of every selected face: horizontal
// edges when a vertical split is requested, vertical edges otherwise
// (cutting the edges orthogonal to the wanted direction produces cuts
// along it). Returns the subdivide result of the last face processed;
// with nothing selected the result is empty.
func SplitQuad(m *brep.Mesh, vertical bool, cuts int) brep.SubdivideResult {
	var res brep.SubdivideResult
	for _, f := range m.SelectedFaces() {
		normal := m.FaceNormal(f)
		var edges []brep.EdgeID
		if vertical {
			edges = FilterHorizontalEdges(m, m.FaceEdges(f), normal)
		} else {
			edges = FilterVerticalEdges(m, m.FaceEdges(f), normal)
		}
		res = m.SubdivideEdges(edges, cuts)
	}
	return res
}

// flatZEdges returns the face edges whose verts share a rounded z
// coordinate (the level edges of a wall, regardless of its facing).
func flatZEdges(m *brep.Mesh, f brep.FaceID) []brep.EdgeID {
	var out []brep.EdgeID
	for _, e := range m.FaceEdges(f) {
		vv := m.EdgeVerts(e)
		if round1(m.VertPos(vv[0]).Z) == round1(m.VertPos(vv[1]).Z) {
			out = append(out, e)
		}
	}
	return out
}

// complementEdges returns the edges of all that are not in exclude,
// preserving order.
func complementEdges(all, exclude []brep.EdgeID) []brep.EdgeID {
	ex := make(map[brep.EdgeID]bool, len(exclude))
	for _, e := range exclude {
		ex[e] = true
	}
	var out []brep.EdgeID
	for _, e := range all {
		if !ex[e] {
			out = append(out, e)
		}
	}
	return out
}

// oneRing returns every vertex on an edge linked to any of the given
// vertices, the given vertices included, without duplicates.
func oneRing(m *brep.Mesh, verts []brep.VertID) []brep.VertID {
	seen := make(map[brep.VertID]bool, len(verts)*3)
	var out []brep.VertID
	for _, v := range verts {
		for _, e := range m.VertEdges(v) {
			for _, w := range m.EdgeVerts(e) {
				if !seen[w] {
					seen[w] = true
					out = append(out, w)
				}
			}
		}
	}
	return out
}
