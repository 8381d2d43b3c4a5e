package brep_test

import (
	"math"
	"testing"

	"github.com/chazu/facade/pkg/brep"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b v3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// flatZEdges returns the face edges whose two verts share a Z coordinate,
// and the rest.
func flatZEdges(m *brep.Mesh, f brep.FaceID) (flat, rest []brep.EdgeID) {
	for _, e := range m.FaceEdges(f) {
		vv := m.EdgeVerts(e)
		if m.VertPos(vv[0]).Z == m.VertPos(vv[1]).Z {
			flat = append(flat, e)
		} else {
			rest = append(rest, e)
		}
	}
	return flat, rest
}

func TestMakePlaneNormalsAndCenters(t *testing.T) {
	cases := []struct {
		axis brep.Axis
		at   v3.Vec
	}{
		{brep.AxisX, v3.Vec{X: 3, Y: -1, Z: 2}},
		{brep.AxisY, v3.Vec{X: 0, Y: 5, Z: 0}},
		{brep.AxisZ, v3.Vec{X: -2, Y: 4, Z: 1}},
	}
	for _, tc := range cases {
		m := brep.NewMesh()
		f := m.MakePlane(tc.axis, 2, 4, tc.at)

		if got := m.FaceNormal(f); !vecNear(got, tc.axis.Vector(), 1e-12) {
			t.Errorf("axis %v: normal = %+v, want %+v", tc.axis, got, tc.axis.Vector())
		}
		if got := m.FaceCenter(f); !vecNear(got, tc.at, 1e-12) {
			t.Errorf("axis %v: center = %+v, want %+v", tc.axis, got, tc.at)
		}
		if n := m.VertCount(); n != 4 {
			t.Errorf("axis %v: vert count = %d, want 4", tc.axis, n)
		}
		if n := m.EdgeCount(); n != 4 {
			t.Errorf("axis %v: edge count = %d, want 4", tc.axis, n)
		}
	}
}

func TestAddQuadSharesEdges(t *testing.T) {
	m := brep.NewMesh()
	a := m.AddVert(v3.Vec{X: 0, Y: 0, Z: 0})
	b := m.AddVert(v3.Vec{X: 1, Y: 0, Z: 0})
	c := m.AddVert(v3.Vec{X: 1, Y: 0, Z: 1})
	d := m.AddVert(v3.Vec{X: 0, Y: 0, Z: 1})
	e := m.AddVert(v3.Vec{X: 2, Y: 0, Z: 0})
	f := m.AddVert(v3.Vec{X: 2, Y: 0, Z: 1})

	m.AddQuad(a, b, c, d)
	m.AddQuad(b, e, f, c)

	// Edge b-c is shared, so 7 edges rather than 8.
	if n := m.EdgeCount(); n != 7 {
		t.Errorf("edge count = %d, want 7", n)
	}
	if n := m.FaceCount(); n != 2 {
		t.Errorf("face count = %d, want 2", n)
	}
}

func TestSubdivideOppositePairCutsStrips(t *testing.T) {
	m := brep.NewMesh()
	f := m.MakePlane(brep.AxisY, 1, 1, v3.Vec{})
	flat, _ := flatZEdges(m, f)
	if len(flat) != 2 {
		t.Fatalf("flat-Z edges = %d, want 2", len(flat))
	}

	res := m.SubdivideEdges(flat, 2)

	if len(res.InnerVerts) != 4 {
		t.Errorf("inner verts = %d, want 4", len(res.InnerVerts))
	}
	if len(res.InnerEdges) != 2 {
		t.Errorf("inner edges = %d, want 2", len(res.InnerEdges))
	}
	if len(res.Faces) != 3 {
		t.Errorf("strip faces = %d, want 3", len(res.Faces))
	}
	if len(res.OuterVerts) != 0 {
		t.Errorf("outer verts = %d, want 0", len(res.OuterVerts))
	}
	if n := m.FaceCount(); n != 3 {
		t.Errorf("face count = %d, want 3", n)
	}
	// The original face id survives as the first strip.
	if res.Faces[0] != f {
		t.Errorf("first strip id = %d, want original face %d", res.Faces[0], f)
	}
	if !m.FaceAlive(f) {
		t.Error("original face id should stay alive after the cut")
	}

	// Cut columns sit at x = -1/6 and x = 1/6 on a unit wall.
	for _, v := range res.InnerVerts {
		x := math.Abs(m.VertPos(v).X)
		if math.Abs(x-1.0/6.0) > 1e-12 {
			t.Errorf("inner vert x = %v, want +-1/6", m.VertPos(v).X)
		}
	}
	// Every strip is a quad and keeps the wall's normal.
	want := brep.AxisY.Vector()
	for _, sf := range res.Faces {
		if n := len(m.FaceVerts(sf)); n != 4 {
			t.Errorf("strip %d has %d verts, want 4", sf, n)
		}
		if got := m.FaceNormal(sf); !vecNear(got, want, 1e-12) {
			t.Errorf("strip %d normal = %+v, want %+v", sf, got, want)
		}
	}
}

func TestSubdivideConservesStripExtents(t *testing.T) {
	m := brep.NewMesh()
	f := m.MakePlane(brep.AxisY, 3, 1, v3.Vec{})
	flat, _ := flatZEdges(m, f)

	res := m.SubdivideEdges(flat, 2)

	// Each of the 3 strips spans one third of the width.
	for _, sf := range res.Faces {
		minX, maxX := math.Inf(1), math.Inf(-1)
		for _, v := range m.FaceVerts(sf) {
			x := m.VertPos(v).X
			minX = math.Min(minX, x)
			maxX = math.Max(maxX, x)
		}
		if math.Abs((maxX-minX)-1.0) > 1e-12 {
			t.Errorf("strip %d width = %v, want 1", sf, maxX-minX)
		}
	}
}

func TestSubdivideSingleEdgeSplicesNeighbors(t *testing.T) {
	m := brep.NewMesh()
	a := m.AddVert(v3.Vec{X: 0, Y: 0, Z: 0})
	b := m.AddVert(v3.Vec{X: 1, Y: 0, Z: 0})
	c := m.AddVert(v3.Vec{X: 1, Y: 0, Z: 1})
	d := m.AddVert(v3.Vec{X: 0, Y: 0, Z: 1})
	e := m.AddVert(v3.Vec{X: 2, Y: 0, Z: 0})
	g := m.AddVert(v3.Vec{X: 2, Y: 0, Z: 1})
	f1 := m.AddQuad(a, b, c, d)
	f2 := m.AddQuad(b, e, g, c)

	shared, ok := findEdge(m, b, c)
	if !ok {
		t.Fatal("shared edge b-c not found")
	}

	res := m.SubdivideEdges([]brep.EdgeID{shared}, 2)

	if len(res.InnerVerts) != 0 || len(res.InnerEdges) != 0 {
		t.Errorf("single-edge subdivide should create no inner geometry, got %d verts %d edges",
			len(res.InnerVerts), len(res.InnerEdges))
	}
	if len(res.OuterVerts) != 2 {
		t.Errorf("outer verts = %d, want 2", len(res.OuterVerts))
	}
	if n := m.FaceCount(); n != 2 {
		t.Errorf("face count = %d, want 2 (no face split)", n)
	}
	for _, fc := range []brep.FaceID{f1, f2} {
		if n := len(m.FaceVerts(fc)); n != 6 {
			t.Errorf("face %d has %d verts after splice, want 6", fc, n)
		}
	}
}

func findEdge(m *brep.Mesh, a, b brep.VertID) (brep.EdgeID, bool) {
	for _, e := range m.EdgeIDs() {
		vv := m.EdgeVerts(e)
		if (vv[0] == a && vv[1] == b) || (vv[0] == b && vv[1] == a) {
			return e, true
		}
	}
	return 0, false
}

func TestScaleVertsAboutTranslationSpace(t *testing.T) {
	m := brep.NewMesh()
	v := m.AddVert(v3.Vec{X: 2, Y: 0, Z: 0})

	// Pivot at x=1: the space moves the pivot to the origin.
	space := mgl64.Translate3D(-1, 0, 0)
	m.ScaleVerts([]brep.VertID{v}, v3.Vec{X: 3, Y: 1, Z: 1}, space)

	want := v3.Vec{X: 4, Y: 0, Z: 0}
	if got := m.VertPos(v); !vecNear(got, want, 1e-12) {
		t.Errorf("scaled pos = %+v, want %+v", got, want)
	}

	// A vert at the pivot itself must not move.
	p := m.AddVert(v3.Vec{X: 1, Y: 0, Z: 0})
	m.ScaleVerts([]brep.VertID{p}, v3.Vec{X: 3, Y: 3, Z: 3}, space)
	if got := m.VertPos(p); !vecNear(got, v3.Vec{X: 1}, 1e-12) {
		t.Errorf("pivot vert moved to %+v", got)
	}
}

func TestTranslateVertsDeduplicates(t *testing.T) {
	m := brep.NewMesh()
	v := m.AddVert(v3.Vec{})

	m.TranslateVerts([]brep.VertID{v, v, v}, v3.Vec{X: 1})

	if got := m.VertPos(v); !vecNear(got, v3.Vec{X: 1}, 1e-12) {
		t.Errorf("pos = %+v, want translation applied once", got)
	}
}

func TestRemoveDoublesWeldsSeam(t *testing.T) {
	m := brep.NewMesh()
	f1 := m.MakePlane(brep.AxisY, 1, 1, v3.Vec{X: -0.5})
	f2 := m.MakePlane(brep.AxisY, 1, 1, v3.Vec{X: 0.5})

	remap := m.RemoveDoubles(m.VertIDs(), 1e-6)

	merged := 0
	for from, to := range remap {
		if from != to {
			merged++
			if m.VertAlive(from) {
				t.Errorf("merged vert %d still alive", from)
			}
			if !m.VertAlive(to) {
				t.Errorf("survivor vert %d dead", to)
			}
		}
	}
	if merged != 2 {
		t.Errorf("merged verts = %d, want 2", merged)
	}
	if n := m.VertCount(); n != 6 {
		t.Errorf("vert count = %d, want 6", n)
	}
	if n := m.EdgeCount(); n != 7 {
		t.Errorf("edge count = %d, want 7 (seam edge deduplicated)", n)
	}
	if n := m.FaceCount(); n != 2 {
		t.Errorf("face count = %d, want 2", n)
	}
	for _, f := range []brep.FaceID{f1, f2} {
		if n := len(m.FaceVerts(f)); n != 4 {
			t.Errorf("face %d has %d verts after weld, want 4", f, n)
		}
	}
}

func TestRemoveDoublesCollapsesDegenerateFace(t *testing.T) {
	m := brep.NewMesh()
	f := m.MakePlane(brep.AxisY, 1, 1, v3.Vec{})

	m.RemoveDoubles(m.VertIDs(), 10)

	if m.FaceAlive(f) {
		t.Error("face should die when all its verts weld together")
	}
	if n := m.VertCount(); n != 1 {
		t.Errorf("vert count = %d, want 1", n)
	}
	if n := m.EdgeCount(); n != 0 {
		t.Errorf("edge count = %d, want 0", n)
	}
}

func TestRemoveDoublesIdentityLeavesMeshAlone(t *testing.T) {
	m := brep.NewMesh()
	m.MakePlane(brep.AxisY, 1, 1, v3.Vec{})

	remap := m.RemoveDoubles(m.VertIDs(), 1e-6)

	for from, to := range remap {
		if from != to {
			t.Errorf("unexpected merge %d -> %d", from, to)
		}
	}
	if n := m.VertCount(); n != 4 {
		t.Errorf("vert count = %d, want 4", n)
	}
}

func TestSelectionFlags(t *testing.T) {
	m := brep.NewMesh()
	f1 := m.MakePlane(brep.AxisY, 1, 1, v3.Vec{})
	f2 := m.MakePlane(brep.AxisY, 1, 1, v3.Vec{X: 2})

	m.SetFaceSelect(f2, true)

	sel := m.SelectedFaces()
	if len(sel) != 1 || sel[0] != f2 {
		t.Errorf("selected faces = %v, want [%d]", sel, f2)
	}
	if m.FaceSelect(f1) {
		t.Error("f1 should not be selected")
	}
	m.SetFaceSelect(f2, false)
	if n := len(m.SelectedFaces()); n != 0 {
		t.Errorf("selected faces after deselect = %d, want 0", n)
	}
}

func TestDeadIDPanics(t *testing.T) {
	m := brep.NewMesh()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on dead vertex id")
		}
	}()
	m.VertPos(brep.VertID(99))
}
