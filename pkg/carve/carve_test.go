package carve_test

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/facade/pkg/brep"
	"github.com/chazu/facade/pkg/carve"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func vecNear(a, b v3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// edgeBetween finds the mesh edge joining two positions, for asserting
// on specific sides of a built face.
func edgeBetween(t *testing.T, m *brep.Mesh, a, b v3.Vec) brep.EdgeID {
	t.Helper()
	for _, e := range m.EdgeIDs() {
		vv := m.EdgeVerts(e)
		p0, p1 := m.VertPos(vv[0]), m.VertPos(vv[1])
		if (vecNear(p0, a, 1e-9) && vecNear(p1, b, 1e-9)) ||
			(vecNear(p0, b, 1e-9) && vecNear(p1, a, 1e-9)) {
			return e
		}
	}
	t.Fatalf("no edge between %+v and %+v", a, b)
	return 0
}

func TestFilterEdgesFlatFace(t *testing.T) {
	// Unit square in the XY plane, normal (0,0,1).
	m := brep.NewMesh()
	f := m.MakePlane(brep.AxisZ, 1, 1, v3.Vec{Z: 2})
	normal := m.FaceNormal(f)

	horizontal := carve.FilterHorizontalEdges(m, m.FaceEdges(f), normal)
	if len(horizontal) != 2 {
		t.Fatalf("horizontal edges = %d, want 2", len(horizontal))
	}
	for _, e := range horizontal {
		vv := m.EdgeVerts(e)
		if m.VertPos(vv[0]).Y != m.VertPos(vv[1]).Y {
			t.Errorf("horizontal edge %d does not share y", e)
		}
	}

	vertical := carve.FilterVerticalEdges(m, m.FaceEdges(f), normal)
	if len(vertical) != 2 {
		t.Fatalf("vertical edges = %d, want 2", len(vertical))
	}
	for _, e := range vertical {
		vv := m.EdgeVerts(e)
		if m.VertPos(vv[0]).X != m.VertPos(vv[1]).X {
			t.Errorf("vertical edge %d does not share x", e)
		}
	}
}

func TestFilterEdgesWalls(t *testing.T) {
	// A y-facing wall groups verticals by x, like a z-facing face does.
	m := brep.NewMesh()
	f := m.MakePlane(brep.AxisY, 2, 1, v3.Vec{})
	normal := m.FaceNormal(f)

	vertical := carve.FilterVerticalEdges(m, m.FaceEdges(f), normal)
	if len(vertical) != 2 {
		t.Fatalf("y-wall vertical edges = %d, want 2", len(vertical))
	}
	for _, e := range vertical {
		vv := m.EdgeVerts(e)
		if m.VertPos(vv[0]).X != m.VertPos(vv[1]).X {
			t.Errorf("y-wall vertical edge %d does not share x", e)
		}
	}
	horizontal := carve.FilterHorizontalEdges(m, m.FaceEdges(f), normal)
	for _, e := range horizontal {
		vv := m.EdgeVerts(e)
		if m.VertPos(vv[0]).Z != m.VertPos(vv[1]).Z {
			t.Errorf("y-wall horizontal edge %d does not share z", e)
		}
	}

	// An x-facing wall groups verticals by y.
	m2 := brep.NewMesh()
	f2 := m2.MakePlane(brep.AxisX, 2, 1, v3.Vec{})
	vertical2 := carve.FilterVerticalEdges(m2, m2.FaceEdges(f2), m2.FaceNormal(f2))
	if len(vertical2) != 2 {
		t.Fatalf("x-wall vertical edges = %d, want 2", len(vertical2))
	}
	for _, e := range vertical2 {
		vv := m2.EdgeVerts(e)
		if m2.VertPos(vv[0]).Y != m2.VertPos(vv[1]).Y {
			t.Errorf("x-wall vertical edge %d does not share y", e)
		}
	}
}

func TestEdgeOrient(t *testing.T) {
	m := brep.NewMesh()
	o := m.AddVert(v3.Vec{})
	up := m.AddVert(v3.Vec{Z: 2})
	alongX := m.AddVert(v3.Vec{X: 2})
	diag := m.AddVert(v3.Vec{X: 1, Y: 1, Z: 1})
	near := m.AddVert(v3.Vec{X: 0.04, Y: 0.04, Z: 2})
	far := m.AddVert(v3.Vec{X: 2, Z: 2})
	// Two quads fanning out of the origin, just to materialize edges.
	m.AddQuad(o, up, far, alongX)
	m.AddQuad(o, diag, far, near)

	cases := []struct {
		name string
		a, b v3.Vec
		want v3.Vec
	}{
		{"upright", v3.Vec{}, v3.Vec{Z: 2}, v3.Vec{Z: 1}},
		// An x-aligned edge is flat in y, which reads as upright too.
		{"along x", v3.Vec{}, v3.Vec{X: 2}, v3.Vec{Z: 1}},
		{"diagonal", v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1}, v3.Vec{}},
		// Sub-tolerance drift still collapses at 1 decimal.
		{"noisy upright", v3.Vec{}, v3.Vec{X: 0.04, Y: 0.04, Z: 2}, v3.Vec{Z: 1}},
	}
	for _, tc := range cases {
		e := edgeBetween(t, m, tc.a, tc.b)
		if got := carve.EdgeOrient(m, e); !vecNear(got, tc.want, 0) {
			t.Errorf("%s: orient = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestMedians(t *testing.T) {
	m := brep.NewMesh()
	a := m.AddVert(v3.Vec{X: 1, Y: 2, Z: 3})
	b := m.AddVert(v3.Vec{X: 3, Y: 0, Z: 1})
	c := m.AddVert(v3.Vec{X: 2, Y: 4, Z: 5})
	d := m.AddVert(v3.Vec{X: 0, Y: 0, Z: 0})
	m.AddQuad(a, b, c, d)

	e := edgeBetween(t, m, v3.Vec{X: 1, Y: 2, Z: 3}, v3.Vec{X: 3, Y: 0, Z: 1})
	if got := carve.EdgeMedian(m, e); !vecNear(got, v3.Vec{X: 2, Y: 1, Z: 2}, 1e-12) {
		t.Errorf("edge median = %+v", got)
	}

	got := carve.VertsMedian(m, []brep.VertID{a, b, c, d})
	want := v3.Vec{X: 1.5, Y: 1.5, Z: 2.25}
	if !vecNear(got, want, 1e-12) {
		t.Errorf("verts median = %+v, want %+v", got, want)
	}
}

func TestVertsMedianEmptyPanics(t *testing.T) {
	m := brep.NewMesh()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for empty vertex set")
		}
	}()
	carve.VertsMedian(m, nil)
}

func TestFaceDimensions(t *testing.T) {
	// X-facing wall spanning y in [0,2] and z in [0,3].
	m := brep.NewMesh()
	f := m.MakePlane(brep.AxisX, 2, 3, v3.Vec{Y: 1, Z: 1.5})
	w, h := carve.FaceDimensions(m, f)
	if w != 2 || h != 3 {
		t.Errorf("x-wall dims = (%v, %v), want (2, 3)", w, h)
	}

	// Y-facing wall measures width along x.
	m2 := brep.NewMesh()
	f2 := m2.MakePlane(brep.AxisY, 4, 2, v3.Vec{})
	w2, h2 := carve.FaceDimensions(m2, f2)
	if w2 != 4 || h2 != 2 {
		t.Errorf("y-wall dims = (%v, %v), want (4, 2)", w2, h2)
	}

	// Flat top face has no width.
	m3 := brep.NewMesh()
	f3 := m3.MakePlane(brep.AxisZ, 4, 2, v3.Vec{})
	w3, h3 := carve.FaceDimensions(m3, f3)
	if w3 != 0 || h3 != 0 {
		t.Errorf("flat face dims = (%v, %v), want (0, 0)", w3, h3)
	}
}

func TestFaceDimensionsDiagonalWall(t *testing.T) {
	// Wall whose normal has both x and y components: width is the
	// distance between the extreme-x verts.
	m := brep.NewMesh()
	a := m.AddVert(v3.Vec{})
	b := m.AddVert(v3.Vec{X: 1, Y: -1})
	c := m.AddVert(v3.Vec{X: 1, Y: -1, Z: 2})
	d := m.AddVert(v3.Vec{Z: 2})
	f := m.AddQuad(a, b, c, d)

	n := m.FaceNormal(f)
	if n.X == 0 || n.Y == 0 {
		t.Fatalf("expected diagonal normal, got %+v", n)
	}

	w, h := carve.FaceDimensions(m, f)
	if math.Abs(w-math.Sqrt2) > 1e-12 {
		t.Errorf("width = %v, want sqrt(2)", w)
	}
	if h != 2 {
		t.Errorf("height = %v, want 2", h)
	}
}

func TestSquareFaceStretchesShortSides(t *testing.T) {
	// 2 wide x 1 tall wall: factor 2, and every edge ends up length 2.
	m := brep.NewMesh()
	f := m.MakePlane(brep.AxisY, 2, 1, v3.Vec{X: 5, Z: 3})

	factor, err := carve.SquareFace(m, f)
	if err != nil {
		t.Fatalf("SquareFace: %v", err)
	}
	if factor != 2 {
		t.Errorf("factor = %v, want 2", factor)
	}
	for _, e := range m.FaceEdges(f) {
		if l := m.EdgeLength(e); math.Abs(l-2) > 1e-12 {
			t.Errorf("edge %d length = %v, want 2", e, l)
		}
	}
	// Squaring is about the face center, which must not move.
	if got := m.FaceCenter(f); !vecNear(got, v3.Vec{X: 5, Z: 3}, 1e-12) {
		t.Errorf("center moved to %+v", got)
	}
}

func TestSquareFaceAlreadySquare(t *testing.T) {
	m := brep.NewMesh()
	f := m.MakePlane(brep.AxisY, 1, 1, v3.Vec{})
	before := facePositions(m, f)

	factor, err := carve.SquareFace(m, f)
	if err != nil {
		t.Fatalf("SquareFace: %v", err)
	}
	if factor != 1 {
		t.Errorf("factor = %v, want 1", factor)
	}
	for i, p := range facePositions(m, f) {
		if !vecNear(p, before[i], 1e-12) {
			t.Errorf("vert %d moved from %+v to %+v", i, before[i], p)
		}
	}
}

func TestSquareFaceDiagonalShortEdgeIsNoOp(t *testing.T) {
	// Kite-shaped face whose short edges are diagonal: no axis to
	// stretch along, so the factor is reported but nothing moves.
	m := brep.NewMesh()
	a := m.AddVert(v3.Vec{})
	b := m.AddVert(v3.Vec{X: 0.6, Y: 0.8})
	c := m.AddVert(v3.Vec{X: 0.6, Y: 0.8, Z: 2})
	d := m.AddVert(v3.Vec{Z: 2})
	f := m.AddQuad(a, b, c, d)
	before := facePositions(m, f)

	factor, err := carve.SquareFace(m, f)
	if err != nil {
		t.Fatalf("SquareFace: %v", err)
	}
	if factor != 2 {
		t.Errorf("factor = %v, want 2", factor)
	}
	for i, p := range facePositions(m, f) {
		if !vecNear(p, before[i], 1e-12) {
			t.Errorf("vert %d moved from %+v to %+v", i, before[i], p)
		}
	}
}

func TestSquareFaceDegenerate(t *testing.T) {
	m := brep.NewMesh()
	a := m.AddVert(v3.Vec{})
	b := m.AddVert(v3.Vec{X: 1})
	c := m.AddVert(v3.Vec{X: 1, Z: 1})
	d := m.AddVert(v3.Vec{X: 1, Z: 1}) // coincides with c: zero-length edge
	f := m.AddQuad(a, b, c, d)

	_, err := carve.SquareFace(m, f)
	if !errors.Is(err, carve.ErrDegenerateFace) {
		t.Errorf("err = %v, want ErrDegenerateFace", err)
	}
}

func facePositions(m *brep.Mesh, f brep.FaceID) []v3.Vec {
	verts := m.FaceVerts(f)
	out := make([]v3.Vec, len(verts))
	for i, v := range verts {
		out[i] = m.VertPos(v)
	}
	return out
}
