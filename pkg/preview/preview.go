// Package preview turns a carved wall mesh into a renderable triangle
// mesh. Every face is thickened into a slab solid, the slabs are
// unioned and the result is polygonized with marching cubes.
package preview

import (
	"fmt"

	"github.com/chazu/facade/pkg/brep"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// defaultCells controls marching cubes tessellation resolution.
const defaultCells = 100

// defaultThickness is the slab depth used when the caller does not set
// one. It must stay comfortably above one marching cubes cell at the
// default resolution or thin walls tessellate with holes.
const defaultThickness = 0.2

// Options control solid generation and tessellation.
type Options struct {
	Thickness float64 // slab depth for each face
	Cells     int     // marching cubes resolution
}

// DefaultOptions returns the options Build falls back to for zero fields.
func DefaultOptions() Options {
	return Options{Thickness: defaultThickness, Cells: defaultCells}
}

// TriMesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type TriMesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *TriMesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *TriMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *TriMesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Build converts every live face of a mesh into a slab and polygonizes
// the union. An empty mesh produces an empty preview, not an error.
func Build(m *brep.Mesh, opts Options) (*TriMesh, error) {
	return BuildFaces(m, m.FaceIDs(), opts)
}

// BuildFaces is Build restricted to the given faces. Dead ids panic,
// the way every face accessor does.
func BuildFaces(m *brep.Mesh, faces []brep.FaceID, opts Options) (*TriMesh, error) {
	if opts.Thickness <= 0 {
		opts.Thickness = defaultThickness
	}
	if opts.Cells <= 0 {
		opts.Cells = defaultCells
	}

	var solid sdf.SDF3
	for _, f := range faces {
		slab, err := faceSlab(m, f, opts.Thickness)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", f, err)
		}
		if solid == nil {
			solid = slab
		} else {
			solid = sdf.Union3D(solid, slab)
		}
	}
	if solid == nil {
		return &TriMesh{}, nil
	}

	renderer := render.NewMarchingCubesUniform(opts.Cells)
	triangles := render.ToTriangles(solid, renderer)

	numVerts := len(triangles) * 3
	out := &TriMesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}
	for i, tri := range triangles {
		// Flat shading: every corner carries the face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			out.Vertices = append(out.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			out.Normals = append(out.Normals, nx, ny, nz)
			out.Indices = append(out.Indices, uint32(i*3+j))
		}
	}
	return out, nil
}

// faceSlab builds a box solid over the face's bounding box, inflated to
// the shell thickness on flat axes.
func faceSlab(m *brep.Mesh, f brep.FaceID, thickness float64) (sdf.SDF3, error) {
	verts := m.FaceVerts(f)
	lo := m.VertPos(verts[0])
	hi := lo
	for _, v := range verts[1:] {
		p := m.VertPos(v)
		lo = lo.Min(p)
		hi = hi.Max(p)
	}

	size := hi.Sub(lo)
	if size.X < thickness {
		size.X = thickness
	}
	if size.Y < thickness {
		size.Y = thickness
	}
	if size.Z < thickness {
		size.Z = thickness
	}

	box, err := sdf.Box3D(size, 0)
	if err != nil {
		return nil, fmt.Errorf("box: %w", err)
	}
	center := lo.Add(hi).MulScalar(0.5)
	return sdf.Transform3D(box, sdf.Translate3d(center)), nil
}
