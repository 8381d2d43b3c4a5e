// Package brep implements an editable boundary-representation polygon
// mesh: vertices, edges and faces stored in arenas keyed by integer ids,
// with the mutation primitives (edge subdivision, scaling about a space,
// translation, vertex welding) that the carving algorithms drive.
//
// Ids are stable only between mutations. SubdivideEdges and RemoveDoubles
// may reuse, re-point or kill ids; callers that hold ids across a mutation
// must re-derive identity from geometry (see pkg/carve.FaceWithVerts)
// rather than trust a retained handle. Using a dead id is a programming
// error and panics.
package brep

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// VertID identifies a vertex in the mesh arena.
type VertID int

// EdgeID identifies an edge in the mesh arena.
type EdgeID int

// FaceID identifies a face in the mesh arena.
type FaceID int

// Axis names a principal world axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the lowercase axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Vector returns the unit vector along the axis.
func (a Axis) Vector() v3.Vec {
	switch a {
	case AxisX:
		return v3.Vec{X: 1}
	case AxisY:
		return v3.Vec{Y: 1}
	case AxisZ:
		return v3.Vec{Z: 1}
	}
	return v3.Vec{}
}

type vert struct {
	pos   v3.Vec
	edges []EdgeID // link edges, unordered
	sel   bool
	alive bool
}

type edge struct {
	v     [2]VertID
	sel   bool
	alive bool
}

type face struct {
	verts []VertID // ordered loop
	edges []EdgeID // edges[i] joins verts[i] and verts[(i+1)%n]
	sel   bool
	alive bool
}

// Mesh owns the vertex/edge/face arenas. All geometry changes go through
// its mutation methods; entities are never mutated from outside.
// A Mesh is not safe for concurrent use.
type Mesh struct {
	verts []vert
	edges []edge
	faces []face

	// edgeIndex maps an ordered vertex pair to its edge for O(1) reuse.
	edgeIndex map[[2]VertID]EdgeID
}

// NewMesh returns an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{edgeIndex: make(map[[2]VertID]EdgeID)}
}

func pairKey(a, b VertID) [2]VertID {
	if b < a {
		a, b = b, a
	}
	return [2]VertID{a, b}
}

func (m *Mesh) vert(id VertID) *vert {
	if id < 0 || int(id) >= len(m.verts) || !m.verts[id].alive {
		panic(fmt.Sprintf("brep: dead vertex id %d", id))
	}
	return &m.verts[id]
}

func (m *Mesh) edge(id EdgeID) *edge {
	if id < 0 || int(id) >= len(m.edges) || !m.edges[id].alive {
		panic(fmt.Sprintf("brep: dead edge id %d", id))
	}
	return &m.edges[id]
}

func (m *Mesh) face(id FaceID) *face {
	if id < 0 || int(id) >= len(m.faces) || !m.faces[id].alive {
		panic(fmt.Sprintf("brep: dead face id %d", id))
	}
	return &m.faces[id]
}

// ---------------------------------------------------------------------------
// Counts and id iteration
// ---------------------------------------------------------------------------

// VertCount returns the number of live vertices.
func (m *Mesh) VertCount() int {
	n := 0
	for i := range m.verts {
		if m.verts[i].alive {
			n++
		}
	}
	return n
}

// EdgeCount returns the number of live edges.
func (m *Mesh) EdgeCount() int {
	n := 0
	for i := range m.edges {
		if m.edges[i].alive {
			n++
		}
	}
	return n
}

// FaceCount returns the number of live faces.
func (m *Mesh) FaceCount() int {
	n := 0
	for i := range m.faces {
		if m.faces[i].alive {
			n++
		}
	}
	return n
}

// VertIDs returns the live vertex ids in ascending order.
func (m *Mesh) VertIDs() []VertID {
	ids := make([]VertID, 0, len(m.verts))
	for i := range m.verts {
		if m.verts[i].alive {
			ids = append(ids, VertID(i))
		}
	}
	return ids
}

// EdgeIDs returns the live edge ids in ascending order.
func (m *Mesh) EdgeIDs() []EdgeID {
	ids := make([]EdgeID, 0, len(m.edges))
	for i := range m.edges {
		if m.edges[i].alive {
			ids = append(ids, EdgeID(i))
		}
	}
	return ids
}

// FaceIDs returns the live face ids in ascending order.
func (m *Mesh) FaceIDs() []FaceID {
	ids := make([]FaceID, 0, len(m.faces))
	for i := range m.faces {
		if m.faces[i].alive {
			ids = append(ids, FaceID(i))
		}
	}
	return ids
}

// VertAlive reports whether id names a live vertex.
func (m *Mesh) VertAlive(id VertID) bool {
	return id >= 0 && int(id) < len(m.verts) && m.verts[id].alive
}

// EdgeAlive reports whether id names a live edge.
func (m *Mesh) EdgeAlive(id EdgeID) bool {
	return id >= 0 && int(id) < len(m.edges) && m.edges[id].alive
}

// FaceAlive reports whether id names a live face.
func (m *Mesh) FaceAlive(id FaceID) bool {
	return id >= 0 && int(id) < len(m.faces) && m.faces[id].alive
}

// ---------------------------------------------------------------------------
// Vertex accessors
// ---------------------------------------------------------------------------

// VertPos returns the vertex position.
func (m *Mesh) VertPos(id VertID) v3.Vec {
	return m.vert(id).pos
}

// SetVertPos moves a vertex.
func (m *Mesh) SetVertPos(id VertID, pos v3.Vec) {
	m.vert(id).pos = pos
}

// VertEdges returns the edges linked to a vertex.
func (m *Mesh) VertEdges(id VertID) []EdgeID {
	v := m.vert(id)
	out := make([]EdgeID, len(v.edges))
	copy(out, v.edges)
	return out
}

// ---------------------------------------------------------------------------
// Edge accessors
// ---------------------------------------------------------------------------

// EdgeVerts returns the edge's two vertices. The pair is unordered;
// callers must not read meaning into the slot positions.
func (m *Mesh) EdgeVerts(id EdgeID) [2]VertID {
	return m.edge(id).v
}

// EdgeLength returns the distance between the edge's vertices.
func (m *Mesh) EdgeLength(id EdgeID) float64 {
	e := m.edge(id)
	return m.vert(e.v[1]).pos.Sub(m.vert(e.v[0]).pos).Length()
}

// ---------------------------------------------------------------------------
// Face accessors
// ---------------------------------------------------------------------------

// FaceVerts returns the face's vertex loop in order.
func (m *Mesh) FaceVerts(id FaceID) []VertID {
	f := m.face(id)
	out := make([]VertID, len(f.verts))
	copy(out, f.verts)
	return out
}

// FaceEdges returns the face's edge loop; edge i joins loop verts i and i+1.
func (m *Mesh) FaceEdges(id FaceID) []EdgeID {
	f := m.face(id)
	out := make([]EdgeID, len(f.edges))
	copy(out, f.edges)
	return out
}

// FaceNormal returns the face's unit normal computed by Newell's method,
// or the zero vector for a degenerate face.
func (m *Mesh) FaceNormal(id FaceID) v3.Vec {
	f := m.face(id)
	var n v3.Vec
	for i, vid := range f.verts {
		p := m.vert(vid).pos
		q := m.vert(f.verts[(i+1)%len(f.verts)]).pos
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	if n.Length() == 0 {
		return v3.Vec{}
	}
	return n.Normalize()
}

// FaceCenter returns the mean of the face's vertex positions.
func (m *Mesh) FaceCenter(id FaceID) v3.Vec {
	f := m.face(id)
	var sum v3.Vec
	for _, vid := range f.verts {
		sum = sum.Add(m.vert(vid).pos)
	}
	return sum.DivScalar(float64(len(f.verts)))
}

// ---------------------------------------------------------------------------
// Selection flags
// ---------------------------------------------------------------------------

// VertSelect reports the vertex selection flag.
func (m *Mesh) VertSelect(id VertID) bool { return m.vert(id).sel }

// SetVertSelect sets the vertex selection flag.
func (m *Mesh) SetVertSelect(id VertID, sel bool) { m.vert(id).sel = sel }

// EdgeSelect reports the edge selection flag.
func (m *Mesh) EdgeSelect(id EdgeID) bool { return m.edge(id).sel }

// SetEdgeSelect sets the edge selection flag.
func (m *Mesh) SetEdgeSelect(id EdgeID, sel bool) { m.edge(id).sel = sel }

// FaceSelect reports the face selection flag.
func (m *Mesh) FaceSelect(id FaceID) bool { return m.face(id).sel }

// SetFaceSelect sets the face selection flag.
func (m *Mesh) SetFaceSelect(id FaceID, sel bool) { m.face(id).sel = sel }

// SelectedFaces returns the ids of all selected live faces in ascending
// order. The slice is a snapshot; later selection changes do not affect it.
func (m *Mesh) SelectedFaces() []FaceID {
	var ids []FaceID
	for i := range m.faces {
		if m.faces[i].alive && m.faces[i].sel {
			ids = append(ids, FaceID(i))
		}
	}
	return ids
}
