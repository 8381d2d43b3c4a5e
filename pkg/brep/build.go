package brep

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// AddVert appends a vertex and returns its id.
func (m *Mesh) AddVert(pos v3.Vec) VertID {
	id := VertID(len(m.verts))
	m.verts = append(m.verts, vert{pos: pos, alive: true})
	return id
}

// ensureEdge returns the edge joining a and b, creating it if needed.
func (m *Mesh) ensureEdge(a, b VertID) EdgeID {
	if a == b {
		panic(fmt.Sprintf("brep: degenerate edge %d-%d", a, b))
	}
	key := pairKey(a, b)
	if id, ok := m.edgeIndex[key]; ok && m.edges[id].alive {
		return id
	}
	id := EdgeID(len(m.edges))
	m.edges = append(m.edges, edge{v: [2]VertID{a, b}, alive: true})
	m.edgeIndex[key] = id
	m.linkEdge(a, id)
	m.linkEdge(b, id)
	return id
}

// lookupEdge returns the live edge joining a and b, if any.
func (m *Mesh) lookupEdge(a, b VertID) (EdgeID, bool) {
	id, ok := m.edgeIndex[pairKey(a, b)]
	if !ok || !m.edges[id].alive {
		return 0, false
	}
	return id, true
}

func (m *Mesh) linkEdge(v VertID, e EdgeID) {
	m.verts[v].edges = append(m.verts[v].edges, e)
}

func (m *Mesh) unlinkEdge(v VertID, e EdgeID) {
	links := m.verts[v].edges
	for i, id := range links {
		if id == e {
			m.verts[v].edges = append(links[:i], links[i+1:]...)
			return
		}
	}
}

// AddQuad creates a face from four distinct vertices given in loop order,
// creating or reusing the boundary edges. The loop's winding determines
// the face normal (right-hand rule).
func (m *Mesh) AddQuad(a, b, c, d VertID) FaceID {
	return m.addFace([]VertID{a, b, c, d})
}

func (m *Mesh) addFace(loop []VertID) FaceID {
	if len(loop) < 3 {
		panic(fmt.Sprintf("brep: face needs at least 3 verts, got %d", len(loop)))
	}
	seen := make(map[VertID]bool, len(loop))
	for _, v := range loop {
		m.vert(v)
		if seen[v] {
			panic(fmt.Sprintf("brep: repeated vertex %d in face loop", v))
		}
		seen[v] = true
	}
	verts := make([]VertID, len(loop))
	copy(verts, loop)
	edges := make([]EdgeID, len(loop))
	for i := range loop {
		edges[i] = m.ensureEdge(loop[i], loop[(i+1)%len(loop)])
	}
	id := FaceID(len(m.faces))
	m.faces = append(m.faces, face{verts: verts, edges: edges, alive: true})
	return id
}

// MakePlane creates one rectangular quad centered at `at`, with its
// outward normal along the positive `axis`. Width runs along X for Y- and
// Z-facing planes and along Y for X-facing planes; height runs along Z
// for X- and Y-facing planes and along Y for Z-facing planes. This
// matches FaceDimensions' axis conventions in pkg/carve.
func (m *Mesh) MakePlane(axis Axis, width, height float64, at v3.Vec) FaceID {
	w := width / 2
	h := height / 2
	var loop [4]v3.Vec
	switch axis {
	case AxisX:
		loop = [4]v3.Vec{
			{X: 0, Y: -w, Z: -h},
			{X: 0, Y: w, Z: -h},
			{X: 0, Y: w, Z: h},
			{X: 0, Y: -w, Z: h},
		}
	case AxisY:
		loop = [4]v3.Vec{
			{X: -w, Y: 0, Z: -h},
			{X: -w, Y: 0, Z: h},
			{X: w, Y: 0, Z: h},
			{X: w, Y: 0, Z: -h},
		}
	case AxisZ:
		loop = [4]v3.Vec{
			{X: -w, Y: -h, Z: 0},
			{X: w, Y: -h, Z: 0},
			{X: w, Y: h, Z: 0},
			{X: -w, Y: h, Z: 0},
		}
	default:
		panic(fmt.Sprintf("brep: invalid axis %d", int(axis)))
	}
	var ids [4]VertID
	for i, p := range loop {
		ids[i] = m.AddVert(p.Add(at))
	}
	return m.AddQuad(ids[0], ids[1], ids[2], ids[3])
}
