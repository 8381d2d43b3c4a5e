package brep

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// SubdivideResult describes the geometry created by SubdivideEdges,
// separated into typed fields so callers never filter mixed element lists.
// Inner geometry is the connecting edges cut across faces and the new
// vertices bounding them; outer geometry is the remaining new vertices
// and the new boundary segments. Faces lists every strip face produced by
// a grid cut, the reused id first.
type SubdivideResult struct {
	InnerVerts []VertID
	InnerEdges []EdgeID
	OuterVerts []VertID
	OuterEdges []EdgeID
	Faces      []FaceID
}

// edgeSplit records how one edge was cut: endpoints in stored order, the
// cut verts from a to b, and the cuts+1 segments from a to b (the first
// segment keeps the original edge id).
type edgeSplit struct {
	a, b  VertID
	verts []VertID
	segs  []EdgeID
}

// SubdivideEdges splits each listed edge into cuts+1 even segments and
// updates every face touching a split edge. A quad face whose split edges
// are exactly an opposite pair is cut into cuts+1 strip faces by
// connecting matching cut vertices (the first strip keeps the face id);
// any other affected face keeps its id and has the new vertices spliced
// into its loop. Duplicate ids in edges are ignored.
func (m *Mesh) SubdivideEdges(edges []EdgeID, cuts int) SubdivideResult {
	if cuts < 1 {
		panic(fmt.Sprintf("brep: subdivide cuts must be >= 1, got %d", cuts))
	}
	var res SubdivideResult
	splits := make(map[EdgeID]*edgeSplit, len(edges))
	order := make([]EdgeID, 0, len(edges))
	for _, eid := range edges {
		m.edge(eid)
		if _, ok := splits[eid]; ok {
			continue
		}
		splits[eid] = nil
		order = append(order, eid)
	}

	for _, eid := range order {
		e := m.edge(eid)
		a, b := e.v[0], e.v[1]
		pa := m.verts[a].pos
		step := m.verts[b].pos.Sub(pa).DivScalar(float64(cuts + 1))
		sp := &edgeSplit{a: a, b: b}
		for i := 1; i <= cuts; i++ {
			sp.verts = append(sp.verts, m.AddVert(pa.Add(step.MulScalar(float64(i)))))
		}
		// The first segment keeps the original id, now ending at the
		// first cut vert; the remaining segments are new edges.
		delete(m.edgeIndex, pairKey(a, b))
		m.unlinkEdge(b, eid)
		e.v = [2]VertID{a, sp.verts[0]}
		m.edgeIndex[pairKey(a, sp.verts[0])] = eid
		m.linkEdge(sp.verts[0], eid)
		sp.segs = append(sp.segs, eid)
		for i := 0; i < cuts; i++ {
			to := b
			if i+1 < cuts {
				to = sp.verts[i+1]
			}
			sp.segs = append(sp.segs, m.ensureEdge(sp.verts[i], to))
		}
		splits[eid] = sp
	}

	// Update faces. The range length is captured before the loop, so
	// strip faces appended by grid cuts are not revisited.
	for fi := range m.faces {
		if !m.faces[fi].alive {
			continue
		}
		var hit []int
		for i, eid := range m.faces[fi].edges {
			if sp := splits[eid]; sp != nil {
				hit = append(hit, i)
			}
		}
		if len(hit) == 0 {
			continue
		}
		if len(m.faces[fi].verts) == 4 && len(hit) == 2 && hit[1]-hit[0] == 2 {
			m.gridCutQuad(FaceID(fi), hit[0], splits, cuts, &res)
		} else {
			m.spliceFace(FaceID(fi), splits)
		}
	}

	innerSeen := make(map[VertID]bool, len(res.InnerVerts))
	for _, v := range res.InnerVerts {
		innerSeen[v] = true
	}
	for _, eid := range order {
		sp := splits[eid]
		for _, v := range sp.verts {
			if !innerSeen[v] {
				res.OuterVerts = append(res.OuterVerts, v)
			}
		}
		res.OuterEdges = append(res.OuterEdges, sp.segs[1:]...)
	}
	return res
}

// orientSplit returns the cut verts and segments of sp ordered so they
// run away from the loop vert `from`.
func orientSplit(sp *edgeSplit, from VertID) ([]VertID, []EdgeID) {
	if from == sp.a {
		return sp.verts, sp.segs
	}
	if from != sp.b {
		panic(fmt.Sprintf("brep: face loop does not meet split edge at vert %d", from))
	}
	verts := make([]VertID, len(sp.verts))
	for i, v := range sp.verts {
		verts[len(verts)-1-i] = v
	}
	segs := make([]EdgeID, len(sp.segs))
	for i, e := range sp.segs {
		segs[len(segs)-1-i] = e
	}
	return verts, segs
}

// gridCutQuad cuts a quad whose split edges sit at loop positions first
// and first+2 into cuts+1 strips. Connecting edges join the k-th cut vert
// of one side to the mirrored cut vert of the other, preserving winding.
func (m *Mesh) gridCutQuad(fid FaceID, first int, splits map[EdgeID]*edgeSplit, cuts int, res *SubdivideResult) {
	f := m.faces[fid]
	idx := func(k int) int { return (first + k) % 4 }
	c0, c1 := f.verts[idx(0)], f.verts[idx(1)]
	c2, c3 := f.verts[idx(2)], f.verts[idx(3)]
	e1, e3 := f.edges[idx(1)], f.edges[idx(3)]

	aVerts, aSegs := orientSplit(splits[f.edges[idx(0)]], c0)
	bVerts, bSegs := orientSplit(splits[f.edges[idx(2)]], c2)

	n := cuts
	conn := make([]EdgeID, n)
	for k := 0; k < n; k++ {
		conn[k] = m.ensureEdge(aVerts[k], bVerts[n-1-k])
		res.InnerEdges = append(res.InnerEdges, conn[k])
		for _, v := range [2]VertID{aVerts[k], bVerts[n-1-k]} {
			seen := false
			for _, iv := range res.InnerVerts {
				if iv == v {
					seen = true
					break
				}
			}
			if !seen {
				res.InnerVerts = append(res.InnerVerts, v)
			}
		}
	}

	// First strip reuses the face record.
	m.faces[fid].verts = []VertID{c0, aVerts[0], bVerts[n-1], c3}
	m.faces[fid].edges = []EdgeID{aSegs[0], conn[0], bSegs[n], e3}
	res.Faces = append(res.Faces, fid)

	for k := 1; k < n; k++ {
		id := FaceID(len(m.faces))
		m.faces = append(m.faces, face{
			verts: []VertID{aVerts[k-1], aVerts[k], bVerts[n-1-k], bVerts[n-k]},
			edges: []EdgeID{aSegs[k], conn[k], bSegs[n-k], conn[k-1]},
			alive: true,
		})
		res.Faces = append(res.Faces, id)
	}

	last := FaceID(len(m.faces))
	m.faces = append(m.faces, face{
		verts: []VertID{aVerts[n-1], c1, c2, bVerts[0]},
		edges: []EdgeID{aSegs[n], e1, bSegs[0], conn[n-1]},
		alive: true,
	})
	res.Faces = append(res.Faces, last)
}

// spliceFace inserts the cut verts of every split edge into the face's
// loop in traversal order. The face id survives.
func (m *Mesh) spliceFace(fid FaceID, splits map[EdgeID]*edgeSplit) {
	f := &m.faces[fid]
	verts := make([]VertID, 0, len(f.verts)+4)
	edges := make([]EdgeID, 0, len(f.edges)+4)
	for i, v := range f.verts {
		verts = append(verts, v)
		eid := f.edges[i]
		sp := splits[eid]
		if sp == nil {
			edges = append(edges, eid)
			continue
		}
		sv, se := orientSplit(sp, v)
		verts = append(verts, sv...)
		edges = append(edges, se...)
	}
	f.verts, f.edges = verts, edges
}

// ScaleVerts scales each listed vertex by the per-axis factors inside the
// given space: positions are transformed into the space, scaled, and
// transformed back. Passing a translation-to-origin space scales about
// that origin. Duplicate ids are scaled once.
func (m *Mesh) ScaleVerts(verts []VertID, factors v3.Vec, space mgl64.Mat4) {
	inv := space.Inv()
	seen := make(map[VertID]bool, len(verts))
	for _, id := range verts {
		if seen[id] {
			continue
		}
		seen[id] = true
		v := m.vert(id)
		p := mgl64.TransformCoordinate(mgl64.Vec3{v.pos.X, v.pos.Y, v.pos.Z}, space)
		p = mgl64.Vec3{p.X() * factors.X, p.Y() * factors.Y, p.Z() * factors.Z}
		q := mgl64.TransformCoordinate(p, inv)
		v.pos = v3.Vec{X: q.X(), Y: q.Y(), Z: q.Z()}
	}
}

// TranslateVerts moves each listed vertex by off. Duplicate ids move once.
func (m *Mesh) TranslateVerts(verts []VertID, off v3.Vec) {
	seen := make(map[VertID]bool, len(verts))
	for _, id := range verts {
		if seen[id] {
			continue
		}
		seen[id] = true
		v := m.vert(id)
		v.pos = v.pos.Add(off)
	}
}

// RemoveDoubles welds the listed vertices that lie within dist of each
// other. Each proximity cluster collapses onto its lowest id, edges and
// faces are remapped, collapsed edges and degenerate faces are dropped,
// and duplicate edges merge onto the surviving id. The returned map sends
// every listed id to its survivor (identity when nothing merged); callers
// holding ids across the weld must translate them through it.
func (m *Mesh) RemoveDoubles(verts []VertID, dist float64) map[VertID]VertID {
	cand := make([]VertID, 0, len(verts))
	inCand := make(map[VertID]bool, len(verts))
	for _, id := range verts {
		m.vert(id)
		if inCand[id] {
			continue
		}
		inCand[id] = true
		cand = append(cand, id)
	}

	parent := make(map[VertID]VertID, len(cand))
	for _, id := range cand {
		parent[id] = id
	}
	var find func(VertID) VertID
	find = func(x VertID) VertID {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b VertID) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	for i := 0; i < len(cand); i++ {
		pi := m.verts[cand[i]].pos
		for j := i + 1; j < len(cand); j++ {
			if pi.Sub(m.verts[cand[j]].pos).Length() <= dist {
				union(cand[i], cand[j])
			}
		}
	}

	remap := make(map[VertID]VertID, len(cand))
	changed := false
	for _, id := range cand {
		remap[id] = find(id)
		if remap[id] != id {
			changed = true
		}
	}
	if !changed {
		return remap
	}

	mapped := func(id VertID) VertID {
		if to, ok := remap[id]; ok {
			return to
		}
		return id
	}

	for ei := range m.edges {
		e := &m.edges[ei]
		if !e.alive {
			continue
		}
		a0, b0 := e.v[0], e.v[1]
		a, b := mapped(a0), mapped(b0)
		if a == a0 && b == b0 {
			continue
		}
		delete(m.edgeIndex, pairKey(a0, b0))
		if a == b {
			e.alive = false
			e.sel = false
			continue
		}
		if other, ok := m.edgeIndex[pairKey(a, b)]; ok && m.edges[other].alive && other != EdgeID(ei) {
			e.alive = false
			e.sel = false
			continue
		}
		e.v = [2]VertID{a, b}
		m.edgeIndex[pairKey(a, b)] = EdgeID(ei)
	}

	for fi := range m.faces {
		f := &m.faces[fi]
		if !f.alive {
			continue
		}
		loop := make([]VertID, 0, len(f.verts))
		loopChanged := false
		for _, v := range f.verts {
			nv := mapped(v)
			if nv != v {
				loopChanged = true
			}
			if len(loop) > 0 && loop[len(loop)-1] == nv {
				continue
			}
			loop = append(loop, nv)
		}
		for len(loop) > 1 && loop[0] == loop[len(loop)-1] {
			loop = loop[:len(loop)-1]
		}
		if !loopChanged {
			continue
		}
		if len(loop) < 3 || hasRepeat(loop) {
			f.alive = false
			f.sel = false
			continue
		}
		edges := make([]EdgeID, len(loop))
		for i := range loop {
			eid, ok := m.lookupEdge(loop[i], loop[(i+1)%len(loop)])
			if !ok {
				panic(fmt.Sprintf("brep: missing edge %d-%d after weld", loop[i], loop[(i+1)%len(loop)]))
			}
			edges[i] = eid
		}
		f.verts, f.edges = loop, edges
	}

	for _, id := range cand {
		if remap[id] != id {
			v := &m.verts[id]
			v.alive = false
			v.sel = false
			v.edges = nil
		}
	}
	m.rebuildLinks()
	return remap
}

// hasRepeat reports whether a loop visits any vertex twice.
func hasRepeat(loop []VertID) bool {
	seen := make(map[VertID]bool, len(loop))
	for _, v := range loop {
		if seen[v] {
			return true
		}
		seen[v] = true
	}
	return false
}

// rebuildLinks recomputes every vertex's link-edge list from the live
// edges.
func (m *Mesh) rebuildLinks() {
	for i := range m.verts {
		m.verts[i].edges = m.verts[i].edges[:0]
	}
	for ei := range m.edges {
		if !m.edges[ei].alive {
			continue
		}
		e := m.edges[ei]
		m.linkEdge(e.v[0], EdgeID(ei))
		m.linkEdge(e.v[1], EdgeID(ei))
	}
}
