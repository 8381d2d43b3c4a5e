package carve

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/facade/pkg/brep"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrDegenerateFace reports a face whose shortest edge has zero length,
// which leaves no scale factor to square by.
var ErrDegenerateFace = errors.New("degenerate face with zero-length edge")

// SquareFace rescales a rectangular face about its center so its short
// sides stretch to match its long sides, and returns the factor applied.
// The stretch axis comes from the orientation of the shortest edge (for
// ties, the last one in loop order); a directionless shortest edge makes
// the whole operation a no-op that still reports the factor.
func SquareFace(m *brep.Mesh, f brep.FaceID) (float64, error) {
	edges := m.FaceEdges(f)
	minLen, maxLen := math.Inf(1), math.Inf(-1)
	for _, e := range edges {
		l := m.EdgeLength(e)
		minLen = math.Min(minLen, l)
		maxLen = math.Max(maxLen, l)
	}
	if minLen == 0 {
		return 0, fmt.Errorf("square face %d: %w", f, ErrDegenerateFace)
	}
	factor := maxLen / minLen

	var minEdge brep.EdgeID
	for _, e := range edges {
		if m.EdgeLength(e) == minLen {
			minEdge = e
		}
	}

	orient := EdgeOrient(m, minEdge)
	scale := v3.Vec{X: 1, Y: 1, Z: 1}
	switch {
	case orient.X != 0:
		scale.X = factor
	case orient.Y != 0:
		scale.Y = factor
	case orient.Z != 0:
		scale.Z = factor
	}

	center := m.FaceCenter(f)
	space := mgl64.Translate3D(-center.X, -center.Y, -center.Z)
	m.ScaleVerts(m.FaceVerts(f), scale, space)
	return factor, nil
}
