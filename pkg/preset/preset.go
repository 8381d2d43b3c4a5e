// Package preset loads named carving styles from YAML and applies them
// to wall faces.
package preset

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/chazu/facade/pkg/brep"
	"github.com/chazu/facade/pkg/carve"
	"gopkg.in/yaml.v3"
)

// Offset shifts a carved panel away from the face center.
type Offset struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Panel describes one split: the panel's share of the face span on each
// axis, plus an optional offset. A ratio of 1 or more leaves that axis
// uncut.
type Panel struct {
	Vertical   float64 `yaml:"vertical"`
	Horizontal float64 `yaml:"horizontal"`
	Offset     Offset  `yaml:"offset,omitempty"`
}

// Grid describes a strip subdivision applied over the face selection.
type Grid struct {
	Vertical bool `yaml:"vertical"`
	Cuts     int  `yaml:"cuts"`
}

// Style is a named set of panels plus an optional pane grid.
type Style struct {
	Name   string           `yaml:"name"`
	Panels map[string]Panel `yaml:"panels"`
	Grid   *Grid            `yaml:"grid,omitempty"`
}

// Load reads a style from a YAML file. An empty path yields the default
// style.
func Load(path string) (Style, error) {
	s := defaults()
	if strings.TrimSpace(path) == "" {
		s.Normalize()
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("style yaml: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("style yaml: %w", err)
	}
	return s, nil
}

func defaults() Style {
	return Style{
		Name: "plain",
		Panels: map[string]Panel{
			"window": {Vertical: 0.4, Horizontal: 0.4},
			"door":   {Vertical: 0.8, Horizontal: 0.3},
		},
	}
}

// Normalize fills benign gaps so a sparse YAML document still produces
// a usable style.
func (s *Style) Normalize() {
	if s == nil {
		return
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = "custom"
	}
	if s.Panels == nil {
		s.Panels = map[string]Panel{}
	}
}

// Validate reports the first problem with the style's numbers.
func (s Style) Validate() error {
	for name, p := range s.Panels {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("panel name must not be empty")
		}
		if !positiveFinite(p.Vertical) {
			return fmt.Errorf("panel %s: vertical ratio must be positive and finite", name)
		}
		if !positiveFinite(p.Horizontal) {
			return fmt.Errorf("panel %s: horizontal ratio must be positive and finite", name)
		}
		for _, v := range []float64{p.Offset.X, p.Offset.Y, p.Offset.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("panel %s: offset must be finite", name)
			}
		}
	}
	if s.Grid != nil && s.Grid.Cuts < 1 {
		return fmt.Errorf("grid cuts must be at least 1, got %d", s.Grid.Cuts)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Apply carves the named panel into a face and returns the inner face.
func (s Style) Apply(m *brep.Mesh, f brep.FaceID, panel string) (brep.FaceID, error) {
	p, ok := s.Panels[panel]
	if !ok {
		return 0, fmt.Errorf("style %s has no panel %q", s.Name, panel)
	}
	inner, err := carve.Split(m, f, p.Vertical, p.Horizontal, p.Offset.X, p.Offset.Y, p.Offset.Z)
	if err != nil {
		return 0, fmt.Errorf("panel %q: %w", panel, err)
	}
	return inner, nil
}

// ApplyGrid cuts the current face selection into panes. Styles without
// a grid leave the mesh alone.
func (s Style) ApplyGrid(m *brep.Mesh) brep.SubdivideResult {
	if s.Grid == nil {
		return brep.SubdivideResult{}
	}
	return carve.SplitQuad(m, s.Grid.Vertical, s.Grid.Cuts)
}
