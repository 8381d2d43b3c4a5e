// Package facade is the embeddable core of a procedural building-front
// modeling tool. Lisp source is evaluated into a carved wall mesh,
// which is previewed as triangle meshes ready for a host UI to render.
package facade

import (
	"log"
	"sort"

	"github.com/chazu/facade/pkg/brep"
	"github.com/chazu/facade/pkg/engine"
	"github.com/chazu/facade/pkg/preview"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App ties the engine and the preview pipeline together. It is the
// surface a host shell binds against.
type App struct {
	engine  *engine.Engine
	preview preview.Options
}

// MeshData is the JSON-serializable mesh format sent to the host.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the host.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the host.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates a new App with an engine and default preview options.
func NewApp() *App {
	return &App{
		engine:  engine.NewEngine(),
		preview: preview.DefaultOptions(),
	}
}

// SetPreviewOptions overrides the slab and tessellation settings used
// for every later Evaluate call.
func (a *App) SetPreviewOptions(opts preview.Options) {
	a.preview = opts
}

// Evaluate takes Lisp source and returns mesh data + errors.
// This is the primary binding called by the host editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a carved wall model.
	res, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Line:    0,
			Col:     0,
			Message: err.Error(),
		})
		return result
	}

	// Step 2: Convert eval errors and warnings to the host format.
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line:    w.Line,
			Col:     w.Col,
			Message: w.Message,
		})
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 3: Preview each part of the model as a triangle mesh.
	for i, part := range modelParts(res.Model) {
		mesh, err := preview.BuildFaces(res.Model.Mesh, part.faces, a.preview)
		if err != nil {
			log.Printf("Preview error: %v", err)
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    0,
				Col:     0,
				Message: "preview failed: " + err.Error(),
			})
			return result
		}
		if mesh.IsEmpty() {
			continue
		}

		// Step 4: Convert to the host MeshData format.
		color := colorPalette[i%len(colorPalette)]
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: mesh.Vertices,
			Normals:  mesh.Normals,
			Indices:  mesh.Indices,
			PartName: part.name,
			Color:    color,
		})
	}

	return result
}

// meshPart is one renderable group of faces: a named panel, or the
// remainder of the model under the name "facade".
type meshPart struct {
	name  string
	faces []brep.FaceID
}

// modelParts groups a model's live faces into named panels plus the
// unnamed remainder. Names claim faces in alphabetical order so the
// grouping is deterministic even when two names point at one face.
func modelParts(model *engine.Model) []meshPart {
	names := make([]string, 0, len(model.Faces))
	for name := range model.Faces {
		names = append(names, name)
	}
	sort.Strings(names)

	claimed := make(map[brep.FaceID]bool)
	var named []meshPart
	for _, name := range names {
		f := model.Faces[name]
		if !model.Mesh.FaceAlive(f) || claimed[f] {
			continue
		}
		claimed[f] = true
		named = append(named, meshPart{name: name, faces: []brep.FaceID{f}})
	}

	var rest []brep.FaceID
	for _, f := range model.Mesh.FaceIDs() {
		if !claimed[f] {
			rest = append(rest, f)
		}
	}

	parts := make([]meshPart, 0, len(named)+1)
	if len(rest) > 0 {
		parts = append(parts, meshPart{name: "facade", faces: rest})
	}
	return append(parts, named...)
}
