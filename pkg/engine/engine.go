// Package engine provides the Lisp evaluation engine for facade.
// It wraps zygomys in a sandboxed environment and carves a Model
// from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/facade/pkg/brep"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation,
// such as a split whose ratios leave the face uncut.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	Face    brep.FaceID
}

// Model is the product of one evaluation: the carved mesh plus the
// faces user code registered by name.
type Model struct {
	Mesh  *brep.Mesh
	Faces map[string]brep.FaceID
}

// NewModel creates an empty Model around a fresh mesh.
func NewModel() *Model {
	return &Model{
		Mesh:  brep.NewMesh(),
		Faces: make(map[string]brep.FaceID),
	}
}

// EvalResult bundles the full output of an evaluation for use by callers.
type EvalResult struct {
	Model    *Model
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter for facade evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate takes Lisp source code and produces a carved Model.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: result with Model set, nil error
//   - On parse/eval failure: result with nil Model and Errors set, nil error
//   - On fatal failure (timeout, panic): zero result + error
func (e *Engine) Evaluate(source string) (EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		res, err := e.evaluate(source)
		ch <- evalResult{res: res, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (EvalResult, error) {
	// Empty source is a valid program that produces an empty model.
	if strings.TrimSpace(source) == "" {
		return EvalResult{Model: NewModel()}, nil
	}

	// Create a fresh sandboxed zygomys environment.
	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	model := NewModel()
	var warnings []EvalWarning
	registerBuiltins(env, model, &warnings)

	// Load and compile the preprocessed source string into bytecode.
	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return EvalResult{Errors: parseZygomysError(err)}, nil
	}

	// Execute the compiled bytecode. The builtins mutate the model as
	// they run; geometric failures surface here as eval errors.
	_, err = env.Run()
	if err != nil {
		return EvalResult{Errors: parseZygomysError(err)}, nil
	}

	return EvalResult{Model: model, Warnings: warnings}, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// Try to extract line numbers from the error message.
	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	// Fallback: no line info available.
	return []EvalError{{
		Line:    0,
		Col:     0,
		Message: strings.TrimSpace(msg),
	}}
}
