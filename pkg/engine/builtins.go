package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/facade/pkg/brep"
	"github.com/chazu/facade/pkg/carve"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms facade Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: split-quad -> split_quad
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

var _ zygo.Sexp = (*sexpFaceRef)(nil)
var _ zygo.Sexp = (*sexpVec3)(nil)

// sexpFaceRef wraps a brep.FaceID so face handles can flow between builtins.
type sexpFaceRef struct {
	id   brep.FaceID
	name string // registered name for printing, when present
}

func (f *sexpFaceRef) SexpString(ps *zygo.PrintState) string {
	if f.name != "" {
		return fmt.Sprintf("(face %d %q)", f.id, f.name)
	}
	return fmt.Sprintf("(face %d)", f.id)
}
func (f *sexpFaceRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an int from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a bool from a SexpBool.
func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected bool, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toAxis converts a keyword or string to a brep.Axis.
func toAxis(s zygo.Sexp) (brep.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	switch name {
	case "x":
		return brep.AxisX, nil
	case "y":
		return brep.AxisY, nil
	case "z":
		return brep.AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

// toFaceRef extracts a FaceID from a sexpFaceRef.
func toFaceRef(s zygo.Sexp) (brep.FaceID, error) {
	if ref, ok := s.(*sexpFaceRef); ok {
		return ref.id, nil
	}
	return 0, fmt.Errorf("expected face reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the facade DSL builtins into a zygomys environment.
// The builtins mutate the model's mesh during evaluation; faces created with a
// name are recorded in the model so callers can find them afterwards.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, model *Model, warnings *[]EvalWarning) {
	m := model.Mesh

	// -----------------------------------------------------------------------
	// (wall "front" :width 4 :height 3 :facing :y :at (vec3 0 0 1.5))
	// -----------------------------------------------------------------------
	env.AddFunction("wall", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		wallName := ""
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall: name: %w", err)
			}
			wallName = s
		}

		width, height := 1.0, 1.0
		axis := brep.AxisY
		at := v3.Vec{}

		if v, ok := pa.kw["width"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall: width: %w", err)
			}
			width = f
		}
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall: height: %w", err)
			}
			height = f
		}
		if v, ok := pa.kw["facing"]; ok {
			a, err := toAxis(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall: facing: %w", err)
			}
			axis = a
		}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall: at: %w", err)
			}
			at = vec
		}

		if width <= 0 || height <= 0 {
			return zygo.SexpNull, fmt.Errorf("wall: size %gx%g is not positive", width, height)
		}

		f := m.MakePlane(axis, width, height, at)
		m.SetFaceSelect(f, true)
		if wallName != "" {
			model.Faces[wallName] = f
		}

		return &sexpFaceRef{id: f, name: wallName}, nil
	})

	// -----------------------------------------------------------------------
	// (split face :vertical 0.5 :horizontal 0.5 :offset (vec3 0 0 0) :name "window")
	//
	// Ratios default to 1, which leaves the corresponding axis uncut.
	// -----------------------------------------------------------------------
	env.AddFunction("split", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("split requires a face reference as first argument")
		}
		f, err := toFaceRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: face: %w", err)
		}

		sv, sh := 1.0, 1.0
		var off v3.Vec

		if v, ok := pa.kw["vertical"]; ok {
			sv, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("split: vertical: %w", err)
			}
		}
		if v, ok := pa.kw["horizontal"]; ok {
			sh, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("split: horizontal: %w", err)
			}
		}
		if v, ok := pa.kw["offset"]; ok {
			off, err = toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("split: offset: %w", err)
			}
		}

		inner, err := carve.Split(m, f, sv, sh, off.X, off.Y, off.Z)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: %w", err)
		}
		if inner == f {
			*warnings = append(*warnings, EvalWarning{
				Message: fmt.Sprintf("split left face %d uncut: both ratios are 1 or larger", f),
				Face:    f,
			})
		}

		resName := ""
		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("split: name: %w", err)
			}
			resName = s
			model.Faces[s] = inner
		}

		return &sexpFaceRef{id: inner, name: resName}, nil
	})

	// -----------------------------------------------------------------------
	// (square-face face)
	//
	// Note: registered as "square_face" because zygomys does not support
	// hyphens in identifiers. The preprocessor converts square-face to
	// square_face in the source.
	// -----------------------------------------------------------------------
	env.AddFunction("square_face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("square-face requires a face reference")
		}
		f, err := toFaceRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("square-face: face: %w", err)
		}

		factor, err := carve.SquareFace(m, f)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("square-face: %w", err)
		}

		return &zygo.SexpFloat{Val: factor}, nil
	})

	// -----------------------------------------------------------------------
	// (select face) / (select face false)
	// -----------------------------------------------------------------------
	env.AddFunction("select", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("select requires a face reference")
		}
		f, err := toFaceRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select: face: %w", err)
		}

		sel := true
		if len(args) > 1 {
			sel, err = toBool(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("select: flag: %w", err)
			}
		}

		m.SetFaceSelect(f, sel)
		return args[0], nil
	})

	// -----------------------------------------------------------------------
	// (split-quad :vertical true :cuts 2)
	//
	// Cuts every selected face into a strip grid and returns the new face
	// references. Registered as "split_quad"; see square-face above.
	// -----------------------------------------------------------------------
	env.AddFunction("split_quad", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		vertical := true
		cuts := 1

		if v, ok := pa.kw["vertical"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("split-quad: vertical: %w", err)
			}
			vertical = b
		}
		if v, ok := pa.kw["cuts"]; ok {
			n, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("split-quad: cuts: %w", err)
			}
			cuts = n
		}
		if cuts < 1 {
			return zygo.SexpNull, fmt.Errorf("split-quad: cuts must be at least 1, got %d", cuts)
		}

		res := carve.SplitQuad(m, vertical, cuts)
		refs := make([]zygo.Sexp, 0, len(res.Faces))
		for _, fid := range res.Faces {
			refs = append(refs, &sexpFaceRef{id: fid})
		}
		return &zygo.SexpArray{Val: refs}, nil
	})

	// -----------------------------------------------------------------------
	// (dims face) -> [width height]
	// -----------------------------------------------------------------------
	env.AddFunction("dims", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("dims requires a face reference")
		}
		f, err := toFaceRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dims: face: %w", err)
		}

		w, h := carve.FaceDimensions(m, f)
		return &zygo.SexpArray{Val: []zygo.Sexp{
			&zygo.SexpFloat{Val: w},
			&zygo.SexpFloat{Val: h},
		}}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})
}
