package scad

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/river-berlin/unibase/pkg/scene"
)

const (
	number = `-?\d+\.?\d*`
	vector = `\[\s*(` + number + `)\s*,\s*(` + number + `)\s*,\s*(` + number + `)\s*\]`

	// translate and rotate contribute six capture groups.
	transform = `translate\(\s*` + vector + `\s*\)\s*rotate\(\s*` + vector + `\s*\)\s*`
	header    = `//\s*Object:[ \t]*([^\n]+?)[ \t]*\r?\n\s*`
)

// grammar describes how one primitive kind is matched and decoded.
type grammar struct {
	kind   scene.Kind
	call   string
	decode func(base scene.Base, groups []string) (scene.Object, error)

	block  *regexp.Regexp
	strict *regexp.Regexp
}

var (
	pointPattern = regexp.MustCompile(vector)
	facePattern  = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

var grammars = compile([]grammar{
	{
		kind:   scene.KindCuboid,
		call:   `cube\(\s*` + vector + `\s*(?:,\s*center\s*=\s*(?:true|false)\s*)?\)`,
		decode: decodeCuboid,
	},
	{
		kind:   scene.KindSphere,
		call:   `sphere\(\s*r\s*=\s*(` + number + `)\s*(?:,\s*\$fn\s*=\s*\d+\s*)?\)`,
		decode: decodeSphere,
	},
	{
		kind: scene.KindCylinder,
		call: `cylinder\(\s*r\s*=\s*(` + number + `)\s*,\s*h\s*=\s*(` + number + `)\s*` +
			`(?:,\s*center\s*=\s*(?:true|false)\s*)?(?:,\s*\$fn\s*=\s*\d+\s*)?\)`,
		decode: decodeCylinder,
	},
	{
		kind: scene.KindPolyhedron,
		call: `polyhedron\(\s*points\s*=\s*\[([^;]*?)\]\s*,\s*faces\s*=\s*\[([^;]*?)\]\s*` +
			`(?:,\s*convexity\s*=\s*(\d+)\s*)?\)`,
		decode: decodePolyhedron,
	},
})

func compile(gs []grammar) map[scene.Kind]*grammar {
	out := make(map[scene.Kind]*grammar, len(gs))
	for i := range gs {
		g := &gs[i]
		g.block = regexp.MustCompile(header + transform + g.call + `\s*;`)
		g.strict = regexp.MustCompile(`^\s*` + transform + g.call + `\s*;\s*$`)
		out[g.kind] = g
	}
	return out
}

// Meta carries the fields the strict parsers cannot read from the text.
type Meta struct {
	ObjectID string
}

// ParseAll extracts every recognizable object block from text. It runs one
// pass per kind (cuboids, then spheres, cylinders and polyhedra) and keeps
// text order within each pass. Unrecognized or malformed blocks are skipped.
func ParseAll(text string) scene.Scene {
	out := make(scene.Scene, 0)
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, kind := range scene.Kinds() {
		g := grammars[kind]
		for _, m := range g.block.FindAllStringSubmatch(text, -1) {
			obj, err := decode(g, m[1], m[2:])
			if err != nil {
				continue
			}
			out = append(out, obj)
		}
	}
	return out
}

// ParseOne parses a single expression of the given kind.
func ParseOne(kind scene.Kind, text string, meta Meta) (scene.Object, error) {
	g, ok := grammars[kind]
	if !ok {
		return nil, &UnknownObjectTypeError{Kind: kind}
	}
	m := g.strict.FindStringSubmatch(text)
	if m == nil {
		return nil, &ParseError{Kind: kind, Input: text}
	}
	obj, err := decode(g, meta.ObjectID, m[1:])
	if err != nil {
		return nil, &ParseError{Kind: kind, Input: text, Err: err}
	}
	return obj, nil
}

// ParseCuboid parses `translate(...) rotate(...) cube(...);`.
func ParseCuboid(text string, meta Meta) (*scene.Cuboid, error) {
	obj, err := ParseOne(scene.KindCuboid, text, meta)
	if err != nil {
		return nil, err
	}
	return obj.(*scene.Cuboid), nil
}

// ParseSphere parses `translate(...) rotate(...) sphere(...);`.
func ParseSphere(text string, meta Meta) (*scene.Sphere, error) {
	obj, err := ParseOne(scene.KindSphere, text, meta)
	if err != nil {
		return nil, err
	}
	return obj.(*scene.Sphere), nil
}

// ParseCylinder parses `translate(...) rotate(...) cylinder(...);`.
func ParseCylinder(text string, meta Meta) (*scene.Cylinder, error) {
	obj, err := ParseOne(scene.KindCylinder, text, meta)
	if err != nil {
		return nil, err
	}
	return obj.(*scene.Cylinder), nil
}

// ParsePolyhedron parses `translate(...) rotate(...) polyhedron(...);`.
func ParsePolyhedron(text string, meta Meta) (*scene.Polyhedron, error) {
	obj, err := ParseOne(scene.KindPolyhedron, text, meta)
	if err != nil {
		return nil, err
	}
	return obj.(*scene.Polyhedron), nil
}

// decode builds an object from the transform groups followed by the
// primitive's own groups.
func decode(g *grammar, objectID string, groups []string) (scene.Object, error) {
	pos, err := parseVec(groups[0:3])
	if err != nil {
		return nil, err
	}
	rot, err := parseVec(groups[3:6])
	if err != nil {
		return nil, err
	}
	base := scene.Base{ObjectID: strings.TrimSpace(objectID), Position: pos, Rotation: rot}
	return g.decode(base, groups[6:])
}

func decodeCuboid(base scene.Base, g []string) (scene.Object, error) {
	d, err := parseVec(g[0:3])
	if err != nil {
		return nil, err
	}
	return &scene.Cuboid{
		Base:       base,
		Dimensions: scene.Dimensions{Width: d.X, Height: d.Y, Depth: d.Z},
	}, nil
}

func decodeSphere(base scene.Base, g []string) (scene.Object, error) {
	r, err := parseNum(g[0])
	if err != nil {
		return nil, err
	}
	return &scene.Sphere{Base: base, Radius: r}, nil
}

func decodeCylinder(base scene.Base, g []string) (scene.Object, error) {
	r, err := parseNum(g[0])
	if err != nil {
		return nil, err
	}
	h, err := parseNum(g[1])
	if err != nil {
		return nil, err
	}
	return &scene.Cylinder{Base: base, Radius: r, Height: h}, nil
}

func decodePolyhedron(base scene.Base, g []string) (scene.Object, error) {
	var pts []scene.Point
	for _, m := range pointPattern.FindAllStringSubmatch(g[0], -1) {
		v, err := parseVec(m[1:4])
		if err != nil {
			return nil, err
		}
		pts = append(pts, scene.Point{v.X, v.Y, v.Z})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("polyhedron has no points")
	}

	var faces [][]int
	for _, m := range facePattern.FindAllStringSubmatch(g[1], -1) {
		face, err := parseFace(m[1])
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("polyhedron has no faces")
	}

	convexity := scene.DefaultConvexity
	if g[2] != "" {
		c, err := strconv.Atoi(g[2])
		if err != nil {
			return nil, fmt.Errorf("convexity %q: %w", g[2], err)
		}
		convexity = c
	}

	return &scene.Polyhedron{Base: base, Points: pts, Faces: faces, Convexity: convexity}, nil
}

func parseFace(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	face := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		idx, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("face index %q: %w", f, err)
		}
		face = append(face, idx)
	}
	return face, nil
}

func parseVec(g []string) (scene.Vec3, error) {
	var v [3]float64
	for i := range v {
		n, err := parseNum(g[i])
		if err != nil {
			return scene.Vec3{}, err
		}
		v[i] = n
	}
	return scene.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func parseNum(s string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSuffix(s, "."), 64)
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", s, err)
	}
	return n, nil
}
