package scad

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/river-berlin/unibase/pkg/scene"
)

const blockSeparator = "\n\n"

// Serialize renders the scene as SCAD text. Blocks are separated by a blank
// line and an empty scene yields an empty string.
func Serialize(s scene.Scene) (string, error) {
	blocks := make([]string, 0, len(s))
	for _, obj := range s {
		block, err := Block(obj)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, blockSeparator), nil
}

// Block renders one object with its "// Object:" comment line.
func Block(obj scene.Object) (string, error) {
	expr, err := Expression(obj)
	if err != nil {
		return "", err
	}
	id := obj.Common().ObjectID
	if strings.ContainsAny(id, "\r\n") {
		return "", fmt.Errorf("object id %q spans several lines", id)
	}
	return "// Object: " + id + "\n" + expr, nil
}

// Expression renders the transform and primitive call of one object,
// terminated by a semicolon.
func Expression(obj scene.Object) (string, error) {
	call, err := primitive(obj)
	if err != nil {
		return "", err
	}
	b := obj.Common()
	return fmt.Sprintf("translate(%s) rotate(%s) %s;", vec3(b.Position), vec3(b.Rotation), call), nil
}

func primitive(obj scene.Object) (string, error) {
	switch o := obj.(type) {
	case *scene.Cuboid:
		d := o.Dimensions
		return fmt.Sprintf("cube([%s, %s, %s], center=true)", num(d.Width), num(d.Height), num(d.Depth)), nil
	case *scene.Sphere:
		return fmt.Sprintf("sphere(r=%s, $fn=64)", num(o.Radius)), nil
	case *scene.Cylinder:
		return fmt.Sprintf("cylinder(r=%s, h=%s, center=true, $fn=64)", num(o.Radius), num(o.Height)), nil
	case *scene.Polyhedron:
		return fmt.Sprintf("polyhedron(points = %s, faces = %s, convexity = %d)",
			points(o.Points), faces(o.Faces), o.EffectiveConvexity()), nil
	case nil:
		return "", &UnknownObjectTypeError{Kind: "<nil>"}
	default:
		return "", &UnknownObjectTypeError{Kind: obj.Kind()}
	}
}

func vec3(v scene.Vec3) string {
	return "[" + num(v.X) + ", " + num(v.Y) + ", " + num(v.Z) + "]"
}

func points(pts []scene.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = "[" + num(p[0]) + "," + num(p[1]) + "," + num(p[2]) + "]"
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func faces(fs [][]int) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		idx := make([]string, len(f))
		for j, v := range f {
			idx[j] = strconv.Itoa(v)
		}
		parts[i] = "[" + strings.Join(idx, ",") + "]"
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// num formats v in shortest plain decimal form: 2, 0.5, -1.25.
func num(v float64) string {
	if v == 0 {
		// Collapse -0.
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
