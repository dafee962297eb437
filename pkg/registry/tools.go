package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/scene"
)

// Tool names understood by the model.
const (
	ToolAddCuboid     = "add_or_replace_cuboid"
	ToolAddSphere     = "add_or_replace_sphere"
	ToolAddCylinder   = "add_or_replace_cylinder"
	ToolAddPolyhedron = "add_or_replace_polyhedron"
	ToolPlaceObject   = "place_object"
	ToolRotateObject  = "specify_rotation"
	ToolRemoveObject  = "remove_object"
)

const (
	objectIDHelp = "Unique identifier of the object. Reusing an existing ID replaces that object. Omit to generate one."

	// objectIDPattern keeps IDs on one line so they survive the "// Object:"
	// header round trip.
	objectIDPattern = `^[^\r\n]*$`
)

// NewSceneRegistry returns a registry holding the scene tools.
func NewSceneRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	RegisterSceneTools(r)
	return r
}

// RegisterSceneTools adds the primitive and transform tools to r.
func RegisterSceneTools(r *Registry) {
	r.MustRegister(domain.Tool{
		Name:        ToolAddCuboid,
		Description: "Add a box centered at the origin, or replace the object with the same objectId.",
		Parameters: objectSchema([]string{"objectId", "width", "height", "depth"}, map[string]*domain.Schema{
			"objectId": idProp("Unique identifier of the object. Reusing an existing ID replaces that object."),
			"width":    prop("number", "Size along the X axis"),
			"height":   prop("number", "Size along the Y axis"),
			"depth":    prop("number", "Size along the Z axis"),
		}),
	}, Typed(addCuboid))

	r.MustRegister(domain.Tool{
		Name:        ToolAddSphere,
		Description: "Add a sphere centered at the origin, or replace the object with the same objectId.",
		Parameters: objectSchema([]string{"radius"}, map[string]*domain.Schema{
			"objectId": idProp(objectIDHelp),
			"radius":   prop("number", "Radius of the sphere"),
		}),
	}, Typed(addSphere))

	r.MustRegister(domain.Tool{
		Name:        ToolAddCylinder,
		Description: "Add a cylinder centered at the origin along the Z axis, or replace the object with the same objectId.",
		Parameters: objectSchema([]string{"radius", "height"}, map[string]*domain.Schema{
			"objectId": idProp(objectIDHelp),
			"radius":   prop("number", "Radius of the cylinder"),
			"height":   prop("number", "Height of the cylinder"),
		}),
	}, Typed(addCylinder))

	r.MustRegister(domain.Tool{
		Name:        ToolAddPolyhedron,
		Description: "Add a closed polyhedron from points and faces, or replace the object with the same objectId. Faces list point indices and may have any number of vertices.",
		Parameters: objectSchema([]string{"points", "faces"}, map[string]*domain.Schema{
			"objectId": idProp(objectIDHelp),
			"points": {
				Type:        "array",
				Description: "Vertices as [x, y, z] triples",
				Items:       &domain.Schema{Type: "array", Items: &domain.Schema{Type: "number"}},
			},
			"faces": {
				Type:        "array",
				Description: "Faces as lists of point indices, ordered clockwise when seen from outside",
				Items:       &domain.Schema{Type: "array", Items: &domain.Schema{Type: "integer"}},
			},
			"convexity": prop("integer", "Rendering hint, defaults to 10"),
		}),
	}, Typed(addPolyhedron))

	r.MustRegister(domain.Tool{
		Name:        ToolPlaceObject,
		Description: "Move an existing object so that its center is at the given coordinates.",
		Parameters: objectSchema([]string{"objectId", "x", "y", "z"}, map[string]*domain.Schema{
			"objectId": idProp("Identifier of the object to move"),
			"x":        prop("number", "X coordinate"),
			"y":        prop("number", "Y coordinate"),
			"z":        prop("number", "Z coordinate"),
		}),
	}, Typed(placeObject))

	r.MustRegister(domain.Tool{
		Name:        ToolRotateObject,
		Description: "Set the rotation of an existing object, in degrees around each axis.",
		Parameters: objectSchema([]string{"objectId", "x", "y", "z"}, map[string]*domain.Schema{
			"objectId": idProp("Identifier of the object to rotate"),
			"x":        prop("number", "Rotation around the X axis in degrees"),
			"y":        prop("number", "Rotation around the Y axis in degrees"),
			"z":        prop("number", "Rotation around the Z axis in degrees"),
		}),
	}, Typed(rotateObject))

	r.MustRegister(domain.Tool{
		Name:        ToolRemoveObject,
		Description: "Remove an object from the scene.",
		Parameters: objectSchema([]string{"objectId"}, map[string]*domain.Schema{
			"objectId": idProp("Identifier of the object to remove"),
		}),
	}, Typed(removeObject))
}

type cuboidArgs struct {
	ObjectID string  `mapstructure:"objectId"`
	Width    float64 `mapstructure:"width"`
	Height   float64 `mapstructure:"height"`
	Depth    float64 `mapstructure:"depth"`
}

type sphereArgs struct {
	ObjectID string  `mapstructure:"objectId"`
	Radius   float64 `mapstructure:"radius"`
}

type cylinderArgs struct {
	ObjectID string  `mapstructure:"objectId"`
	Radius   float64 `mapstructure:"radius"`
	Height   float64 `mapstructure:"height"`
}

type polyhedronArgs struct {
	ObjectID  string      `mapstructure:"objectId"`
	Points    [][]float64 `mapstructure:"points"`
	Faces     [][]int     `mapstructure:"faces"`
	Convexity int         `mapstructure:"convexity"`
}

type transformArgs struct {
	ObjectID string  `mapstructure:"objectId"`
	X        float64 `mapstructure:"x"`
	Y        float64 `mapstructure:"y"`
	Z        float64 `mapstructure:"z"`
}

type removeArgs struct {
	ObjectID string `mapstructure:"objectId"`
}

func addCuboid(_ context.Context, env *Env, a cuboidArgs) (any, error) {
	if strings.TrimSpace(a.ObjectID) == "" {
		return nil, fmt.Errorf("%w: objectId is required", domain.ErrInvalidObjectID)
	}
	id, err := env.ObjectID(a.ObjectID)
	if err != nil {
		return nil, err
	}
	obj := &scene.Cuboid{
		Base:       scene.Base{ObjectID: id},
		Dimensions: scene.Dimensions{Width: a.Width, Height: a.Height, Depth: a.Depth},
	}
	return upsert(env, obj), nil
}

func addSphere(_ context.Context, env *Env, a sphereArgs) (any, error) {
	id, err := env.ObjectID(a.ObjectID)
	if err != nil {
		return nil, err
	}
	obj := &scene.Sphere{
		Base:   scene.Base{ObjectID: id},
		Radius: a.Radius,
	}
	return upsert(env, obj), nil
}

func addCylinder(_ context.Context, env *Env, a cylinderArgs) (any, error) {
	id, err := env.ObjectID(a.ObjectID)
	if err != nil {
		return nil, err
	}
	obj := &scene.Cylinder{
		Base:   scene.Base{ObjectID: id},
		Radius: a.Radius,
		Height: a.Height,
	}
	return upsert(env, obj), nil
}

func addPolyhedron(_ context.Context, env *Env, a polyhedronArgs) (any, error) {
	points := make([]scene.Point, 0, len(a.Points))
	for i, p := range a.Points {
		if len(p) != 3 {
			return nil, fmt.Errorf("point %d has %d coordinates, want 3", i, len(p))
		}
		points = append(points, scene.Point{p[0], p[1], p[2]})
	}
	for i, face := range a.Faces {
		if len(face) < 3 {
			return nil, fmt.Errorf("face %d has %d vertices, want at least 3", i, len(face))
		}
		for _, idx := range face {
			if idx < 0 || idx >= len(points) {
				return nil, fmt.Errorf("face %d references point %d, have %d points", i, idx, len(points))
			}
		}
	}

	id, err := env.ObjectID(a.ObjectID)
	if err != nil {
		return nil, err
	}

	convexity := a.Convexity
	if convexity <= 0 {
		convexity = scene.DefaultConvexity
	}
	obj := &scene.Polyhedron{
		Base:      scene.Base{ObjectID: id},
		Points:    points,
		Faces:     a.Faces,
		Convexity: convexity,
	}
	return upsert(env, obj), nil
}

func placeObject(_ context.Context, env *Env, a transformArgs) (any, error) {
	obj, ok := env.Scene.Find(a.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, a.ObjectID)
	}
	obj.Common().Position = scene.Vec3{X: a.X, Y: a.Y, Z: a.Z}
	return fmt.Sprintf("Moved %s to [%g, %g, %g]", a.ObjectID, a.X, a.Y, a.Z), nil
}

func rotateObject(_ context.Context, env *Env, a transformArgs) (any, error) {
	obj, ok := env.Scene.Find(a.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, a.ObjectID)
	}
	obj.Common().Rotation = scene.Vec3{X: a.X, Y: a.Y, Z: a.Z}
	return fmt.Sprintf("Rotated %s to [%g, %g, %g]", a.ObjectID, a.X, a.Y, a.Z), nil
}

func removeObject(_ context.Context, env *Env, a removeArgs) (any, error) {
	if !env.Scene.Remove(a.ObjectID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, a.ObjectID)
	}
	return "Removed " + a.ObjectID, nil
}

func upsert(env *Env, obj scene.Object) string {
	id := obj.Common().ObjectID
	if env.Scene.Upsert(obj) {
		return fmt.Sprintf("Replaced %s with a %s", id, obj.Kind())
	}
	return fmt.Sprintf("Added %s %s", obj.Kind(), id)
}
