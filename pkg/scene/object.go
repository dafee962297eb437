package scene

// Kind is the discriminator of a scene object.
type Kind string

const (
	KindCuboid     Kind = "cuboid"
	KindSphere     Kind = "sphere"
	KindCylinder   Kind = "cylinder"
	KindPolyhedron Kind = "polyhedron"
)

// DefaultConvexity is used for polyhedra that do not set one.
const DefaultConvexity = 10

// Kinds returns every known object kind, in serialization order.
func Kinds() []Kind {
	return []Kind{KindCuboid, KindSphere, KindCylinder, KindPolyhedron}
}

// Vec3 is a point or an Euler rotation (degrees).
type Vec3 struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
	Z float64 `json:"z" yaml:"z" mapstructure:"z"`
}

// Base holds the fields shared by every object.
type Base struct {
	ObjectID string `json:"objectId"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
}

// Common returns the shared fields. Mutations through the pointer are
// visible to the owning object.
func (b *Base) Common() *Base { return b }

func (b *Base) sealed() {}

// Object is a shape in a scene.
type Object interface {
	Kind() Kind
	Common() *Base
	sealed()
}

// Dimensions of a cuboid along x (width), y (height) and z (depth).
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

type Cuboid struct {
	Base
	Dimensions Dimensions `json:"dimensions"`
}

type Sphere struct {
	Base
	Radius float64 `json:"radius"`
}

type Cylinder struct {
	Base
	Radius float64 `json:"radius"`
	Height float64 `json:"height"`
}

// Point is an x, y, z triple.
type Point [3]float64

// Polyhedron is an arbitrary closed mesh. Faces index into Points and may
// have any number of vertices.
type Polyhedron struct {
	Base
	Points    []Point `json:"points"`
	Faces     [][]int `json:"faces"`
	Convexity int     `json:"convexity"`
}

func (*Cuboid) Kind() Kind     { return KindCuboid }
func (*Sphere) Kind() Kind     { return KindSphere }
func (*Cylinder) Kind() Kind   { return KindCylinder }
func (*Polyhedron) Kind() Kind { return KindPolyhedron }

// EffectiveConvexity returns Convexity, or DefaultConvexity when unset.
func (p *Polyhedron) EffectiveConvexity() int {
	if p.Convexity <= 0 {
		return DefaultConvexity
	}
	return p.Convexity
}
