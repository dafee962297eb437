package scad_test

import (
	"strings"
	"testing"

	"github.com/river-berlin/unibase/pkg/scad"
	"github.com/river-berlin/unibase/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invalidObject struct {
	scene.Base
}

func (*invalidObject) Kind() scene.Kind { return "invalid" }

func TestSerialize_Cuboid(t *testing.T) {
	s := scene.Scene{&scene.Cuboid{
		Base: scene.Base{
			ObjectID: "test-cube-123",
			Position: scene.Vec3{X: 1, Y: 2, Z: 3},
		},
		Dimensions: scene.Dimensions{Width: 2, Height: 3, Depth: 4},
	}}

	out, err := scad.Serialize(s)
	require.NoError(t, err)
	assert.Equal(t,
		"// Object: test-cube-123\ntranslate([1, 2, 3]) rotate([0, 0, 0]) cube([2, 3, 4], center=true);",
		out)
}

func TestSerialize_Primitives(t *testing.T) {
	tests := []struct {
		name string
		obj  scene.Object
		want string
	}{
		{
			name: "sphere",
			obj:  &scene.Sphere{Base: scene.Base{ObjectID: "ball", Position: scene.Vec3{X: -1.5}}, Radius: 2.25},
			want: "translate([-1.5, 0, 0]) rotate([0, 0, 0]) sphere(r=2.25, $fn=64);",
		},
		{
			name: "cylinder",
			obj: &scene.Cylinder{
				Base:   scene.Base{ObjectID: "pipe", Rotation: scene.Vec3{X: 90}},
				Radius: 1,
				Height: 10,
			},
			want: "translate([0, 0, 0]) rotate([90, 0, 0]) cylinder(r=1, h=10, center=true, $fn=64);",
		},
		{
			name: "polyhedron with default convexity",
			obj: &scene.Polyhedron{
				Base:   scene.Base{ObjectID: "tri"},
				Points: []scene.Point{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Faces:  [][]int{{0, 1, 2}},
			},
			want: "translate([0, 0, 0]) rotate([0, 0, 0]) polyhedron(points = [[0,0,0],[1,0,0],[0,1,0]], faces = [[0,1,2]], convexity = 10);",
		},
		{
			name: "negative zero prints as zero",
			obj:  &scene.Sphere{Base: scene.Base{ObjectID: "z", Position: scene.Vec3{X: negZero()}}, Radius: 1},
			want: "translate([0, 0, 0]) rotate([0, 0, 0]) sphere(r=1, $fn=64);",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scad.Expression(tt.obj)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSerialize_JoinsBlocksWithBlankLine(t *testing.T) {
	s := scene.Scene{
		&scene.Sphere{Base: scene.Base{ObjectID: "a"}, Radius: 1},
		&scene.Cylinder{Base: scene.Base{ObjectID: "b"}, Radius: 1, Height: 2},
	}

	out, err := scad.Serialize(s)
	require.NoError(t, err)
	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[0], "// Object: a\n"))
	assert.True(t, strings.HasPrefix(parts[1], "// Object: b\n"))
}

func TestSerialize_EmptyScene(t *testing.T) {
	out, err := scad.Serialize(nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestSerialize_UnknownObjectType(t *testing.T) {
	s := scene.Scene{
		&scene.Sphere{Base: scene.Base{ObjectID: "ok"}, Radius: 1},
		&invalidObject{Base: scene.Base{ObjectID: "bad"}},
	}

	out, err := scad.Serialize(s)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "Unknown object type: invalid")

	var typeErr *scad.UnknownObjectTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, scene.Kind("invalid"), typeErr.Kind)
}

func TestSerialize_RejectsMultilineObjectID(t *testing.T) {
	for _, id := range []string{"leg\n1", "leg\r"} {
		out, err := scad.Serialize(scene.Scene{
			&scene.Cuboid{Base: scene.Base{ObjectID: id}, Dimensions: scene.Dimensions{Width: 1, Height: 1, Depth: 1}},
		})
		require.Error(t, err, "id %q", id)
		assert.Empty(t, out)
		assert.Contains(t, err.Error(), "spans several lines")
	}
}

func TestSerialize_HandlesEveryKind(t *testing.T) {
	samples := map[scene.Kind]scene.Object{
		scene.KindCuboid:     &scene.Cuboid{},
		scene.KindSphere:     &scene.Sphere{},
		scene.KindCylinder:   &scene.Cylinder{},
		scene.KindPolyhedron: &scene.Polyhedron{Points: []scene.Point{{0, 0, 0}}, Faces: [][]int{{0}}},
	}
	for _, kind := range scene.Kinds() {
		_, err := scad.Expression(samples[kind])
		assert.NoError(t, err, "kind %s", kind)
	}
}

func negZero() float64 {
	z := 0.0
	return -z
}
