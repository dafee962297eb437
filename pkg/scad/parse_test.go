package scad_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/river-berlin/unibase/pkg/scad"
	"github.com/river-berlin/unibase/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleObjects() []scene.Object {
	return []scene.Object{
		&scene.Cuboid{
			Base: scene.Base{
				ObjectID: "box-1",
				Position: scene.Vec3{X: 1, Y: -2.5, Z: 3},
				Rotation: scene.Vec3{X: 0, Y: 45, Z: -90},
			},
			Dimensions: scene.Dimensions{Width: 2, Height: 3.75, Depth: 4},
		},
		&scene.Sphere{
			Base:   scene.Base{ObjectID: "ball", Position: scene.Vec3{Z: 10}},
			Radius: 0.5,
		},
		&scene.Cylinder{
			Base:   scene.Base{ObjectID: "pipe", Rotation: scene.Vec3{X: 90}},
			Radius: 1.25,
			Height: 12,
		},
		&scene.Polyhedron{
			Base:      scene.Base{ObjectID: "pyramid", Position: scene.Vec3{X: -4}},
			Points:    []scene.Point{{0, 0, 0}, {2, 0, 0}, {2, 2, 0}, {0, 2, 0}, {1, 1, 1.5}},
			Faces:     [][]int{{0, 1, 2, 3}, {0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}},
			Convexity: 4,
		},
	}
}

func TestParseOne_RoundTrip(t *testing.T) {
	for _, obj := range sampleObjects() {
		t.Run(string(obj.Kind()), func(t *testing.T) {
			expr, err := scad.Expression(obj)
			require.NoError(t, err)

			parsed, err := scad.ParseOne(obj.Kind(), expr, scad.Meta{ObjectID: obj.Common().ObjectID})
			require.NoError(t, err)
			if diff := cmp.Diff(obj, parsed); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAll_RoundTrip(t *testing.T) {
	objs := sampleObjects()
	text, err := scad.Serialize(scene.Scene(objs))
	require.NoError(t, err)

	parsed := scad.ParseAll(text)
	if diff := cmp.Diff(scene.Scene(objs), parsed); diff != "" {
		t.Errorf("aggregate round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAll_Empty(t *testing.T) {
	assert.Empty(t, scad.ParseAll(""))
	assert.Empty(t, scad.ParseAll("   \n\t"))
	assert.NotNil(t, scad.ParseAll(""), "empty result is an empty scene, not nil")
}

func TestParseAll_ManyCuboidsKeepOrder(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "// Object: word1-word2-word%d\ntranslate([%d, 0, 0]) rotate([0, 0, 0]) cube([1, 1, 1], center=true);\n\n", i, i*2)
	}

	result := scad.ParseAll(b.String())
	require.Len(t, result, 1000)
	assert.Equal(t, 1000.0, result[500].Common().Position.X)
	assert.Equal(t, "word1-word2-word500", result[500].Common().ObjectID)
}

func TestParseAll_GroupsByKind(t *testing.T) {
	text := strings.Join([]string{
		"// Object: s1\ntranslate([0, 0, 0]) rotate([0, 0, 0]) sphere(r=1, $fn=64);",
		"// Object: c1\ntranslate([0, 0, 0]) rotate([0, 0, 0]) cube([1, 1, 1], center=true);",
		"// Object: s2\ntranslate([0, 0, 0]) rotate([0, 0, 0]) sphere(r=2, $fn=64);",
		"// Object: y1\ntranslate([0, 0, 0]) rotate([0, 0, 0]) cylinder(r=1, h=2, center=true, $fn=64);",
	}, "\n\n")

	assert.Equal(t, []string{"c1", "s1", "s2", "y1"}, scad.ParseAll(text).IDs())
}

func TestParse_WhitespaceTolerance(t *testing.T) {
	compact := "translate([0,0,0]) rotate([0,0,0]) cube([1,2,3],center=true);"
	spaced := "translate( [ 0 , 0 , 0 ] )  rotate([0, 0, 0])\ncube([ 1, 2, 3 ], center = true) ;"

	a, err := scad.ParseCuboid(compact, scad.Meta{ObjectID: "x"})
	require.NoError(t, err)
	b, err := scad.ParseCuboid(spaced, scad.Meta{ObjectID: "x"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	blockA := scad.ParseAll("// Object: x\n" + compact)
	blockB := scad.ParseAll("// Object: x\n" + spaced)
	require.Len(t, blockA, 1)
	assert.Equal(t, blockA, blockB)
}

func TestParse_Numbers(t *testing.T) {
	s, err := scad.ParseSphere("translate([-1, 2., -0.25]) rotate([0, 0, 0]) sphere(r=3.5);", scad.Meta{ObjectID: "n"})
	require.NoError(t, err)
	assert.Equal(t, scene.Vec3{X: -1, Y: 2, Z: -0.25}, s.Position)
	assert.Equal(t, 3.5, s.Radius)
}

func TestParsePolyhedron_MultilineAndArbitraryFaces(t *testing.T) {
	text := `translate([0, 0, 0]) rotate([0, 0, 0]) polyhedron(
  points = [
    [0, 0, 0],
    [1, 0, 0],
    [1, 1, 0],
    [0, 1, 0],
    [0.5, 0.5, 1]
  ],
  faces = [
    [0, 1, 2, 3],
    [0, 1, 4],
    [1, 2, 4],
    [2, 3, 4],
    [3, 0, 4]
  ]
);`

	p, err := scad.ParsePolyhedron(text, scad.Meta{ObjectID: "pyr"})
	require.NoError(t, err)
	assert.Len(t, p.Points, 5)
	assert.Equal(t, scene.Point{0.5, 0.5, 1}, p.Points[4])
	assert.Equal(t, []int{0, 1, 2, 3}, p.Faces[0])
	assert.Equal(t, scene.DefaultConvexity, p.Convexity, "convexity defaults when absent")
}

func TestParse_StrictVersusTolerant(t *testing.T) {
	malformed := []struct {
		kind scene.Kind
		text string
	}{
		{scene.KindCuboid, "translate([0, 0, 0]) rotate([0, 0, 0]) cube([1, 1], center=true);"},
		{scene.KindSphere, "translate([0, 0]) rotate([0, 0, 0]) sphere(r=1, $fn=64);"},
		{scene.KindCylinder, "translate([0, 0, 0]) rotate([0, 0, 0]) cylinder(h=2, r=1);"},
		{scene.KindPolyhedron, "translate([0, 0, 0]) rotate([0, 0, 0]) polyhedron(points = [], faces = []);"},
	}

	for _, tt := range malformed {
		t.Run(string(tt.kind), func(t *testing.T) {
			_, err := scad.ParseOne(tt.kind, tt.text, scad.Meta{ObjectID: "bad"})
			require.Error(t, err)
			assert.ErrorIs(t, err, scad.ErrInvalidSCAD)
			assert.Contains(t, err.Error(), fmt.Sprintf("Invalid %s SCAD code", tt.kind))

			assert.Empty(t, scad.ParseAll(tt.text))
			assert.Empty(t, scad.ParseAll("// Object: bad\n"+tt.text))
		})
	}
}

func TestParseOne_RejectsCommentLineAndTrailingText(t *testing.T) {
	expr := "translate([0, 0, 0]) rotate([0, 0, 0]) sphere(r=1, $fn=64);"

	_, err := scad.ParseSphere("// Object: a\n"+expr, scad.Meta{ObjectID: "a"})
	assert.Error(t, err)

	_, err = scad.ParseSphere(expr+" cube([1,1,1]);", scad.Meta{ObjectID: "a"})
	assert.Error(t, err)

	_, err = scad.ParseCuboid(expr, scad.Meta{ObjectID: "a"})
	assert.Error(t, err, "a sphere is not a cuboid")
}

func TestParseOne_UnknownKind(t *testing.T) {
	_, err := scad.ParseOne("torus", "translate([0,0,0]) rotate([0,0,0]) torus();", scad.Meta{})
	var typeErr *scad.UnknownObjectTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestParseAll_IgnoresNoise(t *testing.T) {
	text := `$fn = 32;
// a hand-written comment
union() { cube(1); }

// Object: keep
translate([1, 1, 1]) rotate([0, 0, 0]) cube([1, 1, 1], center=true);

// Object: broken
translate([1, 1]) rotate([0, 0, 0]) cube([1, 1, 1], center=true);`

	result := scad.ParseAll(text)
	require.Len(t, result, 1)
	assert.Equal(t, "keep", result[0].Common().ObjectID)
}
