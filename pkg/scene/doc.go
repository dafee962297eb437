/*
Package scene defines the structured representation of a 3D scene.

A Scene is an ordered list of primitive shapes (cuboids, spheres, cylinders and
polyhedra). Every shape carries an object ID, a position and a rotation in
degrees. The set of shapes is closed: Object can only be implemented by the
types in this package, and Kinds lists every variant so consumers can check
they handle all of them.

Order is preserved for deterministic serialization but has no geometric
meaning.
*/
package scene
