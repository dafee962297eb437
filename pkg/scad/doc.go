/*
Package scad converts scenes to and from the small OpenSCAD subset the
modeling agent works with.

Every object is written as one block:

	// Object: <objectId>
	translate([x, y, z]) rotate([rx, ry, rz]) <primitive>;

Two parsers are provided and they intentionally behave differently:

  - ParseAll scans a whole document once per primitive kind and returns every
    block it recognizes. Text that does not match is skipped silently.
  - ParseCuboid, ParseSphere, ParseCylinder and ParsePolyhedron accept exactly
    one expression (without the comment line) and return a *ParseError when it
    does not match.

Numbers are plain decimals with an optional sign and fraction. Whitespace
around brackets and commas is ignored.
*/
package scad
