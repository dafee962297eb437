package ports

import "context"

// MeshRenderer converts SCAD text to an ASCII STL mesh.
type MeshRenderer interface {
	// Render returns the mesh for scad. Blank input yields an empty solid
	// without doing any work.
	Render(ctx context.Context, scad string) (string, error)
}
