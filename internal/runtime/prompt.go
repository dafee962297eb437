package runtime

import (
	"fmt"
	"strings"

	"github.com/river-berlin/unibase/pkg/scene"
)

// DefaultSystemPrompt instructs the model how to use the scene tools.
const DefaultSystemPrompt = `You are a CAD modeling assistant. You edit a 3D scene made of primitive shapes by calling the tools you are given.

Rules:
- Units are millimeters. Angles are degrees. Z points up.
- New shapes are created centered at the origin; use place_object to move them and specify_rotation to orient them.
- Give every object a short, descriptive objectId (for example "table-top" or "leg-1") and reuse it to modify the object later.
- Prefer several simple primitives over a single complex polyhedron.
- When the scene satisfies the request, answer with a short summary of what you built and do not call any more tools.`

const emptySceneNotice = "The scene is currently empty."

func initialUserMessage(instruction string, rotation scene.Vec3, scadText string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "The viewer camera is rotated by x=%g, y=%g, z=%g degrees. Interpret directions such as left, right, front and back relative to this view.\n\n",
		rotation.X, rotation.Y, rotation.Z)
	if strings.TrimSpace(scadText) == "" {
		b.WriteString(emptySceneNotice)
	} else {
		b.WriteString("Current scene (OpenSCAD):\n")
		b.WriteString(scadText)
	}
	return b.String()
}

func followUpMessage(scadText string) string {
	var b strings.Builder
	if strings.TrimSpace(scadText) == "" {
		b.WriteString("The scene is now empty.")
	} else {
		b.WriteString("Updated scene (OpenSCAD):\n")
		b.WriteString(scadText)
	}
	b.WriteString("\n\nIf the scene now satisfies the request, reply with a short summary and stop calling tools. Otherwise continue with more tool calls.")
	return b.String()
}
