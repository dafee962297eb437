/*
Package unibase turns natural-language instructions into 3D scenes.

A scene is an ordered list of primitives (cuboids, spheres, cylinders and
polyhedra) persisted as OpenSCAD text. Each instruction starts a bounded
conversation with a language model: the model calls scene tools, the tools
mutate the scene, and once the model stops calling tools (or the iteration cap
is hit) the scene is serialized and converted to an STL mesh by an external
renderer.

# Architecture

The Engine wires a ports.ChatModel, a ports.MeshRenderer and a
ports.ProjectStore together. Adapters live under pkg/adapters:

  - openai, gemini: chat models.
  - process: the OpenSCAD renderer.
  - memory, redis, sql: project stores (redis also provides a distributed lock).
  - mqtt: scene-updated events.
  - http, mcp: the outer surfaces.

# Usage

	model := openai.New(openai.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
	eng, err := unibase.New(model, unibase.WithRenderer(process.NewRenderer()))
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Prompt(ctx, "desk", unibase.PromptRequest{
		Instruction: "add a 2x1x0.1 table top resting on four thin legs",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.SCAD)

Run is the stateless variant: the caller supplies the current SCAD text and
receives the new one without anything being stored.
*/
package unibase
