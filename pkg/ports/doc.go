/*
Package ports defines the driven ports (interfaces) of the scene engine.

These interfaces decouple the orchestration core from external systems, so the
same agent loop runs against OpenAI or Gemini, renders meshes with a local
OpenSCAD binary or a fake, and persists projects in memory, Redis or SQL.

# Key Interfaces

  - ChatModel: One turn of a tool-calling chat completion.
  - MeshRenderer: Converts SCAD text into ASCII STL.
  - ProjectStore: Persists project snapshots (SCAD text, mesh, conversation).
  - DistributedLocker: Serializes runs on the same project across replicas.
  - EventPublisher: Notifies external subscribers of scene changes.
*/
package ports
