/*
Package domain contains the types shared between the scene engine core and its
adapters.

It defines the chat transcript exchanged with a language model, the tool
surface offered to it, the per-call outcomes of a dispatch batch, persisted
project snapshots, lifecycle hooks and sentinel errors. The package is pure:
no I/O, no persistence, no transport.

# Key Entities

  - Message: One entry of the model transcript (system, user, assistant or tool).
  - ToolCall: A function call requested by the model, with raw JSON arguments.
  - Tool: Name, description and JSON schema of an operation offered to the model.
  - ToolOutcome: The result or error of one dispatched call.
  - Project: The durable artifact of a run (SCAD text, mesh, conversation).
*/
package domain
