/*
Package registry holds the scene-mutating tools offered to the language model
and dispatches the calls it requests.

Each tool is declared with a JSON schema (exposed verbatim to the model) and a
Handler. Arguments are validated against the schema before the handler runs.
Dispatch executes a batch of calls in order against one mutable scene, so
later calls observe earlier mutations, and records a domain.ToolOutcome per
call. A failing, unknown or panicking call never stops the rest of the batch.
*/
package registry
