// Package runtime implements the agent loop that turns a natural-language
// instruction into scene mutations through a tool-calling language model.
package runtime
