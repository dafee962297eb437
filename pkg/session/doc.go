/*
Package session serializes access to projects.

Two prompts against the same project must not interleave: each run reads the
stored SCAD, mutates it and writes it back. The Manager holds a per-project
in-process mutex and, when configured, a distributed lock so that replicas
sharing a store also take turns.
*/
package session
