package domain

import "errors"

// ErrProjectNotFound is returned when a project ID cannot be found in the store.
var ErrProjectNotFound = errors.New("project not found")

// ErrObjectNotFound is returned by scene tools when no object has the requested ID.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidObjectID is returned for object IDs that are blank where one is
// required or that contain line breaks.
var ErrInvalidObjectID = errors.New("invalid object id")

// ErrUnknownTool is returned when a tool name is not registered.
var ErrUnknownTool = errors.New("Unknown tool")

var (
	ErrInstructionTooLarge = errors.New("instruction exceeds maximum allowed size")
	ErrInvalidUTF8         = errors.New("instruction contains invalid UTF-8 sequences")
	ErrEmptyInstruction    = errors.New("instruction is empty")
)
