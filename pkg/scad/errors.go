package scad

import (
	"errors"
	"fmt"

	"github.com/river-berlin/unibase/pkg/scene"
)

// ErrInvalidSCAD matches every *ParseError.
var ErrInvalidSCAD = errors.New("invalid SCAD code")

// ParseError is returned by the strict parsers when the input does not match
// the expected primitive grammar.
type ParseError struct {
	Kind  scene.Kind
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Invalid %s SCAD code: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("Invalid %s SCAD code", e.Kind)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrInvalidSCAD }

// UnknownObjectTypeError is returned when asked to handle an object kind that
// is not one of the known primitives.
type UnknownObjectTypeError struct {
	Kind scene.Kind
}

func (e *UnknownObjectTypeError) Error() string {
	return fmt.Sprintf("Unknown object type: %s", e.Kind)
}
