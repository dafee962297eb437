package registry

import (
	"strconv"

	"github.com/river-berlin/unibase/pkg/scene"
)

// IDPolicy assigns an object ID when a tool call does not provide one.
type IDPolicy func(current scene.Scene) string

// SequentialIDs names objects object_<N+1>, where N is the current scene size.
func SequentialIDs(current scene.Scene) string {
	return "object_" + strconv.Itoa(len(current)+1)
}
