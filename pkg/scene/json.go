package scene

import (
	"encoding/json"
	"fmt"
)

// UnknownKindError is returned when decoding an object with an unrecognized
// "type" tag.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown object kind: %q", e.Kind)
}

// MarshalObject encodes an object with its "type" tag.
func MarshalObject(obj Object) ([]byte, error) {
	switch o := obj.(type) {
	case *Cuboid:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Cuboid
		}{KindCuboid, o})
	case *Sphere:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Sphere
		}{KindSphere, o})
	case *Cylinder:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Cylinder
		}{KindCylinder, o})
	case *Polyhedron:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Polyhedron
		}{KindPolyhedron, o})
	case nil:
		return nil, &UnknownKindError{}
	default:
		return nil, &UnknownKindError{Kind: obj.Kind()}
	}
}

// UnmarshalObject decodes a tagged object.
func UnmarshalObject(data []byte) (Object, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read object type: %w", err)
	}

	var obj Object
	switch head.Type {
	case KindCuboid:
		obj = &Cuboid{}
	case KindSphere:
		obj = &Sphere{}
	case KindCylinder:
		obj = &Cylinder{}
	case KindPolyhedron:
		obj = &Polyhedron{}
	default:
		return nil, &UnknownKindError{Kind: head.Type}
	}

	if err := json.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", head.Type, err)
	}
	return obj, nil
}

// MarshalJSON encodes the scene as an array of tagged objects.
func (s Scene) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(s))
	for i, obj := range s {
		data, err := MarshalObject(obj)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		items = append(items, data)
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes an array of tagged objects.
func (s *Scene) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Scene, 0, len(items))
	for i, raw := range items {
		obj, err := UnmarshalObject(raw)
		if err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		out = append(out, obj)
	}
	*s = out
	return nil
}
