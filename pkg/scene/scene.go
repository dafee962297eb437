package scene

// Scene is an ordered sequence of objects.
//
// Object IDs are expected to be unique. When duplicates exist the first
// match wins for every lookup.
type Scene []Object

// Index returns the position of the first object with the given ID, or -1.
func (s Scene) Index(objectID string) int {
	for i, obj := range s {
		if obj != nil && obj.Common().ObjectID == objectID {
			return i
		}
	}
	return -1
}

// Find returns the first object with the given ID.
func (s Scene) Find(objectID string) (Object, bool) {
	if i := s.Index(objectID); i >= 0 {
		return s[i], true
	}
	return nil, false
}

// Upsert overwrites the object with the same ID in place, or appends it.
// It reports whether an existing object was replaced.
func (s *Scene) Upsert(obj Object) bool {
	if i := s.Index(obj.Common().ObjectID); i >= 0 {
		(*s)[i] = obj
		return true
	}
	*s = append(*s, obj)
	return false
}

// Remove deletes the first object with the given ID and reports whether
// one was found.
func (s *Scene) Remove(objectID string) bool {
	i := s.Index(objectID)
	if i < 0 {
		return false
	}
	*s = append((*s)[:i], (*s)[i+1:]...)
	return true
}

// IDs returns the object IDs in scene order.
func (s Scene) IDs() []string {
	ids := make([]string, 0, len(s))
	for _, obj := range s {
		ids = append(ids, obj.Common().ObjectID)
	}
	return ids
}
