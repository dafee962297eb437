package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/river-berlin/unibase/pkg/domain"
)

func compileSchema(s domain.Schema) (*openapi3.Schema, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters schema: %w", err)
	}
	var out openapi3.Schema
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to compile parameters schema: %w", err)
	}
	return &out, nil
}

func validate(schema *openapi3.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}
	err := schema.VisitJSON(args)
	if err == nil {
		return nil
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		if path := schemaErr.JSONPointer(); len(path) > 0 {
			return fmt.Errorf("invalid arguments: %s: %s", strings.Join(path, "."), schemaErr.Reason)
		}
		return fmt.Errorf("invalid arguments: %s", schemaErr.Reason)
	}
	return fmt.Errorf("invalid arguments: %w", err)
}

func objectSchema(required []string, props map[string]*domain.Schema) domain.Schema {
	closed := false
	return domain.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &closed,
	}
}

func prop(typ, description string) *domain.Schema {
	return &domain.Schema{Type: typ, Description: description}
}

func idProp(description string) *domain.Schema {
	return &domain.Schema{Type: "string", Description: description, Pattern: objectIDPattern}
}
