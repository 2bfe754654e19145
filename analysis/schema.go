package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	itemsKey                = "items"
)

// GenerateSchema reflects T into an inlined JSON Schema. Fields tagged omitempty
// are optional; every object is closed to unknown properties.
func GenerateSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	m, err := schemaToMap(schema)
	if err != nil {
		return nil, fmt.Errorf("reflect schema: %w", err)
	}
	closeObjects(m)
	return m, nil
}

// ReportSchema is the schema of the batch output file.
func ReportSchema() ([]byte, error) {
	m, err := GenerateSchema[BatchResult]()
	if err != nil {
		return nil, err
	}
	m["title"] = "transcript analysis report"
	return json.MarshalIndent(m, "", "  ")
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func closeObjects(schema map[string]any) {
	if t, ok := schema[typeKey].(string); ok && t == "object" {
		schema[additionalPropertiesKey] = false
	}
	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				closeObjects(propMap)
			}
		}
	}
	if items, ok := schema[itemsKey].(map[string]any); ok {
		closeObjects(items)
	}
}
