package patch

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// PlanSchema is the JSON schema accepted by ParseJSON: an array of search/replace objects.
const PlanSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "search": {"type": "string"},
      "replace": {"type": "string"}
    },
    "required": ["search", "replace"],
    "additionalProperties": false
  }
}`

var (
	planSchemaLoader     *gojsonschema.Schema
	planSchemaLoaderErr  error
	planSchemaLoaderOnce sync.Once
)

func loadPlanSchema() (*gojsonschema.Schema, error) {
	planSchemaLoaderOnce.Do(func() {
		planSchemaLoader, planSchemaLoaderErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(PlanSchema))
	})
	return planSchemaLoader, planSchemaLoaderErr
}

// ParseJSON decodes a plan expressed as a JSON array of {"search", "replace"} objects.
// Documents that do not satisfy PlanSchema yield a *SchemaError listing every violation.
func ParseJSON(data []byte) (Plan, error) {
	schema, err := loadPlanSchema()
	if err != nil {
		return nil, fmt.Errorf("patch: load plan schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		// Not even JSON.
		return nil, &SchemaError{Issues: []string{err.Error()}}
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, &SchemaError{Issues: issues}
	}

	var blocks []EditBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("patch: decode plan: %w", err)
	}
	return Plan(blocks), nil
}
