package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Response contracts of the backend endpoints. Counts may arrive as numbers,
// numeric strings (SQL decimals) or null.
const (
	schemaFilename   = "filename"
	schemaOverview   = "overview"
	schemaCategories = "categories"
	schemaCounts     = "counts"
	schemaServerLoad = "server_load"
	schemaCarts      = "carts"
	schemaRepeated   = "repeated"
	schemaUpload     = "upload"
)

const countType = `{"type": ["number", "string", "null"]}`

var responseSchemas = map[string]string{
	schemaFilename: `{
		"type": "object",
		"required": ["filename"],
		"properties": {"filename": {"type": ["string", "null"]}}
	}`,
	schemaOverview: `{
		"type": "object",
		"required": ["unique_users", "items_views", "payed_carts", "countries"],
		"properties": {
			"unique_users": ` + countType + `,
			"items_views": ` + countType + `,
			"payed_carts": ` + countType + `,
			"countries": ` + countType + `
		}
	}`,
	schemaCategories: `{
		"type": "object",
		"additionalProperties": {"type": "array", "items": {"type": "string"}}
	}`,
	schemaCounts: `{
		"type": "object",
		"additionalProperties": ` + countType + `
	}`,
	schemaServerLoad: `{
		"type": "object",
		"required": ["statistics"],
		"properties": {
			"avg": ` + countType + `,
			"statistics": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["day", "hour", "requests_amount"],
					"properties": {
						"month": ` + countType + `,
						"day": ` + countType + `,
						"hour": ` + countType + `,
						"requests_amount": ` + countType + `
					}
				}
			}
		}
	}`,
	schemaCarts: `{
		"type": "array",
		"items": {"type": ["number", "string", "object", "array"]}
	}`,
	schemaRepeated: `{
		"type": "object",
		"required": ["data"],
		"properties": {
			"amount": ` + countType + `,
			"data": {"type": "object", "additionalProperties": ` + countType + `}
		}
	}`,
	schemaUpload: `{
		"type": "object",
		"required": ["status"],
		"properties": {"status": {"type": "string"}}
	}`,
}

// ResponseValidator checks raw response bodies against the endpoint contracts.
type ResponseValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewResponseValidator builds a validator backed by jsonschema v5.
func NewResponseValidator() *ResponseValidator {
	return &ResponseValidator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate ensures body satisfies the named contract. Unknown names pass.
func (v *ResponseValidator) Validate(name string, body []byte) error {
	if v == nil {
		return nil
	}
	if _, ok := responseSchemas[name]; !ok {
		return nil
	}
	schema, err := v.schemaFor(name)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, name, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, name, err)
	}
	return nil
}

func (v *ResponseValidator) schemaFor(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[name]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, strings.NewReader(responseSchemas[name])); err != nil {
		return nil, fmt.Errorf("analytics: load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("analytics: compile schema %s: %w", name, err)
	}
	v.mu.Lock()
	v.compiled[name] = compiled
	v.mu.Unlock()
	return compiled, nil
}
