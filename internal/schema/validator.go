package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/caretaker/internal/assets"
)

// Known schema names
const (
	ManifestSchema = "h5p-manifest-v1"
	ConfigSchema   = "caretaker-config-v1"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Path    string `json:"path,omitempty"` // Dotted field path (e.g., "preloadedDependencies.0.machineName")
	Message string `json:"message"`
}

// Result holds the validation result.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Err folds the errors into a single error, nil when the document is valid
func (r *Result) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Path+": "+e.Message)
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

// registry holds pre-compiled schemas for the embedded schema names.
var registry = make(map[string]*gojsonschema.Schema)

// init populates the registry from the embedded assets.
func init() {
	for _, info := range assets.GetSchemaNames() {
		schemaBytes, ok := assets.GetSchema(info.Path)
		if !ok || len(schemaBytes) == 0 {
			continue
		}

		// Convert YAML to JSON for gojsonschema
		var schemaData interface{}
		if err := yaml.Unmarshal(schemaBytes, &schemaData); err != nil {
			continue
		}
		jsonBytes, err := json.Marshal(schemaData)
		if err != nil {
			continue
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
		if err != nil {
			continue
		}
		registry[info.Name] = schema
	}
}

// Validate validates data (interface{}) against the named schema.
func Validate(data interface{}, schemaName string) (*Result, error) {
	schema, ok := registry[schemaName]
	if !ok {
		return nil, fmt.Errorf("schema %s not found in registry", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	res := &Result{Valid: result.Valid()}
	if !result.Valid() {
		for _, verr := range result.Errors() {
			field := verr.Field()
			if field == "" || field == "(root)" {
				field = "root"
			}
			res.Errors = append(res.Errors, ValidationError{
				Path:    field,
				Message: verr.Description(),
			})
		}
	}

	return res, nil
}

// ValidateJSON decodes a JSON document and validates it against the named schema.
func ValidateJSON(data []byte, schemaName string) (*Result, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return Validate(doc, schemaName)
}

// ValidateYAML decodes a YAML document and validates it against the named schema.
func ValidateYAML(data []byte, schemaName string) (*Result, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return Validate(doc, schemaName)
}
