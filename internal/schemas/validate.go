// Package schemas validates emitted documents against the embedded JSON Schemas.
package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	embedded "github.com/jonathan/session-indexer/schemas"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	if ve.Schema != "" {
		fmt.Fprintf(&sb, "validation against %s failed:\n", ve.Schema)
	} else {
		sb.WriteString("validation failed:\n")
	}
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, err.Field, err.Message)
	}
	return sb.String()
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

// compileAll compiles every embedded schema once. The session record schema is
// registered first so the others can $ref it by id.
func compileAll() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		base, err := embedded.FS.ReadFile(embedded.SessionRecord)
		if err != nil {
			compileErr = &SchemaLoadError{Path: embedded.SessionRecord, Message: "not embedded", Cause: err}
			return
		}

		out := make(map[string]*gojsonschema.Schema, len(embedded.All))
		for _, name := range embedded.All {
			raw, err := embedded.FS.ReadFile(name)
			if err != nil {
				compileErr = &SchemaLoadError{Path: name, Message: "not embedded", Cause: err}
				return
			}
			loader := gojsonschema.NewSchemaLoader()
			if name != embedded.SessionRecord {
				if err := loader.AddSchemas(gojsonschema.NewBytesLoader(base)); err != nil {
					compileErr = &SchemaLoadError{Path: name, Message: "failed to register referenced schema", Cause: err}
					return
				}
			}
			schema, err := loader.Compile(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				compileErr = &SchemaLoadError{Path: name, Message: "failed to compile", Cause: err}
				return
			}
			out[name] = schema
		}
		compiled = out
	})
	return compiled, compileErr
}

// Validate marshals doc and validates it against the named embedded schema.
func Validate(schemaName string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return ValidateBytes(schemaName, data)
}

// ValidateBytes validates raw JSON against the named embedded schema.
func ValidateBytes(schemaName string, data []byte) error {
	all, err := compileAll()
	if err != nil {
		return err
	}
	schema, ok := all[schemaName]
	if !ok {
		return &SchemaLoadError{Path: schemaName, Message: "unknown schema"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &SchemaLoadError{Path: schemaName, Message: "document is not valid JSON", Cause: err}
	}
	return toValidationError(schemaName, result)
}

// ValidateFile validates a JSON file on disk against the named embedded schema.
func ValidateFile(schemaName, jsonPath string) error {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("JSON file not found: %s", jsonPath)
		}
		return fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}
	return ValidateBytes(schemaName, data)
}

func toValidationError(schemaName string, result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Schema: schemaName,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
