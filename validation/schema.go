package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaError describes one strict-schema validation failure after
// coercion has already run. Callers surface these verbatim (spec §7:
// validation failures are surfaced, not retried).
type SchemaError struct {
	Field       string
	Description string
}

func (e SchemaError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidateAgainstSchema runs document (typically the result of
// CoerceTree, re-marshaled) through a JSON Schema (draft-4/6/7, per
// gojsonschema) and returns the list of violations, if any. An empty,
// non-nil slice means the document is valid.
func ValidateAgainstSchema(schemaJSON string, document interface{}) ([]SchemaError, error) {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)

	docBytes, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("marshal document for validation: %w", err)
	}
	docLoader := gojsonschema.NewBytesLoader(docBytes)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return []SchemaError{}, nil
	}

	errs := make([]SchemaError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, SchemaError{Field: e.Field(), Description: e.Description()})
	}
	return errs, nil
}

// FormatSchemaErrors joins a list of SchemaErrors into one human-readable
// string for logging.
func FormatSchemaErrors(errs []SchemaError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

// CoerceAndValidate runs the full repair pipeline described in spec §4.1
// and DESIGN.md: parse (already done by the caller into `raw`), coerce,
// then strictly validate. It returns the coerced document alongside any
// schema violations so callers can decide whether to proceed with a
// best-effort object or surface the failure.
func CoerceAndValidate(raw interface{}, schemaJSON string) (coerced interface{}, errs []SchemaError, err error) {
	coerced = CoerceTree(raw)
	errs, err = ValidateAgainstSchema(schemaJSON, coerced)
	return coerced, errs, err
}
