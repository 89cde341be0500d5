// Package validation checks request documents against the embedded JSON
// schemas before they are decoded into domain types.
package validation

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	apperrors "franchisee-hub/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names, one per embedded file.
const (
	SchemaApplication       = "application"
	SchemaSalesEntry        = "sales_entry"
	SchemaFranchiseeProfile = "franchisee_profile"
	SchemaAdminProfile      = "admin_profile"
	SchemaPasswordChange    = "password_change"
	SchemaLogin             = "login"
	SchemaCredentialRequest = "credential_request"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds the compiled schemas.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles every embedded schema. It fails if any of them is malformed.
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}

	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(entries))}
	for _, e := range entries {
		raw, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		v.schemas[strings.TrimSuffix(e.Name(), ".json")] = schema
	}
	return v, nil
}

// Names lists the loaded schema names in order.
func (v *Validator) Names() []string {
	names := make([]string, 0, len(v.schemas))
	for name := range v.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateJSON validates a raw JSON body. A body that is not JSON at all is
// reported as a single error on the root.
func (v *Validator) ValidateJSON(name string, body []byte) (*ValidationResult, error) {
	return v.validate(name, gojsonschema.NewBytesLoader(body))
}

// ValidateInput validates an already decoded document.
func (v *Validator) ValidateInput(name string, input interface{}) (*ValidationResult, error) {
	return v.validate(name, gojsonschema.NewGoLoader(input))
}

func (v *Validator) validate(name string, doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	schema, ok := v.schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}

	result, err := schema.Validate(doc)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: "body is not valid JSON",
				Code:    "invalid_json",
			}},
		}, nil
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}

// fieldOf names the offending property. Required-property errors are
// reported by gojsonschema against the parent object.
func fieldOf(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			if field == "(root)" {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}

// Err converts a failed result into a validation error carrying the field
// list, or nil when the result is valid.
func (vr *ValidationResult) Err() error {
	if vr == nil || vr.Valid {
		return nil
	}
	se := apperrors.NewValidationError(strings.Join(vr.GetErrorMessages(), "; "))
	se.Metadata = map[string]interface{}{"errors": vr.Errors}
	return se
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
