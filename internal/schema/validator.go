// Package schema validates incoming document payloads against JSON Schema.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Validator validates data against a single JSON Schema.
type Validator struct {
	schemaLoader gojsonschema.JSONLoader
}

// NewValidator creates a validator from schema bytes.
func NewValidator(schemaData []byte) (*Validator, error) {
	if !json.Valid(schemaData) {
		return nil, fmt.Errorf("schema is not valid JSON")
	}
	return &Validator{schemaLoader: gojsonschema.NewBytesLoader(schemaData)}, nil
}

// Validate validates a map[string]interface{} against the schema.
func (v *Validator) Validate(data map[string]interface{}) error {
	documentLoader := gojsonschema.NewGoLoader(data)
	result, err := gojsonschema.Validate(v.schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}
		return fmt.Errorf("validation failed: %v", errors)
	}
	return nil
}

// Registry holds one validator per document type. Types without a
// registered schema are accepted as-is.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]*Validator
}

func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]*Validator)}
}

// Register installs (or replaces) the schema for a document type.
func (r *Registry) Register(documentType string, schemaData []byte) error {
	validator, err := NewValidator(schemaData)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", documentType, err)
	}
	r.mu.Lock()
	r.validators[documentType] = validator
	r.mu.Unlock()
	return nil
}

// Validate checks a payload against the schema for its type, if any.
func (r *Registry) Validate(documentType string, data map[string]interface{}) error {
	r.mu.RLock()
	validator, ok := r.validators[documentType]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return validator.Validate(data)
}
