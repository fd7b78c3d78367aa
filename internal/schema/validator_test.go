package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemSchema = `{
	"type": "object",
	"properties": {
		"_id": {"type": "string"},
		"name": {"type": "string", "minLength": 1}
	},
	"required": ["_id", "name"]
}`

func TestValidatorAcceptsAndRejects(t *testing.T) {
	v, err := NewValidator([]byte(itemSchema))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"_id": "A1", "name": "Sword"}))
	assert.Error(t, v.Validate(map[string]interface{}{"_id": "A1"}))
	assert.Error(t, v.Validate(map[string]interface{}{"_id": "A1", "name": ""}))
}

func TestNewValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewValidator([]byte("{not json"))
	assert.Error(t, err)
}

func TestDocumentIDFormat(t *testing.T) {
	RegisterCustomFormats()
	v, err := NewValidator([]byte(`{
		"type": "object",
		"properties": {"_id": {"type": "string", "format": "document_id"}},
		"required": ["_id"]
	}`))
	require.NoError(t, err)

	// server-assigned short id
	assert.NoError(t, v.Validate(map[string]interface{}{"_id": "aB3dEf6hIj9kLm0p"}))
	// UUID
	assert.NoError(t, v.Validate(map[string]interface{}{"_id": "0b0e2346-1b6c-4a01-9de1-0f2c5f158a3b"}))
	assert.Error(t, v.Validate(map[string]interface{}{"_id": "nope id"}))
	assert.Error(t, v.Validate(map[string]interface{}{"_id": ""}))
}

func TestRegistryUnknownTypePasses(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Item", []byte(itemSchema)))

	// registered type enforced
	assert.Error(t, r.Validate("Item", map[string]interface{}{"_id": "A1"}))
	// unregistered type accepted as-is
	assert.NoError(t, r.Validate("Actor", map[string]interface{}{"anything": true}))
}
